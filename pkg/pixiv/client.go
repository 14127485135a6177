package pixiv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errs "pixivdl/pkg/errors"
	"pixivdl/pkg/logger"
	"pixivdl/pkg/ratelimit"
)

const (
	// DefaultUserAgent is a desktop browser user agent accepted by the AJAX API
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/105.0.0.0 Safari/537.36"

	// Referer is required by the image servers, which reject hotlinked requests
	Referer = "https://www.pixiv.net/"
)

// Options configure a Client
type Options struct {
	// BaseURL overrides the API host, used by tests
	BaseURL string
	// UserAgent overrides DefaultUserAgent
	UserAgent string
	// Cookie is the session cookie; a leading "Cookie: " is stripped
	Cookie string
	// RequestTimeout bounds each API call. Asset downloads are bounded by their caller.
	RequestTimeout time.Duration
	// HTTPClient replaces the default http.Client
	HTTPClient *http.Client
}

// Client is a pixiv AJAX API client. Every request it sends holds a permit
// from the shared pool until the response body has been consumed.
type Client struct {
	httpClient     *http.Client
	headers        map[string]string
	baseURL        string
	requestTimeout time.Duration
	permits        ratelimit.Limiter
	logger         logger.Logger
}

// NewClient creates a new pixiv API client
func NewClient(opts Options, permits ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if permits == nil {
		permits = ratelimit.NewPermitPool(ratelimit.DefaultPermits)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = BaseURL
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	headers := map[string]string{
		"User-Agent": userAgent,
		"Referer":    Referer,
	}
	if cookie := NormalizeCookie(opts.Cookie); cookie != "" {
		headers["Cookie"] = cookie
	}

	return &Client{
		httpClient:     httpClient,
		headers:        headers,
		baseURL:        baseURL,
		requestTimeout: opts.RequestTimeout,
		permits:        permits,
		logger:         log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// BaseURL returns the API host the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Permits returns the limiter shared by every request of this client
func (c *Client) Permits() ratelimit.Limiter {
	return c.permits
}

// HasCookie reports whether requests are authenticated
func (c *Client) HasCookie() bool {
	_, ok := c.headers["Cookie"]
	return ok
}

// doRequest sends a GET with the configured headers. The permit is acquired
// before timeout starts counting, so time spent queueing for a slot is not
// charged to the request. done releases the permit and the deadline; call it
// once the body is consumed.
func (c *Client) doRequest(ctx context.Context, rawURL string, timeout time.Duration) (*http.Response, func(), error) {
	permit, err := c.permits.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}

	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}
	done := func() {
		permit.Release()
		cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		done()
		return nil, nil, errs.NewNetwork(fmt.Errorf("create request: %w", err))
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		done()
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      rawURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, nil, errs.NewNetwork(err)
	}

	logger.LogRequest(c.logger, req.Method, rawURL, resp.StatusCode, duration)
	return resp, done, nil
}

type envelope struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Body    json.RawMessage `json:"body"`
}

// getJSON performs an API call and decodes the envelope body into target
func (c *Client) getJSON(ctx context.Context, rawURL string, target interface{}) error {
	resp, done, err := c.doRequest(ctx, rawURL, c.requestTimeout)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	done()
	if err != nil {
		return errs.NewNetwork(fmt.Errorf("read response body: %w", err))
	}

	return c.decode(rawURL, resp.StatusCode, data, target)
}

func (c *Client) decode(rawURL string, status int, data []byte, target interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return errs.NewEmptyResponse(status)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"status":       status,
			"error":        err.Error(),
			"body_preview": preview(data),
		})
		return errs.NewParse(status, err)
	}

	if env.Error {
		c.logger.DebugWithFields("server rejected request", map[string]interface{}{
			"url":     rawURL,
			"status":  status,
			"message": env.Message,
		})
		return errs.NewApplication(env.Message, status)
	}

	if status < 200 || status > 299 {
		return errs.NewHTTP(status)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(env.Body, target); err != nil {
		c.logger.ErrorWithFields("failed to parse response body", map[string]interface{}{
			"url":          rawURL,
			"status":       status,
			"error":        err.Error(),
			"body_preview": preview(env.Body),
		})
		return errs.NewParse(status, err)
	}
	return nil
}

func preview(data []byte) string {
	s := string(data)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// Download streams the file at rawURL into w. The permit is held until the
// whole body has been copied; timeout bounds the transfer once the permit is
// held and zero means no limit.
func (c *Client) Download(ctx context.Context, rawURL string, timeout time.Duration, w io.Writer) (int64, error) {
	resp, done, err := c.doRequest(ctx, rawURL, timeout)
	if err != nil {
		return 0, err
	}
	defer done()
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, errs.NewHTTP(resp.StatusCode)
	}

	n, err := io.Copy(trackWrites(w), resp.Body)
	if err != nil {
		var writeErr *writeError
		if errors.As(err, &writeErr) {
			return n, errs.NewIO("write", writeErr.err)
		}
		return n, errs.NewNetwork(fmt.Errorf("read body: %w", err))
	}
	return n, nil
}

// writeError marks failures of the destination writer so Download can tell
// them apart from a broken connection.
type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

func trackWrites(w io.Writer) io.Writer {
	return writerFunc(func(p []byte) (int, error) {
		n, err := w.Write(p)
		if err != nil {
			return n, &writeError{err: err}
		}
		return n, nil
	})
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
