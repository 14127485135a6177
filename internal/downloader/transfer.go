package downloader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	errs "pixivdl/pkg/errors"
	"pixivdl/pkg/logger"
	"pixivdl/pkg/models"
	"pixivdl/pkg/retry"
	"pixivdl/pkg/storage"
)

const (
	// DefaultMaxTries is the attempt budget of one asset
	DefaultMaxTries = 3
	// DefaultTransferTimeout bounds a single attempt
	DefaultTransferTimeout = 120 * time.Second
	// DefaultRetryDelay is the pause between attempts
	DefaultRetryDelay = time.Second
)

// Fetcher streams a remote file into w. timeout bounds the transfer itself,
// not the wait for a request slot.
type Fetcher interface {
	Download(ctx context.Context, rawURL string, timeout time.Duration, w io.Writer) (int64, error)
}

// TransferOptions configure a Transfer
type TransferOptions struct {
	MaxTries   int
	Timeout    time.Duration
	RetryDelay time.Duration
}

// Transfer downloads single assets with retries and atomic placement
type Transfer struct {
	fetcher Fetcher
	opts    TransferOptions
	logger  logger.Logger
}

// NewTransfer creates a transfer engine. A zero MaxTries or Timeout falls back
// to the default; a zero RetryDelay retries immediately.
func NewTransfer(fetcher Fetcher, opts TransferOptions, log logger.Logger) *Transfer {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.MaxTries < 1 {
		opts.MaxTries = DefaultMaxTries
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTransferTimeout
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	return &Transfer{fetcher: fetcher, opts: opts, logger: log}
}

// FileName returns the last path segment of an asset URL
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid asset url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("asset url %q has no file name", rawURL)
	}
	return name, nil
}

// SafeDownload fetches rawURL into destDir/<filename>. Each attempt writes
// destDir/._<filename> from scratch and the file is renamed into place only
// after a complete transfer. Once the attempt budget is spent the temp file
// is removed and an Exhausted error carrying the last failure is returned.
func (t *Transfer) SafeDownload(ctx context.Context, rawURL, destDir string) (*models.DownloadAttempt, error) {
	name, err := FileName(rawURL)
	if err != nil {
		return nil, err
	}

	af := storage.NewAtomicFile(destDir, name)
	attempt := &models.DownloadAttempt{
		AssetURL:  rawURL,
		FinalPath: af.FinalPath(),
		TempPath:  af.TempPathName(),
	}

	var lastErr error
	err = retry.Do(func(n int) error {
		attempt.Tries = n
		lastErr = t.once(ctx, af, rawURL)
		return lastErr
	}, &retry.Config{
		MaxAttempts: t.opts.MaxTries,
		Backoff:     &retry.ConstantBackoff{Delay: t.opts.RetryDelay},
		// per-attempt timeouts are retried; only the caller's context stops the loop
		RetryIf: func(error) bool { return ctx.Err() == nil },
		Context: ctx,
		Logger:  t.logger,
	})
	if err != nil {
		af.Abort()
		if lastErr == nil {
			lastErr = err
		}
		exhausted := errs.NewExhausted(attempt.FinalPath, attempt.Tries, lastErr)
		logger.LogTransfer(t.logger, rawURL, attempt.FinalPath, attempt.Tries, exhausted)
		return attempt, exhausted
	}

	logger.LogTransfer(t.logger, rawURL, attempt.FinalPath, attempt.Tries, nil)
	return attempt, nil
}

func (t *Transfer) once(ctx context.Context, af *storage.AtomicFile, rawURL string) error {
	f, err := af.Open()
	if err != nil {
		return err
	}

	if _, err := t.fetcher.Download(ctx, rawURL, t.opts.Timeout, f); err != nil {
		return err
	}
	return af.Commit()
}
