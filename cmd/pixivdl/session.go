package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pixivdl/pkg/auth"
	"pixivdl/pkg/config"
	"pixivdl/pkg/logger"
	"pixivdl/pkg/pixiv"
	"pixivdl/pkg/ratelimit"
	"pixivdl/pkg/ui"
)

// loadConfig merges the global flags and extra command flags into the
// configuration and initializes the global logger from it
func loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, error) {
	flags := make(map[string]interface{}, len(extra)+3)
	for k, v := range extra {
		flags[k] = v
	}
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = logLevel
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications"] = notifications
	}
	if noColor {
		flags["no-color"] = true
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if cfg.Logging.NoColor {
		ui.SetNoColor(true)
	}

	// Console logs would tear the progress line; only errors get through
	// unless asked for
	if !verbose && !cmd.Flags().Changed("log-level") && cfg.Logging.File == "" {
		cfg.Logging.Level = "error"
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, nil
}

// openUserDB opens the user database with the secret store selected by the config
func openUserDB(cfg *config.Config) (*auth.UserDB, error) {
	dir, err := cfg.ConfigDir()
	if err != nil {
		return nil, err
	}
	secrets, err := auth.NewSecretStore(strings.ToLower(cfg.Auth.Backend), dir)
	if err != nil {
		return nil, err
	}
	return auth.OpenUserDB(auth.DBPath(dir), secrets)
}

// resolveCookie picks the cookie of a run: an explicit cookie, then the
// selected user, then the default user. An empty result means anonymous access.
func resolveCookie(cfg *config.Config) (string, error) {
	if cfg.Pixiv.Cookie != "" {
		return cfg.Pixiv.Cookie, nil
	}
	db, err := openUserDB(cfg)
	if err != nil {
		return "", err
	}
	return db.ResolveCookie(cfg.Pixiv.User)
}

// session bundles the client of one command with the permit pool it draws from
type session struct {
	cfg    *config.Config
	cookie string
	pool   *ratelimit.PermitPool
	client *pixiv.Client
}

func newSession(cfg *config.Config) (*session, error) {
	cookie, err := resolveCookie(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve cookie: %w", err)
	}

	log := logger.GetLogger()
	if cookie == "" {
		log.Warn("No cookie configured, requests are anonymous")
	}

	pool := ratelimit.NewPermitPool(cfg.Client.MaxConcurrentRequests)
	client := pixiv.NewClient(pixiv.Options{
		BaseURL:        cfg.Pixiv.BaseURL,
		UserAgent:      cfg.Pixiv.UserAgent,
		Cookie:         cookie,
		RequestTimeout: cfg.Client.RequestTimeout,
	}, pool, log)

	return &session{cfg: cfg, cookie: cookie, pool: pool, client: client}, nil
}

func (s *session) Close() {
	s.pool.Close()
}

// stdoutIsTerminal reports whether stdout can redraw a progress line
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// readSecret reads a line from stdin without echo when stdin is a terminal
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
