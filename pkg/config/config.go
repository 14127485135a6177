package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable read by LoadFromEnv
const EnvPrefix = "PIXIVDL_"

// Config holds all configuration options for pixivdl
type Config struct {
	Pixiv         PixivConfig        `yaml:"pixiv" json:"pixiv" toml:"pixiv"`
	Client        ClientConfig       `yaml:"client" json:"client" toml:"client"`
	Download      DownloadConfig     `yaml:"download" json:"download" toml:"download"`
	Output        OutputConfig       `yaml:"output" json:"output" toml:"output"`
	Auth          AuthConfig         `yaml:"auth" json:"auth" toml:"auth"`
	Notifications NotificationConfig `yaml:"notifications" json:"notifications" toml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging" json:"logging" toml:"logging"`
}

// PixivConfig holds upstream access settings
type PixivConfig struct {
	// Cookie overrides any cookie stored in the user database
	Cookie string `yaml:"cookie,omitempty" json:"cookie,omitempty" toml:"cookie,omitempty"`
	// User selects a stored user instead of the default one
	User      string `yaml:"user,omitempty" json:"user,omitempty" toml:"user,omitempty"`
	UserAgent string `yaml:"user_agent" json:"user_agent" toml:"user_agent"`
	BaseURL   string `yaml:"base_url" json:"base_url" toml:"base_url"`
}

// ClientConfig holds settings of the shared HTTP client
type ClientConfig struct {
	// MaxConcurrentRequests is the size of the process-wide permit pool
	MaxConcurrentRequests int           `yaml:"max_concurrent_requests" json:"max_concurrent_requests" toml:"max_concurrent_requests"`
	RequestTimeout        time.Duration `yaml:"request_timeout" json:"request_timeout" toml:"request_timeout"`
}

// DownloadConfig holds download engine settings
type DownloadConfig struct {
	MaxTries        int           `yaml:"max_tries" json:"max_tries" toml:"max_tries"`
	TransferTimeout time.Duration `yaml:"transfer_timeout" json:"transfer_timeout" toml:"transfer_timeout"`
	RetryDelay      time.Duration `yaml:"retry_delay" json:"retry_delay" toml:"retry_delay"`
	// DirPolicy is one of always, never, auto
	DirPolicy       string `yaml:"dir_policy" json:"dir_policy" toml:"dir_policy"`
	NamedDir        bool   `yaml:"named_dir" json:"named_dir" toml:"named_dir"`
	FastIncremental bool   `yaml:"fast_incremental" json:"fast_incremental" toml:"fast_incremental"`
	SaveMetadata    bool   `yaml:"save_metadata" json:"save_metadata" toml:"save_metadata"`
	Ugoira          bool   `yaml:"ugoira" json:"ugoira" toml:"ugoira"`
	WriteUpdateFile bool   `yaml:"write_update_file" json:"write_update_file" toml:"write_update_file"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory" toml:"base_directory"`
}

// AuthConfig selects where session cookies are kept
type AuthConfig struct {
	// Backend is one of file, keyring, encrypted
	Backend   string `yaml:"backend" json:"backend" toml:"backend"`
	ConfigDir string `yaml:"config_dir,omitempty" json:"config_dir,omitempty" toml:"config_dir,omitempty"`
}

// NotificationConfig holds desktop notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled" toml:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete" toml:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error" toml:"on_error"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level" toml:"level"`
	File    string `yaml:"file,omitempty" json:"file,omitempty" toml:"file,omitempty"`
	NoColor bool   `yaml:"no_color" json:"no_color" toml:"no_color"`
	JSON    bool   `yaml:"json" json:"json" toml:"json"`
}

// DefaultConfig returns a Config instance with the stock defaults
func DefaultConfig() *Config {
	return &Config{
		Pixiv: PixivConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/105.0.0.0 Safari/537.36",
			BaseURL:   "https://www.pixiv.net",
		},
		Client: ClientConfig{
			MaxConcurrentRequests: 50,
			RequestTimeout:        60 * time.Second,
		},
		Download: DownloadConfig{
			MaxTries:        3,
			TransferTimeout: 120 * time.Second,
			RetryDelay:      time.Second,
			DirPolicy:       "always",
			WriteUpdateFile: true,
		},
		Output: OutputConfig{
			BaseDirectory: ".",
		},
		Auth: AuthConfig{
			Backend: "file",
		},
		Notifications: NotificationConfig{
			Enabled:    false,
			OnComplete: true,
			OnError:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv overrides fields from PIXIVDL_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := getenv("COOKIE"); v != "" {
		c.Pixiv.Cookie = v
	}
	if v := getenv("USER"); v != "" {
		c.Pixiv.User = v
	}
	if v := getenv("USER_AGENT"); v != "" {
		c.Pixiv.UserAgent = v
	}
	if v := getenv("BASE_URL"); v != "" {
		c.Pixiv.BaseURL = v
	}
	if v := getenv("OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := getenv("MAX_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_REQUESTS: %w", EnvPrefix, err))
		} else {
			c.Client.MaxConcurrentRequests = n
		}
	}
	if v := getenv("MAX_TRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_TRIES: %w", EnvPrefix, err))
		} else {
			c.Download.MaxTries = n
		}
	}
	if v := getenv("TRANSFER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTRANSFER_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Download.TransferTimeout = d
		}
	}
	if v := getenv("DIR_POLICY"); v != "" {
		c.Download.DirPolicy = strings.ToLower(v)
	}
	if v := getenv("AUTH_BACKEND"); v != "" {
		c.Auth.Backend = strings.ToLower(v)
	}
	if v := getenv("NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.Logging.NoColor = true
	}

	return errors.Join(errs...)
}

func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

// LoadFromFile loads configuration from a YAML or TOML file.
// An empty path searches the default locations; finding nothing is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if isTOML(path) {
		err = toml.Unmarshal(data, c)
	} else {
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// findConfigFile searches for a config file in the standard locations
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".pixivdl.yaml",
		".pixivdl.yml",
		".pixivdl.toml",
	}
	if dir, err := DefaultConfigDir(); err == nil {
		locations = append(locations,
			filepath.Join(dir, "config.yaml"),
			filepath.Join(dir, "config.yml"),
			filepath.Join(dir, "config.toml"),
		)
	}
	if home != "" {
		locations = append(locations, filepath.Join(home, ".pixivdl.yaml"))
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// DefaultConfigDir returns the per-user configuration directory without creating it
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "pixivdl"), nil
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "pixivdl"), nil
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "pixivdl"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "pixivdl"), nil
	}
}

// ConfigDir returns the configured directory for the user database, or the default one
func (c *Config) ConfigDir() (string, error) {
	if c.Auth.ConfigDir != "" {
		return c.Auth.ConfigDir, nil
	}
	return DefaultConfigDir()
}

var (
	validDirPolicies = map[string]bool{"always": true, "never": true, "auto": true}
	validBackends    = map[string]bool{"file": true, "keyring": true, "encrypted": true}
	validLogLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true, "disabled": true, "off": true}
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Pixiv.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.Pixiv.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}
	if c.Client.MaxConcurrentRequests <= 0 {
		errs = append(errs, errors.New("max concurrent requests must be positive"))
	}
	if c.Client.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Download.MaxTries < 1 {
		errs = append(errs, errors.New("max tries must be at least 1"))
	}
	if c.Download.TransferTimeout <= 0 {
		errs = append(errs, errors.New("transfer timeout must be positive"))
	}
	if c.Download.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}
	if !validDirPolicies[strings.ToLower(c.Download.DirPolicy)] {
		errs = append(errs, fmt.Errorf("invalid directory policy %q (want always, never or auto)", c.Download.DirPolicy))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if !validBackends[strings.ToLower(c.Auth.Backend)] {
		errs = append(errs, fmt.Errorf("invalid auth backend %q (want file, keyring or encrypted)", c.Auth.Backend))
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save writes the configuration as YAML, or TOML when path ends in .toml
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeCommandLineFlags applies flags that were explicitly set on the command line.
// Keys match the long flag names of the download commands.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["cookie"].(string); ok && v != "" {
		c.Pixiv.Cookie = v
	}
	if v, ok := flags["user"].(string); ok && v != "" {
		c.Pixiv.User = v
	}
	if v, ok := flags["max-requests"].(int); ok && v > 0 {
		c.Client.MaxConcurrentRequests = v
	}
	if v, ok := flags["max-tries"].(int); ok && v > 0 {
		c.Download.MaxTries = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v > 0 {
		c.Download.TransferTimeout = v
	}
	if v, ok := flags["retry-delay"].(time.Duration); ok && v >= 0 {
		c.Download.RetryDelay = v
	}
	if v, ok := flags["dir-policy"].(string); ok && v != "" {
		c.Download.DirPolicy = strings.ToLower(v)
	}
	if v, ok := flags["named-dir"].(bool); ok {
		c.Download.NamedDir = v
	}
	if v, ok := flags["fast"].(bool); ok {
		c.Download.FastIncremental = v
	}
	if v, ok := flags["save-metadata"].(bool); ok {
		c.Download.SaveMetadata = v
	}
	if v, ok := flags["ugoira"].(bool); ok {
		c.Download.Ugoira = v
	}
	if v, ok := flags["no-update-file"].(bool); ok && v {
		c.Download.WriteUpdateFile = false
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.Logging.NoColor = true
	}
}

// Load loads configuration from all sources.
// Precedence: command line flags > environment > .env files > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".pixivdl.env"))
	}

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
