package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://www.pixiv.net", cfg.Pixiv.BaseURL)
	assert.Contains(t, cfg.Pixiv.UserAgent, "Mozilla/5.0")
	assert.Equal(t, 50, cfg.Client.MaxConcurrentRequests)
	assert.Equal(t, 3, cfg.Download.MaxTries)
	assert.Equal(t, 120*time.Second, cfg.Download.TransferTimeout)
	assert.Equal(t, "always", cfg.Download.DirPolicy)
	assert.False(t, cfg.Download.FastIncremental)
	assert.True(t, cfg.Download.WriteUpdateFile)
	assert.Equal(t, "file", cfg.Auth.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PIXIVDL_COOKIE", "PHPSESSID=abc")
	t.Setenv("PIXIVDL_USER", "alice")
	t.Setenv("PIXIVDL_OUTPUT_DIR", "/env/output")
	t.Setenv("PIXIVDL_MAX_REQUESTS", "8")
	t.Setenv("PIXIVDL_MAX_TRIES", "5")
	t.Setenv("PIXIVDL_TRANSFER_TIMEOUT", "30s")
	t.Setenv("PIXIVDL_DIR_POLICY", "AUTO")
	t.Setenv("PIXIVDL_AUTH_BACKEND", "keyring")
	t.Setenv("PIXIVDL_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "PHPSESSID=abc", cfg.Pixiv.Cookie)
	assert.Equal(t, "alice", cfg.Pixiv.User)
	assert.Equal(t, "/env/output", cfg.Output.BaseDirectory)
	assert.Equal(t, 8, cfg.Client.MaxConcurrentRequests)
	assert.Equal(t, 5, cfg.Download.MaxTries)
	assert.Equal(t, 30*time.Second, cfg.Download.TransferTimeout)
	assert.Equal(t, "auto", cfg.Download.DirPolicy)
	assert.Equal(t, "keyring", cfg.Auth.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidNumbers(t *testing.T) {
	t.Setenv("PIXIVDL_MAX_REQUESTS", "many")
	t.Setenv("PIXIVDL_TRANSFER_TIMEOUT", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PIXIVDL_MAX_REQUESTS")
	assert.Contains(t, err.Error(), "PIXIVDL_TRANSFER_TIMEOUT")
	assert.Equal(t, 50, cfg.Client.MaxConcurrentRequests)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
pixiv:
  user: bob
client:
  max_concurrent_requests: 10
download:
  max_tries: 4
  transfer_timeout: 45s
  dir_policy: never
  named_dir: true
output:
  base_directory: /data/pixiv
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "bob", cfg.Pixiv.User)
	assert.Equal(t, 10, cfg.Client.MaxConcurrentRequests)
	assert.Equal(t, 4, cfg.Download.MaxTries)
	assert.Equal(t, 45*time.Second, cfg.Download.TransferTimeout)
	assert.Equal(t, "never", cfg.Download.DirPolicy)
	assert.True(t, cfg.Download.NamedDir)
	assert.Equal(t, "/data/pixiv", cfg.Output.BaseDirectory)
	// untouched sections keep their defaults
	assert.Equal(t, "https://www.pixiv.net", cfg.Pixiv.BaseURL)
}

func TestLoadFromTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[download]
dir_policy = "auto"
fast_incremental = true

[auth]
backend = "encrypted"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "auto", cfg.Download.DirPolicy)
	assert.True(t, cfg.Download.FastIncremental)
	assert.Equal(t, "encrypted", cfg.Auth.Backend)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("download: [unclosed"), 0644))
	assert.Error(t, cfg.LoadFromFile(bad))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero permits", func(c *Config) { c.Client.MaxConcurrentRequests = 0 }, "max concurrent requests"},
		{"zero tries", func(c *Config) { c.Download.MaxTries = 0 }, "max tries"},
		{"zero timeout", func(c *Config) { c.Download.TransferTimeout = 0 }, "transfer timeout"},
		{"bad policy", func(c *Config) { c.Download.DirPolicy = "sometimes" }, "directory policy"},
		{"bad backend", func(c *Config) { c.Auth.Backend = "vault" }, "auth backend"},
		{"bad level", func(c *Config) { c.Logging.Level = "chatty" }, "log level"},
		{"empty output", func(c *Config) { c.Output.BaseDirectory = "" }, "output directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Client.MaxConcurrentRequests = -1
	cfg.Download.MaxTries = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max concurrent requests")
	assert.Contains(t, err.Error(), "max tries")
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := DefaultConfig()
			cfg.Download.DirPolicy = "auto"
			cfg.Download.TransferTimeout = 90 * time.Second
			cfg.Output.BaseDirectory = "/srv/pixiv"
			require.NoError(t, cfg.Save(path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded := DefaultConfig()
			loaded.Download.DirPolicy = "never"
			require.NoError(t, loaded.LoadFromFile(path))
			assert.Equal(t, "auto", loaded.Download.DirPolicy)
			assert.Equal(t, 90*time.Second, loaded.Download.TransferTimeout)
			assert.Equal(t, "/srv/pixiv", loaded.Output.BaseDirectory)
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"output":         "/flags/out",
		"max-requests":   12,
		"max-tries":      7,
		"timeout":        10 * time.Second,
		"dir-policy":     "Never",
		"named-dir":      true,
		"fast":           true,
		"no-update-file": true,
		"log-level":      "warn",
		"unknown":        "ignored",
	})

	assert.Equal(t, "/flags/out", cfg.Output.BaseDirectory)
	assert.Equal(t, 12, cfg.Client.MaxConcurrentRequests)
	assert.Equal(t, 7, cfg.Download.MaxTries)
	assert.Equal(t, 10*time.Second, cfg.Download.TransferTimeout)
	assert.Equal(t, "never", cfg.Download.DirPolicy)
	assert.True(t, cfg.Download.NamedDir)
	assert.True(t, cfg.Download.FastIncremental)
	assert.False(t, cfg.Download.WriteUpdateFile)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download:\n  max_tries: 4\noutput:\n  base_directory: /from/file\n"), 0644))

	t.Setenv("PIXIVDL_OUTPUT_DIR", "/from/env")

	cfg, err := Load(path, map[string]interface{}{"max-tries": 9})
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Output.BaseDirectory)
	assert.Equal(t, 9, cfg.Download.MaxTries)

	_, err = Load(path, map[string]interface{}{"dir-policy": "sideways"})
	assert.Error(t, err)
}

func TestConfigDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.ConfigDir = "/custom/dir"
	dir, err := cfg.ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/custom/dir", dir)

	if os.Getenv("APPDATA") == "" {
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		cfg.Auth.ConfigDir = ""
		dir, err = cfg.ConfigDir()
		require.NoError(t, err)
		assert.NotEmpty(t, dir)
	}
}
