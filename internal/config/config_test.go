package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the working directory, home and XDG config dir at empty
// temp dirs so that no real config file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Chdir(tmpDir)
	return tmpDir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 1024, cfg.QueueCapacity)
	assert.Equal(t, 64, cfg.DrainQuantum)
	assert.Equal(t, 4096, cfg.DrainLimit)
	assert.Equal(t, 1<<20, cfg.MaxLineBytes)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.MinBackoff)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxBackoff)
	assert.Zero(t, cfg.Retry.MaxAttempts)
	assert.Equal(t, "any", cfg.FilterMode)
	assert.Equal(t, "text", cfg.Format)
	assert.Empty(t, cfg.DebugOutput)
	assert.False(t, cfg.Verbose)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when no config file exists", func(t *testing.T) {
		isolate(t)

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("loads config from file", func(t *testing.T) {
		tmpDir := isolate(t)
		configContent := `
poll_interval: 50ms
queue_capacity: 16
filter_mode: all
filters:
  - ERROR
  - panic
retry:
  max_backoff: 5s
`
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".filewatch.yaml"), []byte(configContent), 0o644))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
		assert.Equal(t, 16, cfg.QueueCapacity)
		assert.Equal(t, "all", cfg.FilterMode)
		assert.Equal(t, []string{"ERROR", "panic"}, cfg.Filters)
		assert.Equal(t, 5*time.Second, cfg.Retry.MaxBackoff)
		assert.Equal(t, 500*time.Millisecond, cfg.Retry.MinBackoff, "unset keys keep defaults")
		assert.Equal(t, 64, cfg.DrainQuantum)
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Run("returns error for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromFile("/nonexistent/path/config.yaml")
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("returns error for empty path", func(t *testing.T) {
		_, err := LoadFromFile("")
		assert.Error(t, err)
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0o644))

		cfg, err := LoadFromFile(configPath)
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("returns error for undecodable value", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("poll_interval: soon\n"), 0o644))

		_, err := LoadFromFile(configPath)
		assert.Error(t, err)
	})

	t.Run("parses all config fields", func(t *testing.T) {
		configContent := `
poll_interval: 1s
queue_capacity: 8
drain_quantum: 2
drain_limit: 100
max_line_bytes: 4096
retry:
  min_backoff: 100ms
  max_backoff: 2s
  max_attempts: 3
filter_mode: all
filters: [timeout]
json_field: msg
format: ndjson
debug_output: /tmp/filewatch.log
verbose: true
`
		configPath := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)
		assert.Equal(t, &Config{
			PollInterval:  time.Second,
			QueueCapacity: 8,
			DrainQuantum:  2,
			DrainLimit:    100,
			MaxLineBytes:  4096,
			Retry: RetryConfig{
				MinBackoff:  100 * time.Millisecond,
				MaxBackoff:  2 * time.Second,
				MaxAttempts: 3,
			},
			FilterMode:  "all",
			Filters:     []string{"timeout"},
			JSONField:   "msg",
			Format:      "ndjson",
			DebugOutput: "/tmp/filewatch.log",
			Verbose:     true,
		}, cfg)
	})

	t.Run("accepts toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(configPath, []byte("queue_capacity = 7\n[retry]\nmax_attempts = 2\n"), 0o644))

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.QueueCapacity)
		assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Run("finds .filewatch.yaml in current directory", func(t *testing.T) {
		tmpDir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".filewatch.yaml"), []byte("verbose: true\n"), 0o644))

		found := ConfigFile()
		assert.Equal(t, ".filewatch.yaml", filepath.Base(found))
	})

	t.Run("prefers .filewatch.yaml over .filewatch.yml", func(t *testing.T) {
		tmpDir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".filewatch.yml"), []byte("{}\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".filewatch.yaml"), []byte("{}\n"), 0o644))

		assert.Equal(t, ".filewatch.yaml", filepath.Base(ConfigFile()))
	})

	t.Run("falls back to the XDG config dir", func(t *testing.T) {
		tmpDir := isolate(t)
		dir := filepath.Join(tmpDir, "xdg", "filewatch")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{}\n"), 0o644))

		assert.Equal(t, filepath.Join(dir, "config.yaml"), ConfigFile())
	})

	t.Run("returns empty string when no config found", func(t *testing.T) {
		isolate(t)
		if _, err := os.Stat("/etc/filewatch/config.yaml"); err == nil {
			t.Skip("system config present")
		}
		assert.Empty(t, ConfigFile())
	})
}

func TestEnvOverridesViaViper(t *testing.T) {
	t.Run("poll interval", func(t *testing.T) {
		isolate(t)
		t.Setenv("FILEWATCH_POLL_INTERVAL", "2s")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, cfg.PollInterval)
	})

	t.Run("env beats file", func(t *testing.T) {
		tmpDir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".filewatch.yaml"), []byte("queue_capacity: 10\n"), 0o644))
		t.Setenv("FILEWATCH_QUEUE_CAPACITY", "20")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 20, cfg.QueueCapacity)
	})

	t.Run("nested key via replacer", func(t *testing.T) {
		isolate(t)
		t.Setenv("FILEWATCH_RETRY_MAX_ATTEMPTS", "4")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	})

	t.Run("debug output, filter mode and verbose", func(t *testing.T) {
		isolate(t)
		t.Setenv("FILEWATCH_DEBUG_OUTPUT", "/tmp/debug.log")
		t.Setenv("FILEWATCH_FILTER_MODE", "all")
		t.Setenv("FILEWATCH_VERBOSE", "true")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/debug.log", cfg.DebugOutput)
		assert.Equal(t, "all", cfg.FilterMode)
		assert.True(t, cfg.Verbose)
	})

	t.Run("filters list", func(t *testing.T) {
		isolate(t)
		t.Setenv("FILEWATCH_FILTERS", "ERROR,WARN")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"ERROR", "WARN"}, cfg.Filters)
	})

	t.Run("filters env beats file", func(t *testing.T) {
		tmpDir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".filewatch.yaml"), []byte("filters:\n  - timeout\n"), 0o644))
		t.Setenv("FILEWATCH_FILTERS", "panic")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"panic"}, cfg.Filters)
	})

	t.Run("filters stay nil when unset", func(t *testing.T) {
		isolate(t)
		cfg, err := Load()
		require.NoError(t, err)
		assert.Nil(t, cfg.Filters)
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero poll", func(c *Config) { c.PollInterval = 0 }},
		{"negative queue", func(c *Config) { c.QueueCapacity = -1 }},
		{"zero quantum", func(c *Config) { c.DrainQuantum = 0 }},
		{"zero drain limit", func(c *Config) { c.DrainLimit = 0 }},
		{"zero max line", func(c *Config) { c.MaxLineBytes = 0 }},
		{"zero backoff", func(c *Config) { c.Retry.MinBackoff = 0 }},
		{"negative attempts", func(c *Config) { c.Retry.MaxAttempts = -2 }},
		{"unknown filter mode", func(c *Config) { c.FilterMode = "xor" }},
		{"unknown format", func(c *Config) { c.Format = "yaml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPollClamp(t *testing.T) {
	cfg := Default()
	cfg.PollInterval = time.Millisecond
	assert.Equal(t, MinPollInterval, cfg.Poll())
	cfg.PollInterval = time.Hour
	assert.Equal(t, MaxPollInterval, cfg.Poll())
	cfg.PollInterval = time.Second
	assert.Equal(t, time.Second, cfg.Poll())
}
