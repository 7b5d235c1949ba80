package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Poll interval bounds. Values outside are clamped, not rejected.
const (
	MinPollInterval = 10 * time.Millisecond
	MaxPollInterval = 10 * time.Second
)

// EnvPrefix prefixes every environment override, e.g. FILEWATCH_POLL_INTERVAL.
const EnvPrefix = "FILEWATCH"

// Config holds application configuration
type Config struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	QueueCapacity int           `mapstructure:"queue_capacity"`
	DrainQuantum  int           `mapstructure:"drain_quantum"`
	DrainLimit    int           `mapstructure:"drain_limit"`
	MaxLineBytes  int           `mapstructure:"max_line_bytes"`
	Retry         RetryConfig   `mapstructure:"retry"`

	FilterMode string   `mapstructure:"filter_mode"`
	Filters    []string `mapstructure:"filters"`
	JSONField  string   `mapstructure:"json_field"`
	Format     string   `mapstructure:"format"`

	DebugOutput string `mapstructure:"debug_output"`
	Verbose     bool   `mapstructure:"verbose"`
}

// RetryConfig controls how a tailer retries a source it cannot open
type RetryConfig struct {
	MinBackoff  time.Duration `mapstructure:"min_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
	MaxAttempts int           `mapstructure:"max_attempts"` // 0 = unlimited
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		PollInterval:  250 * time.Millisecond,
		QueueCapacity: 1024,
		DrainQuantum:  64,
		DrainLimit:    4096,
		MaxLineBytes:  1 << 20,
		Retry: RetryConfig{
			MinBackoff: 500 * time.Millisecond,
			MaxBackoff: 30 * time.Second,
		},
		FilterMode: "any",
		Format:     "text",
	}
}

// Load loads configuration from files and environment
// Config file search order (highest precedence first):
// 1. ./.filewatch.yaml or ./.filewatch.yml
// 2. ~/.filewatch.yaml or ~/.filewatch.yml
// 3. $XDG_CONFIG_HOME/filewatch/config.yaml (or ~/.config/filewatch/config.yaml)
// 4. /etc/filewatch/config.yaml
// A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	return load(path)
}

func load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// newViper registers every key with its default so that environment
// variables can override keys that no file mentions.
func newViper() *viper.Viper {
	d := Default()
	v := viper.New()
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("queue_capacity", d.QueueCapacity)
	v.SetDefault("drain_quantum", d.DrainQuantum)
	v.SetDefault("drain_limit", d.DrainLimit)
	v.SetDefault("max_line_bytes", d.MaxLineBytes)
	v.SetDefault("retry.min_backoff", d.Retry.MinBackoff)
	v.SetDefault("retry.max_backoff", d.Retry.MaxBackoff)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("filter_mode", d.FilterMode)
	v.SetDefault("json_field", d.JSONField)
	v.SetDefault("format", d.Format)
	v.SetDefault("debug_output", d.DebugOutput)
	v.SetDefault("verbose", d.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// filters has no default so an unset list stays nil. The env form is
	// comma separated: FILEWATCH_FILTERS=ERROR,WARN.
	_ = v.BindEnv("filters")
	return v
}

// Validate reports the first setting that makes the configuration unusable.
func (c *Config) Validate() error {
	switch {
	case c.PollInterval <= 0:
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	case c.QueueCapacity <= 0:
		return fmt.Errorf("queue_capacity must be positive, got %d", c.QueueCapacity)
	case c.DrainQuantum <= 0:
		return fmt.Errorf("drain_quantum must be positive, got %d", c.DrainQuantum)
	case c.DrainLimit <= 0:
		return fmt.Errorf("drain_limit must be positive, got %d", c.DrainLimit)
	case c.MaxLineBytes <= 0:
		return fmt.Errorf("max_line_bytes must be positive, got %d", c.MaxLineBytes)
	case c.Retry.MinBackoff <= 0 || c.Retry.MaxBackoff <= 0:
		return fmt.Errorf("retry backoff must be positive, got %s..%s", c.Retry.MinBackoff, c.Retry.MaxBackoff)
	case c.Retry.MaxAttempts < 0:
		return fmt.Errorf("retry.max_attempts must not be negative, got %d", c.Retry.MaxAttempts)
	}
	switch c.FilterMode {
	case "any", "all":
	default:
		return fmt.Errorf("filter_mode must be any or all, got %q", c.FilterMode)
	}
	switch c.Format {
	case "text", "ndjson":
	default:
		return fmt.Errorf("format must be text or ndjson, got %q", c.Format)
	}
	return nil
}

// Poll returns the poll interval clamped to [MinPollInterval, MaxPollInterval].
func (c *Config) Poll() time.Duration {
	return min(max(c.PollInterval, MinPollInterval), MaxPollInterval)
}

// SearchPaths lists the config file candidates, highest precedence first.
func SearchPaths() []string {
	names := []string{".filewatch.yaml", ".filewatch.yml"}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		for _, name := range names {
			candidates = append(candidates, filepath.Join(cwd, name))
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		for _, name := range names {
			candidates = append(candidates, filepath.Join(home, name))
		}
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(configDir, "filewatch", "config.yaml"))
	}
	return append(candidates, "/etc/filewatch/config.yaml")
}

// findConfigFile returns the first search path that exists
func findConfigFile() string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigFile returns the path to the config file that would be loaded
func ConfigFile() string {
	return findConfigFile()
}
