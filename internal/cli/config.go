package cli

import (
	"encoding/json"
	"fmt"

	"github.com/vburojevic/filewatch/internal/config"
)

// ConfigCmd shows or manages configuration
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"withargs" help:"Show current configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show configuration file path"`
	Generate ConfigGenerateCmd `cmd:"" help:"Generate sample configuration file"`
}

// ConfigShowCmd shows current configuration
type ConfigShowCmd struct{}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if globals.Format == "ndjson" {
		output := map[string]interface{}{
			"type":           "config",
			"poll_interval":  cfg.PollInterval.String(),
			"queue_capacity": cfg.QueueCapacity,
			"drain_quantum":  cfg.DrainQuantum,
			"drain_limit":    cfg.DrainLimit,
			"max_line_bytes": cfg.MaxLineBytes,
			"retry": map[string]interface{}{
				"min_backoff":  cfg.Retry.MinBackoff.String(),
				"max_backoff":  cfg.Retry.MaxBackoff.String(),
				"max_attempts": cfg.Retry.MaxAttempts,
			},
			"filter_mode":  cfg.FilterMode,
			"filters":      cfg.Filters,
			"json_field":   cfg.JSONField,
			"format":       cfg.Format,
			"debug_output": cfg.DebugOutput,
			"verbose":      cfg.Verbose,
			"file":         config.ConfigFile(),
		}
		encoder := json.NewEncoder(globals.Stdout)
		return encoder.Encode(output)
	}

	// Text output
	fmt.Fprintln(globals.Stdout, "Current Configuration:")
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintf(globals.Stdout, "  poll_interval:  %s\n", cfg.PollInterval)
	fmt.Fprintf(globals.Stdout, "  queue_capacity: %d\n", cfg.QueueCapacity)
	fmt.Fprintf(globals.Stdout, "  drain_quantum:  %d\n", cfg.DrainQuantum)
	fmt.Fprintf(globals.Stdout, "  drain_limit:    %d\n", cfg.DrainLimit)
	fmt.Fprintf(globals.Stdout, "  max_line_bytes: %d\n", cfg.MaxLineBytes)
	fmt.Fprintf(globals.Stdout, "  filter_mode:    %s\n", cfg.FilterMode)
	fmt.Fprintf(globals.Stdout, "  format:         %s\n", cfg.Format)
	fmt.Fprintf(globals.Stdout, "  verbose:        %v\n", cfg.Verbose)
	if len(cfg.Filters) > 0 {
		fmt.Fprintf(globals.Stdout, "  filters:        %q\n", cfg.Filters)
	}
	if cfg.JSONField != "" {
		fmt.Fprintf(globals.Stdout, "  json_field:     %s\n", cfg.JSONField)
	}
	if cfg.DebugOutput != "" {
		fmt.Fprintf(globals.Stdout, "  debug_output:   %s\n", cfg.DebugOutput)
	}
	fmt.Fprintln(globals.Stdout, "")
	fmt.Fprintln(globals.Stdout, "Retry:")
	fmt.Fprintf(globals.Stdout, "  min_backoff:  %s\n", cfg.Retry.MinBackoff)
	fmt.Fprintf(globals.Stdout, "  max_backoff:  %s\n", cfg.Retry.MaxBackoff)
	fmt.Fprintf(globals.Stdout, "  max_attempts: %d\n", cfg.Retry.MaxAttempts)

	if path := config.ConfigFile(); path != "" {
		fmt.Fprintln(globals.Stdout, "")
		fmt.Fprintf(globals.Stdout, "Loaded from: %s\n", path)
	}

	return nil
}

// ConfigPathCmd shows config file path
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()

	if globals.Format == "ndjson" {
		output := map[string]interface{}{
			"type": "config_path",
			"path": path,
		}
		encoder := json.NewEncoder(globals.Stdout)
		return encoder.Encode(output)
	}

	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found")
		fmt.Fprintln(globals.Stdout, "")
		fmt.Fprintln(globals.Stdout, "Searched, in order:")
		for _, path := range config.SearchPaths() {
			fmt.Fprintf(globals.Stdout, "  %s\n", path)
		}
	} else {
		fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	}

	return nil
}

// ConfigGenerateCmd generates a sample configuration file
type ConfigGenerateCmd struct{}

// Run executes the config generate command
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	sampleConfig := `# filewatch configuration file
# The first file found is used, searched in this order:
#   ./.filewatch.yaml, ./.filewatch.yml
#   ~/.filewatch.yaml, ~/.filewatch.yml
#   $XDG_CONFIG_HOME/filewatch/config.yaml (~/.config/filewatch/config.yaml)
#   /etc/filewatch/config.yaml
# Every key can also be set with a FILEWATCH_ environment variable, e.g.
# FILEWATCH_POLL_INTERVAL=100ms or FILEWATCH_FILTERS=ERROR,WARN.

# How often each file is checked for growth (clamped to 10ms..10s)
poll_interval: 250ms

# Events a file may queue before its tailer waits for the viewer
queue_capacity: 1024

# Events taken from one file per round, and per screen update
drain_quantum: 64
drain_limit: 4096

# Longer unterminated lines are split at this size
max_line_bytes: 1048576

# Reopening files that are missing or unreadable
retry:
  min_backoff: 500ms
  max_backoff: 30s
  # 0 retries forever
  max_attempts: 0

# How filters combine: "any" (a line matches one filter) or "all"
filter_mode: any

# Filters active at startup
# filters:
#   - ERROR
#   - timeout

# Show only this field of JSON lines (gjson path)
# json_field: msg

# Plain mode output: "text" or "ndjson"
format: text

# Diagnostics
# debug_output: /tmp/filewatch.log
verbose: false
`

	fmt.Fprint(globals.Stdout, sampleConfig)
	return nil
}
