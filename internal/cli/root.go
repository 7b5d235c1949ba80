package cli

import (
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/vburojevic/filewatch/internal/config"
)

// CLI is the root command structure for filewatch
type CLI struct {
	// Global flags
	Format      string           `short:"f" default:"${config_format}" enum:"text,ndjson" help:"Output format for plain mode and errors"`
	Verbose     bool             `short:"v" help:"Debug-level diagnostics (written to --debug-output)"`
	DebugOutput string           `short:"o" name:"debug-output" default:"${config_debug_output}" help:"Append diagnostic logs to this file"`
	Version     kong.VersionFlag `help:"Show version information"`

	// Commands
	Watch  WatchCmd  `cmd:"" default:"withargs" help:"Follow one or more files (default command)"`
	Config ConfigCmd `cmd:"" help:"Show or manage configuration"`
}

// Globals holds shared state for all commands
type Globals struct {
	Format      string
	Verbose     bool
	DebugOutput string
	Stdout      io.Writer
	Stderr      io.Writer
	Config      *config.Config
}

// NewGlobals creates a new Globals instance from CLI flags
func NewGlobals(cli *CLI) *Globals {
	return NewGlobalsWithConfig(cli, config.Default())
}

// NewGlobalsWithConfig creates a new Globals instance with config fallbacks
func NewGlobalsWithConfig(cli *CLI, cfg *config.Config) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	g := &Globals{
		Format:      cli.Format,
		Verbose:     cli.Verbose,
		DebugOutput: cli.DebugOutput,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Config:      cfg,
	}

	// If verbose wasn't set via CLI, use config value
	if !cli.Verbose && cfg.Verbose {
		g.Verbose = true
	}
	if g.Format == "" {
		g.Format = cfg.Format
	}
	if g.DebugOutput == "" {
		g.DebugOutput = cfg.DebugOutput
	}
	return g
}

// Vars seeds kong defaults from the loaded configuration so that flags
// override config, and config overrides built-in defaults.
func Vars(cfg *config.Config) kong.Vars {
	if cfg == nil {
		cfg = config.Default()
	}
	return kong.Vars{
		"config_format":       cfg.Format,
		"config_debug_output": cfg.DebugOutput,
		"config_filter_mode":  cfg.FilterMode,
		"config_poll":         cfg.PollInterval.String(),
		"config_json_field":   cfg.JSONField,
		"version":             Version + " (" + Commit + ")",
	}
}

// Version information (set at build time)
var (
	Version = "dev"
	Commit  = "none"
)
