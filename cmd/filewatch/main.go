package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/vburojevic/filewatch/internal/cli"
	"github.com/vburojevic/filewatch/internal/config"
)

func main() {
	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Config values become flag defaults; explicit flags still win
	ctx := kong.Parse(&c,
		kong.Name("filewatch"),
		kong.Description("Follow several log files in one scrollable, filterable view.\n\nKeys: f add filter, k clear filters, - list filters, g/G top/bottom, ctrl+c quit"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		cli.Vars(cfg),
	)

	// Create globals with config fallbacks
	globals := cli.NewGlobalsWithConfig(&c, cfg)
	if err := ctx.Run(globals); err != nil {
		os.Exit(1)
	}
}
