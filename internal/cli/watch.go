package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vburojevic/filewatch/internal/app"
	"github.com/vburojevic/filewatch/internal/config"
	"github.com/vburojevic/filewatch/internal/domain"
	"github.com/vburojevic/filewatch/internal/filter"
	"github.com/vburojevic/filewatch/internal/ingest"
	"github.com/vburojevic/filewatch/internal/logging"
	"github.com/vburojevic/filewatch/internal/output"
	"github.com/vburojevic/filewatch/internal/tailer"
	"github.com/vburojevic/filewatch/internal/tui"
)

// WatchCmd follows files in the viewer, or as a plain stream when stdout is
// not a terminal.
type WatchCmd struct {
	Files      []string      `arg:"" name:"file" type:"path" help:"Files to follow, in display order"`
	Filter     []string      `short:"F" help:"Start with this substring filter (can be repeated)"`
	FilterMode string        `name:"filter-mode" default:"${config_filter_mode}" enum:"any,all" help:"How filters combine (any, all)"`
	Poll       time.Duration `default:"${config_poll}" help:"How often files are checked for growth"`
	Plain      bool          `help:"Stream lines to stdout instead of drawing the viewer"`
	Summary    bool          `help:"Print a per-file table to stderr on exit"`
	JSONField  string        `name:"json-field" default:"${config_json_field}" help:"Show only this field of JSON lines (gjson path)"`
}

// Run executes the watch command
func (c *WatchCmd) Run(globals *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return c.run(ctx, globals)
}

func (c *WatchCmd) run(ctx context.Context, globals *Globals) error {
	if len(c.Files) == 0 {
		return outputErrorCommon(globals, "NO_FILES", "no files to watch", "pass one or more file paths, e.g. filewatch app.log db.log")
	}
	cfg := c.effectiveConfig(globals.Config)
	if err := cfg.Validate(); err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", err.Error(), "run 'filewatch config show' to inspect settings")
	}
	mode, err := filter.ParseMode(cfg.FilterMode)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", err.Error(), "")
	}

	log, closeLog, err := logging.New(logging.Options{Path: globals.DebugOutput, Verbose: globals.Verbose})
	if err != nil {
		return outputErrorCommon(globals, "DEBUG_OUTPUT_FAILED", err.Error(), "check that --debug-output points to a writable file")
	}
	defer closeLog()

	sources := buildSources(c.Files)
	log.Info("starting",
		zap.Int("sources", len(sources)),
		zap.Duration("poll", cfg.Poll()),
		zap.String("filter_mode", string(mode)),
		zap.Strings("filters", cfg.Filters),
	)

	merger := ingest.NewMerger(sources, ingest.Options{
		QueueCapacity: cfg.QueueCapacity,
		Quantum:       cfg.DrainQuantum,
		Logger:        log,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	clk := clock.New()
	tailers := make([]*tailer.Tailer, len(sources))
	for i, src := range sources {
		t := tailer.New(src, merger.Queue(src.ID), tailer.Options{
			PollInterval: cfg.Poll(),
			MinBackoff:   cfg.Retry.MinBackoff,
			MaxBackoff:   cfg.Retry.MaxBackoff,
			MaxAttempts:  cfg.Retry.MaxAttempts,
			MaxLineBytes: cfg.MaxLineBytes,
			JSONField:    cfg.JSONField,
			Clock:        clk,
			Logger:       log,
		})
		tailers[i] = t
		g.Go(func() error { return t.Run(gctx) })
	}

	if c.viewer(globals) {
		err = c.runViewer(gctx, globals, cfg, mode, sources, merger, log)
	} else {
		err = c.runPlain(gctx, globals, cfg, mode, sources, merger)
	}

	cancel()
	if werr := g.Wait(); werr != nil {
		log.Warn("tailer stopped with error", zap.Error(werr))
	}
	log.Info("stopped", zap.Int("pending", merger.Pending()))

	if c.Summary {
		if serr := output.WriteSummary(globals.Stderr, summaryRows(merger, tailers)); serr != nil {
			log.Warn("summary failed", zap.Error(serr))
		}
	}
	return err
}

// effectiveConfig layers command flags over the loaded configuration.
func (c *WatchCmd) effectiveConfig(base *config.Config) *config.Config {
	if base == nil {
		base = config.Default()
	}
	cfg := *base
	cfg.Filters = append(append([]string(nil), base.Filters...), c.Filter...)
	if c.Poll != 0 {
		cfg.PollInterval = c.Poll
	}
	if c.FilterMode != "" {
		cfg.FilterMode = c.FilterMode
	}
	if c.JSONField != "" {
		cfg.JSONField = c.JSONField
	}
	return &cfg
}

func (c *WatchCmd) viewer(globals *Globals) bool {
	if c.Plain {
		return false
	}
	f, ok := globals.Stdout.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func (c *WatchCmd) runPlain(ctx context.Context, globals *Globals, cfg *config.Config, mode filter.Mode, sources []domain.Source, merger *ingest.Merger) error {
	set := filter.NewSet(mode)
	for _, term := range cfg.Filters {
		set.Add(term)
	}
	w := output.NewLineWriter(globals.Format, globals.Stdout, sources)
	return merger.Run(ctx, cfg.DrainLimit, func(line domain.LogLine) error {
		if !set.Match(&line) {
			return nil
		}
		return w.Write(&line)
	})
}

func (c *WatchCmd) runViewer(ctx context.Context, globals *Globals, cfg *config.Config, mode filter.Mode, sources []domain.Source, merger *ingest.Merger, log *zap.Logger) error {
	core := app.NewCore(app.CoreOptions{
		Sources:    sources,
		FilterMode: mode,
		Filters:    cfg.Filters,
		Capacity:   cfg.QueueCapacity,
		Logger:     log,
	})
	model := tui.New(ctx, core, merger, tui.Options{
		DrainLimit: cfg.DrainLimit,
		Tick:       cfg.Poll(),
		Logger:     log,
	})

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(globals.Stdout),
	)
	final, err := p.Run()
	if err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return outputErrorCommon(globals, "TUI_FAILED", err.Error(), "use --plain to stream without the viewer")
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		return outputErrorCommon(globals, "INVALID_TERMINAL", m.Err().Error(), "resize the terminal or use --plain")
	}
	return nil
}

// buildSources assigns IDs in argument order. Base names label the sources
// unless two files share one, in which case both show the path as given.
func buildSources(paths []string) []domain.Source {
	seen := make(map[string]int, len(paths))
	for _, p := range paths {
		seen[filepath.Base(p)]++
	}
	sources := make([]domain.Source, len(paths))
	for i, p := range paths {
		name := filepath.Base(p)
		if seen[name] > 1 {
			name = p
		}
		sources[i] = domain.Source{ID: domain.SourceID(i), Path: p, Name: name}
	}
	return sources
}

func summaryRows(merger *ingest.Merger, tailers []*tailer.Tailer) []output.SummaryRow {
	stats := merger.Stats()
	rows := make([]output.SummaryRow, len(stats))
	for i, s := range stats {
		rows[i] = output.SummaryRow{
			Source:      s.Source,
			State:       tailers[i].State(),
			Lines:       s.Lines,
			Bytes:       s.Bytes,
			Truncations: s.Truncations,
			Errors:      s.Errors,
			LastErr:     s.LastErr,
		}
	}
	return rows
}
