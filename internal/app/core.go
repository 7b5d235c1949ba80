// Package app holds the viewer's single-owner state.
//
// Core is not safe for concurrent use. Exactly one goroutine, the event loop,
// feeds it accepted lines and keystrokes and asks it for frames, so the Line
// Store, the filters and the anchor never need locks.
package app

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vburojevic/filewatch/internal/command"
	"github.com/vburojevic/filewatch/internal/domain"
	"github.com/vburojevic/filewatch/internal/filter"
	"github.com/vburojevic/filewatch/internal/store"
	"github.com/vburojevic/filewatch/internal/viewport"
)

// CoreOptions configures a Core.
type CoreOptions struct {
	Sources    []domain.Source
	FilterMode filter.Mode
	Filters    []string // seeded before any line arrives
	Capacity   int      // initial store capacity hint
	Logger     *zap.Logger
}

// Core owns the Line Store, the Filter Engine, the Command Processor and the
// viewport anchor.
type Core struct {
	sources  []domain.Source
	store    *store.Store
	engine   *filter.Engine
	resolver viewport.Resolver
	proc     *command.Processor
	anchor   viewport.Anchor
	width    int
	height   int
	active   int
	message  string
	log      *zap.Logger
}

// NewCore creates a Core following the tail.
func NewCore(opts CoreOptions) *Core {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Named("core")
	st := store.New(opts.Capacity)
	set := filter.NewSet(opts.FilterMode)
	for _, f := range opts.Filters {
		set.Add(f)
	}
	engine := filter.NewEngine(st, set, log)
	return &Core{
		sources:  opts.Sources,
		store:    st,
		engine:   engine,
		resolver: viewport.New(),
		proc:     command.NewProcessor(engine),
		anchor:   viewport.Follow(),
		active:   len(opts.Sources),
		log:      log,
	}
}

// Ingest appends lines accepted by the Merger and extends the filtered index.
// It returns how many of them are visible under the current filters.
func (c *Core) Ingest(lines []domain.LogLine) (int, error) {
	for _, l := range lines {
		if _, err := c.store.Append(l); err != nil {
			return 0, fmt.Errorf("ingest line %d: %w", l.ID, err)
		}
	}
	return c.engine.Sync(), nil
}

// SetActive records how many sources are still up.
func (c *Core) SetActive(n int) {
	c.active = n
}

// Resize records the terminal size. A zero size is allowed here: it renders
// nothing until the terminal grows again.
func (c *Core) Resize(width, height int) {
	c.width, c.height = width, height
}

// ValidateSize rejects a terminal that cannot show any content. It is used
// once, at startup.
func (c *Core) ValidateSize(width, height int) error {
	if err := c.resolver.ValidateSize(width, height); err != nil {
		return fmt.Errorf("terminal %dx%d: %w", width, height, err)
	}
	return nil
}

// HandleKey runs a keystroke through the Command Processor and applies the
// resulting action. The transient message is replaced on every keystroke.
func (c *Core) HandleKey(k command.Key) command.Result {
	res := c.proc.Handle(k)
	c.message = res.Message

	switch res.Action {
	case command.ActionFiltersChanged:
		// A pinned position has no meaning in the new filtered space.
		c.anchor = viewport.Follow()
		c.log.Debug("filters changed", zap.Strings("filters", res.Filters), zap.Uint64("generation", c.engine.Generation()))
	case command.ActionScrollUp:
		c.scroll(-1)
	case command.ActionScrollDown:
		c.scroll(1)
	case command.ActionPageUp:
		c.scroll(-c.pageRows())
	case command.ActionPageDown:
		c.scroll(c.pageRows())
	case command.ActionTop:
		if a, err := c.resolver.Top(c.engine, c.width, c.height); err == nil {
			c.anchor = a
		}
	case command.ActionBottom:
		c.anchor = viewport.Follow()
	}
	return res
}

func (c *Core) pageRows() int {
	return max(1, c.resolver.ContentHeight(c.height))
}

func (c *Core) scroll(delta int) {
	a, err := c.resolver.Scroll(c.engine, c.width, c.height, c.anchor, delta)
	if err != nil {
		return
	}
	c.anchor = a
}

// Frame resolves the rows to paint at the current size. With zero width or
// no content rows the frame is empty.
func (c *Core) Frame() viewport.Frame {
	if c.width <= 0 {
		return viewport.Frame{Height: c.resolver.ContentHeight(c.height), Anchor: c.anchor}
	}
	frame, err := c.resolver.Resolve(c.engine, c.width, c.height, c.anchor)
	if err != nil {
		return viewport.Frame{Anchor: c.anchor}
	}
	c.anchor = frame.Anchor
	return frame
}

// Anchor returns the current viewport anchor.
func (c *Core) Anchor() viewport.Anchor {
	return c.anchor
}

// Filters returns the active filter terms.
func (c *Core) Filters() []string {
	return c.engine.List()
}

// State returns the Command Processor state.
func (c *Core) State() command.State {
	return c.proc.State()
}

// Pending returns filter text being typed.
func (c *Core) Pending() string {
	return c.proc.Pending()
}

// Store exposes the Line Store for read-only inspection.
func (c *Core) Store() *store.Store {
	return c.store
}

// Engine exposes the filtered index for read-only inspection.
func (c *Core) Engine() *filter.Engine {
	return c.engine
}

// Sources returns the watched sources.
func (c *Core) Sources() []domain.Source {
	return c.sources
}

// Status is what the reserved row shows.
type Status struct {
	Editing   bool
	Pending   string
	Following bool
	TopRow    int
	TotalRows int
	Filters   []string
	Mode      filter.Mode
	Visible   int
	Stored    int
	Bytes     int
	Active    int
	Sources   int
	Message   string
}

// Status summarizes the state for the reserved row. frame must come from the
// latest Frame call.
func (c *Core) Status(frame viewport.Frame) Status {
	return Status{
		Editing:   c.proc.State() == command.AwaitingFilterText,
		Pending:   c.proc.Pending(),
		Following: frame.Anchor.Following(),
		TopRow:    frame.TopRow,
		TotalRows: frame.TotalRows,
		Filters:   c.engine.List(),
		Mode:      c.engine.Mode(),
		Visible:   c.engine.Len(),
		Stored:    c.store.Len(),
		Bytes:     c.store.TotalBytes(),
		Active:    c.active,
		Sources:   len(c.sources),
		Message:   c.message,
	}
}

// String renders the status as one plain line.
func (s Status) String() string {
	if s.Editing {
		return "filter: " + s.Pending
	}
	parts := make([]string, 0, 6)
	if s.Following {
		parts = append(parts, "FOLLOW")
	} else {
		parts = append(parts, fmt.Sprintf("row %s/%s", humanize.Comma(int64(s.TopRow+1)), humanize.Comma(int64(s.TotalRows))))
	}
	if len(s.Filters) == 0 {
		parts = append(parts, "no filters")
	} else {
		join := " | "
		if s.Mode == filter.ModeAll {
			join = " & "
		}
		parts = append(parts, "filters: "+strings.Join(s.Filters, join))
	}
	parts = append(parts,
		fmt.Sprintf("%s/%s lines", humanize.Comma(int64(s.Visible)), humanize.Comma(int64(s.Stored))),
		humanize.Bytes(uint64(s.Bytes)),
		fmt.Sprintf("%d/%d sources", s.Active, s.Sources),
	)
	if s.Message != "" {
		parts = append(parts, s.Message)
	}
	return strings.Join(parts, "  ")
}
