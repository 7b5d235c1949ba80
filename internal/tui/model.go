// Package tui renders the viewer with bubbletea.
//
// The bubbletea Update loop is the single consumer of the design: wake-ups
// from the Merger, keystrokes and resizes all arrive as messages and are
// applied to the app.Core one at a time, so a render never observes a
// half-applied filter change.
package tui

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/vburojevic/filewatch/internal/app"
	"github.com/vburojevic/filewatch/internal/command"
	"github.com/vburojevic/filewatch/internal/domain"
	"github.com/vburojevic/filewatch/internal/output"
	"github.com/vburojevic/filewatch/internal/viewport"
)

// Feed is the Merger as seen by the renderer.
type Feed interface {
	Poll(limit int) []domain.LogLine
	Wake() <-chan struct{}
	Active() int
}

// Options configures the model.
type Options struct {
	DrainLimit int           // lines accepted per update
	Tick       time.Duration // periodic refresh
	Logger     *zap.Logger
}

// Model represents the TUI state
type Model struct {
	ctx       context.Context
	core      *app.Core
	feed      Feed
	opts      Options
	textinput textinput.Model
	log       *zap.Logger
	sized     bool
	waiting   bool
	err       error
}

// WakeMsg reports that the Merger has events queued.
type WakeMsg struct{}

// TickMsg triggers periodic updates
type TickMsg time.Time

// New creates a new TUI model. ctx bounds the goroutine waiting on the feed.
func New(ctx context.Context, core *app.Core, feed Feed, opts Options) Model {
	if opts.DrainLimit <= 0 {
		opts.DrainLimit = 4096
	}
	if opts.Tick <= 0 {
		opts.Tick = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ti := textinput.New()
	ti.Prompt = "filter: "
	ti.PromptStyle = output.Styles.Prompt

	return Model{
		ctx:       ctx,
		core:      core,
		feed:      feed,
		opts:      opts,
		textinput: ti,
		log:       opts.Logger.Named("tui"),
		waiting:   true, // Init arms the first waiter
	}
}

// Err returns the startup configuration error that stopped the program, if any.
func (m Model) Err() error {
	return m.err
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForWake(m.ctx, m.feed.Wake()),
		tickCmd(m.opts.Tick),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.sized {
			if err := m.core.ValidateSize(msg.Width, msg.Height); err != nil {
				m.err = err
				return m, tea.Quit
			}
			m.sized = true
		}
		m.core.Resize(msg.Width, msg.Height)
		m.textinput.Width = max(0, msg.Width-len(m.textinput.Prompt)-1)

	case tea.KeyMsg:
		wasEditing := m.core.State() == command.AwaitingFilterText
		for _, k := range mapKey(msg) {
			if res := m.core.HandleKey(k); res.Action == command.ActionQuit {
				return m, tea.Quit
			}
		}
		editing := m.core.State() == command.AwaitingFilterText
		m.textinput.SetValue(m.core.Pending())
		m.textinput.CursorEnd()
		switch {
		case editing && !wasEditing:
			cmds = append(cmds, m.textinput.Focus(), textinput.Blink)
		case !editing && wasEditing:
			m.textinput.Blur()
		}

	case WakeMsg:
		m.waiting = false
		cmds = append(cmds, m.drainCmd())

	case drainMsg:
		cmds = append(cmds, m.drainCmd())

	case TickMsg:
		if m.drain() {
			cmds = append(cmds, drainMore)
		}
		cmds = append(cmds, tickCmd(m.opts.Tick))

	default:
		if m.textinput.Focused() {
			var cmd tea.Cmd
			m.textinput, cmd = m.textinput.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// drainCmd drains once and picks the follow-up: another drain while the
// limit is hit, otherwise a wait for the next wake-up. At most one waiter is
// ever outstanding.
func (m *Model) drainCmd() tea.Cmd {
	if m.drain() {
		return drainMore
	}
	if m.waiting {
		return nil
	}
	m.waiting = true
	return waitForWake(m.ctx, m.feed.Wake())
}

// drain moves accepted lines into the core. It reports whether the drain
// limit was hit and more lines may be waiting.
func (m *Model) drain() bool {
	lines := m.feed.Poll(m.opts.DrainLimit)
	if len(lines) > 0 {
		if _, err := m.core.Ingest(lines); err != nil {
			m.log.Error("ingest", zap.Error(err))
		}
	}
	m.core.SetActive(m.feed.Active())
	return len(lines) >= m.opts.DrainLimit
}

// View renders the UI: exactly the content rows, then the reserved row.
func (m Model) View() string {
	if !m.sized {
		return "starting..."
	}
	frame := m.core.Frame()
	status := m.core.Status(frame)

	var b strings.Builder
	filters := m.core.Filters()
	for i := range frame.Height {
		if i < len(frame.Rows) {
			b.WriteString(renderRow(frame.Rows[i], filters))
		}
		b.WriteByte('\n')
	}
	if status.Editing {
		b.WriteString(m.textinput.View())
	} else {
		b.WriteString(renderStatus(status.String(), frame.Width))
	}
	return b.String()
}

func renderRow(row viewport.Row, filters []string) string {
	text := sanitize(row.Text)
	if row.Kind.IsSystem() {
		return output.KindStyle(row.Kind, row.Source).Render(text)
	}
	style := output.SourceStyle(row.Source)
	return highlight(text, filters, func(s string) string { return style.Render(s) })
}

func renderStatus(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if r := []rune(s); len(r) > width {
		s = string(r[:width])
	}
	return output.Styles.StatusBar.Width(width).Render(s)
}

// sanitize keeps one terminal cell per byte where it can: control
// characters, tabs included, become spaces and invalid UTF-8 is replaced.
func sanitize(s string) string {
	s = strings.ToValidUTF8(s, "?")
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

// highlight styles occurrences of any filter term; plain renders the rest.
// Matching is case-sensitive, like the filters themselves.
func highlight(s string, terms []string, plain func(string) string) string {
	if len(terms) == 0 || s == "" {
		return plain(s)
	}
	var b strings.Builder
	for s != "" {
		idx, n := -1, 0
		for _, t := range terms {
			if t == "" {
				continue
			}
			if i := strings.Index(s, t); i >= 0 && (idx < 0 || i < idx || (i == idx && len(t) > n)) {
				idx, n = i, len(t)
			}
		}
		if idx < 0 {
			b.WriteString(plain(s))
			break
		}
		if idx > 0 {
			b.WriteString(plain(s[:idx]))
		}
		b.WriteString(output.Styles.Highlight.Render(s[idx : idx+n]))
		s = s[idx+n:]
	}
	return b.String()
}

// mapKey converts a bubbletea key into processor keys. Pasted text arrives
// as one message with many runes.
func mapKey(msg tea.KeyMsg) []command.Key {
	switch msg.Type {
	case tea.KeyRunes:
		return command.Keys(string(msg.Runes))
	case tea.KeySpace:
		return []command.Key{command.Rune(' ')}
	case tea.KeyEnter:
		return []command.Key{{Type: command.KeyEnter}}
	case tea.KeyBackspace:
		return []command.Key{{Type: command.KeyBackspace}}
	case tea.KeyEsc:
		return []command.Key{{Type: command.KeyEsc}}
	case tea.KeyUp:
		return []command.Key{{Type: command.KeyUp}}
	case tea.KeyDown:
		return []command.Key{{Type: command.KeyDown}}
	case tea.KeyPgUp:
		return []command.Key{{Type: command.KeyPgUp}}
	case tea.KeyPgDown:
		return []command.Key{{Type: command.KeyPgDown}}
	case tea.KeyHome:
		return []command.Key{{Type: command.KeyHome}}
	case tea.KeyEnd:
		return []command.Key{{Type: command.KeyEnd}}
	case tea.KeyCtrlC:
		return []command.Key{{Type: command.KeyInterrupt}}
	}
	return []command.Key{{Type: command.KeyOther}}
}

// drainMsg continues a drain that stopped at the limit.
type drainMsg struct{}

func drainMore() tea.Msg {
	return drainMsg{}
}

// waitForWake creates a command that waits for the Merger to have events
func waitForWake(ctx context.Context, ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ch:
			return WakeMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// tickCmd creates a periodic tick command
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
