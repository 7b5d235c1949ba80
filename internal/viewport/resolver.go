// Package viewport resolves which wrapped rows fill the terminal.
//
// Every query goes through the wrapped-row prefix index of the filtered
// lines, so locating the top of the window costs O(log m) and materializing
// it costs O(H), independent of how many lines are stored.
package viewport

import (
	"errors"

	"github.com/vburojevic/filewatch/internal/domain"
	"github.com/vburojevic/filewatch/internal/wrap"
)

// ErrZeroWidth is returned for a terminal with no columns: no wrap is legal.
var ErrZeroWidth = errors.New("terminal width must be at least 1")

// ErrTooShort is returned by ValidateSize when no row is left for content.
var ErrTooShort = errors.New("terminal height must leave at least one content row")

// Index is the filtered line sequence the resolver reads.
type Index interface {
	Len() int
	Line(pos int) domain.LogLine
	Rows(width int) *wrap.Index
}

// Row is one display row: a slice of a line's content.
type Row struct {
	LineID   uint64
	Source   domain.SourceID
	Kind     domain.LineKind
	Position int // filtered position of the line
	Wrap     int // which wrapped row of the line this is
	Offset   int // byte offset of Text inside the line content
	Count    int // byte length of Text
	Text     string
}

// Frame is the resolved content area for one render.
type Frame struct {
	Rows      []Row
	Width     int
	Height    int // content rows available (terminal height minus reserved rows)
	TopRow    int // global wrapped-row index of Rows[0]
	TotalRows int // wrapped rows across the whole filtered index
	Anchor    Anchor
	AtBottom  bool
}

// Location identifies where a global wrapped row falls.
type Location struct {
	Position   int
	LineID     uint64
	RowOffset  int
	CharOffset int
}

// Resolver maps anchors onto rows. Reserved rows at the bottom of the
// terminal are never used for content.
type Resolver struct {
	Reserved int
}

// New returns a resolver that keeps one row for interactive input.
func New() Resolver {
	return Resolver{Reserved: 1}
}

// ContentHeight returns the rows available for log content.
func (r Resolver) ContentHeight(termHeight int) int {
	h := termHeight - r.Reserved
	if h < 0 {
		return 0
	}
	return h
}

// ValidateSize checks startup terminal dimensions.
func (r Resolver) ValidateSize(width, termHeight int) error {
	if width <= 0 {
		return ErrZeroWidth
	}
	if r.ContentHeight(termHeight) <= 0 {
		return ErrTooShort
	}
	return nil
}

// Resolve produces the rows for a terminal of width x termHeight. A pinned
// anchor past the last full page clamps to the final rows and the returned
// anchor becomes FollowTail, so later appends keep the bottom in view.
func (r Resolver) Resolve(idx Index, width, termHeight int, anchor Anchor) (Frame, error) {
	if width <= 0 {
		return Frame{}, ErrZeroWidth
	}
	h := r.ContentHeight(termHeight)
	rows := idx.Rows(width)
	total := rows.Total()
	frame := Frame{Width: width, Height: h, TotalRows: total, Anchor: anchor}
	if h == 0 {
		return frame, nil
	}

	maxTop := max(0, total-h)
	top := topRow(rows, anchor, maxTop)
	frame.TopRow = top
	frame.AtBottom = top == maxTop
	if frame.AtBottom {
		frame.Anchor = Follow()
	} else {
		pos, off := rows.Locate(top)
		frame.Anchor = Pin(pos, off)
	}

	frame.Rows = make([]Row, 0, min(h, total-top))
	pos, off := rows.Locate(top)
	for n := idx.Len(); pos < n && len(frame.Rows) < h; pos++ {
		line := idx.Line(pos)
		count := wrap.Rows(line.ByteLength, width)
		for ; off < count && len(frame.Rows) < h; off++ {
			start := off * width
			end := min(start+width, line.ByteLength)
			frame.Rows = append(frame.Rows, Row{
				LineID:   line.ID,
				Source:   line.Source,
				Kind:     line.Kind,
				Position: pos,
				Wrap:     off,
				Offset:   start,
				Count:    end - start,
				Text:     line.Content[start:end],
			})
		}
		off = 0
	}
	return frame, nil
}

// Locate finds the line and intra-line offset of global wrapped row. It
// reports false when row is outside the index.
func (r Resolver) Locate(idx Index, width, row int) (Location, bool, error) {
	if width <= 0 {
		return Location{}, false, ErrZeroWidth
	}
	rows := idx.Rows(width)
	if row < 0 || row >= rows.Total() {
		return Location{}, false, nil
	}
	pos, off := rows.Locate(row)
	return Location{
		Position:   pos,
		LineID:     idx.Line(pos).ID,
		RowOffset:  off,
		CharOffset: off * width,
	}, true, nil
}

// PinRow anchors the top of the viewport at a global wrapped row. Rows past
// the end fall back to FollowTail.
func (r Resolver) PinRow(idx Index, width, row int) (Anchor, error) {
	loc, ok, err := r.Locate(idx, width, max(row, 0))
	if err != nil {
		return Anchor{}, err
	}
	if !ok {
		return Follow(), nil
	}
	return Pin(loc.Position, loc.RowOffset), nil
}

// Scroll moves the anchor by delta wrapped rows (negative is up). Reaching
// the last page returns FollowTail.
func (r Resolver) Scroll(idx Index, width, termHeight int, anchor Anchor, delta int) (Anchor, error) {
	if width <= 0 {
		return Anchor{}, ErrZeroWidth
	}
	h := r.ContentHeight(termHeight)
	rows := idx.Rows(width)
	maxTop := max(0, rows.Total()-h)
	next := topRow(rows, anchor, maxTop) + delta
	if next < 0 {
		next = 0
	}
	if next >= maxTop {
		return Follow(), nil
	}
	return r.PinRow(idx, width, next)
}

// Top anchors the viewport at the first row, or follows the tail when
// everything already fits.
func (r Resolver) Top(idx Index, width, termHeight int) (Anchor, error) {
	return r.Scroll(idx, width, termHeight, Pin(0, 0), 0)
}

func topRow(rows *wrap.Index, anchor Anchor, maxTop int) int {
	if anchor.Mode == FollowTail || anchor.Position >= rows.Len() {
		return maxTop
	}
	off := min(anchor.RowOffset, rows.RowsAt(anchor.Position)-1)
	top := rows.Start(anchor.Position) + max(off, 0)
	return min(top, maxTop)
}
