package viewport

import "fmt"

// Mode says what the viewport is anchored to.
type Mode int

const (
	FollowTail Mode = iota // always show the newest rows
	Pinned                 // hold a user-chosen position in the filtered index
)

// Anchor is the scroll state of the viewport. Position indexes the filtered
// index (not a line ID) and RowOffset selects a wrapped row inside that line,
// so a pinned anchor stays on the same line when the width changes or new
// lines arrive.
type Anchor struct {
	Mode      Mode
	Position  int
	RowOffset int
}

// Follow returns the FollowTail anchor.
func Follow() Anchor {
	return Anchor{Mode: FollowTail}
}

// Pin anchors the top of the viewport at row offset of filtered position pos.
func Pin(pos, offset int) Anchor {
	if pos < 0 {
		pos = 0
	}
	if offset < 0 {
		offset = 0
	}
	return Anchor{Mode: Pinned, Position: pos, RowOffset: offset}
}

// Following reports whether the anchor tracks the tail.
func (a Anchor) Following() bool {
	return a.Mode == FollowTail
}

func (a Anchor) String() string {
	if a.Mode == FollowTail {
		return "follow"
	}
	return fmt.Sprintf("pinned(%d+%d)", a.Position, a.RowOffset)
}
