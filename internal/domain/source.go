package domain

import "fmt"

// SourceID identifies a watched file. IDs are dense, assigned in command-line order.
type SourceID int

// Source describes one watched file.
type Source struct {
	ID   SourceID `json:"id"`
	Path string   `json:"path"`
	Name string   `json:"name"` // short display label, usually the base name
}

func (s Source) String() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("source-%d", s.ID)
}

// SourceState is the lifecycle state of a Source Tailer.
type SourceState int32

const (
	StateOpening SourceState = iota
	StateSeeking
	StateTailing
	StateRetrying
	StateClosed
)

func (s SourceState) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateSeeking:
		return "seeking"
	case StateTailing:
		return "tailing"
	case StateRetrying:
		return "retrying"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventKind classifies what a tailer reports to the Merger.
type EventKind int

const (
	EventLine        EventKind = iota // a complete line
	EventTruncated                    // file shrank below the read offset
	EventUnavailable                  // open/read failed, tailer is retrying
	EventDown                         // tailer closed for good; no more events follow
)

// SourceEvent is the unit a tailer sends on its queue.
type SourceEvent struct {
	Source SourceID
	Kind   EventKind
	Seq    uint64 // set for EventLine only
	Text   string // line content for EventLine
	Offset int64  // read offset after the event
	Err    error  // cause for EventUnavailable and EventDown
}

// LineKind maps the event onto the kind of line the Merger creates for it.
// ok is false for an event kind no tailer sends.
func (e SourceEvent) LineKind() (kind LineKind, ok bool) {
	switch e.Kind {
	case EventLine:
		return LineContent, true
	case EventTruncated:
		return LineTruncated, true
	case EventUnavailable:
		return LineUnavailable, true
	case EventDown:
		return LineSourceDown, true
	default:
		return 0, false
	}
}
