package domain

// LineKind distinguishes file content from lines the tool itself produces.
type LineKind uint8

const (
	LineContent     LineKind = iota // a complete line read from a source file
	LineTruncated                   // informational: source was truncated and reseeked
	LineUnavailable                 // source could not be opened or read, retrying
	LineSourceDown                  // source closed permanently
)

// IsSystem reports whether the line was generated by filewatch rather than read
// from a file.
func (k LineKind) IsSystem() bool {
	return k != LineContent
}

func (k LineKind) String() string {
	switch k {
	case LineContent:
		return "content"
	case LineTruncated:
		return "truncated"
	case LineUnavailable:
		return "unavailable"
	case LineSourceDown:
		return "down"
	default:
		return "unknown"
	}
}

// LogLine is one accepted line. It is immutable once the Merger creates it.
type LogLine struct {
	ID             uint64   `json:"id"`              // global, strictly increasing, starts at 1
	Source         SourceID `json:"source"`          // originating source
	SourceSequence uint64   `json:"source_sequence"` // per-source content sequence (1, 2, 3...); 0 for system lines
	Content        string   `json:"content"`
	ByteLength     int      `json:"byte_length"`
	ArrivalOrder   uint64   `json:"arrival_order"` // position in the Line Store, set on append
	Kind           LineKind `json:"kind"`
}

// NewLogLine builds a line with ByteLength derived from content.
func NewLogLine(id uint64, source SourceID, seq uint64, content string, kind LineKind) LogLine {
	return LogLine{
		ID:             id,
		Source:         source,
		SourceSequence: seq,
		Content:        content,
		ByteLength:     len(content),
		Kind:           kind,
	}
}
