package output

import (
	"encoding/json"
	"io"

	"github.com/vburojevic/filewatch/internal/domain"
)

// LineWriter writes accepted lines when no viewport is drawn.
type LineWriter interface {
	Write(line *domain.LogLine) error
}

// NewLineWriter returns the writer for format ("text" or "ndjson").
func NewLineWriter(format string, w io.Writer, sources []domain.Source) LineWriter {
	if format == "ndjson" {
		return NewNDJSONWriter(w, sources)
	}
	return NewTextWriter(w, sources)
}

// NDJSONWriter writes log lines as NDJSON
type NDJSONWriter struct {
	w       io.Writer
	encoder *json.Encoder
	sources []domain.Source
}

// NewNDJSONWriter creates a new NDJSON writer
func NewNDJSONWriter(w io.Writer, sources []domain.Source) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false) // keep logs unescaped and avoid extra allocations
	return &NDJSONWriter{
		w:       w,
		encoder: enc,
		sources: sources,
	}
}

// OutputEntry is the NDJSON record for one line
type OutputEntry struct {
	Type          string `json:"type"` // "log" for file content, "system" for generated lines
	SchemaVersion int    `json:"schemaVersion"`
	ID            uint64 `json:"id"`
	Source        string `json:"source"`
	Path          string `json:"path,omitempty"`
	Sequence      uint64 `json:"seq,omitempty"`
	Kind          string `json:"kind"`
	Content       string `json:"content"`
}

// ErrorOutput represents an error message
type ErrorOutput struct {
	Type          string `json:"type"` // Always "error"
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// Write outputs a single line as NDJSON
func (w *NDJSONWriter) Write(line *domain.LogLine) error {
	src := lookup(w.sources, line.Source)
	out := OutputEntry{
		Type:          "log",
		SchemaVersion: SchemaVersion,
		ID:            line.ID,
		Source:        src.String(),
		Path:          src.Path,
		Sequence:      line.SourceSequence,
		Kind:          line.Kind.String(),
		Content:       line.Content,
	}
	if line.Kind.IsSystem() {
		out.Type = "system"
	}
	return w.encoder.Encode(out)
}

// WriteError outputs an error as NDJSON
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	out := ErrorOutput{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		out.Hint = hint[0]
	}
	return w.encoder.Encode(out)
}

// TextWriter writes lines as "source: content"
type TextWriter struct {
	w       io.Writer
	sources []domain.Source
}

// NewTextWriter creates a new text writer
func NewTextWriter(w io.Writer, sources []domain.Source) *TextWriter {
	return &TextWriter{w: w, sources: sources}
}

// Write outputs a single line as styled text
func (w *TextWriter) Write(line *domain.LogLine) error {
	name := lookup(w.sources, line.Source).String()
	prefix := SourceStyle(line.Source).Render(name + ":")
	text := line.Content
	if line.Kind.IsSystem() {
		text = KindStyle(line.Kind, line.Source).Render(text)
	}
	_, err := io.WriteString(w.w, prefix+" "+text+"\n")
	return err
}

// WriteError outputs a styled error
func (w *TextWriter) WriteError(code, message string) error {
	errorLabel := Styles.Danger.Render("Error")
	codeStr := Styles.Warning.Render("[" + code + "]")
	line := errorLabel + " " + codeStr + ": " + message + "\n"
	_, err := io.WriteString(w.w, line)
	return err
}

func lookup(sources []domain.Source, id domain.SourceID) domain.Source {
	if int(id) >= 0 && int(id) < len(sources) && sources[id].ID == id {
		return sources[id]
	}
	for _, s := range sources {
		if s.ID == id {
			return s
		}
	}
	return domain.Source{ID: id}
}
