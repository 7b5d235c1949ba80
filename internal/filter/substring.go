package filter

import (
	"strings"

	"github.com/vburojevic/filewatch/internal/domain"
)

// Substring passes lines whose content contains a fixed, case-sensitive term.
type Substring struct {
	term string
}

// NewSubstring creates a substring filter
func NewSubstring(term string) *Substring {
	return &Substring{term: term}
}

// Match returns true if the line content contains the term
func (f *Substring) Match(line *domain.LogLine) bool {
	return strings.Contains(line.Content, f.term)
}
