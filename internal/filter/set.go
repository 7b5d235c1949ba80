package filter

import (
	"fmt"
	"strings"

	"github.com/vburojevic/filewatch/internal/domain"
)

// Mode selects how the terms of a Set combine.
type Mode string

const (
	ModeAny Mode = "any" // a line is visible when it contains any term
	ModeAll Mode = "all" // a line is visible only when it contains every term
)

// ParseMode validates a mode name; the empty string means ModeAny.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAny:
		return ModeAny, nil
	case ModeAll:
		return ModeAll, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q (want any or all)", s)
	}
}

// Set is the active collection of substring terms. Every change bumps the
// generation counter; an empty Set matches every line.
type Set struct {
	mode       Mode
	terms      []string
	match      Filter
	generation uint64
}

// NewSet creates an empty set combining terms with mode.
func NewSet(mode Mode) *Set {
	if mode == "" {
		mode = ModeAny
	}
	s := &Set{mode: mode}
	s.compile()
	return s
}

// Add inserts term. Blank input and terms already present are ignored and
// report false; the generation only moves when the set changes.
func (s *Set) Add(term string) bool {
	if strings.TrimSpace(term) == "" {
		return false
	}
	for _, t := range s.terms {
		if t == term {
			return false
		}
	}
	s.terms = append(s.terms, term)
	s.compile()
	s.generation++
	return true
}

// Clear removes every term. Clearing an empty set is not a change.
func (s *Set) Clear() bool {
	if len(s.terms) == 0 {
		return false
	}
	s.terms = nil
	s.compile()
	s.generation++
	return true
}

// List returns the terms in insertion order.
func (s *Set) List() []string {
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

func (s *Set) Len() int           { return len(s.terms) }
func (s *Set) Empty() bool        { return len(s.terms) == 0 }
func (s *Set) Mode() Mode         { return s.mode }
func (s *Set) Generation() uint64 { return s.generation }

// Match applies the visibility predicate.
func (s *Set) Match(line *domain.LogLine) bool {
	return s.match.Match(line)
}

func (s *Set) compile() {
	filters := make([]Filter, 0, len(s.terms))
	for _, t := range s.terms {
		filters = append(filters, NewSubstring(t))
	}
	if s.mode == ModeAll {
		s.match = NewChain(filters...)
		return
	}
	s.match = NewOrChain(filters...)
}
