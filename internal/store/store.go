// Package store holds the append-only Line Store.
//
// The store is owned by a single goroutine (the event loop). It takes no
// locks: reads and the one writer are serialized by that ownership rule.
package store

import (
	"errors"
	"fmt"

	"github.com/vburojevic/filewatch/internal/domain"
	"github.com/vburojevic/filewatch/internal/fenwick"
	"github.com/vburojevic/filewatch/internal/wrap"
)

// ErrOutOfOrder is returned when a line's ID does not exceed the last stored ID.
var ErrOutOfOrder = errors.New("line id is not increasing")

// Store is the authoritative record of accepted lines plus the prefix
// structures over them: cumulative byte length (always current) and
// cumulative wrapped rows (synced lazily for the width last asked about).
type Store struct {
	lines  []domain.LogLine
	bytes  fenwick.Tree
	rows   wrap.Index
	lastID uint64
}

// New creates an empty store with room for capacity lines.
func New(capacity int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{lines: make([]domain.LogLine, 0, capacity)}
}

// Append records line and returns it with ArrivalOrder set to its position.
func (s *Store) Append(line domain.LogLine) (domain.LogLine, error) {
	if line.ID <= s.lastID {
		return domain.LogLine{}, fmt.Errorf("%w: got %d after %d", ErrOutOfOrder, line.ID, s.lastID)
	}
	line.ByteLength = len(line.Content)
	line.ArrivalOrder = uint64(len(s.lines))
	s.lines = append(s.lines, line)
	s.bytes.Append(line.ByteLength)
	s.lastID = line.ID
	return line, nil
}

// Len returns the number of stored lines.
func (s *Store) Len() int {
	return len(s.lines)
}

// LastID returns the highest stored ID, or 0 when empty.
func (s *Store) LastID() uint64 {
	return s.lastID
}

// At returns the line at position pos (its ArrivalOrder).
func (s *Store) At(pos int) domain.LogLine {
	return s.lines[pos]
}

// ByteOffset returns the cumulative byte length of the lines before pos.
func (s *Store) ByteOffset(pos int) int {
	return s.bytes.Prefix(pos)
}

// TotalBytes returns the byte length of every stored line combined.
func (s *Store) TotalBytes() int {
	return s.bytes.Total()
}

// Rows returns the wrapped-row index over all stored lines at width, syncing
// only the lines appended since the last call at that width.
func (s *Store) Rows(width int) *wrap.Index {
	s.rows.Sync(width, len(s.lines), func(i int) int { return s.lines[i].ByteLength })
	return &s.rows
}

// Scan calls fn for every line from position from onwards, stopping early
// when fn returns false.
func (s *Store) Scan(from int, fn func(domain.LogLine) bool) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(s.lines); i++ {
		if !fn(s.lines[i]) {
			return
		}
	}
}
