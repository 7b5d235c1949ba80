package filter

import (
	"time"

	"go.uber.org/zap"

	"github.com/vburojevic/filewatch/internal/domain"
	"github.com/vburojevic/filewatch/internal/store"
	"github.com/vburojevic/filewatch/internal/wrap"
)

// Engine keeps the FilteredIndex: the ordered store positions of lines that
// pass the current Set. New lines are tested incrementally through Sync; a
// filter change rebuilds the index with one scan of the store.
type Engine struct {
	store     *store.Store
	set       *Set
	positions []int
	scanned   int
	builtGen  uint64
	rows      wrap.Index
	log       *zap.Logger
}

// NewEngine creates an engine over st using set as the active filters.
func NewEngine(st *store.Store, set *Set, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{store: st, set: set, log: log}
	e.rebuild()
	return e
}

// Add inserts a filter term and rebuilds the index. It reports whether the
// filter set changed.
func (e *Engine) Add(term string) bool {
	if !e.set.Add(term) {
		return false
	}
	e.rebuild()
	return true
}

// Clear removes all filters and rebuilds the index. It reports whether the
// filter set changed.
func (e *Engine) Clear() bool {
	if !e.set.Clear() {
		return false
	}
	e.rebuild()
	return true
}

// List returns the active filter terms.
func (e *Engine) List() []string {
	return e.set.List()
}

// Generation returns the filter generation the index was built for.
func (e *Engine) Generation() uint64 {
	return e.builtGen
}

// Mode returns how the active filters combine.
func (e *Engine) Mode() Mode {
	return e.set.Mode()
}

// Sync tests lines appended to the store since the last call and appends the
// matching ones to the index. It returns how many lines were added.
func (e *Engine) Sync() int {
	added := 0
	matchAll := e.set.Empty()
	e.store.Scan(e.scanned, func(line domain.LogLine) bool {
		if matchAll || e.set.Match(&line) {
			e.positions = append(e.positions, e.scanned)
			added++
		}
		e.scanned++
		return true
	})
	return added
}

// Len returns the number of visible lines.
func (e *Engine) Len() int {
	return len(e.positions)
}

// Line returns the visible line at filtered position pos.
func (e *Engine) Line(pos int) domain.LogLine {
	return e.store.At(e.positions[pos])
}

// IDs returns the FilteredIndex as line IDs, oldest first.
func (e *Engine) IDs() []uint64 {
	ids := make([]uint64, len(e.positions))
	for i, p := range e.positions {
		ids[i] = e.store.At(p).ID
	}
	return ids
}

// Rows returns the wrapped-row prefix index over the visible lines at width.
func (e *Engine) Rows(width int) *wrap.Index {
	e.rows.Sync(width, len(e.positions), func(i int) int {
		return e.store.At(e.positions[i]).ByteLength
	})
	return &e.rows
}

func (e *Engine) rebuild() {
	start := time.Now()
	e.positions = e.positions[:0]
	e.scanned = 0
	e.rows.Reset(0)
	e.Sync()
	e.builtGen = e.set.Generation()
	e.log.Debug("filtered index rebuilt",
		zap.Uint64("generation", e.builtGen),
		zap.Strings("filters", e.set.List()),
		zap.Int("visible", len(e.positions)),
		zap.Int("stored", e.store.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
}
