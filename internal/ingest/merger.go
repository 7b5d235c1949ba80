// Package ingest funnels tailer events into one ordered stream of LogLines.
//
// Every source has its own bounded Queue. The Merger is the single consumer:
// it drains queues round-robin and assigns global IDs in the order it
// accepts events, so per-source order is preserved and no source starves.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vburojevic/filewatch/internal/domain"
)

// Options configures a Merger.
type Options struct {
	QueueCapacity int // per-source bound
	Quantum       int // events taken from one source per round
	Logger        *zap.Logger
}

// SourceStats are the Merger's per-source counters.
type SourceStats struct {
	Source      domain.Source
	Active      bool
	Lines       uint64
	Bytes       uint64
	Truncations uint64
	Errors      uint64
	LastErr     string
}

// Merger consumes all source queues. It is not safe for concurrent use: only
// the event loop calls Poll.
type Merger struct {
	queues  []*Queue
	stats   []SourceStats
	wake    chan struct{}
	quantum int
	start   int
	nextID  uint64
	active  int
	log     *zap.Logger
}

// NewMerger creates a Merger with one queue per source. Source IDs must be
// 0..len(sources)-1 in order.
func NewMerger(sources []domain.Source, opts Options) *Merger {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 1024
	}
	if opts.Quantum <= 0 {
		opts.Quantum = 64
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := &Merger{
		queues:  make([]*Queue, len(sources)),
		stats:   make([]SourceStats, len(sources)),
		wake:    make(chan struct{}, 1),
		quantum: opts.Quantum,
		nextID:  1,
		active:  len(sources),
		log:     opts.Logger.Named("merger"),
	}
	for i, src := range sources {
		if int(src.ID) != i {
			panic(fmt.Sprintf("ingest: source %d has id %d", i, src.ID))
		}
		m.queues[i] = &Queue{source: src.ID, ch: make(chan domain.SourceEvent, opts.QueueCapacity), wake: m.wake}
		m.stats[i] = SourceStats{Source: src, Active: true}
	}
	return m
}

// Queue returns the queue a tailer for id sends to.
func (m *Merger) Queue(id domain.SourceID) *Queue {
	return m.queues[id]
}

// Wake is signalled after a Send. A signal may cover many events; one
// receive followed by Poll is enough.
func (m *Merger) Wake() <-chan struct{} {
	return m.wake
}

// Active returns the number of sources that have not gone down.
func (m *Merger) Active() int {
	return m.active
}

// Stats returns a copy of the per-source counters.
func (m *Merger) Stats() []SourceStats {
	return append([]SourceStats(nil), m.stats...)
}

// Pending returns the number of events waiting in all queues.
func (m *Merger) Pending() int {
	n := 0
	for _, q := range m.queues {
		n += q.Len()
	}
	return n
}

// Poll accepts up to limit events, visiting sources round-robin and taking at
// most Quantum events from each per round. The first source visited rotates
// between calls. Poll never blocks. A limit <= 0 means no limit.
func (m *Merger) Poll(limit int) []domain.LogLine {
	n := len(m.queues)
	if n == 0 {
		return nil
	}
	var out []domain.LogLine
	first := m.start
	m.start = (m.start + 1) % n
	for {
		progress := false
		for i := range n {
			q := m.queues[(first+i)%n]
		drain:
			for range m.quantum {
				if limit > 0 && len(out) >= limit {
					return out
				}
				select {
				case ev := <-q.ch:
					if line, ok := m.accept(ev); ok {
						out = append(out, line)
					}
					progress = true
				default:
					break drain
				}
			}
		}
		if !progress {
			return out
		}
	}
}

// accept turns ev into a LogLine with the next ID and updates counters.
// Events of an unknown kind are dropped without using an ID.
func (m *Merger) accept(ev domain.SourceEvent) (domain.LogLine, bool) {
	kind, ok := ev.LineKind()
	if !ok {
		m.log.Warn("dropping event of unknown kind", zap.Int("source", int(ev.Source)), zap.Int("kind", int(ev.Kind)))
		return domain.LogLine{}, false
	}
	st := &m.stats[ev.Source]
	var (
		seq  uint64
		text string
	)
	switch kind {
	case domain.LineContent:
		seq, text = ev.Seq, ev.Text
		st.Lines++
		st.Bytes += uint64(len(ev.Text))
	case domain.LineTruncated:
		st.Truncations++
		text = fmt.Sprintf("[%s truncated, reading from start]", st.Source)
		if ev.Err != nil {
			text = fmt.Sprintf("[%s replaced, reading from start]", st.Source)
		}
	case domain.LineUnavailable:
		st.Errors++
		st.LastErr = errString(ev.Err)
		text = fmt.Sprintf("[%s unavailable, retrying: %s]", st.Source, st.LastErr)
	case domain.LineSourceDown:
		st.Errors++
		st.LastErr = errString(ev.Err)
		if st.Active {
			st.Active = false
			m.active--
		}
		text = fmt.Sprintf("[%s down: %s]", st.Source, st.LastErr)
		m.log.Info("source down", zap.Int("source", int(ev.Source)), zap.String("error", st.LastErr))
	}
	line := domain.NewLogLine(m.nextID, ev.Source, seq, text, kind)
	m.nextID++
	return line, true
}

// Run is the consumer loop for when no viewport is drawn: it waits for
// events and hands every accepted line to emit, in order, until ctx is done
// or every source is down and drained. An error from emit stops the loop.
func (m *Merger) Run(ctx context.Context, limit int, emit func(domain.LogLine) error) error {
	for {
		for _, line := range m.Poll(limit) {
			if err := emit(line); err != nil {
				return err
			}
		}
		if m.active == 0 && m.Pending() == 0 {
			return nil
		}
		if m.Pending() > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-m.wake:
		}
	}
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
