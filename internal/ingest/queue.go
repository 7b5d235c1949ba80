package ingest

import (
	"context"

	"github.com/vburojevic/filewatch/internal/domain"
)

// Queue is one source's bounded channel into the Merger. It implements
// tailer.Sink.
type Queue struct {
	source domain.SourceID
	ch     chan domain.SourceEvent
	wake   chan<- struct{}
}

// Send enqueues ev, blocking while the queue is full. Events are never
// dropped; the only way out of a blocked Send is ctx.
func (q *Queue) Send(ctx context.Context, ev domain.SourceEvent) error {
	ev.Source = q.source
	select {
	case q.ch <- ev:
	default:
		select {
		case q.ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue bound.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
