package tailer

import (
	"math/rand"
	"time"
)

// backoff doubles from min up to max. Each delay is jittered to between 0.5x
// and 1.5x so that tailers sharing a failing mount do not retry in lockstep.
type backoff struct {
	min, max time.Duration
	cur      time.Duration
	rng      *rand.Rand
}

func newBackoff(min, max time.Duration, rng *rand.Rand) *backoff {
	if min <= 0 {
		min = 500 * time.Millisecond
	}
	if max < min {
		max = min
	}
	return &backoff{min: min, max: max, rng: rng}
}

// Next returns the delay before the next attempt.
func (b *backoff) Next() time.Duration {
	if b.cur == 0 {
		b.cur = b.min
	} else {
		b.cur = min(b.cur*2, b.max)
	}
	d := b.cur
	if b.rng != nil {
		d = time.Duration(float64(d) * (0.5 + b.rng.Float64()))
	}
	return min(d, b.max)
}

// Reset restarts the sequence at min.
func (b *backoff) Reset() {
	b.cur = 0
}
