package tailer

import (
	"context"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vburojevic/filewatch/internal/domain"
)

const testPoll = 100 * time.Millisecond

type recorder struct {
	mu     sync.Mutex
	events []domain.SourceEvent
}

func (r *recorder) Send(ctx context.Context, ev domain.SourceEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) snapshot() []domain.SourceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SourceEvent(nil), r.events...)
}

func (r *recorder) lines() []string {
	var out []string
	for _, ev := range r.snapshot() {
		if ev.Kind == domain.EventLine {
			out = append(out, ev.Text)
		}
	}
	return out
}

func (r *recorder) kinds() []domain.EventKind {
	var out []domain.EventKind
	for _, ev := range r.snapshot() {
		out = append(out, ev.Kind)
	}
	return out
}

type harness struct {
	tailer *Tailer
	rec    *recorder
	clock  *clock.Mock
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, path string, opts Options) *harness {
	t.Helper()
	mock := clock.NewMock()
	opts.Clock = mock
	opts.Logger = zaptest.NewLogger(t)
	if opts.PollInterval == 0 {
		opts.PollInterval = testPoll
	}
	if opts.MinBackoff == 0 {
		opts.MinBackoff = time.Second
		opts.MaxBackoff = time.Second
	}
	opts.Seed = 1

	h := &harness{
		rec:   &recorder{},
		clock: mock,
		done:  make(chan error, 1),
	}
	h.tailer = New(domain.Source{ID: 3, Path: path, Name: filepath.Base(path)}, h.rec, opts)
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.tailer.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-h.done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("tailer did not stop")
		}
	})
	return h
}

func (h *harness) waitState(t *testing.T, s domain.SourceState) {
	t.Helper()
	require.Eventually(t, func() bool { return h.tailer.State() == s }, 2*time.Second, time.Millisecond,
		"want state %s, have %s", s, h.tailer.State())
}

// tickUntil advances the mock clock by step until cond holds.
func (h *harness) tickUntil(t *testing.T, step time.Duration, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.clock.Add(step)
		return cond()
	}, 3*time.Second, 2*time.Millisecond)
}

func appendFile(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(s)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestTailer(t *testing.T) {
	t.Run("lines present before start are never emitted", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		require.NoError(t, os.WriteFile(path, []byte("old 1\nold 2\n"), 0o644))

		h := start(t, path, Options{})
		h.waitState(t, domain.StateTailing)
		appendFile(t, path, "new 1\nnew 2\n")

		h.tickUntil(t, testPoll, func() bool { return len(h.rec.lines()) == 2 })
		assert.Equal(t, []string{"new 1", "new 2"}, h.rec.lines())

		for i, ev := range h.rec.snapshot() {
			assert.Equal(t, domain.SourceID(3), ev.Source)
			assert.Equal(t, uint64(i+1), ev.Seq)
		}
	})

	t.Run("partial lines wait for their terminator", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		h := start(t, path, Options{})
		h.waitState(t, domain.StateTailing)
		appendFile(t, path, "par")
		for range 5 {
			h.clock.Add(testPoll)
		}
		assert.Empty(t, h.rec.lines())

		appendFile(t, path, "tial\r\nnext\n")
		h.tickUntil(t, testPoll, func() bool { return len(h.rec.lines()) == 2 })
		assert.Equal(t, []string{"partial", "next"}, h.rec.lines())
	})

	t.Run("empty lines are kept", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		h := start(t, path, Options{})
		h.waitState(t, domain.StateTailing)
		appendFile(t, path, "a\n\nb\n")
		h.tickUntil(t, testPoll, func() bool { return len(h.rec.lines()) == 3 })
		assert.Equal(t, []string{"a", "", "b"}, h.rec.lines())
	})

	t.Run("sequence is gap free across many lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		h := start(t, path, Options{})
		h.waitState(t, domain.StateTailing)
		var b strings.Builder
		for i := range 5000 {
			fmt.Fprintf(&b, "line %d\n", i)
		}
		appendFile(t, path, b.String())
		h.tickUntil(t, testPoll, func() bool { return len(h.rec.lines()) == 5000 })

		for i, ev := range h.rec.snapshot() {
			require.Equal(t, uint64(i+1), ev.Seq)
			require.Equal(t, fmt.Sprintf("line %d", i), ev.Text)
		}
	})

	t.Run("truncation reseeks to zero", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		h := start(t, path, Options{})
		h.waitState(t, domain.StateTailing)
		appendFile(t, path, "first line\nsecond line\n")
		h.tickUntil(t, testPoll, func() bool { return len(h.rec.lines()) == 2 })

		require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
		h.tickUntil(t, testPoll, func() bool { return len(h.rec.lines()) == 3 })

		assert.Equal(t, []domain.EventKind{
			domain.EventLine, domain.EventLine, domain.EventTruncated, domain.EventLine,
		}, h.rec.kinds())
		assert.Equal(t, []string{"first line", "second line", "x"}, h.rec.lines())
		assert.Equal(t, domain.StateTailing, h.tailer.State())
	})

	t.Run("replacement by rename reads the new file from the start", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.log")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		h := start(t, path, Options{})
		h.waitState(t, domain.StateTailing)
		appendFile(t, path, "before\n")
		h.tickUntil(t, testPoll, func() bool { return len(h.rec.lines()) == 1 })

		tmp := filepath.Join(dir, "app.log.new")
		require.NoError(t, os.WriteFile(tmp, []byte("after\n"), 0o644))
		require.NoError(t, os.Rename(tmp, path))
		h.tickUntil(t, testPoll, func() bool { return len(h.rec.lines()) == 2 })

		assert.Equal(t, []string{"before", "after"}, h.rec.lines())
		assert.Contains(t, h.rec.kinds(), domain.EventTruncated)
	})

	t.Run("missing file is retried and read from the start once it appears", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "later.log")

		h := start(t, path, Options{})
		h.waitState(t, domain.StateRetrying)
		require.Eventually(t, func() bool { return len(h.rec.snapshot()) == 1 }, time.Second, time.Millisecond)
		ev := h.rec.snapshot()[0]
		assert.Equal(t, domain.EventUnavailable, ev.Kind)
		assert.ErrorIs(t, ev.Err, fs.ErrNotExist)

		// Further failed attempts are not reported again.
		for range 3 {
			h.clock.Add(time.Second)
		}
		assert.Len(t, h.rec.snapshot(), 1)

		require.NoError(t, os.WriteFile(path, []byte("born\n"), 0o644))
		h.tickUntil(t, time.Second, func() bool { return len(h.rec.lines()) == 1 })
		assert.Equal(t, []string{"born"}, h.rec.lines())
	})

	t.Run("non regular file closes the source", func(t *testing.T) {
		dir := t.TempDir()
		h := start(t, dir, Options{})

		select {
		case err := <-h.done:
			require.NoError(t, err)
			h.done <- nil
		case <-time.After(2 * time.Second):
			t.Fatal("tailer did not close")
		}
		assert.Equal(t, domain.StateClosed, h.tailer.State())
		events := h.rec.snapshot()
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventDown, events[0].Kind)
		assert.ErrorIs(t, events[0].Err, ErrPermanent)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "never.log")
		h := start(t, path, Options{MaxAttempts: 2})

		h.tickUntil(t, time.Second, func() bool { return h.tailer.State() == domain.StateClosed })
		assert.Equal(t, []domain.EventKind{domain.EventUnavailable, domain.EventDown}, h.rec.kinds())
	})

	t.Run("over long partial lines are split", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		h := start(t, path, Options{MaxLineBytes: 4})
		h.waitState(t, domain.StateTailing)
		appendFile(t, path, "abcdefghij")
		h.tickUntil(t, testPoll, func() bool { return len(h.rec.lines()) == 2 })
		assert.Equal(t, []string{"abcd", "efgh"}, h.rec.lines())

		appendFile(t, path, "\n")
		h.tickUntil(t, testPoll, func() bool { return len(h.rec.lines()) == 3 })
		assert.Equal(t, "ij", h.rec.lines()[2])
	})

	t.Run("over long terminated lines are split", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		h := start(t, path, Options{MaxLineBytes: 16})
		h.waitState(t, domain.StateTailing)
		appendFile(t, path, strings.Repeat("x", 10))
		h.clock.Add(testPoll)
		appendFile(t, path, strings.Repeat("y", 100)+"\r\nshort\n")
		h.tickUntil(t, testPoll, func() bool {
			lines := h.rec.lines()
			return len(lines) > 0 && lines[len(lines)-1] == "short"
		})

		lines := h.rec.lines()
		require.Len(t, lines, 8)
		for _, l := range lines {
			assert.LessOrEqual(t, len(l), 16)
		}
		assert.Equal(t, strings.Repeat("x", 10)+strings.Repeat("y", 100), strings.Join(lines[:7], ""))
		assert.Equal(t, strings.Repeat("y", 14), lines[6])
	})

	t.Run("json field extraction", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.json")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		h := start(t, path, Options{JSONField: "msg"})
		h.waitState(t, domain.StateTailing)
		appendFile(t, path, `{"level":"error","msg":"disk full"}`+"\n"+`{"level":"info"}`+"\nplain text\n")
		h.tickUntil(t, testPoll, func() bool { return len(h.rec.lines()) == 3 })
		assert.Equal(t, []string{"disk full", `{"level":"info"}`, "plain text"}, h.rec.lines())
	})
}

func TestBackoff(t *testing.T) {
	t.Run("doubles up to max", func(t *testing.T) {
		b := newBackoff(time.Second, 8*time.Second, nil)
		var got []time.Duration
		for range 6 {
			got = append(got, b.Next())
		}
		assert.Equal(t, []time.Duration{
			time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second, 8 * time.Second,
		}, got)

		b.Reset()
		assert.Equal(t, time.Second, b.Next())
	})

	t.Run("jitter stays within bounds", func(t *testing.T) {
		b := newBackoff(time.Second, time.Minute, rand.New(rand.NewSource(7)))
		base := time.Second
		for range 10 {
			d := b.Next()
			assert.GreaterOrEqual(t, d, base/2)
			assert.LessOrEqual(t, d, min(base*3/2, time.Minute))
			base = min(base*2, time.Minute)
		}
	})

	t.Run("normalizes bad bounds", func(t *testing.T) {
		b := newBackoff(0, 0, nil)
		assert.Equal(t, 500*time.Millisecond, b.Next())
		assert.Equal(t, 500*time.Millisecond, b.Next())
	})
}

func TestPermanent(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not exist", &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}, false},
		{"permission", &fs.PathError{Op: "open", Path: "x", Err: fs.ErrPermission}, true},
		{"device removed", &fs.PathError{Op: "read", Path: "x", Err: syscall.ENODEV}, true},
		{"io error", fmt.Errorf("read: %w", syscall.EIO), true},
		{"marked", fmt.Errorf("dir: %w", ErrPermanent), true},
		{"vanished", errVanished, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Permanent(tc.err))
		})
	}
}
