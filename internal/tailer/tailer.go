// Package tailer follows one file and reports its new lines.
//
// A Tailer moves through Opening, Seeking, Tailing and then Retrying or
// Closed. Failures never escape Run: they are reported to the sink as events
// and the tailer either retries with backoff or closes its source.
package tailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/vburojevic/filewatch/internal/domain"
)

const readChunk = 32 * 1024

// Sink receives events. Send blocks while the consumer is behind and fails
// only when ctx is done.
type Sink interface {
	Send(ctx context.Context, ev domain.SourceEvent) error
}

// Options configures a Tailer. Zero values fall back to defaults.
type Options struct {
	PollInterval time.Duration
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	MaxAttempts  int // consecutive failed opens before giving up; 0 means never
	MaxLineBytes int
	JSONField    string // gjson path; when set, JSON lines are reduced to this value
	Clock        clock.Clock
	Logger       *zap.Logger
	Seed         int64
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 250 * time.Millisecond
	}
	if o.MinBackoff <= 0 {
		o.MinBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = 1 << 20
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}

// Tailer follows a single source. Run must be called at most once.
type Tailer struct {
	src  domain.Source
	sink Sink
	opts Options
	log  *zap.Logger
	clk  clock.Clock

	state atomic.Int32

	info    os.FileInfo
	offset  int64
	seq     uint64
	partial []byte
	buf     []byte
}

// New creates a tailer for src that reports to sink.
func New(src domain.Source, sink Sink, opts Options) *Tailer {
	opts = opts.withDefaults()
	t := &Tailer{
		src:  src,
		sink: sink,
		opts: opts,
		log:  opts.Logger.Named("tailer").With(zap.Int("source", int(src.ID)), zap.String("path", src.Path)),
		clk:  opts.Clock,
		buf:  make([]byte, readChunk),
	}
	t.state.Store(int32(domain.StateOpening))
	return t
}

// Source returns the followed source.
func (t *Tailer) Source() domain.Source {
	return t.src
}

// State returns the current lifecycle state. Safe to call from any goroutine.
func (t *Tailer) State() domain.SourceState {
	return domain.SourceState(t.state.Load())
}

func (t *Tailer) setState(s domain.SourceState) {
	if prev := domain.SourceState(t.state.Swap(int32(s))); prev != s {
		t.log.Debug("state", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

// Run follows the source until ctx is done or the source closes. It returns
// nil in both cases; a closed source is reported to the sink, not to the
// caller.
func (t *Tailer) Run(ctx context.Context) error {
	bo := newBackoff(t.opts.MinBackoff, t.opts.MaxBackoff, rand.New(rand.NewSource(t.opts.Seed)))
	// Only a file that exists when watching starts has history to skip.
	seekEnd := true
	attempts := 0
	reported := false

	for {
		t.setState(domain.StateOpening)
		f, err := t.open()
		if err == nil {
			attempts = 0
			reported = false
			bo.Reset()
			err = t.follow(ctx, f, seekEnd)
			f.Close()
			seekEnd = false
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, errRotated) {
				if err := t.emit(ctx, domain.SourceEvent{Kind: domain.EventTruncated, Err: err}); err != nil {
					return nil
				}
				continue
			}
		} else {
			seekEnd = false
			attempts++
		}

		if Permanent(err) || (t.opts.MaxAttempts > 0 && attempts >= t.opts.MaxAttempts) {
			t.close(ctx, err)
			return nil
		}

		t.setState(domain.StateRetrying)
		delay := bo.Next()
		t.log.Info("retrying", zap.Error(err), zap.Int("attempt", attempts), zap.Duration("delay", delay))
		// Repeated failures of the same kind are reported once per outage.
		if !reported {
			reported = true
			if err := t.emit(ctx, domain.SourceEvent{Kind: domain.EventUnavailable, Err: err}); err != nil {
				return nil
			}
		}
		timer := t.clk.Timer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (t *Tailer) close(ctx context.Context, err error) {
	t.log.Warn("source down", zap.Error(err))
	_ = t.emit(ctx, domain.SourceEvent{Kind: domain.EventDown, Err: err})
	t.setState(domain.StateClosed)
}

func (t *Tailer) open() (*os.File, error) {
	f, err := os.Open(t.src.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", t.src.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", t.src.Path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%s is not a regular file: %w", t.src.Path, ErrPermanent)
	}
	t.info = info
	return f, nil
}

// follow seeks and then polls f until an error or cancellation.
func (t *Tailer) follow(ctx context.Context, f *os.File, seekEnd bool) error {
	t.setState(domain.StateSeeking)
	t.partial = t.partial[:0]
	t.offset = 0
	if seekEnd {
		end, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return fmt.Errorf("seek %s: %w", t.src.Path, err)
		}
		t.offset = end
	}
	t.log.Debug("seeked", zap.Int64("offset", t.offset))
	t.setState(domain.StateTailing)

	ticker := t.clk.Ticker(t.opts.PollInterval)
	defer ticker.Stop()
	for {
		if err := t.poll(ctx, f); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll reads everything appended since the last poll.
func (t *Tailer) poll(ctx context.Context, f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", t.src.Path, err)
	}
	if info.Size() < t.offset {
		t.log.Info("truncated", zap.Int64("offset", t.offset), zap.Int64("size", info.Size()))
		if err := t.flushPartial(ctx); err != nil {
			return err
		}
		t.offset = 0
		if err := t.emit(ctx, domain.SourceEvent{Kind: domain.EventTruncated}); err != nil {
			return err
		}
	}

	for t.offset < info.Size() {
		n, err := f.ReadAt(t.buf, t.offset)
		if n > 0 {
			t.offset += int64(n)
			if err := t.consume(ctx, t.buf[:n]); err != nil {
				return err
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", t.src.Path, err)
		}
	}

	err = t.checkPath()
	if errors.Is(err, errRotated) {
		if ferr := t.flushPartial(ctx); ferr != nil {
			return ferr
		}
	}
	return err
}

// checkPath detects rotation by rename and deletion of the followed path.
func (t *Tailer) checkPath() error {
	cur, err := os.Stat(t.src.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return errVanished
		}
		return fmt.Errorf("stat %s: %w", t.src.Path, err)
	}
	if !os.SameFile(t.info, cur) {
		return errRotated
	}
	return nil
}

// consume splits chunk into lines, keeping an unterminated tail in partial.
func (t *Tailer) consume(ctx context.Context, chunk []byte) error {
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			t.partial = append(t.partial, chunk...)
			for len(t.partial) >= t.opts.MaxLineBytes {
				if err := t.emitLine(ctx, t.partial[:t.opts.MaxLineBytes]); err != nil {
					return err
				}
				t.partial = append(t.partial[:0], t.partial[t.opts.MaxLineBytes:]...)
			}
			return nil
		}
		line := chunk[:i]
		if len(t.partial) > 0 {
			line = append(t.partial, line...)
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})
		for len(line) > t.opts.MaxLineBytes {
			if err := t.emitLine(ctx, line[:t.opts.MaxLineBytes]); err != nil {
				return err
			}
			line = line[t.opts.MaxLineBytes:]
		}
		if err := t.emitLine(ctx, line); err != nil {
			return err
		}
		t.partial = t.partial[:0]
		chunk = chunk[i+1:]
	}
	return nil
}

func (t *Tailer) flushPartial(ctx context.Context) error {
	if len(t.partial) == 0 {
		return nil
	}
	err := t.emitLine(ctx, t.partial)
	t.partial = t.partial[:0]
	return err
}

func (t *Tailer) emitLine(ctx context.Context, line []byte) error {
	text := string(line)
	if t.opts.JSONField != "" && gjson.Valid(text) {
		if v := gjson.Get(text, t.opts.JSONField); v.Exists() {
			text = v.String()
		}
	}
	t.seq++
	return t.emit(ctx, domain.SourceEvent{Kind: domain.EventLine, Seq: t.seq, Text: text})
}

func (t *Tailer) emit(ctx context.Context, ev domain.SourceEvent) error {
	ev.Source = t.src.ID
	ev.Offset = t.offset
	return t.sink.Send(ctx, ev)
}
