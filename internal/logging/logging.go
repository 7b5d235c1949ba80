// Package logging builds the diagnostic logger. The terminal belongs to the
// viewer, so diagnostics go to a file or nowhere.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where diagnostics go.
type Options struct {
	Path    string // file to append to; empty disables logging
	Verbose bool   // debug level instead of info
}

// New returns a logger writing to opts.Path, or a no-op logger when no path
// is set. The returned close function flushes and closes the file.
func New(opts Options) (*zap.Logger, func(), error) {
	if opts.Path == "" {
		return zap.NewNop(), func() {}, nil
	}
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open debug output: %w", err)
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(f), level)
	logger := zap.New(core, zap.AddCaller()).Named("filewatch")

	return logger, func() {
		_ = logger.Sync()
		_ = f.Close()
	}, nil
}
