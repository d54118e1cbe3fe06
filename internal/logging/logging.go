// Package logging wires the process-wide slog handler: tinted console output
// on a terminal, plain timestamps otherwise, and an optional rotating file
// sink.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls handler construction.
type Options struct {
	Level slog.Level

	// File enables a rotating log file when non-empty.
	File string
}

// New builds the root logger. When a file sink is configured the console and
// file handlers both receive every record.
func New(opts Options) *slog.Logger {
	isTerminal := isatty.IsTerminal(os.Stderr.Fd())
	timeFormat := time.RFC3339
	if isTerminal {
		timeFormat = time.Stamp
	}

	console := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      opts.Level,
		NoColor:    !isTerminal,
		TimeFormat: timeFormat,
	})

	if opts.File == "" {
		return slog.New(console)
	}

	file := slog.NewJSONHandler(rotatingWriter(opts.File), &slog.HandlerOptions{Level: opts.Level})
	return slog.New(fanout{console, file})
}

func rotatingWriter(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	}
}

// fanout duplicates records across handlers.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
