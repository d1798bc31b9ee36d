// Package logging builds the application's slog handlers: human readable
// text to the terminal, and optionally JSON to a size-rotated file.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Options are the resolved logging settings.
type Options struct {
	// Level is one of debug, info, warn or error. Empty means info.
	Level string
	// File, if set, receives JSON records at Level, rotated by size.
	File      string
	MaxSizeMB int
	MaxFiles  int
	// PerRun starts File empty, moving any previous content to a backup.
	PerRun bool
	// Console receives text records at Level, and may be nil.
	Console io.Writer
	// Record, if set, also receives every record at Level.
	Record *Recorder
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", s)
	}
}

// New returns a logger writing to every destination of opts. The returned
// closer must be closed once logging is done; it is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		handlers []slog.Handler
		closer   io.Closer = nopCloser{}
	)
	if opts.Console != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.Console, &slog.HandlerOptions{Level: level}))
	}
	if opts.File != "" {
		w, err := NewRotatingFileWriter(opts.File, opts.MaxSizeMB, opts.MaxFiles)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		closer = w
		if opts.PerRun {
			if err := w.Rotate(); err != nil {
				return nil, nil, fmt.Errorf("failed to rotate log file %s: %w", opts.File, err)
			}
		}
		handlers = append(handlers, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	if opts.Record != nil {
		handlers = append(handlers, leveled{Handler: opts.Record, level: level})
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.DiscardHandler), closer, nil
	case 1:
		return slog.New(handlers[0]), closer, nil
	default:
		return slog.New(slog.NewMultiHandler(handlers...)), closer, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// leveled filters a handler by level.
type leveled struct {
	slog.Handler
	level slog.Level
}

func (h leveled) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.Handler.Enabled(ctx, level)
}

func (h leveled) WithAttrs(attrs []slog.Attr) slog.Handler {
	return leveled{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h leveled) WithGroup(name string) slog.Handler {
	return leveled{Handler: h.Handler.WithGroup(name), level: h.level}
}
