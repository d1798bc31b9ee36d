package logging

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// DefaultRecorderSize is the capacity used when NewRecorder is given a
// non-positive size.
const DefaultRecorderSize = 1000

// Entry is a single recorded log record.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs"`
}

// Recorder is a slog.Handler retaining the most recent records in memory,
// e.g. to summarise notable events after a run. Attribute keys within groups
// are dot separated.
type Recorder struct {
	store  *recorderStore
	attrs  []slog.Attr
	prefix string
}

type recorderStore struct {
	mu      sync.RWMutex
	entries []Entry
	maxSize int
}

// NewRecorder returns a Recorder retaining at most size entries.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = DefaultRecorderSize
	}
	return &Recorder{store: &recorderStore{
		entries: make([]Entry, 0, min(size, 64)),
		maxSize: size,
	}}
}

// Enabled implements slog.Handler.
func (h *Recorder) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler.
func (h *Recorder) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		addAttr(attrs, "", a)
	}
	record.Attrs(func(a slog.Attr) bool {
		addAttr(attrs, h.prefix, a)
		return true
	})

	s := h.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{
		Time:    record.Time,
		Level:   record.Level,
		Message: record.Message,
		Attrs:   attrs,
	})
	if len(s.entries) > s.maxSize {
		s.entries = s.entries[len(s.entries)-s.maxSize:]
	}
	return nil
}

func addAttr(out map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, v := range a.Value.Group() {
			addAttr(out, prefix, v)
		}
		return
	}
	out[prefix+a.Key] = a.Value.String()
}

// WithAttrs implements slog.Handler.
func (h *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	out.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	out.attrs = append(out.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a = slog.Attr{Key: h.prefix[:len(h.prefix)-1], Value: slog.GroupValue(a)}
		}
		out.attrs = append(out.attrs, a)
	}
	return &out
}

// WithGroup implements slog.Handler.
func (h *Recorder) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	out.prefix = h.prefix + name + "."
	return &out
}

// Entries returns a copy of every retained entry, oldest first.
func (h *Recorder) Entries() []Entry {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	return append([]Entry(nil), h.store.entries...)
}

// Recent returns up to n of the most recent entries at or above level,
// oldest first. A non-positive n returns all of them.
func (h *Recorder) Recent(level slog.Level, n int) []Entry {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	var out []Entry
	for i := len(h.store.entries) - 1; i >= 0 && (n <= 0 || len(out) < n); i-- {
		if e := h.store.entries[i]; e.Level >= level {
			out = append(out, e)
		}
	}
	slices.Reverse(out)
	return out
}

// Len returns the number of retained entries.
func (h *Recorder) Len() int {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	return len(h.store.entries)
}
