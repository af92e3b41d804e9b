package log_test

import (
	"context"
	"log/slog"
	"sync"
)

// recordingHandler keeps every record it handles. Handlers derived with
// WithAttrs share the parent's record list.
type recordingHandler struct {
	mu      *sync.Mutex
	records *[]slog.Record
	attrs   []slog.Attr
	level   slog.Level
}

func newRecordingHandler(level slog.Level) *recordingHandler {
	return &recordingHandler{
		mu:      &sync.Mutex{},
		records: &[]slog.Record{},
		level:   level,
	}
}

func (h *recordingHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level
}

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	r = r.Clone()
	r.AddAttrs(h.attrs...)
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &c
}

func (h *recordingHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *recordingHandler) All() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]slog.Record(nil), *h.records...)
}

func (h *recordingHandler) Messages() []string {
	var msgs []string
	for _, r := range h.All() {
		msgs = append(msgs, r.Message)
	}
	return msgs
}

func recordAttrs(r slog.Record) map[string]slog.Value {
	m := make(map[string]slog.Value)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	return m
}
