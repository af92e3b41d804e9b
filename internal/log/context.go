package log

import (
	"context"
	"log/slog"
)

type attrSliceContextKey struct{}

func attrSliceFromContext(ctx context.Context) []slog.Attr {
	if v, ok := ctx.Value(attrSliceContextKey{}).([]slog.Attr); ok {
		return v
	}
	return nil
}

// ContextWithAttrs returns a copy of ctx carrying attr in addition to any
// attributes already attached. Records logged with the returned context
// through a handler from NewContextLogHandler include them.
func ContextWithAttrs(ctx context.Context, attr ...slog.Attr) context.Context {
	if len(attr) == 0 {
		return ctx
	}
	parent := attrSliceFromContext(ctx)
	attrs := make([]slog.Attr, 0, len(parent)+len(attr))
	attrs = append(attrs, parent...)
	attrs = append(attrs, attr...)
	return context.WithValue(ctx, attrSliceContextKey{}, attrs)
}

type contextLogHandler struct {
	handler slog.Handler
}

// NewContextLogHandler wraps handler so that attributes attached to the
// context of each record are added to it.
func NewContextLogHandler(handler slog.Handler) slog.Handler {
	return &contextLogHandler{handler: handler}
}

func (h *contextLogHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.handler.Enabled(ctx, l)
}

func (h *contextLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := attrSliceFromContext(ctx); len(attrs) > 0 {
		r.AddAttrs(attrs...)
	}
	return h.handler.Handle(ctx, r)
}

func (h *contextLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextLogHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *contextLogHandler) WithGroup(name string) slog.Handler {
	return &contextLogHandler{handler: h.handler.WithGroup(name)}
}
