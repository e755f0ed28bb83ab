package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type attrsContextKey struct{}

// WithAttrs returns a context whose log records carry attrs in addition to
// any attributes already attached to ctx.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	existing, _ := ctx.Value(attrsContextKey{}).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(existing)+len(attrs))
	merged = append(merged, existing...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, attrsContextKey{}, merged)
}

// contextHandler enriches log records with attributes carried by the context:
// OpenTelemetry trace correlation (trace_id and span_id) and anything added
// with WithAttrs.
type contextHandler struct {
	handler slog.Handler
}

// newContextHandler creates a handler that adds context attributes to log records.
func newContextHandler(handler slog.Handler) *contextHandler {
	return &contextHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle adds trace_id/span_id when a valid span context is present and the
// attributes attached via WithAttrs.
func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if attrs, ok := ctx.Value(attrsContextKey{}).([]slog.Attr); ok {
		record.AddAttrs(attrs...)
	}

	return h.handler.Handle(ctx, record)
}

// WithAttrs returns a new handler with additional attributes.
func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{handler: h.handler.WithGroup(name)}
}
