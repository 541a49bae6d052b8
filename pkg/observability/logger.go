package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID  = "trace_id"
	attrSpanID   = "span_id"
	attrService  = "service"
	attrEnv      = "env"
	attrMode     = "mode"
	attrWorkload = "workload"
)

type workloadKey struct{}

// WithWorkload tags ctx with the name of the workload being replayed. Records
// logged with this context carry it as the "workload" attribute.
func WithWorkload(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, workloadKey{}, name)
}

// WorkloadFrom returns the workload name set by WithWorkload.
func WorkloadFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(workloadKey{}).(string)

	return name, ok
}

// TracingHandler is an [slog.Handler] that adds the active span IDs and the
// workload name from the context to every record. The service attributes are
// attached once, before any group, so they stay at the top level.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner with the service attributes from cfg.
func NewTracingHandler(inner slog.Handler, cfg Config) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, cfg.ServiceName),
		slog.String(attrMode, string(cfg.Mode)),
	}

	if cfg.Environment != "" {
		attrs = append(attrs, slog.String(attrEnv, cfg.Environment))
	}

	return &TracingHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds the context attributes, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if name, ok := WorkloadFrom(ctx); ok {
		record.AddAttrs(slog.String(attrWorkload, name))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
