package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/rbjoin/pkg/observability"
)

// exportOne ends a single span carrying attrs behind the attribute filter and
// returns what reached the exporter.
func exportOne(t *testing.T, logger *slog.Logger, attrs ...attribute.KeyValue) map[string]any {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter), logger)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	_, span := tp.Tracer("test").Start(context.Background(), "rbjoin.workload.step")
	span.SetAttributes(attrs...)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	exported := make(map[string]any, len(spans[0].Attributes))
	for _, kv := range spans[0].Attributes {
		exported[string(kv.Key)] = kv.Value.AsInterface()
	}

	require.NoError(t, tp.Shutdown(context.Background()))

	return exported
}

func TestAttributeFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attr attribute.KeyValue
		kept bool
	}{
		{attribute.String("workload.name", "mixed"), true},
		{attribute.Int("step.index", 3), true},
		{attribute.Int("tree.nodes", 100), true},
		{attribute.Int("bench.repeat", 2), true},
		{attribute.String("registry.dir", "/tmp/sets"), true},
		{attribute.String("rbjoin.strategy", "treeify"), true},
		{attribute.String("op", "split"), true},
		{attribute.String("outcome", "ok"), true},
		{attribute.Bool("error", true), true},
		{attribute.String("error.type", "internal"), true},
		{attribute.IntSlice("tree.values", []int{1, 2, 3}), false},
		{attribute.IntSlice("step.keys", []int{4, 5}), false},
		{attribute.String("user.email", "alice@example.com"), false},
		{attribute.String("email", "bob@example.com"), false},
		{attribute.String("hostname", "box"), false},
		{attribute.String("operation", "split"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.attr.Key), func(t *testing.T) {
			t.Parallel()

			exported := exportOne(t, nil, tt.attr)
			if tt.kept {
				assert.Equal(t, tt.attr.Value.AsInterface(), exported[string(tt.attr.Key)])
			} else {
				assert.Empty(t, exported)
			}
		})
	}
}

func TestAttributeFilter_Logging(t *testing.T) {
	t.Parallel()

	var warnings, debug bytes.Buffer

	exportOne(t, slog.New(slog.NewTextHandler(&warnings, &slog.HandlerOptions{Level: slog.LevelWarn})),
		attribute.String("user.secret", "val"), attribute.String("hostname", "box"))

	assert.Contains(t, warnings.String(), "attribute blocked by filter")
	assert.Contains(t, warnings.String(), "user.secret")
	assert.NotContains(t, warnings.String(), "hostname")

	exported := exportOne(t, slog.New(slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug})),
		attribute.String("hostname", "box"), attribute.String("outcome", "ok"))

	assert.Contains(t, debug.String(), "unknown attribute dropped")
	assert.Contains(t, debug.String(), "key=hostname")
	assert.Equal(t, map[string]any{"outcome": "ok"}, exported)
}
