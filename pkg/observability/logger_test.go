package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rbjoin/pkg/observability"
)

func newJSONLogger(t *testing.T, buf *bytes.Buffer, cfg observability.Config) *slog.Logger {
	t.Helper()

	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(observability.NewTracingHandler(inner, cfg))
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestTracingHandler_ServiceAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.Environment = "ci"
	cfg.Mode = observability.ModeBench

	newJSONLogger(t, &buf, cfg).InfoContext(context.Background(), "hello")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "rbjoin", record["service"])
	assert.Equal(t, "ci", record["env"])
	assert.Equal(t, "bench", record["mode"])
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "workload")
}

func TestTracingHandler_OmitsEmptyEnvironment(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	newJSONLogger(t, &buf, observability.DefaultConfig()).Info("hello")

	assert.NotContains(t, decodeRecord(t, &buf), "env")
}

func TestTracingHandler_SpanAndWorkload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	traceID, err := trace.TraceIDFromHex("00112233445566778899aabbccddeeff")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0011223344556677")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = observability.WithWorkload(ctx, "mixed")

	newJSONLogger(t, &buf, observability.DefaultConfig()).WarnContext(ctx, "deletion strategies diverged")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "00112233445566778899aabbccddeeff", record["trace_id"])
	assert.Equal(t, "0011223344556677", record["span_id"])
	assert.Equal(t, "mixed", record["workload"])
}

func TestWorkloadFrom(t *testing.T) {
	t.Parallel()

	_, ok := observability.WorkloadFrom(context.Background())
	assert.False(t, ok)

	name, ok := observability.WorkloadFrom(observability.WithWorkload(context.Background(), "sample"))
	assert.True(t, ok)
	assert.Equal(t, "sample", name)
}

func TestTracingHandler_GroupsAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newJSONLogger(t, &buf, observability.DefaultConfig()).
		With(slog.String("strategy", "treeify")).
		WithGroup("tree")
	logger.Info("built", slog.Int("nodes", 31))

	record := decodeRecord(t, &buf)
	assert.Equal(t, "rbjoin", record["service"])
	assert.Equal(t, "treeify", record["strategy"])

	group, ok := record["tree"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 31, group["nodes"], 0)
}

func TestNewLogger_LevelAndFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.LogLevel = slog.LevelWarn

	logger := observability.NewLogger(&buf, cfg)
	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept", slog.Int("nodes", 7))

	record := decodeRecord(t, &buf)
	assert.Equal(t, "kept", record["msg"])
	assert.InDelta(t, 7, record["nodes"], 0)

	buf.Reset()

	cfg.LogJSON = false
	observability.NewLogger(&buf, cfg).Warn("text")
	assert.Contains(t, buf.String(), "msg=text")
	assert.Contains(t, buf.String(), "service=rbjoin")
}
