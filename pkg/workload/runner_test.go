package workload_test

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/rbjoin/pkg/observability"
	"github.com/Sumatoshi-tech/rbjoin/pkg/workload"
)

func key(value int64) *int64 {
	return &value
}

func TestRunSample(t *testing.T) {
	t.Parallel()

	spec, err := workload.Parse([]byte(sampleYAML))
	require.NoError(t, err)

	result, err := workload.NewRunner(nil, nil, nil).Run(context.Background(), spec)
	require.NoError(t, err)

	assert.False(t, result.Diverged())
	assert.Equal(t, len(spec.Steps), result.Steps)
	assert.Equal(t, 0, result.FinalLen)
	assert.Equal(t, 50, result.Ops[workload.OpAdd].Calls)
	assert.Equal(t, 1, result.Ops[workload.OpAddRun].Applied)
	assert.Equal(t, 20, result.Ops[workload.OpRemove].Calls)
	assert.Equal(t, 1, result.Ops[workload.OpClear].Calls)
}

func TestRunDeterministicSteps(t *testing.T) {
	t.Parallel()

	spec := &workload.Spec{
		Name:     "fixed",
		KeySpace: 100,
		Steps: []workload.Step{
			{Op: workload.OpAddRun, Key: key(10), Length: 10},
			{Op: workload.OpAdd, Key: key(5)},
			{Op: workload.OpAdd, Key: key(5)},
			{Op: workload.OpAddRun, Key: key(15), Length: 2},
			{Op: workload.OpSplit, Key: key(12)},
			{Op: workload.OpSplit, Key: key(50)},
			{Op: workload.OpRemove, Key: key(12)},
			{Op: workload.OpSearch, Key: key(13)},
			{Op: workload.OpSearch, Key: key(12)},
		},
	}

	result, err := workload.NewRunner(nil, nil, nil).Run(context.Background(), spec)
	require.NoError(t, err)
	require.False(t, result.Diverged())

	// 10..19 plus 5, minus 12.
	assert.Equal(t, 10, result.FinalLen)
	assert.Equal(t, workload.OpStats{Calls: 2, Applied: 1, Duration: result.Ops[workload.OpAdd].Duration},
		*result.Ops[workload.OpAdd])
	assert.Equal(t, 2, result.Ops[workload.OpAddRun].Calls)
	assert.Equal(t, 1, result.Ops[workload.OpAddRun].Applied)
	assert.Equal(t, 1, result.Ops[workload.OpSplit].Applied)
	assert.Equal(t, 1, result.Ops[workload.OpRemove].Applied)
	assert.Equal(t, 1, result.Ops[workload.OpSearch].Applied)
}

func TestRunAddRunAtKeySpaceEdge(t *testing.T) {
	t.Parallel()

	spec := &workload.Spec{
		Name:     "edge",
		KeySpace: 100,
		Steps: []workload.Step{
			{Op: workload.OpAddRun, Key: key(math.MaxInt64), Length: 2},
			{Op: workload.OpAddRun, Key: key(math.MaxInt64 - 4), Length: 10},
			{Op: workload.OpAddRun, Key: key(math.MinInt64), Length: 3},
		},
	}

	result, err := workload.NewRunner(nil, nil, nil).Run(context.Background(), spec)
	require.NoError(t, err)
	require.False(t, result.Diverged(), "%+v", result.Divergence)

	// The first run stops at MaxInt64, the second overlaps it.
	assert.Equal(t, 4, result.FinalLen)
	assert.Equal(t, 3, result.Ops[workload.OpAddRun].Calls)
	assert.Equal(t, 2, result.Ops[workload.OpAddRun].Applied)
}

func TestRunGeneratedWorkloads(t *testing.T) {
	t.Parallel()

	for seed := range int64(5) {
		spec := workload.Generate("generated", seed, 300, 2000)

		result, err := workload.NewRunner(nil, nil, nil).Run(context.Background(), spec)
		require.NoError(t, err)
		require.False(t, result.Diverged(), "seed %d: %+v", seed, result.Divergence)
		assert.Equal(t, 300, result.Steps)
	}
}

func TestRunUnknownOpDiverges(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	reader := sdkmetric.NewManualReader()
	metrics, err := observability.NewOpMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	spec := &workload.Spec{
		Name:     "bad",
		KeySpace: 10,
		Steps: []workload.Step{
			{Op: workload.OpAdd, Count: 3},
			{Op: "rotate"},
			{Op: workload.OpAdd, Count: 3},
		},
	}

	runner := workload.NewRunner(nil, metrics, slog.New(slog.NewTextHandler(&logs, nil)))

	result, err := runner.Run(context.Background(), spec)
	require.NoError(t, err)
	require.True(t, result.Diverged())
	assert.Equal(t, 1, result.Divergence.Step)
	assert.Equal(t, workload.Op("rotate"), result.Divergence.Op)
	assert.Contains(t, result.Divergence.Reason, "unknown operation")
	assert.NotEmpty(t, result.Divergence.TopDown)
	assert.Equal(t, 2, result.Steps)
	assert.Contains(t, logs.String(), "deletion strategies diverged")

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := false

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == "rbjoin.divergences.total" {
				found = true
			}
		}
	}

	assert.True(t, found)
}

func TestRunRecordsSpans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	spec := &workload.Spec{
		Name:     "traced",
		KeySpace: 10,
		Steps:    []workload.Step{{Op: workload.OpAdd, Count: 2}, {Op: workload.OpClear}},
	}

	_, err := workload.NewRunner(tp.Tracer("test"), nil, nil).Run(context.Background(), spec)
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	names := map[string]int{}
	for _, span := range spans {
		names[span.Name]++
	}

	assert.Equal(t, 2, names["rbjoin.workload.step"])
	assert.Equal(t, 1, names["rbjoin.workload.run"])
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	runner := workload.NewRunner(nil, nil, nil)

	_, err := runner.Run(context.Background(), &workload.Spec{Name: "x"})
	require.ErrorIs(t, err, workload.ErrNoKeySpace)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := runner.Run(ctx, workload.Generate("x", 1, 10, 10))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.Steps)
}
