package workload_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbjoin/pkg/workload"
)

func TestBench(t *testing.T) {
	t.Parallel()

	measurements, err := workload.NewRunner(nil, nil, nil).Bench(context.Background(), workload.BenchOptions{
		Sizes:  []int{1, 100, 1000},
		Seed:   3,
		Repeat: 2,
	})
	require.NoError(t, err)
	require.Len(t, measurements, 9)

	for idx, m := range measurements {
		assert.Equal(t, workload.Strategies[idx%3], m.Strategy)
		assert.Equal(t, []int{1, 100, 1000}[idx/3], m.Size)

		if m.Size > 1 {
			assert.Positive(t, m.Elapsed)
		}
	}
}

func TestBenchRejectsOptions(t *testing.T) {
	t.Parallel()

	runner := workload.NewRunner(nil, nil, nil)

	_, err := runner.Bench(context.Background(), workload.BenchOptions{Sizes: []int{10}})
	require.ErrorIs(t, err, workload.ErrInvalidBench)

	_, err = runner.Bench(context.Background(), workload.BenchOptions{Sizes: []int{0}, Repeat: 1})
	require.ErrorIs(t, err, workload.ErrInvalidBench)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = runner.Bench(ctx, workload.BenchOptions{Sizes: []int{10}, Repeat: 1})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMeasurementNsPerValue(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 5.0, workload.Measurement{Size: 4, Elapsed: 20 * time.Nanosecond}.NsPerValue(), 1e-9)
	assert.Zero(t, workload.Measurement{}.NsPerValue())
}
