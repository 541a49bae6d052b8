package workload

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/rbjoin/pkg/observability"
	"github.com/Sumatoshi-tech/rbjoin/pkg/rbtree"
)

// Bulk construction strategies compared by Bench.
const (
	StrategyTreeify = "treeify"
	StrategyTryAdd  = "try-add"
	StrategyAddRun  = "add-run"
)

// Strategies lists the bench strategies in report order.
var Strategies = []string{StrategyTreeify, StrategyTryAdd, StrategyAddRun}

// benchRunLength is the length of the runs inserted by StrategyAddRun.
const benchRunLength = 64

// ErrInvalidBench is returned for unusable bench options.
var ErrInvalidBench = errors.New("invalid bench options")

// BenchOptions configures Bench.
type BenchOptions struct {
	Sizes  []int
	Seed   int64
	Repeat int
}

// Measurement is the best of Repeat timings for one strategy and size.
type Measurement struct {
	Strategy string
	Size     int
	Elapsed  time.Duration
}

// NsPerValue is the construction cost per inserted value.
func (m Measurement) NsPerValue() float64 {
	if m.Size == 0 {
		return 0
	}

	return float64(m.Elapsed.Nanoseconds()) / float64(m.Size)
}

// Bench builds trees of every size with every strategy and keeps the fastest
// repetition. Each built tree is verified.
func (r *Runner) Bench(ctx context.Context, options BenchOptions) ([]Measurement, error) {
	if options.Repeat <= 0 {
		return nil, fmt.Errorf("%w: repeat %d", ErrInvalidBench, options.Repeat)
	}

	ctx, span := r.tracer.Start(ctx, "rbjoin.bench", trace.WithAttributes(
		attribute.IntSlice("bench.sizes", options.Sizes),
		attribute.Int("bench.repeat", options.Repeat),
	))
	defer span.End()

	rng := rand.New(rand.NewSource(options.Seed)) //nolint:gosec // reproducible input, not security.
	measurements := make([]Measurement, 0, len(options.Sizes)*len(Strategies))

	for _, size := range options.Sizes {
		if size <= 0 {
			return nil, fmt.Errorf("%w: size %d", ErrInvalidBench, size)
		}

		keys := make([]int64, size)
		for idx := range keys {
			keys[idx] = int64(idx) * 2
		}

		order := rng.Perm(size)

		for _, strategy := range Strategies {
			best := time.Duration(0)

			for range options.Repeat {
				err := ctx.Err()
				if err != nil {
					return measurements, fmt.Errorf("bench: %w", err)
				}

				elapsed, err := buildWith(strategy, keys, order)
				if err != nil {
					return measurements, fmt.Errorf("bench %s/%d: %w", strategy, size, err)
				}

				if best == 0 || elapsed < best {
					best = elapsed
				}
			}

			if r.metrics != nil {
				r.metrics.RecordOp(ctx, "bench."+strategy, observability.OutcomeOK, best)
			}

			r.logger.DebugContext(ctx, "bench measured", "strategy", strategy, "size", size, "elapsed", best)

			measurements = append(measurements, Measurement{Strategy: strategy, Size: size, Elapsed: best})
		}
	}

	return measurements, nil
}

// buildWith builds a tree of the sorted keys. order is a permutation of their
// indices, used for insertion order by the incremental strategies.
func buildWith(strategy string, keys []int64, order []int) (time.Duration, error) {
	alloc := rbtree.NewAllocator[int64]()
	root := rbtree.Nil
	compare := cmp.Compare[int64]

	started := time.Now()

	switch strategy {
	case StrategyTreeify:
		root = alloc.Treeify(keys)
	case StrategyTryAdd:
		for _, idx := range order {
			root, _, _ = alloc.TryAdd(root, keys[idx], compare)
		}
	case StrategyAddRun:
		runs := (len(keys) + benchRunLength - 1) / benchRunLength

		for _, run := range order {
			if run >= runs {
				continue
			}

			start := run * benchRunLength
			end := min(start+benchRunLength, len(keys))

			var err error

			root, err = alloc.InsertInOrderContiguous(root, keys[start:end], compare)
			if err != nil {
				return 0, err
			}
		}
	default:
		return 0, fmt.Errorf("%w: unknown strategy %q", ErrInvalidBench, strategy)
	}

	elapsed := time.Since(started)

	err := alloc.VerifyInvariants(root, compare, true, true)
	if err != nil {
		return 0, err
	}

	if count := alloc.CountNodes(root); count != len(keys) {
		return 0, fmt.Errorf("%w: built %d of %d values", ErrInvalidBench, count, len(keys))
	}

	return elapsed, nil
}
