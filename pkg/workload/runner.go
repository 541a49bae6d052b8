package workload

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"slices"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/rbjoin/pkg/observability"
	"github.com/Sumatoshi-tech/rbjoin/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbjoin/pkg/sortedset"
)

// ErrNoKeySpace is returned for a workload without a usable key space.
var ErrNoKeySpace = errors.New("workload key space must be positive")

// OpStats aggregates the executions of one operation.
type OpStats struct {
	// Calls counts the individual tree calls, e.g. one per added key.
	Calls int
	// Applied counts the calls that changed the set or found their key.
	Applied  int
	Duration time.Duration
}

// Divergence describes the first step after which the two sets disagreed.
type Divergence struct {
	Step   int
	Op     Op
	Reason string

	// TopDown and BottomUp are text dumps of both trees after the step.
	TopDown  string
	BottomUp string
}

// Result summarizes a run.
type Result struct {
	Name       string
	Steps      int
	Ops        map[Op]*OpStats
	FinalLen   int
	Elapsed    time.Duration
	Divergence *Divergence
}

// Diverged reports whether the run stopped on a divergence.
func (res *Result) Diverged() bool {
	return res.Divergence != nil
}

// Runner replays workloads against a top-down and a bottom-up deleting set.
type Runner struct {
	tracer  trace.Tracer
	metrics *observability.OpMetrics
	logger  *slog.Logger
}

// NewRunner creates a Runner. Any argument may be nil.
func NewRunner(tracer trace.Tracer, metrics *observability.OpMetrics, logger *slog.Logger) *Runner {
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("rbjoin")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{tracer: tracer, metrics: metrics, logger: logger}
}

// pair holds the two sets a workload is replayed on. Their contents must
// stay equal; their shapes may differ.
type pair struct {
	topDown  *sortedset.Set[int64]
	bottomUp *sortedset.Set[int64]
}

func newPair() pair {
	return pair{
		topDown:  sortedset.New(cmp.Compare[int64]),
		bottomUp: sortedset.New(cmp.Compare[int64]).WithRemoval(sortedset.BottomUp),
	}
}

func (p pair) each(action func(*sortedset.Set[int64]) bool) (bool, bool) {
	return action(p.topDown), action(p.bottomUp)
}

// Run replays spec. A divergence is not an error: it is reported in the
// result and ends the run early.
func (r *Runner) Run(ctx context.Context, spec *Spec) (*Result, error) {
	if spec.KeySpace <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrNoKeySpace, spec.KeySpace)
	}

	ctx = observability.WithWorkload(ctx, spec.Name)

	ctx, span := r.tracer.Start(ctx, "rbjoin.workload.run", trace.WithAttributes(
		attribute.String("workload.name", spec.Name),
		attribute.Int("workload.steps", len(spec.Steps)),
	))
	defer span.End()

	started := time.Now()
	rng := rand.New(rand.NewSource(spec.Seed)) //nolint:gosec // reproducible workloads, not security.
	sets := newPair()
	result := &Result{Name: spec.Name, Ops: map[Op]*OpStats{}}

	for idx, step := range spec.Steps {
		err := ctx.Err()
		if err != nil {
			span.SetStatus(codes.Error, "canceled")

			return result, fmt.Errorf("run workload %q: %w", spec.Name, err)
		}

		divergence := r.runStep(ctx, rng, spec.KeySpace, &sets, idx, step, result)
		result.Steps++

		if divergence != nil {
			result.Divergence = divergence
			span.SetAttributes(attribute.Int("workload.divergence_step", idx))
			span.SetStatus(codes.Error, divergence.Reason)

			if r.metrics != nil {
				r.metrics.RecordDivergence(ctx, string(step.Op))
			}

			r.logger.WarnContext(ctx, "deletion strategies diverged",
				"step", idx, "op", step.Op, "reason", divergence.Reason)

			break
		}
	}

	result.FinalLen = sets.topDown.Len()
	result.Elapsed = time.Since(started)

	r.logger.InfoContext(ctx, "workload finished",
		"steps", result.Steps, "len", result.FinalLen,
		"elapsed", result.Elapsed, "diverged", result.Diverged())

	return result, nil
}

func (r *Runner) runStep(
	ctx context.Context, rng *rand.Rand, keySpace int64, sets *pair, idx int, step Step, result *Result,
) *Divergence {
	ctx, span := r.tracer.Start(ctx, "rbjoin.workload.step", trace.WithAttributes(
		attribute.Int("step.index", idx),
		attribute.String("op", string(step.Op)),
	))
	defer span.End()

	stats := result.Ops[step.Op]
	if stats == nil {
		stats = &OpStats{}
		result.Ops[step.Op] = stats
	}

	exec := stepExec{rng: rng, keySpace: keySpace, sets: sets, step: step}

	started := time.Now()
	calls, applied, reason := exec.apply()
	elapsed := time.Since(started)

	stats.Calls += calls
	stats.Applied += applied
	stats.Duration += elapsed

	if r.metrics != nil {
		outcome := observability.OutcomeOK
		if applied == 0 {
			outcome = observability.OutcomeMiss
		}

		r.metrics.RecordOp(ctx, string(step.Op), outcome, elapsed)
		r.metrics.RecordTreeSize(ctx, sortedset.TopDown.String(), sets.topDown.Len())
		r.metrics.RecordTreeSize(ctx, sortedset.BottomUp.String(), sets.bottomUp.Len())
	}

	span.SetAttributes(
		attribute.Int("step.calls", calls),
		attribute.Int("step.applied", applied),
		attribute.Int("tree.nodes", sets.topDown.Len()),
	)

	r.logger.DebugContext(ctx, "step done", "step", idx, "op", step.Op, "calls", calls, "applied", applied)

	if reason == "" {
		reason = compare(*sets)
	}

	if reason == "" {
		return nil
	}

	return &Divergence{
		Step:     idx,
		Op:       step.Op,
		Reason:   reason,
		TopDown:  dump(sets.topDown),
		BottomUp: dump(sets.bottomUp),
	}
}

// compare returns why the two sets disagree, or "".
func compare(sets pair) string {
	for _, set := range []*sortedset.Set[int64]{sets.topDown, sets.bottomUp} {
		err := set.Verify()
		if err != nil {
			return fmt.Sprintf("%s tree is broken: %v", set.Removal(), err)
		}
	}

	if sets.topDown.Len() != sets.bottomUp.Len() {
		return fmt.Sprintf("lengths differ: %d top-down, %d bottom-up", sets.topDown.Len(), sets.bottomUp.Len())
	}

	if !slices.Equal(sets.topDown.Values(), sets.bottomUp.Values()) {
		return "contents differ"
	}

	return ""
}

func dump(set *sortedset.Set[int64]) string {
	var buf bytes.Buffer

	err := set.Dump(&buf, func(value int64) string { return strconv.FormatInt(value, 10) })
	if err != nil {
		return err.Error()
	}

	return buf.String()
}

// stepExec applies one step to both sets.
type stepExec struct {
	rng      *rand.Rand
	keySpace int64
	sets     *pair
	step     Step
}

func (exec stepExec) count() int {
	if exec.step.Key != nil || exec.step.Count <= 0 {
		return 1
	}

	return exec.step.Count
}

func (exec stepExec) key() int64 {
	if exec.step.Key != nil {
		return *exec.step.Key
	}

	return exec.rng.Int63n(exec.keySpace)
}

// apply returns the number of calls, how many of them took effect, and a
// divergence reason when the two sets answered differently.
func (exec stepExec) apply() (calls, applied int, reason string) {
	switch exec.step.Op {
	case OpAdd:
		return exec.perKey(exec.key, func(set *sortedset.Set[int64], key int64) bool {
			return set.Add(key)
		})
	case OpRemove:
		return exec.perKey(exec.existingKey, func(set *sortedset.Set[int64], key int64) bool {
			return set.Remove(key)
		})
	case OpSearch:
		return exec.perKey(exec.key, func(set *sortedset.Set[int64], key int64) bool {
			return set.Contains(key)
		})
	case OpAddRun:
		return exec.addRun()
	case OpSplit:
		return exec.split()
	case OpTreeify:
		return exec.treeify()
	case OpClear:
		exec.sets.each(func(set *sortedset.Set[int64]) bool {
			set.Clear()

			return true
		})

		return 1, 1, ""
	default:
		return 0, 0, fmt.Sprintf("unknown operation %q", exec.step.Op)
	}
}

func (exec stepExec) perKey(
	pick func() int64, action func(*sortedset.Set[int64], int64) bool,
) (calls, applied int, reason string) {
	for range exec.count() {
		key := pick()

		topDown, bottomUp := exec.sets.each(func(set *sortedset.Set[int64]) bool {
			return action(set, key)
		})

		calls++

		if topDown != bottomUp {
			return calls, applied, fmt.Sprintf("key %d: top-down %t, bottom-up %t", key, topDown, bottomUp)
		}

		if topDown {
			applied++
		}
	}

	return calls, applied, ""
}

// existingKey picks a random key and moves it to the nearest present value,
// so that removals mostly hit.
func (exec stepExec) existingKey() int64 {
	key := exec.key()

	if found, ok := exec.sets.topDown.Ceiling(key); ok {
		return found
	}

	if found, ok := exec.sets.topDown.Floor(key); ok {
		return found
	}

	return key
}

func (exec stepExec) addRun() (calls, applied int, reason string) {
	start := exec.key()
	length := int64(exec.step.Length)

	// Runs stop at MaxInt64 instead of wrapping around.
	if start > 0 && length-1 > math.MaxInt64-start {
		length = math.MaxInt64 - start + 1
	}

	run := make([]int64, length)

	for idx := range run {
		run[idx] = start + int64(idx)
	}

	var errs [2]error

	for idx, set := range []*sortedset.Set[int64]{exec.sets.topDown, exec.sets.bottomUp} {
		errs[idx] = set.AddRun(run)
	}

	if runOutcome(errs[0]) != runOutcome(errs[1]) {
		return 1, 0, fmt.Sprintf("run at %d: top-down %v, bottom-up %v", start, errs[0], errs[1])
	}

	switch {
	case errs[0] == nil:
		return 1, 1, ""
	case errors.Is(errs[0], rbtree.ErrRangeOverlap), errors.Is(errs[0], rbtree.ErrNotSorted):
		return 1, 0, ""
	default:
		return 1, 0, fmt.Sprintf("run at %d: %v", start, errs[0])
	}
}

func runOutcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, rbtree.ErrRangeOverlap), errors.Is(err, rbtree.ErrNotSorted):
		return observability.OutcomeMiss
	default:
		return err.Error()
	}
}

func (exec stepExec) split() (calls, applied int, reason string) {
	key := exec.key()

	var founds [2]bool

	for idx, slot := range []**sortedset.Set[int64]{&exec.sets.topDown, &exec.sets.bottomUp} {
		set := *slot
		size := set.Len()

		lower, upper, found := set.SplitAt(key)
		founds[idx] = found

		for _, half := range []*sortedset.Set[int64]{lower, upper} {
			err := half.Verify()
			if err != nil {
				return 1, 0, fmt.Sprintf("split at %d: %s half: %v", key, set.Removal(), err)
			}
		}

		if maxLower, ok := lower.Max(); ok && maxLower >= key {
			return 1, 0, fmt.Sprintf("split at %d: lower half holds %d", key, maxLower)
		}

		if minUpper, ok := upper.Min(); ok && minUpper < key {
			return 1, 0, fmt.Sprintf("split at %d: upper half holds %d", key, minUpper)
		}

		err := lower.Concat(upper)
		if err != nil {
			return 1, 0, fmt.Sprintf("join at %d: %v", key, err)
		}

		if lower.Len() != size {
			return 1, 0, fmt.Sprintf("split at %d: %d values before, %d after", key, size, lower.Len())
		}

		*slot = lower
	}

	if founds[0] != founds[1] {
		return 1, 0, fmt.Sprintf("split at %d: top-down found %t, bottom-up found %t", key, founds[0], founds[1])
	}

	if founds[0] {
		return 1, 1, ""
	}

	return 1, 0, ""
}

func (exec stepExec) treeify() (calls, applied int, reason string) {
	keys := make([]int64, exec.count())
	for idx := range keys {
		keys[idx] = exec.key()
	}

	slices.Sort(keys)
	keys = slices.Compact(keys)

	for _, slot := range []**sortedset.Set[int64]{&exec.sets.topDown, &exec.sets.bottomUp} {
		removal := (*slot).Removal()

		rebuilt, err := sortedset.FromSorted(cmp.Compare[int64], keys)
		if err != nil {
			return 1, 0, fmt.Sprintf("treeify: %v", err)
		}

		*slot = rebuilt.WithRemoval(removal)
	}

	return 1, len(keys), ""
}
