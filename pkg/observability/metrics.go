package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricOpsTotal         = "rbjoin.ops.total"
	metricOpDuration       = "rbjoin.op.duration"
	metricErrorsTotal      = "rbjoin.errors.total"
	metricDivergencesTotal = "rbjoin.divergences.total"
	metricTreeNodes        = "rbjoin.tree.nodes"

	attrOp      = "op"
	attrOutcome = "outcome"
	attrTree    = "tree"
)

// Operation outcomes recorded by OpMetrics.
const (
	OutcomeOK    = "ok"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// durationBucketBoundaries covers 1µs to 1s: single tree operations sit at the
// bottom, whole bulk builds at the top.
var durationBucketBoundaries = []float64{
	1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2, 5e-2, 0.1, 0.5, 1,
}

// OpMetrics holds the OTel instruments for tree operations.
type OpMetrics struct {
	opsTotal    metric.Int64Counter
	opDuration  metric.Float64Histogram
	errorsTotal metric.Int64Counter
	divergences metric.Int64Counter
	treeNodes   metric.Int64Gauge
}

// NewOpMetrics creates the operation instruments from the given meter.
func NewOpMetrics(mt metric.Meter) (*OpMetrics, error) {
	opsTotal, err := mt.Int64Counter(metricOpsTotal,
		metric.WithDescription("Total number of tree operations"),
		metric.WithUnit("{op}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpsTotal, err)
	}

	opDuration, err := mt.Float64Histogram(metricOpDuration,
		metric.WithDescription("Tree operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpDuration, err)
	}

	errorsTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed tree operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	divergences, err := mt.Int64Counter(metricDivergencesTotal,
		metric.WithDescription("Steps where the two deletion strategies produced different trees"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDivergencesTotal, err)
	}

	treeNodes, err := mt.Int64Gauge(metricTreeNodes,
		metric.WithDescription("Number of nodes in a tree after the last step"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTreeNodes, err)
	}

	return &OpMetrics{
		opsTotal:    opsTotal,
		opDuration:  opDuration,
		errorsTotal: errorsTotal,
		divergences: divergences,
		treeNodes:   treeNodes,
	}, nil
}

// RecordOp records a completed operation with its outcome and duration.
func (om *OpMetrics) RecordOp(ctx context.Context, op, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrOutcome, outcome),
	)

	om.opsTotal.Add(ctx, 1, attrs)
	om.opDuration.Record(ctx, duration.Seconds(), attrs)

	if outcome == OutcomeError {
		om.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOp, op),
		))
	}
}

// RecordDivergence counts a step after which the compared trees differ.
func (om *OpMetrics) RecordDivergence(ctx context.Context, op string) {
	om.divergences.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
}

// RecordTreeSize reports the current node count of the named tree.
func (om *OpMetrics) RecordTreeSize(ctx context.Context, tree string, nodes int) {
	om.treeNodes.Record(ctx, int64(nodes), metric.WithAttributes(attribute.String(attrTree, tree)))
}
