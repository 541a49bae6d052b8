package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type verdict int

const (
	verdictDrop verdict = iota
	verdictKeep
	// verdictBlock marks keys that may carry workload data.
	verdictBlock
)

// attributePolicy decides which span attributes reach the exporter. Blocked
// keys win over kept prefixes, so "tree.values" is dropped even though
// "tree." is kept.
type attributePolicy struct {
	keepPrefixes  []string
	keepKeys      map[string]bool
	blockPrefixes []string
	blockKeys     map[string]bool
}

var defaultPolicy = attributePolicy{
	keepPrefixes: []string{
		"rbjoin.", "error.", "workload.", "step.", "tree.", "bench.", "registry.",
	},
	keepKeys: map[string]bool{"op": true, "outcome": true, "error": true},
	blockPrefixes: []string{
		"user.",
	},
	blockKeys: map[string]bool{"email": true, "tree.values": true, "step.keys": true},
}

func (p attributePolicy) classify(key string) verdict {
	if p.blockKeys[key] || hasAnyPrefix(key, p.blockPrefixes) {
		return verdictBlock
	}

	if p.keepKeys[key] || hasAnyPrefix(key, p.keepPrefixes) {
		return verdictKeep
	}

	return verdictDrop
}

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}

	return false
}

// attributeFilter forwards ended spans to delegate with a filtered attribute
// view.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	policy   attributePolicy
	logger   *slog.Logger
}

// NewAttributeFilter wraps delegate so that only rbjoin, workload, step, tree,
// bench, registry and error attributes are exported. Raw values, key lists
// and user data are stripped with a warning on logger, when non-nil; other
// unknown keys are dropped at debug level.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, policy: defaultPolicy, logger: logger}
}

func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.delegate.OnEnd(&filteredSpan{ReadOnlySpan: s, attrs: f.filter(s.Attributes())})
}

func (f *attributeFilter) Shutdown(ctx context.Context) error {
	err := f.delegate.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	err := f.delegate.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func (f *attributeFilter) filter(attrs []attribute.KeyValue) []attribute.KeyValue {
	kept := make([]attribute.KeyValue, 0, len(attrs))

	for _, kv := range attrs {
		key := string(kv.Key)

		switch f.policy.classify(key) {
		case verdictKeep:
			kept = append(kept, kv)
		case verdictBlock:
			if f.logger != nil {
				f.logger.Warn("attribute blocked by filter", "key", key)
			}
		case verdictDrop:
			if f.logger != nil {
				f.logger.Debug("unknown attribute dropped", "key", key)
			}
		}
	}

	return kept
}

// filteredSpan is a ReadOnlySpan whose attributes were filtered once on end.
type filteredSpan struct {
	sdktrace.ReadOnlySpan

	attrs []attribute.KeyValue
}

func (s *filteredSpan) Attributes() []attribute.KeyValue {
	return s.attrs
}
