package observability

import (
	"context"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// BuildResourceForTest exposes buildResource.
func BuildResourceForTest(cfg Config) (*resource.Resource, error) {
	return buildResource(context.Background(), cfg)
}

// SampledForTest reports whether the sampler selected for cfg records a fresh
// root span.
func SampledForTest(cfg Config) bool {
	result := selectSampler(cfg).ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       [16]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 1},
		Name:          "probe",
	})

	return result.Decision == sdktrace.RecordAndSample
}

// ParseRatioForTest exposes parseRatio.
var ParseRatioForTest = parseRatio
