package observability_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Sumatoshi-tech/rbjoin/pkg/observability"
)

func TestInit_Noop(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(context.Background(), observability.DefaultConfig())
	require.NoError(t, err)

	assert.Nil(t, providers.Prometheus)
	require.NotNil(t, providers.Logger)

	ctx, span := providers.Tracer.Start(context.Background(), "rbjoin.workload.run")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	ops, err := observability.NewOpMetrics(providers.Meter)
	require.NoError(t, err)
	ops.RecordOp(ctx, "add", observability.OutcomeOK, time.Microsecond)

	require.NoError(t, providers.Shutdown(context.Background()))
	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_MetricsTextfile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rbjoin.prom")

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "0.3.0"
	cfg.MetricsTextfile = path

	providers, err := observability.Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, providers.Prometheus)

	ops, err := observability.NewOpMetrics(providers.Meter)
	require.NoError(t, err)

	ops.RecordOp(context.Background(), "split", observability.OutcomeOK, time.Millisecond)
	ops.RecordDivergence(context.Background(), "remove")

	families, err := providers.Prometheus.Gatherer().Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}

	assert.Contains(t, names, "rbjoin_ops_total")
	assert.Contains(t, names, "target_info")

	assert.NoFileExists(t, path)
	require.NoError(t, providers.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rbjoin_ops_total{")
	assert.Contains(t, string(data), `op="split"`)
	assert.Contains(t, string(data), "rbjoin_divergences_total")
}

func TestInit_TextfileErrorSurfacesOnShutdown(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.MetricsTextfile = filepath.Join(t.TempDir(), "missing", "rbjoin.prom")

	providers, err := observability.Init(context.Background(), cfg)
	require.NoError(t, err)

	err = providers.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write metrics textfile")
}

func TestBuildResource(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "ci"
	cfg.Mode = observability.ModeBench

	res, err := observability.BuildResourceForTest(cfg)
	require.NoError(t, err)

	set := res.Set()

	for key, want := range map[attribute.Key]string{
		"service.name":           "rbjoin",
		"service.version":        "1.2.3",
		"deployment.environment": "ci",
		"app.mode":               "bench",
	} {
		value, ok := set.Value(key)
		require.True(t, ok, key)
		assert.Equal(t, want, value.AsString(), key)
	}
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  map[string]string
	}{
		{"empty", "", nil},
		{"single", "authorization=Bearer x", map[string]string{"authorization": "Bearer x"}},
		{"trimmed", " a = 1 , b=2 ", map[string]string{"a": "1", "b": "2"}},
		{"malformed skipped", "a=1,broken", map[string]string{"a": "1"}},
		{"only malformed", "broken", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, observability.ParseOTLPHeaders(tt.input))
		})
	}
}

func TestParseRatio(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.25, observability.ParseRatioForTest("0.25"), 1e-9)
	assert.InDelta(t, 1, observability.ParseRatioForTest(""), 1e-9)
	assert.InDelta(t, 1, observability.ParseRatioForTest("half"), 1e-9)
}

func TestSampler_Config(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	assert.True(t, observability.SampledForTest(cfg))

	cfg.SampleRatio = 0.001
	assert.False(t, observability.SampledForTest(cfg))

	cfg.DebugTrace = true
	assert.True(t, observability.SampledForTest(cfg))
}

// The env sampler tests mutate the process environment and cannot run in
// parallel.
func TestSampler_Env(t *testing.T) {
	tests := []struct {
		sampler string
		arg     string
		want    bool
	}{
		{"always_on", "", true},
		{"always_off", "", false},
		{"traceidratio", "1.0", true},
		{"traceidratio", "0.001", false},
		{"parentbased_always_on", "", true},
		{"parentbased_always_off", "", false},
		{"parentbased_traceidratio", "0.001", false},
		{"unknown", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.sampler+"/"+tt.arg, func(t *testing.T) {
			t.Setenv("OTEL_TRACES_SAMPLER", tt.sampler)
			t.Setenv("OTEL_TRACES_SAMPLER_ARG", tt.arg)

			assert.Equal(t, tt.want, observability.SampledForTest(observability.DefaultConfig()))
		})
	}
}

func TestSampler_DebugTraceOverridesEnv(t *testing.T) {
	t.Setenv("OTEL_TRACES_SAMPLER", "always_off")

	cfg := observability.DefaultConfig()
	cfg.DebugTrace = true

	assert.True(t, observability.SampledForTest(cfg))
}
