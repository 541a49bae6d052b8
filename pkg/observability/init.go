package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const (
	instrumentationName = "rbjoin"

	// Standard OTel sampler selection, honored unless DebugTrace is set.
	envTracesSampler    = "OTEL_TRACES_SAMPLER"
	envTracesSamplerArg = "OTEL_TRACES_SAMPLER_ARG"
)

// envSamplers maps OTEL_TRACES_SAMPLER values to samplers. ratio comes from
// OTEL_TRACES_SAMPLER_ARG.
var envSamplers = map[string]func(ratio float64) sdktrace.Sampler{
	"always_on":  func(float64) sdktrace.Sampler { return sdktrace.AlwaysSample() },
	"always_off": func(float64) sdktrace.Sampler { return sdktrace.NeverSample() },
	"traceidratio": func(ratio float64) sdktrace.Sampler {
		return sdktrace.TraceIDRatioBased(ratio)
	},
	"parentbased_always_on": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	},
	"parentbased_always_off": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.NeverSample())
	},
	"parentbased_traceidratio": func(ratio float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	},
}

// Providers holds the initialized observability providers.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger *slog.Logger

	// Prometheus is the in-memory registry behind MetricsTextfile, nil when
	// no textfile was requested.
	Prometheus *PrometheusRegistry

	// Shutdown writes the metrics textfile, flushes pending telemetry and
	// releases the exporters. It must be called before exit.
	Shutdown func(ctx context.Context) error
}

type shutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init sets up tracing, metrics and logging from cfg and installs the
// providers as the otel globals. Without an OTLP endpoint or a metrics
// textfile the providers are no-ops.
func Init(ctx context.Context, cfg Config) (Providers, error) {
	res, err := buildResource(ctx, cfg)
	if err != nil {
		return Providers{}, err
	}

	tp, tpShutdown, err := buildTracerProvider(ctx, cfg, res)
	if err != nil {
		return Providers{}, fmt.Errorf("build tracer provider: %w", err)
	}

	mp, prom, mpShutdown, err := buildMeterProvider(ctx, cfg, res)
	if err != nil {
		return Providers{}, errors.Join(fmt.Errorf("build meter provider: %w", err), tpShutdown(ctx))
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	timeout := time.Duration(cfg.ShutdownTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultShutdownTimeoutSec * time.Second
	}

	shutdown := func(shutdownCtx context.Context) error {
		var textfileErr error
		if prom != nil {
			textfileErr = prom.WriteTextfile(cfg.MetricsTextfile)
		}

		deadlineCtx, cancel := context.WithTimeout(shutdownCtx, timeout)
		defer cancel()

		return errors.Join(textfileErr, tpShutdown(deadlineCtx), mpShutdown(deadlineCtx))
	}

	return Providers{
		Tracer:     tp.Tracer(instrumentationName),
		Meter:      mp.Meter(instrumentationName),
		Logger:     NewLogger(os.Stderr, cfg),
		Prometheus: prom,
		Shutdown:   shutdown,
	}, nil
}

func buildResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	if cfg.Mode != "" {
		attrs = append(attrs, attribute.String("app.mode", string(cfg.Mode)))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	return res, nil
}

func buildTracerProvider(
	ctx context.Context, cfg Config, res *resource.Resource,
) (trace.TracerProvider, shutdownFunc, error) {
	if cfg.OTLPEndpoint == "" {
		return nooptrace.NewTracerProvider(), noopShutdown, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}

	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(cfg.OTLPHeaders) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.OTLPHeaders))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}

	// Dropped attributes are only reported when tracing is being debugged.
	var filterLogger *slog.Logger
	if cfg.DebugTrace {
		filterLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(NewAttributeFilter(sdktrace.NewBatchSpanProcessor(exporter), filterLogger)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(selectSampler(cfg)),
	)

	return tp, tp.Shutdown, nil
}

func selectSampler(cfg Config) sdktrace.Sampler {
	if cfg.DebugTrace {
		return sdktrace.AlwaysSample()
	}

	if name := os.Getenv(envTracesSampler); name != "" {
		if build, ok := envSamplers[name]; ok {
			return build(parseRatio(os.Getenv(envTracesSamplerArg)))
		}
	}

	if cfg.SampleRatio > 0 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	}

	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

// buildMeterProvider attaches one reader per configured sink: a periodic
// OTLP reader and the Prometheus textfile registry.
func buildMeterProvider(
	ctx context.Context, cfg Config, res *resource.Resource,
) (metric.MeterProvider, *PrometheusRegistry, shutdownFunc, error) {
	var (
		readers []sdkmetric.Reader
		prom    *PrometheusRegistry
	)

	if cfg.OTLPEndpoint != "" {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}

		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}

		if len(cfg.OTLPHeaders) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.OTLPHeaders))
		}

		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create metric exporter: %w", err)
		}

		readers = append(readers, sdkmetric.NewPeriodicReader(exporter))
	}

	if cfg.MetricsTextfile != "" {
		var err error

		prom, err = newPrometheusRegistry()
		if err != nil {
			return nil, nil, nil, err
		}

		readers = append(readers, prom.reader)
	}

	if len(readers) == 0 {
		return noopmetric.NewMeterProvider(), nil, noopShutdown, nil
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)

	return mp, prom, mp.Shutdown, nil
}

// NewLogger builds the tracing-aware logger described by cfg, writing to w.
func NewLogger(w io.Writer, cfg Config) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler = slog.NewTextHandler(w, handlerOpts)
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(w, handlerOpts)
	}

	return slog.New(NewTracingHandler(inner, cfg))
}

// ParseOTLPHeaders parses "key=value,key=value". Malformed pairs are skipped;
// nil is returned when nothing is left.
func ParseOTLPHeaders(raw string) map[string]string {
	result := map[string]string{}

	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if ok {
			result[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

// parseRatio reads a sampler ratio, defaulting to 1 on empty or bad input.
func parseRatio(raw string) float64 {
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 1
	}

	return ratio
}
