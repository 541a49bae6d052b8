// Package observability wires OpenTelemetry tracing and metrics and the
// structured logger used by rbtool and the workload runner.
package observability

import "log/slog"

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is a one-shot command such as run, dump or store.
	ModeCLI AppMode = "cli"
	// ModeBench is the benchmark driver.
	ModeBench AppMode = "bench"
)

const (
	defaultServiceName        = "rbjoin"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability settings.
type Config struct {
	// Resource identity.
	ServiceName    string
	ServiceVersion string
	Environment    string
	Mode           AppMode

	// OTLPEndpoint is the gRPC collector address. Empty disables OTLP export.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	OTLPInsecure bool

	// MetricsTextfile, when set, collects metrics in memory and writes them
	// in the Prometheus text format to this path on shutdown.
	MetricsTextfile string

	// DebugTrace samples every trace. Otherwise SampleRatio applies, and
	// zero keeps the parent-based always-on default.
	DebugTrace  bool
	SampleRatio float64

	LogLevel slog.Level
	LogJSON  bool

	// ShutdownTimeoutSec bounds the final flush.
	ShutdownTimeoutSec int
}

// DefaultConfig returns the zero-config settings: no export, info logs in text.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
