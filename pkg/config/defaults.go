package config

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = logFormatText
)

// Telemetry defaults.
const (
	DefaultServiceName = "rbjoin"
)

// Bench defaults.
const (
	DefaultBenchSeed     = 1
	DefaultBenchKeySpace = 1 << 20
	DefaultBenchRepeat   = 3
)

// DefaultBenchSizes are the tree sizes the bench command measures.
var DefaultBenchSizes = []int{1_000, 10_000, 100_000}

// Registry defaults.
const (
	DefaultRegistryShards       = 4
	DefaultHibernationThreshold = 0
)
