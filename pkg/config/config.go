// Package config provides configuration loading and validation for rbtool.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/rbjoin/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("log format must be text or json")
	ErrInvalidSampleRatio = errors.New("sample ratio must lie in [0, 1]")
	ErrInvalidBenchSize   = errors.New("bench sizes must be positive")
	ErrInvalidKeySpace    = errors.New("key space must be positive")
	ErrInvalidRepeat      = errors.New("bench repeat must be positive")
	ErrInvalidShards      = errors.New("registry shards must be positive")
	ErrInvalidThreshold   = errors.New("hibernation threshold must not be negative")
)

const (
	logFormatText = "text"
	logFormatJSON = "json"
)

// Config holds all configuration for rbtool.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Bench     BenchConfig     `mapstructure:"bench"`
	Registry  RegistryConfig  `mapstructure:"registry"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds the OpenTelemetry export settings.
type TelemetryConfig struct {
	ServiceName  string  `mapstructure:"service_name"`
	Environment  string  `mapstructure:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	DebugTrace   bool    `mapstructure:"debug_trace"`

	// MetricsTextfile is written in the Prometheus text format when a
	// command exits. Empty disables it.
	MetricsTextfile string `mapstructure:"metrics_textfile"`
}

// BenchConfig holds the benchmark driver settings.
type BenchConfig struct {
	Sizes    []int `mapstructure:"sizes"`
	Seed     int64 `mapstructure:"seed"`
	KeySpace int   `mapstructure:"key_space"`
	Repeat   int   `mapstructure:"repeat"`
}

// RegistryConfig holds the named-set registry settings.
type RegistryConfig struct {
	Directory            string `mapstructure:"directory"`
	Shards               int    `mapstructure:"shards"`
	HibernationThreshold int    `mapstructure:"hibernation_threshold"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches the default locations for rbtool.yaml; a
// missing file there is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("rbtool")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/rbtool")
	}

	viperCfg.SetEnvPrefix("RBTOOL")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.service_name", DefaultServiceName)
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
	viperCfg.SetDefault("telemetry.debug_trace", false)
	viperCfg.SetDefault("telemetry.metrics_textfile", "")

	viperCfg.SetDefault("bench.sizes", DefaultBenchSizes)
	viperCfg.SetDefault("bench.seed", DefaultBenchSeed)
	viperCfg.SetDefault("bench.key_space", DefaultBenchKeySpace)
	viperCfg.SetDefault("bench.repeat", DefaultBenchRepeat)

	viperCfg.SetDefault("registry.directory", "")
	viperCfg.SetDefault("registry.shards", DefaultRegistryShards)
	viperCfg.SetDefault("registry.hibernation_threshold", DefaultHibernationThreshold)
}

// Validate checks the configuration for values the tools cannot run with.
func (config *Config) Validate() error {
	_, err := parseLevel(config.Logging.Level)
	if err != nil {
		return err
	}

	if config.Logging.Format != logFormatText && config.Logging.Format != logFormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, config.Telemetry.SampleRatio)
	}

	for _, size := range config.Bench.Sizes {
		if size <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidBenchSize, size)
		}
	}

	if config.Bench.KeySpace <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKeySpace, config.Bench.KeySpace)
	}

	if config.Bench.Repeat <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRepeat, config.Bench.Repeat)
	}

	if config.Registry.Shards <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidShards, config.Registry.Shards)
	}

	if config.Registry.HibernationThreshold < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, config.Registry.HibernationThreshold)
	}

	return nil
}

// Observability converts the logging and telemetry sections into the
// settings observability.Init expects.
func (config *Config) Observability(version string, mode observability.AppMode) (observability.Config, error) {
	level, err := parseLevel(config.Logging.Level)
	if err != nil {
		return observability.Config{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceName = config.Telemetry.ServiceName
	obsCfg.ServiceVersion = version
	obsCfg.Environment = config.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = config.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(config.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = config.Telemetry.OTLPInsecure
	obsCfg.DebugTrace = config.Telemetry.DebugTrace
	obsCfg.SampleRatio = config.Telemetry.SampleRatio
	obsCfg.MetricsTextfile = config.Telemetry.MetricsTextfile
	obsCfg.LogLevel = level
	obsCfg.LogJSON = config.Logging.Format == logFormatJSON

	return obsCfg, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, raw)
	}

	return level, nil
}
