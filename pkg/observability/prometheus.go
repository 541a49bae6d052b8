package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusRegistry keeps the metrics of one process in a private Prometheus
// registry, so that they can be written as a node exporter textfile when a run
// ends. Init creates one when Config.MetricsTextfile is set.
type PrometheusRegistry struct {
	registry *prometheus.Registry
	reader   sdkmetric.Reader
}

func newPrometheusRegistry() (*PrometheusRegistry, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &PrometheusRegistry{registry: registry, reader: exporter}, nil
}

// Gatherer exposes the underlying registry.
func (pr *PrometheusRegistry) Gatherer() prometheus.Gatherer {
	return pr.registry
}

// WriteTextfile writes every gathered metric to path in the text exposition
// format. The file is replaced atomically.
func (pr *PrometheusRegistry) WriteTextfile(path string) error {
	err := prometheus.WriteToTextfile(path, pr.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
