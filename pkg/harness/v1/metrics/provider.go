package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegistryProvider defines the interface for accessing the harness metrics
// registry, so embedders can expose the series via their chosen method
// (e.g. a Prometheus HTTP endpoint or a push at process exit).
type RegistryProvider interface {
	// Registry returns the Prometheus registry containing harness metrics.
	Registry() *prometheus.Registry
}
