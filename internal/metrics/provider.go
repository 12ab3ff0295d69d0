// Package metrics owns the Prometheus registry the harness instruments
// register against and its public RegistryProvider implementation.
package metrics

import (
	harnessmetrics "github.com/coopdigital/tenant-harness/pkg/harness/v1/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRegistryProvider hands out a process-local registry, kept
// separate from the global default so repeated runs and tests never collide
// on collector registration.
type PrometheusRegistryProvider struct {
	registry *prometheus.Registry
}

var _ harnessmetrics.RegistryProvider = (*PrometheusRegistryProvider)(nil)

// NewPrometheusRegistryProvider builds a provider around a fresh registry.
func NewPrometheusRegistryProvider() *PrometheusRegistryProvider {
	return &PrometheusRegistryProvider{registry: prometheus.NewRegistry()}
}

// Registry exposes the registry for instrument registration and for the
// promhttp handler.
func (p *PrometheusRegistryProvider) Registry() *prometheus.Registry {
	return p.registry
}
