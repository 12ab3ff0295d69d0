package metrics

import "github.com/prometheus/client_golang/prometheus"

// Instruments holds the harness metric set. The metrics event listener is
// the only writer; probe and driver code publish events instead of touching
// counters directly.
type Instruments struct {
	// ProbeAttempts counts readiness probe attempts, successful or not.
	ProbeAttempts prometheus.Counter
	// ProbeOutcomes counts terminal probe outcomes by "outcome"
	// (succeeded, exhausted).
	ProbeOutcomes *prometheus.CounterVec
	// SuiteRuns counts suite invocations by executor mode and final status.
	SuiteRuns *prometheus.CounterVec
	// RunDuration observes wall-clock duration of suite invocations per
	// executor mode.
	RunDuration *prometheus.HistogramVec
}

// NewInstruments creates and registers the harness instrument set on reg.
func NewInstruments(reg prometheus.Registerer) *Instruments {
	inst := &Instruments{
		ProbeAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harness_probe_attempts_total",
			Help: "Total readiness probe attempts performed.",
		}),
		ProbeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harness_probe_outcomes_total",
			Help: "Terminal readiness probe outcomes.",
		}, []string{"outcome"}),
		SuiteRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harness_suite_runs_total",
			Help: "Suite invocations by executor mode and final status.",
		}, []string{"executor", "status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harness_suite_run_duration_seconds",
			Help:    "Wall-clock duration of suite invocations.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"executor"}),
	}
	reg.MustRegister(inst.ProbeAttempts, inst.ProbeOutcomes, inst.SuiteRuns, inst.RunDuration)
	return inst
}
