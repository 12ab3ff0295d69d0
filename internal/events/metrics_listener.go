package events

import (
	"context"

	"github.com/coopdigital/tenant-harness/internal/metrics"
	"github.com/coopdigital/tenant-harness/pkg/harness/v1/events"
	harnesslog "github.com/coopdigital/tenant-harness/pkg/harness/v1/log"
)

// MetricsEventListener subscribes to the harness event bus and updates
// Prometheus instruments based on the events it receives. Keeping metric
// writes here means the probe and driver only ever publish events.
type MetricsEventListener struct {
	bus         *ChannelEventBus
	log         harnesslog.Logger
	instruments *metrics.Instruments
}

// NewMetricsEventListener creates a new listener bound to the given bus and
// instrument set.
func NewMetricsEventListener(bus *ChannelEventBus, instruments *metrics.Instruments, log harnesslog.Logger) *MetricsEventListener {
	if bus == nil || instruments == nil || log == nil {
		panic("MetricsEventListener requires a non-nil ChannelEventBus, Instruments, and Logger")
	}
	return &MetricsEventListener{
		bus:         bus,
		log:         log.With("component", "MetricsEventListener"),
		instruments: instruments,
	}
}

// Start begins consuming events until the bus channel is closed or the
// context is done. Callers typically run this in its own goroutine.
func (l *MetricsEventListener) Start(ctx context.Context) {
	l.log.Debugf("Starting metrics event listener...")
	for {
		select {
		case event, ok := <-l.bus.GetChannel():
			if !ok {
				l.log.Debugf("Event bus channel closed, stopping listener.")
				return
			}
			l.handleEvent(event)
		case <-ctx.Done():
			l.log.Debugf("Context cancelled, stopping metrics event listener.")
			return
		}
	}
}

// handleEvent translates a single event into instrument updates.
func (l *MetricsEventListener) handleEvent(event events.Event) {
	switch event.Type {
	case events.ProbeAttempt:
		l.instruments.ProbeAttempts.Inc()
	case events.ProbeSucceeded:
		l.instruments.ProbeOutcomes.WithLabelValues("succeeded").Inc()
	case events.ProbeExhausted:
		l.instruments.ProbeOutcomes.WithLabelValues("exhausted").Inc()
	case events.RunEnd:
		status, _ := event.Payload["status"].(string)
		if status == "" {
			status = "unknown"
		}
		l.instruments.SuiteRuns.WithLabelValues(event.Executor, status).Inc()
		if seconds, ok := event.Payload["duration_seconds"].(float64); ok {
			l.instruments.RunDuration.WithLabelValues(event.Executor).Observe(seconds)
		}
	}
}
