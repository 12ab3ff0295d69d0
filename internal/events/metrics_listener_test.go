package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/coopdigital/tenant-harness/internal/events"
	"github.com/coopdigital/tenant-harness/internal/logger"
	"github.com/coopdigital/tenant-harness/internal/metrics"
	harness "github.com/coopdigital/tenant-harness/pkg/harness/v1"
	harnessevents "github.com/coopdigital/tenant-harness/pkg/harness/v1/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelEventBusDropsWhenFull(t *testing.T) {
	log := logger.NewDefaultLogger("error")
	bus := events.NewChannelEventBus(1, log)

	bus.Emit(harnessevents.Event{Type: harnessevents.ProbeAttempt})
	bus.Emit(harnessevents.Event{Type: harnessevents.ProbeAttempt}) // dropped, not blocking
	bus.Close()

	count := 0
	for range bus.GetChannel() {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestMetricsEventListenerTranslatesEvents(t *testing.T) {
	log := logger.NewDefaultLogger("error")
	registry := prometheus.NewRegistry()
	instruments := metrics.NewInstruments(registry)
	bus := events.NewChannelEventBus(32, log)
	listener := events.NewMetricsEventListener(bus, instruments, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		listener.Start(context.Background())
	}()

	now := time.Now()
	bus.Emit(harnessevents.Event{Type: harnessevents.ProbeAttempt, Timestamp: now})
	bus.Emit(harnessevents.Event{Type: harnessevents.ProbeAttempt, Timestamp: now})
	bus.Emit(harnessevents.Event{Type: harnessevents.ProbeSucceeded, Timestamp: now})
	bus.Emit(harnessevents.Event{
		Type:      harnessevents.RunEnd,
		Timestamp: now,
		Executor:  "standard",
		Payload: map[string]interface{}{
			"status":           harness.StatusCompleted,
			"exit_code":        0,
			"duration_seconds": 1.5,
		},
	})
	bus.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop after the bus was closed")
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(instruments.ProbeAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(instruments.ProbeOutcomes.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(instruments.SuiteRuns.WithLabelValues("standard", harness.StatusCompleted)))

	histCount := testutil.CollectAndCount(instruments.RunDuration)
	require.Equal(t, 1, histCount, "one duration series must have been observed")
}
