package probe

import (
	"context"
	"time"

	"github.com/coopdigital/tenant-harness/internal/retry"
	harnesserrors "github.com/coopdigital/tenant-harness/pkg/harness/v1/errors"
	"github.com/coopdigital/tenant-harness/pkg/harness/v1/events"
	harnesslog "github.com/coopdigital/tenant-harness/pkg/harness/v1/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Defaults for the polling loop, matching the classic 50 x 1s bootstrap budget.
const (
	DefaultAttempts = 50
	DefaultInterval = time.Second
)

// WaiterConfig describes the polling policy around a single Prober.
type WaiterConfig struct {
	// Host and Port identify the endpoint for diagnostics and ProbeError.
	Host string
	Port int
	// Attempts is the total probe budget. Zero means DefaultAttempts.
	Attempts int
	// Interval is the wait between attempts. Zero means DefaultInterval.
	Interval time.Duration
}

// Waiter blocks until a Prober reports readiness or the attempt budget is
// spent. Terminal failure is a typed ProbeError carrying host, port and the
// attempt count.
type Waiter struct {
	prober Prober
	cfg    WaiterConfig
	helper *retry.Helper
	log    harnesslog.Logger
	bus    events.Bus
	tracer oteltrace.Tracer
}

// NewWaiter wires a Waiter. bus and tracer may be nil; they default to
// no-ops. Panics on a nil prober or logger.
func NewWaiter(prober Prober, cfg WaiterConfig, log harnesslog.Logger, bus events.Bus, tracer oteltrace.Tracer) *Waiter {
	if prober == nil {
		panic("probe.NewWaiter requires a non-nil prober")
	}
	if log == nil {
		panic("probe.NewWaiter requires a non-nil logger")
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Waiter{
		prober: prober,
		cfg:    cfg,
		helper: retry.NewHelper(log),
		log:    log.With("component", "Waiter", "target", prober.Target()),
		bus:    bus,
		tracer: tracer,
	}
}

// Wait polls the endpoint. On success it returns nil without any further
// delay. On exhaustion it returns a ProbeError wrapping the last probe
// failure; a cancelled context surfaces as-is.
func (w *Waiter) Wait(ctx context.Context) error {
	var span oteltrace.Span
	if w.tracer != nil {
		ctx, span = w.tracer.Start(ctx, "harness.probe",
			oteltrace.WithAttributes(
				attribute.String("probe.target", w.prober.Target()),
				attribute.Int("probe.attempts_budget", w.cfg.Attempts),
			))
		defer span.End()
	}

	w.log.Infof("Waiting for database at %s (up to %d attempts, %v apart)...",
		w.prober.Target(), w.cfg.Attempts, w.cfg.Interval)

	attempt := 0
	err := w.helper.Do(ctx, retry.Config{
		Attempts: w.cfg.Attempts,
		Delay:    w.cfg.Interval,
		Name:     "probe " + w.prober.Target(),
	}, func(ctx context.Context) error {
		attempt++
		probeErr := w.prober.Probe(ctx)
		w.emit(events.Event{
			Type:      events.ProbeAttempt,
			Timestamp: time.Now(),
			Target:    w.prober.Target(),
			Payload: map[string]interface{}{
				"attempt": attempt,
				"ok":      probeErr == nil,
			},
		})
		return probeErr
	})

	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if ctx.Err() != nil {
			// Cancellation is not exhaustion; let the caller map it.
			return err
		}
		w.emit(events.Event{
			Type:      events.ProbeExhausted,
			Timestamp: time.Now(),
			Target:    w.prober.Target(),
			Payload:   map[string]interface{}{"attempts": w.cfg.Attempts},
		})
		return harnesserrors.NewProbeError(w.cfg.Host, w.cfg.Port, w.cfg.Attempts, err)
	}

	w.emit(events.Event{
		Type:      events.ProbeSucceeded,
		Timestamp: time.Now(),
		Target:    w.prober.Target(),
		Payload:   map[string]interface{}{"attempt": attempt},
	})
	w.log.Infof("Database at %s is ready (attempt %d/%d).", w.prober.Target(), attempt, w.cfg.Attempts)
	return nil
}

func (w *Waiter) emit(event events.Event) {
	if w.bus == nil {
		return
	}
	w.bus.Emit(event)
}
