package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TracerProvider defines the interface for accessing the harness tracer
// provider, allowing embedders to integrate with an existing OpenTelemetry
// setup or substitute their own implementation.
type TracerProvider interface {
	// GetTracer returns a Tracer instance with the specified name and options.
	GetTracer(name string, opts ...trace.TracerOption) trace.Tracer

	// Shutdown gracefully shuts down the tracer provider, flushing any
	// buffered spans. The context should carry a deadline. Implementations
	// where shutdown is not applicable (NoOp) must return nil.
	Shutdown(ctx context.Context) error
}
