package events

import "time"

// EventType represents the type of a harness lifecycle event.
type EventType string

// Standard harness event types.
const (
	ProbeAttempt   EventType = "ProbeAttempt"   // One readiness probe attempt finished (success or not)
	ProbeSucceeded EventType = "ProbeSucceeded" // Endpoint accepted within the attempt budget
	ProbeExhausted EventType = "ProbeExhausted" // Attempt budget spent without success
	SuiteStart     EventType = "SuiteStart"     // Driver begins the run matrix
	SuiteEnd       EventType = "SuiteEnd"       // Driver finished (all runs done or fail-fast abort)
	RunStart       EventType = "RunStart"       // A single executor-mode invocation begins
	RunEnd         EventType = "RunEnd"         // A single executor-mode invocation finished
)

// Event represents a significant occurrence in the harness lifecycle.
type Event struct {
	// Type categorizes the event.
	Type EventType `json:"type"`
	// Timestamp marks when the event occurred.
	Timestamp time.Time `json:"timestamp"`
	// Target identifies the probe target (host:port) for probe events.
	Target string `json:"target,omitempty"`
	// Executor identifies the executor mode for run events.
	Executor string `json:"executor,omitempty"`
	// Payload contains event-specific data, e.g. attempt numbers, exit
	// codes and run status. Credentials must never be included.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Bus defines the interface for publishing harness events.
type Bus interface {
	// Emit publishes an event. Implementations must not block the caller;
	// an overloaded bus drops the event instead.
	Emit(event Event)
}
