package events

import "github.com/coopdigital/tenant-harness/pkg/harness/v1/events"

// NoOpEventBus is a do-nothing implementation of the public events.Bus
// interface, used when no event handling is configured so emitting
// components never have to nil-check the bus.
type NoOpEventBus struct{}

// NewNoOpEventBus creates a new instance of the NoOpEventBus.
func NewNoOpEventBus() events.Bus {
	return &NoOpEventBus{}
}

// Emit discards the event.
func (n *NoOpEventBus) Emit(event events.Event) {
}

var _ events.Bus = (*NoOpEventBus)(nil)
