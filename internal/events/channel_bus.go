package events

import (
	"github.com/coopdigital/tenant-harness/pkg/harness/v1/events"
	harnesslog "github.com/coopdigital/tenant-harness/pkg/harness/v1/log"
)

// ChannelEventBus implements the public events.Bus interface using a buffered
// Go channel. It gives in-process listeners (the metrics listener, tests) a
// decoupled view of the harness lifecycle. Emission never blocks the probe
// or driver path; when the buffer is full the event is dropped with a warning.
type ChannelEventBus struct {
	channel chan events.Event
	log     harnesslog.Logger
}

// NewChannelEventBus creates a ChannelEventBus with the given buffer size.
// Non-positive sizes fall back to a default. Panics on a nil logger.
func NewChannelEventBus(bufferSize int, log harnesslog.Logger) *ChannelEventBus {
	const defaultBufferSize = 100
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if log == nil {
		panic("ChannelEventBus requires a non-nil logger")
	}

	bus := &ChannelEventBus{
		channel: make(chan events.Event, bufferSize),
		log:     log.With("component", "ChannelEventBus"),
	}
	bus.log.Debugf("ChannelEventBus initialized with buffer size %d", bufferSize)
	return bus
}

// Emit sends an event onto the internal buffered channel without blocking.
func (c *ChannelEventBus) Emit(event events.Event) {
	select {
	case c.channel <- event:
		c.log.Debugf("Emitted event type '%s'", event.Type)
	default:
		c.log.Warnf("Event channel buffer full, dropping event type '%s'", event.Type)
	}
}

// GetChannel returns the underlying event channel for consumers. Not part of
// the public events.Bus interface; the returned channel is read-only.
func (c *ChannelEventBus) GetChannel() <-chan events.Event {
	return c.channel
}

// Close closes the underlying event channel, signaling consumers that no
// more events will be sent. Emit must not be called after Close.
func (c *ChannelEventBus) Close() {
	close(c.channel)
}

var _ events.Bus = (*ChannelEventBus)(nil)
