package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for in-process event
// broadcasting between the listener, metrics, and status API.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(CommandAppliedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event's Publish is generic over the concrete type, so
	// dispatch through a type switch on the closed event set.
	switch e := ev.(type) {
	case CommandAppliedEvent:
		event.Publish(b.dispatcher, e)
	case PacketDroppedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceErrorEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function; the handler's
// parameter type determines which events it receives. Returns an
// unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e CommandAppliedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(CommandAppliedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PacketDroppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
