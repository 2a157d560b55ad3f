package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// NewID returns a fresh event identifier.
func NewID() string {
	return uuid.NewString()
}

// Now returns the current time in the event timestamp format.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(InputAddedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case MixerCreatedEvent:
		event.Publish(b.dispatcher, e)
	case MixerDeletedEvent:
		event.Publish(b.dispatcher, e)
	case MixerStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case MixerErrorEvent:
		event.Publish(b.dispatcher, e)
	case InputAddedEvent:
		event.Publish(b.dispatcher, e)
	case InputUpdatedEvent:
		event.Publish(b.dispatcher, e)
	case InputRemovedEvent:
		event.Publish(b.dispatcher, e)
	case ActiveInputChangedEvent:
		event.Publish(b.dispatcher, e)
	case OutputAddedEvent:
		event.Publish(b.dispatcher, e)
	case OutputRemovedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	case MixerStatsEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type selects which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e InputAddedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(MixerCreatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MixerDeletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MixerStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MixerErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(InputAddedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(InputUpdatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(InputRemovedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ActiveInputChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(OutputAddedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(OutputRemovedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MixerStatsEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
