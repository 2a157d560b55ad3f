package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels.
// Huma SSE handlers and the NATS publisher consume events from a select loop.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full (non-blocking)
		}
	})
}

// SubscribeMixerEvents forwards every mixer lifecycle event to ch. Log
// entries are not included.
func SubscribeMixerEvents(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[MixerCreatedEvent](bus, ch),
		SubscribeToChannel[MixerDeletedEvent](bus, ch),
		SubscribeToChannel[MixerStateChangedEvent](bus, ch),
		SubscribeToChannel[MixerErrorEvent](bus, ch),
		SubscribeToChannel[InputAddedEvent](bus, ch),
		SubscribeToChannel[InputUpdatedEvent](bus, ch),
		SubscribeToChannel[InputRemovedEvent](bus, ch),
		SubscribeToChannel[ActiveInputChangedEvent](bus, ch),
		SubscribeToChannel[OutputAddedEvent](bus, ch),
		SubscribeToChannel[OutputRemovedEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// MixerOf returns the mixer an event refers to, or "".
func MixerOf(ev any) string {
	switch e := ev.(type) {
	case MixerCreatedEvent:
		return e.Mixer.Name
	case MixerDeletedEvent:
		return e.MixerName
	case MixerStateChangedEvent:
		return e.MixerName
	case MixerErrorEvent:
		return e.MixerName
	case InputAddedEvent:
		return e.MixerName
	case InputUpdatedEvent:
		return e.MixerName
	case InputRemovedEvent:
		return e.MixerName
	case ActiveInputChangedEvent:
		return e.MixerName
	case OutputAddedEvent:
		return e.MixerName
	case OutputRemovedEvent:
		return e.MixerName
	case MixerStatsEvent:
		return e.MixerName
	}
	return ""
}

// NameOf returns the SSE event name for ev.
func NameOf(ev any) string {
	switch ev.(type) {
	case MixerCreatedEvent:
		return "mixer-created"
	case MixerDeletedEvent:
		return "mixer-deleted"
	case MixerStateChangedEvent:
		return "mixer-state-changed"
	case MixerErrorEvent:
		return "mixer-error"
	case InputAddedEvent:
		return "input-added"
	case InputUpdatedEvent:
		return "input-updated"
	case InputRemovedEvent:
		return "input-removed"
	case ActiveInputChangedEvent:
		return "active-input-changed"
	case OutputAddedEvent:
		return "output-added"
	case OutputRemovedEvent:
		return "output-removed"
	case MixerStatsEvent:
		return "mixer-stats"
	case LogEntryEvent:
		return "log-entry"
	}
	return ""
}
