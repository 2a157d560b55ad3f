package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/switchboard/internal/events"
)

// ConnectedEvent is the first message on every event stream.
type ConnectedEvent struct {
	Message   string `json:"message" example:"SSE connection established" doc:"Greeting"`
	Mixer     string `json:"mixer,omitempty" example:"studio" doc:"Mixer filter in effect"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Connection time"`
}

// EventsInput filters the event stream.
type EventsInput struct {
	Mixer string `query:"mixer" example:"studio" doc:"Only send events of this mixer"`
}

// mixerEventTypes maps SSE event names to payload types.
func mixerEventTypes() map[string]any {
	types := map[string]any{"connected": ConnectedEvent{}}
	for _, ev := range []any{
		events.MixerCreatedEvent{},
		events.MixerDeletedEvent{},
		events.MixerStateChangedEvent{},
		events.MixerErrorEvent{},
		events.InputAddedEvent{},
		events.InputUpdatedEvent{},
		events.InputRemovedEvent{},
		events.ActiveInputChangedEvent{},
		events.OutputAddedEvent{},
		events.OutputRemovedEvent{},
	} {
		types[events.NameOf(ev)] = ev
	}
	return types
}

func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of mixer, input and output changes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, mixerEventTypes(), func(ctx context.Context, input *EventsInput, send sse.Sender) {
		eventCh := make(chan any, 32)
		unsubscribe := events.SubscribeMixerEvents(s.eventBus, eventCh)
		defer unsubscribe()

		if err := send.Data(ConnectedEvent{
			Message:   "SSE connection established",
			Mixer:     input.Mixer,
			Timestamp: events.Now(),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if input.Mixer != "" && events.MixerOf(ev) != input.Mixer {
					continue
				}
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
