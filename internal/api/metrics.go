package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/switchboard/internal/events"
	"github.com/smazurov/switchboard/internal/metrics/exporters"
)

// registerMetricsRoutes registers the mixer stats SSE endpoint.
func (s *Server) registerMetricsRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "metrics-stream",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Metrics Server-Sent Events Stream",
		Description: "Per-mixer counters, sent when they change and refreshed every few seconds",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, exporters.EventTypes(), func(ctx context.Context, input *EventsInput, send sse.Sender) {
		eventCh := make(chan any, 16)
		unsubscribe := events.SubscribeToChannel[events.MixerStatsEvent](s.eventBus, eventCh)
		defer unsubscribe()

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
