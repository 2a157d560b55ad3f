package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/switchboard/internal/events"
	"github.com/smazurov/switchboard/internal/logging"
)

func logEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Seq:        entry.Seq,
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}

// LogStreamInput narrows the log stream.
type LogStreamInput struct {
	Since  uint64 `query:"since" doc:"Replay only entries with a higher sequence number"`
	Level  string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level"`
	Module string `query:"module" doc:"Only entries from this logging module"`
}

// registerLogRoutes registers the log streaming SSE endpoint.
func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Replays buffered entries after `since`, then follows new ones. `level` and `module` narrow both.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, in *LogStreamInput, send sse.Sender) {
		// Subscribe before replaying history so nothing written in between
		// is lost; duplicates are dropped by sequence number.
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		lastSeq := in.Since
		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.Since(in.Since) {
				lastSeq = entry.Seq
				if !entry.Matches(in.Level, in.Module) {
					continue
				}
				if err := send.Data(logEvent(entry)); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				entry, ok := ev.(events.LogEntryEvent)
				if !ok || (entry.Seq != 0 && entry.Seq <= lastSeq) {
					continue
				}
				if !(logging.LogEntry{Level: entry.Level, Module: entry.Module}).Matches(in.Level, in.Module) {
					continue
				}
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}

// ForwardLogs publishes every buffered log entry on bus for the log stream.
func ForwardLogs(bus *events.Bus) {
	logging.SetLogCallback(func(entry logging.LogEntry) {
		bus.Publish(logEvent(entry))
	})
}
