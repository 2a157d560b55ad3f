package events

import "github.com/smazurov/switchboard/internal/mixer"

// Event type constants for kelindar/event.
const (
	TypeMixerCreated uint32 = iota + 1
	TypeMixerDeleted
	TypeMixerStateChanged
	TypeMixerError
	TypeInputAdded
	TypeInputUpdated
	TypeInputRemoved
	TypeActiveInputChanged
	TypeOutputAdded
	TypeOutputRemoved
	TypeLogEntry
	TypeMixerStats
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// MixerCreatedEvent is published after a mixer is registered and playing.
type MixerCreatedEvent struct {
	ID        string     `json:"id" example:"0b8e4c5e-8f0b-4e53-9a43-3f1f2c1c6a10" doc:"Event identifier"`
	Mixer     mixer.Info `json:"mixer" doc:"Created mixer"`
	Action    string     `json:"action" example:"created" doc:"Action type"`
	Timestamp string     `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for MixerCreatedEvent.
func (e MixerCreatedEvent) Type() uint32 { return TypeMixerCreated }

// MixerDeletedEvent is published after a mixer is stopped and unregistered.
type MixerDeletedEvent struct {
	ID        string `json:"id" doc:"Event identifier"`
	MixerName string `json:"mixer" example:"studio" doc:"Deleted mixer"`
	Action    string `json:"action" example:"deleted" doc:"Action type"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for MixerDeletedEvent.
func (e MixerDeletedEvent) Type() uint32 { return TypeMixerDeleted }

// MixerStateChangedEvent reports a graph state transition.
type MixerStateChangedEvent struct {
	ID        string `json:"id" doc:"Event identifier"`
	MixerName string `json:"mixer" example:"studio" doc:"Mixer name"`
	OldState  string `json:"old_state" example:"paused" doc:"Previous state"`
	NewState  string `json:"new_state" example:"playing" doc:"Current state"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for MixerStateChangedEvent.
func (e MixerStateChangedEvent) Type() uint32 { return TypeMixerStateChanged }

// MixerErrorEvent reports an error or warning posted on a mixer bus.
type MixerErrorEvent struct {
	ID        string `json:"id" doc:"Event identifier"`
	MixerName string `json:"mixer" example:"studio" doc:"Mixer name"`
	Severity  string `json:"severity" example:"error" doc:"error or warning"`
	Source    string `json:"source" example:"input_cam_uridecodebin" doc:"Element that posted the message"`
	Error     string `json:"error" example:"Could not open resource" doc:"Error text"`
	Debug     string `json:"debug,omitempty" doc:"Engine debug detail"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for MixerErrorEvent.
func (e MixerErrorEvent) Type() uint32 { return TypeMixerError }

// InputAddedEvent is published after an input is linked.
type InputAddedEvent struct {
	ID        string          `json:"id" doc:"Event identifier"`
	MixerName string          `json:"mixer" example:"studio" doc:"Mixer name"`
	Input     mixer.InputInfo `json:"input" doc:"Added input"`
	Timestamp string          `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for InputAddedEvent.
func (e InputAddedEvent) Type() uint32 { return TypeInputAdded }

// InputUpdatedEvent is published after input properties change.
type InputUpdatedEvent struct {
	ID        string          `json:"id" doc:"Event identifier"`
	MixerName string          `json:"mixer" example:"studio" doc:"Mixer name"`
	Input     mixer.InputInfo `json:"input" doc:"Updated input"`
	Timestamp string          `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for InputUpdatedEvent.
func (e InputUpdatedEvent) Type() uint32 { return TypeInputUpdated }

// InputRemovedEvent is published after an input is unlinked.
type InputRemovedEvent struct {
	ID        string `json:"id" doc:"Event identifier"`
	MixerName string `json:"mixer" example:"studio" doc:"Mixer name"`
	InputName string `json:"input" example:"camera1" doc:"Removed input"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for InputRemovedEvent.
func (e InputRemovedEvent) Type() uint32 { return TypeInputRemoved }

// ActiveInputChangedEvent is published after a switch. Partial is set when
// some demotions failed.
type ActiveInputChangedEvent struct {
	ID        string `json:"id" doc:"Event identifier"`
	MixerName string `json:"mixer" example:"studio" doc:"Mixer name"`
	InputName string `json:"input" example:"camera1" doc:"New active input"`
	Partial   bool   `json:"partial" doc:"Whether the switch was only partially applied"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ActiveInputChangedEvent.
func (e ActiveInputChangedEvent) Type() uint32 { return TypeActiveInputChanged }

// OutputAddedEvent is published after an output is linked.
type OutputAddedEvent struct {
	ID        string           `json:"id" doc:"Event identifier"`
	MixerName string           `json:"mixer" example:"studio" doc:"Mixer name"`
	Output    mixer.OutputInfo `json:"output" doc:"Added output"`
	Timestamp string           `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for OutputAddedEvent.
func (e OutputAddedEvent) Type() uint32 { return TypeOutputAdded }

// OutputRemovedEvent is published after an output is unlinked.
type OutputRemovedEvent struct {
	ID         string `json:"id" doc:"Event identifier"`
	MixerName  string `json:"mixer" example:"studio" doc:"Mixer name"`
	OutputName string `json:"output" example:"youtube" doc:"Removed output"`
	Timestamp  string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for OutputRemovedEvent.
func (e OutputRemovedEvent) Type() uint32 { return TypeOutputRemoved }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2026-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// MixerStatsEvent carries periodic per-mixer counters.
type MixerStatsEvent struct {
	MixerName      string `json:"mixer" example:"studio" doc:"Mixer name"`
	Inputs         int    `json:"inputs" example:"3" doc:"Linked inputs"`
	Outputs        int    `json:"outputs" example:"1" doc:"Linked outputs"`
	BusErrors      int    `json:"bus_errors" example:"0" doc:"Errors posted on the bus"`
	ActiveSwitches int    `json:"active_switches" example:"12" doc:"Active input switches"`
	Timestamp      string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Sample timestamp"`
}

// Type returns the event type identifier for MixerStatsEvent.
func (e MixerStatsEvent) Type() uint32 { return TypeMixerStats }
