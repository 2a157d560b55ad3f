package engine

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of a graph or element.
type State int

// Element states, ordered.
const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState converts a state name back into a State.
func ParseState(s string) (State, error) {
	switch strings.ToLower(s) {
	case "null":
		return StateNull, nil
	case "ready":
		return StateReady, nil
	case "paused":
		return StatePaused, nil
	case "playing":
		return StatePlaying, nil
	}
	return StateNull, fmt.Errorf("unknown state %q", s)
}

// PadDirection tells source pads from sink pads.
type PadDirection int

// Pad directions.
const (
	PadSrc PadDirection = iota + 1
	PadSink
)

func (d PadDirection) String() string {
	if d == PadSink {
		return "sink"
	}
	return "src"
}

// MessageType classifies bus messages.
type MessageType int

// Bus message types.
const (
	MessageError MessageType = iota + 1
	MessageWarning
	MessageStateChanged
	MessageEOS
)

func (t MessageType) String() string {
	switch t {
	case MessageError:
		return "error"
	case MessageWarning:
		return "warning"
	case MessageStateChanged:
		return "state-changed"
	case MessageEOS:
		return "eos"
	default:
		return "unknown"
	}
}

// Message is a single bus message.
type Message struct {
	Type   MessageType
	Source string
	Err    error
	Debug  string
	Old    State
	New    State
}

// Caps is a serialized capability description, e.g.
// "video/x-raw,format=RGBA,width=1920,height=1080,framerate=30/1".
type Caps string

// Enum is a property value given by its nick, e.g. pattern "black".
// Backends resolve it against the property's enumeration.
type Enum string

// Media types reported by Pad.MediaType.
const (
	MediaVideo = "video/x-raw"
	MediaAudio = "audio/x-raw"
)

// VideoCaps builds raw video caps.
func VideoCaps(format string, width, height, framerate int) Caps {
	var b strings.Builder
	b.WriteString(MediaVideo)
	if format != "" {
		fmt.Fprintf(&b, ",format=%s", format)
	}
	if width > 0 {
		fmt.Fprintf(&b, ",width=%d", width)
	}
	if height > 0 {
		fmt.Fprintf(&b, ",height=%d", height)
	}
	if framerate > 0 {
		fmt.Fprintf(&b, ",framerate=%d/1", framerate)
	}
	return Caps(b.String())
}

// AudioCaps builds raw interleaved audio caps.
func AudioCaps(format string, channels int) Caps {
	return Caps(fmt.Sprintf("%s,format=%s,channels=%d,layout=interleaved", MediaAudio, format, channels))
}

// MediaTypeOf returns the structure name of a caps string.
func MediaTypeOf(c Caps) string {
	s := string(c)
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[:i]
	}
	return s
}
