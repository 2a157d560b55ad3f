package nats

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Subject prefixes for NATS topics.
const (
	SubjectMixersPrefix  = "switchboard.mixers"
	SubjectControlPrefix = "switchboard.control"
)

// Control actions.
const (
	ActionSetActive   = "active"
	ActionRemoveInput = "remove"
)

// SubjectMixerEvents returns the subject mixer lifecycle events are published on.
func SubjectMixerEvents(mixer string) string {
	return fmt.Sprintf("%s.%s.events", SubjectMixersPrefix, mixer)
}

// SubjectMixerStats returns the subject mixer counters are published on.
func SubjectMixerStats(mixer string) string {
	return fmt.Sprintf("%s.%s.stats", SubjectMixersPrefix, mixer)
}

// SubjectControl returns the subject a control action for mixer is sent on.
func SubjectControl(mixer, action string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectControlPrefix, mixer, action)
}

// parseControlSubject splits switchboard.control.{mixer}.{action}.
func parseControlSubject(subject string) (mixer, action string, ok bool) {
	rest, found := strings.CutPrefix(subject, SubjectControlPrefix+".")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// EventMessage wraps an event bus event for publication.
type EventMessage struct {
	ID        string `json:"id"`
	Event     string `json:"event"` // mixer-created, active-input-changed, ...
	Mixer     string `json:"mixer"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// Marshal serializes the message to JSON.
func (m EventMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ControlMessage is a command applied to a mixer. Action and Mixer are
// taken from the subject when empty.
type ControlMessage struct {
	Action    string `json:"action,omitempty"` // active, remove
	Mixer     string `json:"mixer,omitempty"`
	Input     string `json:"input"`
	Timestamp string `json:"timestamp,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// ControlReply answers a control request.
type ControlReply struct {
	OK    bool   `json:"ok"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// Marshal serializes the message to JSON.
func (m ControlReply) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalControl deserializes a ControlMessage from JSON.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	err := json.Unmarshal(data, &m)
	return m, err
}

// UnmarshalReply deserializes a ControlReply from JSON.
func UnmarshalReply(data []byte) (ControlReply, error) {
	var m ControlReply
	err := json.Unmarshal(data, &m)
	return m, err
}
