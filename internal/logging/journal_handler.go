package logging

import (
	"context"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// Identifier is the syslog identifier logs are tagged with in the journal,
// so `journalctl -t switchboard MIXER=studio` selects one mixer.
const Identifier = "switchboard"

// JournalHandler writes records to the systemd journal as structured
// fields. Attributes become upper-case journal fields with groups joined by
// underscores.
type JournalHandler struct {
	level  slog.Leveler
	fields map[string]string // from WithAttrs, already encoded
	prefix string            // group path, e.g. "INPUT_"
	send   func(message string, priority journal.Priority, vars map[string]string) error
}

// NewJournalHandler creates a handler that sends to the local journald.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{
		level:  level,
		fields: map[string]string{},
		send:   journal.Send,
	}
}

// Enabled implements slog.Handler.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]string, len(h.fields)+r.NumAttrs()+1)
	maps.Copy(fields, h.fields)
	fields["SYSLOG_IDENTIFIER"] = Identifier
	r.Attrs(func(a slog.Attr) bool {
		encodeField(fields, h.prefix, a)
		return true
	})
	return h.send(r.Message, journalPriority(r.Level), fields)
}

// WithAttrs implements slog.Handler.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = maps.Clone(h.fields)
	for _, a := range attrs {
		encodeField(next.fields, h.prefix, a)
	}
	return &next
}

// WithGroup implements slog.Handler.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + fieldName(name) + "_"
	return &next
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

func encodeField(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub += fieldName(a.Key) + "_"
		}
		for _, ga := range a.Value.Group() {
			encodeField(fields, sub, ga)
		}
		return
	}

	var v string
	switch a.Value.Kind() {
	case slog.KindInt64:
		v = strconv.FormatInt(a.Value.Int64(), 10)
	case slog.KindUint64:
		v = strconv.FormatUint(a.Value.Uint64(), 10)
	case slog.KindFloat64:
		v = strconv.FormatFloat(a.Value.Float64(), 'g', -1, 64)
	case slog.KindBool:
		v = strconv.FormatBool(a.Value.Bool())
	case slog.KindTime:
		v = a.Value.Time().Format(time.RFC3339Nano)
	default:
		v = a.Value.String()
	}
	fields[prefix+fieldName(a.Key)] = v
}

// fieldName maps an attribute key onto the journal's field grammar:
// upper-case ASCII letters, digits and underscores, not starting with an
// underscore or digit.
func fieldName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
	name = strings.TrimLeft(name, "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "F_" + name
	}
	return name
}

// IsJournalAvailable reports whether journald is reachable.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
