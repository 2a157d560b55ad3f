package logging

import (
	"context"
	"log/slog"
	"time"
)

// LogCallback receives each entry after it is buffered. The API uses it to
// publish log events without logging importing the event bus.
type LogCallback func(entry LogEntry)

// BufferHandler records entries into the process ring buffer for replay on
// /api/logs/stream. The buffer and callback are resolved per record, so the
// handler works before and after Initialize swaps them.
type BufferHandler struct {
	level  slog.Leveler
	module string
	attrs  map[string]any // from WithAttrs, keys already group-qualified
	prefix string
}

// NewBufferHandler creates a handler feeding the log ring buffer.
func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{level: level, module: "app"}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	mutex.RLock()
	buffer, callback := logBuffer, logCallback
	mutex.RUnlock()
	if buffer == nil {
		return nil
	}

	entry := LogEntry{
		Timestamp: r.Time,
		Level:     levelName(r.Level),
		Module:    h.module,
		Message:   r.Message,
	}
	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		entry.Attributes = make(map[string]any, len(h.attrs)+r.NumAttrs())
		for k, v := range h.attrs {
			entry.Attributes[k] = v
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "module" && h.prefix == "" {
			entry.Module = a.Value.String()
		} else {
			flatten(entry.Attributes, h.prefix, a)
		}
		return true
	})

	entry.Seq = buffer.Write(entry)
	if callback != nil {
		callback(entry)
	}
	return nil
}

// WithAttrs implements slog.Handler. A top-level "module" attribute names
// the entry's module instead of becoming an attribute.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make(map[string]any, len(h.attrs)+len(attrs))
	for k, v := range h.attrs {
		next.attrs[k] = v
	}
	for _, a := range attrs {
		if a.Key == "module" && h.prefix == "" {
			next.module = a.Value.String()
			continue
		}
		flatten(next.attrs, h.prefix, a)
	}
	return &next
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// flatten stores a into attrs under a dot-joined key. Values are reduced to
// JSON friendly forms: errors to their message, durations and times to
// strings.
func flatten(attrs map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := prefix + a.Key
	switch a.Value.Kind() {
	case slog.KindGroup:
		sub := prefix
		if a.Key != "" {
			sub = key + "."
		}
		for _, ga := range a.Value.Group() {
			flatten(attrs, sub, ga)
		}
	case slog.KindTime:
		attrs[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		attrs[key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			attrs[key] = err.Error()
		} else {
			attrs[key] = a.Value.Any()
		}
	default:
		attrs[key] = a.Value.Any()
	}
}

// levelName buckets a level into debug, info, warn or error.
func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	}
	return "debug"
}

