package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the number of entries kept for /api/logs replay.
const DefaultBufferSize = 1000

// Logger is satisfied by *slog.Logger. Packages that only emit logs accept
// this instead of the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level      string            `toml:"level"`
	Format     string            `toml:"format"`
	Modules    map[string]string `toml:"modules"`
	BufferSize int               `toml:"buffer_size"`
}

var (
	mutex       sync.RWMutex
	current     Config
	initialized bool
	modules     = make(map[string]*module)
	rootLevel   = new(slog.LevelVar)
	logBuffer   *RingBuffer
	logCallback LogCallback

	// generation bumps on every Initialize so deferred handlers rebuild
	// their sinks.
	generation atomic.Uint64
)

type module struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// Initialize applies cfg to every module logger, including ones handed out
// earlier, and installs the default slog logger.
func Initialize(cfg Config) {
	mutex.Lock()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	current = cfg
	initialized = true
	logBuffer = NewRingBuffer(cfg.BufferSize)
	rootLevel.Set(levelOr(cfg.Level, slog.LevelInfo))
	for name, m := range modules {
		m.level.Set(moduleLevelLocked(name))
	}
	generation.Add(1)
	mutex.Unlock()

	slog.SetDefault(slog.New(newDeferred(rootLevel)))
}

// GetBuffer returns the log ring buffer, or nil before Initialize.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// SetLogCallback registers fn to receive every buffered entry.
func SetLogCallback(fn LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = fn
}

// GetLogger returns the logger for name. The same *slog.Logger is returned
// for the life of the process; Initialize changes its level and outputs in
// place.
func GetLogger(name string) *slog.Logger {
	mutex.RLock()
	m, ok := modules[name]
	mutex.RUnlock()
	if ok {
		return m.logger
	}

	mutex.Lock()
	defer mutex.Unlock()
	if m, ok := modules[name]; ok {
		return m.logger
	}
	level := new(slog.LevelVar)
	level.Set(moduleLevelLocked(name))
	m = &module{
		logger: slog.New(newDeferred(level)).With("module", name),
		level:  level,
	}
	modules[name] = m
	return m.logger
}

// moduleLevelLocked resolves the effective level for a module. Callers hold
// mutex.
func moduleLevelLocked(name string) slog.Level {
	if !initialized {
		return slog.LevelInfo
	}
	level := levelOr(current.Level, slog.LevelInfo)
	if override, ok := current.Modules[name]; ok {
		level = levelOr(override, level)
	}
	return level
}

// deferred builds its sink chain on first use after each Initialize.
type deferred struct {
	level slog.Leveler
	wrap  func(slog.Handler) slog.Handler
	cache atomic.Pointer[builtHandler]
}

type builtHandler struct {
	gen     uint64
	handler slog.Handler
}

func newDeferred(level slog.Leveler) *deferred {
	return &deferred{level: level, wrap: func(h slog.Handler) slog.Handler { return h }}
}

func (d *deferred) handler() slog.Handler {
	gen := generation.Load()
	if b := d.cache.Load(); b != nil && b.gen == gen {
		return b.handler
	}
	mutex.RLock()
	format := current.Format
	mutex.RUnlock()
	h := d.wrap(newSinks(format, d.level))
	d.cache.Store(&builtHandler{gen: gen, handler: h})
	return h
}

func (d *deferred) Enabled(_ context.Context, level slog.Level) bool {
	return level >= d.level.Level()
}

func (d *deferred) Handle(ctx context.Context, r slog.Record) error {
	return d.handler().Handle(ctx, r)
}

func (d *deferred) WithAttrs(attrs []slog.Attr) slog.Handler {
	wrap := d.wrap
	return &deferred{level: d.level, wrap: func(h slog.Handler) slog.Handler {
		return wrap(h).WithAttrs(attrs)
	}}
}

func (d *deferred) WithGroup(name string) slog.Handler {
	if name == "" {
		return d
	}
	wrap := d.wrap
	return &deferred{level: d.level, wrap: func(h slog.Handler) slog.Handler {
		return wrap(h).WithGroup(name)
	}}
}

// newSinks fans out to stdout, the journal and the replay buffer, skipping
// outputs that are not connected.
func newSinks(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	var handlers []slog.Handler
	if stdoutConnected() {
		if format == "json" {
			handlers = append(handlers, slog.NewJSONHandler(os.Stdout, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stdout, opts))
		}
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(level))
	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// stdoutConnected reports whether stdout is a terminal, pipe, socket or file.
func stdoutConnected() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel accepts debug, info, warn (or warning) and error in any case.
func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

func levelOr(s string, fallback slog.Level) slog.Level {
	if level, ok := parseLevel(s); ok {
		return level
	}
	return fallback
}
