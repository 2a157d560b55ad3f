// Package registry keeps the process-wide table of named mixers and routes
// control operations to them.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/smazurov/switchboard/internal/engine"
	"github.com/smazurov/switchboard/internal/events"
	"github.com/smazurov/switchboard/internal/logging"
	"github.com/smazurov/switchboard/internal/metrics"
	"github.com/smazurov/switchboard/internal/mixer"
)

// Operation names reported to metrics.
const (
	OpMixerCreate    = "mixer_create"
	OpMixerDelete    = "mixer_delete"
	OpInputAdd       = "input_add"
	OpInputRemove    = "input_remove"
	OpInputUpdate    = "input_update"
	OpInputSetActive = "input_set_active"
	OpOutputAdd      = "output_add"
	OpOutputRemove   = "output_remove"
)

// Options configures a Registry.
type Options struct {
	Engine       engine.Engine
	EventBus     *events.Bus   // optional
	StateTimeout time.Duration // zero means mixer.DefaultStateTimeout
	RecordDir    string        // where recording inputs write, default "."
	Logger       *slog.Logger  // optional
}

// InputSpec describes an input to construct.
type InputSpec struct {
	Kind     mixer.InputKind
	Location string
	Config   mixer.InputConfig
}

// OutputSpec describes an output to construct.
type OutputSpec struct {
	Kind     mixer.OutputKind
	Location string
	Config   mixer.OutputConfig
}

// Registry maps mixer names to running mixers.
type Registry struct {
	eng          engine.Engine
	bus          *events.Bus
	stateTimeout time.Duration
	recordDir    string
	logger       *slog.Logger

	mu     sync.RWMutex
	mixers map[string]*mixer.Mixer
}

// New creates an empty registry.
func New(opts Options) *Registry {
	r := &Registry{
		eng:          opts.Engine,
		bus:          opts.EventBus,
		stateTimeout: opts.StateTimeout,
		recordDir:    opts.RecordDir,
		logger:       opts.Logger,
		mixers:       make(map[string]*mixer.Mixer),
	}
	if r.stateTimeout <= 0 {
		r.stateTimeout = mixer.DefaultStateTimeout
	}
	if r.recordDir == "" {
		r.recordDir = "."
	}
	if r.logger == nil {
		r.logger = logging.GetLogger("registry")
	}
	return r
}

// Engine returns the media backend mixers are built on.
func (r *Registry) Engine() engine.Engine {
	return r.eng
}

// Create builds, starts and registers a mixer.
func (r *Registry) Create(ctx context.Context, cfg mixer.Config) (err error) {
	defer func() { metrics.ObserveOperation(OpMixerCreate, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := mixer.ValidateName(mixer.KindMixer, cfg.Name); err != nil {
		return err
	}
	if r.has(cfg.Name) {
		return mixer.ErrExists(mixer.KindMixer, cfg.Name)
	}

	// Construction touches the engine and can be slow; keep it outside the
	// table lock and re-check the name on insert.
	m, err := mixer.New(r.eng, cfg,
		mixer.WithStateTimeout(r.stateTimeout),
		mixer.WithBusHandler(r.handleBus),
	)
	if err != nil {
		return err
	}
	if err := m.Play(); err != nil {
		_ = m.Close()
		return err
	}

	r.mu.Lock()
	if _, exists := r.mixers[cfg.Name]; exists {
		r.mu.Unlock()
		_ = m.Close()
		return mixer.ErrExists(mixer.KindMixer, cfg.Name)
	}
	r.mixers[cfg.Name] = m
	count := len(r.mixers)
	r.mu.Unlock()

	metrics.SetMixerCount(count)
	metrics.SetMixerInputs(cfg.Name, 0)
	metrics.SetMixerOutputs(cfg.Name, 0)
	r.logger.Info("Mixer created", "mixer", cfg.Name)
	r.publish(events.MixerCreatedEvent{
		ID:        events.NewID(),
		Mixer:     m.Info(),
		Action:    "created",
		Timestamp: events.Now(),
	})
	return nil
}

// Delete stops a mixer and drops it from the table. The mixer is dropped
// even when stopping it fails; the stop error is returned.
func (r *Registry) Delete(ctx context.Context, name string) (err error) {
	defer func() { metrics.ObserveOperation(OpMixerDelete, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	m, ok := r.mixers[name]
	if !ok {
		r.mu.Unlock()
		return mixer.ErrNotFound(mixer.KindMixer, name)
	}
	delete(r.mixers, name)
	count := len(r.mixers)
	r.mu.Unlock()

	closeErr := m.Close()
	if closeErr != nil {
		r.logger.Warn("Mixer did not stop cleanly", "mixer", name, "error", closeErr)
	}

	metrics.SetMixerCount(count)
	metrics.DeleteMixerMetrics(name)
	r.logger.Info("Mixer deleted", "mixer", name)
	r.publish(events.MixerDeletedEvent{
		ID:        events.NewID(),
		MixerName: name,
		Action:    "deleted",
		Timestamp: events.Now(),
	})
	return closeErr
}

// Close deletes every mixer.
func (r *Registry) Close(ctx context.Context) error {
	var firstErr error
	for _, name := range r.Names() {
		if err := r.Delete(ctx, name); err != nil && !mixer.IsCode(err, mixer.ErrCodeNotFound) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Names returns the registered mixer names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.mixers))
	for name := range r.mixers {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// List returns a snapshot of every mixer sorted by name.
func (r *Registry) List() []mixer.Info {
	r.mu.RLock()
	mixers := make([]*mixer.Mixer, 0, len(r.mixers))
	for _, m := range r.mixers {
		mixers = append(mixers, m)
	}
	r.mu.RUnlock()

	infos := make([]mixer.Info, 0, len(mixers))
	for _, m := range mixers {
		infos = append(infos, m.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Get returns a snapshot of one mixer.
func (r *Registry) Get(name string) (mixer.Info, error) {
	m, err := r.mixer(name)
	if err != nil {
		return mixer.Info{}, err
	}
	return m.Info(), nil
}

// DebugDot renders a mixer graph in graphviz dot format.
func (r *Registry) DebugDot(name string) (string, error) {
	m, err := r.mixer(name)
	if err != nil {
		return "", err
	}
	return m.DebugDot(), nil
}

func (r *Registry) has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.mixers[name]
	return ok
}

func (r *Registry) mixer(name string) (*mixer.Mixer, error) {
	r.mu.RLock()
	m, ok := r.mixers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, mixer.ErrNotFound(mixer.KindMixer, name)
	}
	return m, nil
}

func (r *Registry) publish(ev events.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

// handleBus runs on a mixer's watcher goroutine.
func (r *Registry) handleBus(name string, msg engine.Message) {
	switch msg.Type {
	case engine.MessageError, engine.MessageWarning:
		severity := "warning"
		if msg.Type == engine.MessageError {
			severity = "error"
			metrics.IncBusErrors(name)
		}
		var text string
		if msg.Err != nil {
			text = msg.Err.Error()
		}
		r.publish(events.MixerErrorEvent{
			ID:        events.NewID(),
			MixerName: name,
			Severity:  severity,
			Source:    msg.Source,
			Error:     text,
			Debug:     msg.Debug,
			Timestamp: events.Now(),
		})
	case engine.MessageStateChanged:
		if msg.Source != name {
			return
		}
		r.publish(events.MixerStateChangedEvent{
			ID:        events.NewID(),
			MixerName: name,
			OldState:  msg.Old.String(),
			NewState:  msg.New.String(),
			Timestamp: events.Now(),
		})
	}
}
