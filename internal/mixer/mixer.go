// Package mixer composes inputs onto a shared canvas and fans the result
// out to outputs.
//
// A Mixer owns one engine graph. The trunk is built once: a compositor and
// an audio mixer, each followed by a tee. Inputs link their tails into the
// compositor and audio mixer through request pads; outputs link their heads
// to the tees. Every input and output is a self-contained subgraph which can
// be linked and unlinked while the graph is playing.
package mixer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/switchboard/internal/engine"
	"github.com/smazurov/switchboard/internal/logging"
)

// DefaultStateTimeout bounds how long operations wait for the graph to
// settle before reading its state.
const DefaultStateTimeout = 15 * time.Second

// BusHandler receives every bus message of a mixer.
type BusHandler func(mixer string, msg engine.Message)

// Mixer is one compositing graph with its inputs and outputs.
type Mixer struct {
	name         string
	eng          engine.Engine
	cfg          Config
	logger       *slog.Logger
	stateTimeout time.Duration
	onBus        BusHandler

	mu         sync.Mutex
	trunk      trunk
	inputs     map[string]*Input
	outputs    map[string]*Output
	background *Input
	active     string
	fatal      error
	closed     bool

	inputCount  atomic.Int32
	outputCount atomic.Int32

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// Option configures a Mixer.
type Option func(*Mixer)

// WithLogger overrides the mixer logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mixer) { m.logger = l }
}

// WithStateTimeout overrides DefaultStateTimeout.
func WithStateTimeout(d time.Duration) Option {
	return func(m *Mixer) { m.stateTimeout = d }
}

// WithBusHandler registers fn for every bus message.
func WithBusHandler(fn BusHandler) Option {
	return func(m *Mixer) { m.onBus = fn }
}

// New builds a mixer in the Null state with the trunk and the background
// input linked.
func New(eng engine.Engine, cfg Config, opts ...Option) (*Mixer, error) {
	if err := ValidateName(KindMixer, cfg.Name); err != nil {
		return nil, err
	}
	fillVideo(&cfg.Video, DefaultVideoConfig())
	if err := cfg.Video.Validate(); err != nil {
		return nil, ErrInvalidParams(KindMixer, cfg.Name, err)
	}
	if err := cfg.Audio.Validate(); err != nil {
		return nil, ErrInvalidParams(KindMixer, cfg.Name, err)
	}

	m := &Mixer{
		name:         cfg.Name,
		eng:          eng,
		cfg:          cfg,
		logger:       logging.GetLogger("mixer"),
		stateTimeout: DefaultStateTimeout,
		inputs:       make(map[string]*Input),
		outputs:      make(map[string]*Output),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("mixer", cfg.Name)

	g, err := eng.NewGraph(cfg.Name)
	if err != nil {
		return nil, ErrEngine(KindMixer, cfg.Name, "failed to create graph", err)
	}
	if err := m.buildTrunk(g); err != nil {
		_ = g.SetState(engine.StateNull)
		return nil, err
	}

	bg := DefaultInputConfig(BackgroundInput)
	bg.Video = cfg.Video
	bg.Video.ZOrder = nil
	bg.Audio.Volume = 0
	background, err := NewTestInput(eng, bg, WithInputLogger(m.logger))
	if err != nil {
		_ = g.SetState(engine.StateNull)
		return nil, ErrEngine(KindMixer, cfg.Name, "failed to build background", err)
	}
	if err := background.link(m.trunk); err != nil {
		_ = g.SetState(engine.StateNull)
		return nil, ErrEngine(KindMixer, cfg.Name, "failed to link background", err)
	}
	m.background = background
	return m, nil
}

func (m *Mixer) buildTrunk(g engine.Graph) error {
	a := newArena(m.eng, KindMixer, m.name, "mixer")
	specs := [][2]string{
		{"compositor", "video_mixer"},
		{"capsfilter", "video_capsfilter"},
		{"queue", "video_queue"},
		{"tee", "video_tee"},
		{"audiomixer", "audio_mixer"},
		{"volume", "audio_volume"},
		{"capsfilter", "audio_capsfilter"},
		{"tee", "audio_tee"},
	}
	els := make([]engine.Element, len(specs))
	for i, s := range specs {
		el, err := a.make(s[0], s[1])
		if err != nil {
			return err
		}
		els[i] = el
	}
	video, audio := els[:4], els[4:]

	v := m.cfg.Video
	props := []struct {
		el    engine.Element
		name  string
		value any
	}{
		{video[0], "background", engine.Enum("black")},
		{video[1], "caps", engine.VideoCaps(v.Format, v.Width, v.Height, v.Framerate)},
		{video[3], "allow-not-linked", true},
		{audio[1], "volume", m.cfg.Audio.Volume},
		{audio[2], "caps", engine.AudioCaps("S32LE", 2)},
		{audio[3], "allow-not-linked", true},
	}
	for _, p := range props {
		if err := a.set(p.el, p.name, p.value); err != nil {
			return err
		}
	}

	if err := a.attach(g); err != nil {
		return err
	}
	if err := a.link(video...); err != nil {
		return err
	}
	if err := a.link(audio...); err != nil {
		return err
	}
	m.trunk = trunk{
		graph:      g,
		compositor: video[0],
		audiomixer: audio[0],
		videoTee:   video[3],
		audioTee:   audio[3],
		canvas:     v,
	}
	return nil
}

// Name returns the mixer name.
func (m *Mixer) Name() string { return m.name }

// Config returns the canvas configuration.
func (m *Mixer) Config() Config { return m.cfg }

// Play starts the graph and the bus watcher.
func (m *Mixer) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrEngine(KindMixer, m.name, "mixer is closed", nil)
	}
	if err := m.trunk.graph.SetState(engine.StatePlaying); err != nil {
		return ErrEngine(KindMixer, m.name, "failed to start graph", err)
	}
	m.fatal = nil
	m.startWatchLocked()
	m.logger.Info("Mixer playing")
	return nil
}

// Stop moves the graph to Null and stops the bus watcher.
func (m *Mixer) Stop() error {
	m.stopWatch()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.trunk.graph.SetState(engine.StateNull); err != nil {
		return ErrEngine(KindMixer, m.name, "failed to stop graph", err)
	}
	m.logger.Info("Mixer stopped")
	return nil
}

// Close stops the mixer and detaches every engine callback. The mixer
// cannot be used afterwards. It is safe to call more than once.
func (m *Mixer) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	nodes := make([]*Input, 0, len(m.inputs)+1)
	for _, in := range m.inputs {
		nodes = append(nodes, in)
	}
	if m.background != nil {
		nodes = append(nodes, m.background)
	}
	m.mu.Unlock()

	for _, in := range nodes {
		in.quiesce()
	}
	return m.Stop()
}

// State returns the graph state, waiting at most the state timeout for a
// pending transition.
func (m *Mixer) State() engine.State {
	return m.trunk.graph.State(m.stateTimeout)
}

func (m *Mixer) startWatchLocked() {
	if m.watchCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.watchCancel, m.watchDone = cancel, done
	go m.watch(ctx, done)
}

func (m *Mixer) stopWatch() {
	m.mu.Lock()
	cancel, done := m.watchCancel, m.watchDone
	m.watchCancel, m.watchDone = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// watch drains the bus until the graph stops, errors or reaches EOS. When
// it exits on its own it clears its registration so Play can start a new
// one.
func (m *Mixer) watch(ctx context.Context, done chan struct{}) {
	defer func() {
		m.mu.Lock()
		var cancel context.CancelFunc
		if m.watchDone == done {
			cancel = m.watchCancel
			m.watchCancel, m.watchDone = nil, nil
		}
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		close(done)
	}()
	bus := m.trunk.graph.Bus()
	for {
		msg, err := bus.Next(ctx)
		if err != nil {
			return
		}
		if m.onBus != nil {
			m.onBus(m.name, msg)
		}
		switch msg.Type {
		case engine.MessageError:
			m.logger.Error("Graph error", "source", msg.Source, "error", msg.Err, "debug", msg.Debug)
			m.mu.Lock()
			m.fatal = fmt.Errorf("%s: %w", msg.Source, msg.Err)
			m.mu.Unlock()
			return
		case engine.MessageWarning:
			m.logger.Warn("Graph warning", "source", msg.Source, "error", msg.Err, "debug", msg.Debug)
		case engine.MessageEOS:
			m.logger.Info("End of stream")
			return
		case engine.MessageStateChanged:
			if msg.Source == m.name {
				m.logger.Debug("State changed", "old", msg.Old.String(), "new", msg.New.String())
				if msg.New == engine.StateNull {
					return
				}
			}
		}
	}
}

// Err returns the last fatal bus error, if any.
func (m *Mixer) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fatal
}

// InputAdd links in into the mixer and brings it to the graph state.
func (m *Mixer) InputAdd(in *Input) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrNotFound(KindMixer, m.name)
	}
	name := in.Name()
	if _, exists := m.inputs[name]; exists || name == BackgroundInput {
		return ErrExists(KindInput, name)
	}

	state := m.trunk.graph.State(m.stateTimeout)
	if err := in.setState(state); err != nil {
		return err
	}
	if err := in.link(m.trunk); err != nil {
		return err
	}
	m.inputs[name] = in
	m.inputCount.Add(1)
	m.logger.Info("Input added", "input", name, "type", string(in.Kind()), "state", state.String())
	return nil
}

// InputRemove stops and unlinks the named input. If unlinking fails the
// input stays registered.
func (m *Mixer) InputRemove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.inputs[name]
	if !ok {
		return ErrNotFound(KindInput, name)
	}
	if err := in.setState(engine.StateNull); err != nil {
		m.logger.Warn("Failed to stop input", "input", name, "error", err)
	}
	if err := in.unlink(); err != nil {
		return err
	}
	delete(m.inputs, name)
	m.inputCount.Add(-1)
	if m.active == name {
		m.active = ""
	}
	m.logger.Info("Input removed", "input", name)
	return nil
}

// InputSetActive promotes the named input to full screen at its configured
// volume. Every other input is muted and moved to the z-order the promoted
// input reports afterwards.
func (m *Mixer) InputSetActive(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrNotFound(KindMixer, m.name)
	}
	target, ok := m.inputs[name]
	if !ok {
		return ErrNotFound(KindInput, name)
	}

	z, err := target.promote(m.trunk.canvas)
	if err != nil {
		return NewError(ErrCodePartialUpdate, KindInput, name, "failed to promote input", err)
	}

	var errs []error
	for _, other := range m.sortedInputsLocked() {
		if other == target {
			continue
		}
		if err := other.demote(z); err != nil {
			errs = append(errs, err)
		}
	}
	m.active = name
	if len(errs) > 0 {
		return NewError(ErrCodePartialUpdate, KindInput, name, "failed to demote inputs", errors.Join(errs...))
	}
	m.logger.Info("Active input changed", "input", name)
	return nil
}

// Active returns the name of the active input, or "".
func (m *Mixer) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// InputUpdate changes properties of a registered input.
func (m *Mixer) InputUpdate(name string, u InputUpdate) error {
	in, err := m.input(name)
	if err != nil {
		return err
	}
	return in.Update(u)
}

// InputGet returns a snapshot of the named input.
func (m *Mixer) InputGet(name string) (InputInfo, error) {
	in, err := m.input(name)
	if err != nil {
		return InputInfo{}, err
	}
	info := in.Info()
	info.Active = m.Active() == name
	return info, nil
}

// InputList returns snapshots of all inputs sorted by name. The background
// input is not included.
func (m *Mixer) InputList() []InputInfo {
	m.mu.Lock()
	inputs := m.sortedInputsLocked()
	active := m.active
	m.mu.Unlock()

	out := make([]InputInfo, 0, len(inputs))
	for _, in := range inputs {
		info := in.Info()
		info.Active = info.Name == active
		out = append(out, info)
	}
	return out
}

func (m *Mixer) input(name string) (*Input, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.inputs[name]
	if !ok {
		return nil, ErrNotFound(KindInput, name)
	}
	return in, nil
}

func (m *Mixer) sortedInputsLocked() []*Input {
	names := make([]string, 0, len(m.inputs))
	for name := range m.inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Input, len(names))
	for i, name := range names {
		out[i] = m.inputs[name]
	}
	return out
}

// OutputAdd links out to the trunk tees and brings it to the graph state.
func (m *Mixer) OutputAdd(out *Output) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrNotFound(KindMixer, m.name)
	}
	name := out.Name()
	if _, exists := m.outputs[name]; exists {
		return ErrExists(KindOutput, name)
	}

	state := m.trunk.graph.State(m.stateTimeout)
	if err := out.setState(state); err != nil {
		return err
	}
	if err := out.link(m.trunk.graph, m.trunk.audioTee, m.trunk.videoTee); err != nil {
		return err
	}
	m.outputs[name] = out
	m.outputCount.Add(1)
	m.logger.Info("Output added", "output", name, "type", string(out.Kind()), "state", state.String())
	return nil
}

// OutputRemove stops and unlinks the named output. If unlinking fails the
// output stays registered.
func (m *Mixer) OutputRemove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.outputs[name]
	if !ok {
		return ErrNotFound(KindOutput, name)
	}
	if err := out.setState(engine.StateNull); err != nil {
		m.logger.Warn("Failed to stop output", "output", name, "error", err)
	}
	if err := out.unlink(); err != nil {
		return err
	}
	delete(m.outputs, name)
	m.outputCount.Add(-1)
	m.logger.Info("Output removed", "output", name)
	return nil
}

// OutputGet returns a snapshot of the named output.
func (m *Mixer) OutputGet(name string) (OutputInfo, error) {
	m.mu.Lock()
	out, ok := m.outputs[name]
	m.mu.Unlock()
	if !ok {
		return OutputInfo{}, ErrNotFound(KindOutput, name)
	}
	return out.Info(), nil
}

// OutputList returns snapshots of all outputs sorted by name.
func (m *Mixer) OutputList() []OutputInfo {
	m.mu.Lock()
	names := make([]string, 0, len(m.outputs))
	for name := range m.outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	outs := make([]*Output, len(names))
	for i, name := range names {
		outs[i] = m.outputs[name]
	}
	m.mu.Unlock()

	infos := make([]OutputInfo, len(outs))
	for i, out := range outs {
		infos[i] = out.Info()
	}
	return infos
}

// InputCount returns the number of registered inputs.
func (m *Mixer) InputCount() int { return int(m.inputCount.Load()) }

// OutputCount returns the number of registered outputs.
func (m *Mixer) OutputCount() int { return int(m.outputCount.Load()) }

// Info is a snapshot of a mixer.
type Info struct {
	Name        string      `json:"name"`
	State       string      `json:"state"`
	InputCount  int         `json:"input_count"`
	OutputCount int         `json:"output_count"`
	Active      string      `json:"active,omitempty"`
	Video       VideoConfig `json:"video"`
	Audio       AudioConfig `json:"audio"`
	Error       string      `json:"error,omitempty"`
}

// Info returns a snapshot of the mixer.
func (m *Mixer) Info() Info {
	info := Info{
		Name:        m.name,
		State:       m.State().String(),
		InputCount:  m.InputCount(),
		OutputCount: m.OutputCount(),
		Video:       m.cfg.Video,
		Audio:       m.cfg.Audio,
	}
	m.mu.Lock()
	info.Active = m.active
	if m.fatal != nil {
		info.Error = m.fatal.Error()
	}
	m.mu.Unlock()
	return info
}

// DebugDot renders the graph topology in graphviz dot format.
func (m *Mixer) DebugDot() string {
	return m.trunk.graph.DebugDot()
}
