package mixer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/switchboard/internal/engine"
	"github.com/smazurov/switchboard/internal/logging"
)

// InputKind identifies the input variant.
type InputKind string

// Input variants.
const (
	InputURI  InputKind = "URI"
	InputTest InputKind = "Test"
	InputFake InputKind = "Fake"
)

// ParseInputKind validates an input kind name.
func ParseInputKind(s string) (InputKind, error) {
	switch InputKind(s) {
	case InputURI, InputTest, InputFake:
		return InputKind(s), nil
	}
	return "", fmt.Errorf("unknown input type %q", s)
}

// padQueueSize bounds pad-added notifications waiting for the node goroutine.
const padQueueSize = 8

// trunk is the shared part of a mixer graph nodes link into and out of.
type trunk struct {
	graph      engine.Graph
	compositor engine.Element
	audiomixer engine.Element
	videoTee   engine.Element
	audioTee   engine.Element
	canvas     VideoConfig
}

// placement is the compositing state currently applied on the trunk pad.
type placement struct {
	zorder uint32
	alpha  float64
	xpos   int
	ypos   int
	width  int
	height int
}

// Input is a source subgraph feeding the trunk. The variant is fixed at
// construction; all variants share link, unlink, state and property
// handling.
type Input struct {
	kind      InputKind
	location  string
	recordDir string

	mu     sync.Mutex
	cfg    InputConfig
	arena  *arena
	logger *slog.Logger

	decoder   engine.Element
	videoHead engine.Element
	audioHead engine.Element
	videoTail engine.Element
	audioTail engine.Element
	videoTee  engine.Element
	audioTee  engine.Element
	volume    engine.Element
	chains    [2][]engine.Element
	recorder  *Output

	effVolume   float64
	place       placement
	target      engine.State
	linked      bool
	used        bool
	videoLinked bool
	audioLinked bool

	live     atomic.Bool
	pads     chan engine.Pad
	stop     context.CancelFunc
	done     chan struct{}
	position func() time.Duration
}

// InputOption configures an Input.
type InputOption func(*Input)

// WithRecordDir sets the directory recordings are written to.
func WithRecordDir(dir string) InputOption {
	return func(in *Input) { in.recordDir = dir }
}

// WithInputLogger overrides the input logger.
func WithInputLogger(l *slog.Logger) InputOption {
	return func(in *Input) { in.logger = l }
}

// NewInput builds a detached input of the given kind. location is the URI
// for URI inputs and ignored otherwise.
func NewInput(eng engine.Engine, kind InputKind, cfg InputConfig, location string, opts ...InputOption) (*Input, error) {
	if err := ValidateName(KindInput, cfg.Name); err != nil {
		return nil, err
	}
	fillVideo(&cfg.Video, DefaultVideoConfig())
	if err := validatePlacement(cfg.Video); err != nil {
		return nil, ErrInvalidParams(KindInput, cfg.Name, err)
	}
	if err := cfg.Audio.Validate(); err != nil {
		return nil, ErrInvalidParams(KindInput, cfg.Name, err)
	}

	in := &Input{
		kind:      kind,
		cfg:       cfg,
		recordDir: ".",
		effVolume: cfg.Audio.Volume,
		logger:    logging.GetLogger("mixer"),
		position:  func() time.Duration { return 0 },
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = in.logger.With("input", cfg.Name)
	in.arena = newArena(eng, KindInput, cfg.Name, "input_"+cfg.Name)

	var err error
	switch kind {
	case InputURI:
		if strings.TrimSpace(location) == "" {
			return nil, ErrInvalidParams(KindInput, cfg.Name, errors.New("location required for URI input"))
		}
		in.location = location
		err = in.buildURI()
	case InputTest:
		err = in.buildTest()
	case InputFake:
		err = in.buildFake()
	default:
		return nil, ErrInvalidParams(KindInput, cfg.Name, fmt.Errorf("unknown input type %q", kind))
	}
	if err != nil {
		return nil, err
	}
	if cfg.Record {
		if err := in.buildRecorder(eng); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// NewURIInput builds an input decoding uri.
func NewURIInput(eng engine.Engine, cfg InputConfig, uri string, opts ...InputOption) (*Input, error) {
	return NewInput(eng, InputURI, cfg, uri, opts...)
}

// NewTestInput builds a black test pattern with a test tone.
func NewTestInput(eng engine.Engine, cfg InputConfig, opts ...InputOption) (*Input, error) {
	return NewInput(eng, InputTest, cfg, "", opts...)
}

// NewFakeInput builds an input of null sources.
func NewFakeInput(eng engine.Engine, cfg InputConfig, opts ...InputOption) (*Input, error) {
	return NewInput(eng, InputFake, cfg, "", opts...)
}

func (in *Input) buildURI() error {
	a := in.arena
	dec, err := a.make("uridecodebin", "uridecodebin")
	if err != nil {
		return err
	}
	if err := a.set(dec, "uri", in.location); err != nil {
		return err
	}
	in.decoder = dec

	video, err := in.makeAll(
		[2]string{"videoconvert", "video_convert"},
		[2]string{"videoscale", "video_scale"},
		[2]string{"videorate", "video_rate"},
		[2]string{"capsfilter", "video_capsfilter"},
		[2]string{"queue2", "video_queue"},
	)
	if err != nil {
		return err
	}
	caps := engine.VideoCaps(in.cfg.Video.Format, 0, 0, in.cfg.Video.Framerate)
	if err := a.set(video[3], "caps", caps); err != nil {
		return err
	}

	audio, err := in.makeAll(
		[2]string{"audioconvert", "audio_convert"},
		[2]string{"volume", "audio_volume"},
		[2]string{"audioresample", "audio_resample"},
		[2]string{"queue2", "audio_queue"},
	)
	if err != nil {
		return err
	}
	in.volume = audio[1]
	in.videoHead, in.audioHead = video[0], audio[0]
	in.chains = [2][]engine.Element{video, audio}
	return in.finishChains()
}

func (in *Input) buildTest() error {
	a := in.arena
	video, err := in.makeAll(
		[2]string{"videotestsrc", "video_testsrc"},
		[2]string{"videoconvert", "video_convert"},
		[2]string{"videoscale", "video_scale"},
		[2]string{"videorate", "video_rate"},
		[2]string{"capsfilter", "video_capsfilter"},
	)
	if err != nil {
		return err
	}
	if err := a.set(video[0], "pattern", engine.Enum("black")); err != nil {
		return err
	}
	if err := a.set(video[0], "is-live", true); err != nil {
		return err
	}
	v := in.cfg.Video
	if err := a.set(video[4], "caps", engine.VideoCaps(v.Format, v.Width, v.Height, v.Framerate)); err != nil {
		return err
	}

	audio, err := in.makeAll(
		[2]string{"audiotestsrc", "audio_testsrc"},
		[2]string{"audioconvert", "audio_convert"},
		[2]string{"audioresample", "audio_resample"},
		[2]string{"volume", "audio_volume"},
		[2]string{"queue", "audio_queue"},
	)
	if err != nil {
		return err
	}
	if err := a.set(audio[0], "is-live", true); err != nil {
		return err
	}
	in.volume = audio[3]
	in.chains = [2][]engine.Element{video, audio}
	return in.finishChains()
}

func (in *Input) buildFake() error {
	a := in.arena
	video, err := in.makeAll(
		[2]string{"fakesrc", "video_fakesrc"},
		[2]string{"queue", "video_queue"},
	)
	if err != nil {
		return err
	}
	audio, err := in.makeAll(
		[2]string{"fakesrc", "audio_fakesrc"},
		[2]string{"volume", "audio_volume"},
		[2]string{"queue", "audio_queue"},
	)
	if err != nil {
		return err
	}
	for _, src := range []engine.Element{video[0], audio[0]} {
		if err := a.set(src, "is-live", true); err != nil {
			return err
		}
	}
	in.volume = audio[1]
	in.chains = [2][]engine.Element{video, audio}
	return in.finishChains()
}

// finishChains appends the record tees when needed and sets the initial gain.
func (in *Input) finishChains() error {
	a := in.arena
	if in.cfg.Record {
		vtee, err := a.make("tee", "video_tee")
		if err != nil {
			return err
		}
		vq, err := a.make("queue", "video_trunk_queue")
		if err != nil {
			return err
		}
		atee, err := a.make("tee", "audio_tee")
		if err != nil {
			return err
		}
		aq, err := a.make("queue", "audio_trunk_queue")
		if err != nil {
			return err
		}
		for _, t := range []engine.Element{vtee, atee} {
			if err := a.set(t, "allow-not-linked", true); err != nil {
				return err
			}
		}
		in.videoTee, in.audioTee = vtee, atee
		in.chains[0] = append(in.chains[0], vtee, vq)
		in.chains[1] = append(in.chains[1], atee, aq)
	}
	in.videoTail = in.chains[0][len(in.chains[0])-1]
	in.audioTail = in.chains[1][len(in.chains[1])-1]
	return a.set(in.volume, "volume", in.cfg.Audio.Volume)
}

func (in *Input) buildRecorder(eng engine.Engine) error {
	cfg := DefaultOutputConfig("input_" + in.cfg.Name + "_record")
	cfg.Video.Width = in.cfg.Video.Width
	cfg.Video.Height = in.cfg.Video.Height
	cfg.Video.Framerate = in.cfg.Video.Framerate
	location := filepath.Join(in.recordDir, in.cfg.Name+".mkv")
	rec, err := newOutput(eng, OutputFile, cfg, location, "record_"+in.cfg.Name)
	if err != nil {
		return err
	}
	in.recorder = rec
	return nil
}

func (in *Input) makeAll(specs ...[2]string) ([]engine.Element, error) {
	out := make([]engine.Element, 0, len(specs))
	for _, s := range specs {
		el, err := in.arena.make(s[0], s[1])
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

// Name returns the input name.
func (in *Input) Name() string { return in.cfg.Name }

// Kind returns the input variant.
func (in *Input) Kind() InputKind { return in.kind }

// Location returns the source URI for URI inputs.
func (in *Input) Location() string { return in.location }

// Config returns the configured values, not the effective ones.
func (in *Input) Config() InputConfig {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.cfg
}

// InputInfo is a snapshot of an input.
type InputInfo struct {
	Name        string    `json:"name"`
	Kind        InputKind `json:"input_type"`
	Location    string    `json:"location"`
	Record      bool      `json:"record"`
	Active      bool      `json:"active"`
	Volume      float64   `json:"volume"`
	ZOrder      uint32    `json:"zorder"`
	Alpha       float64   `json:"alpha"`
	XPos        int       `json:"xpos"`
	YPos        int       `json:"ypos"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Repeat      bool      `json:"repeat"`
	Linked      bool      `json:"linked"`
	AudioLinked bool      `json:"audio_linked"`
	VideoLinked bool      `json:"video_linked"`
}

// Info returns the effective state of the input.
func (in *Input) Info() InputInfo {
	in.mu.Lock()
	defer in.mu.Unlock()
	info := InputInfo{
		Name:        in.cfg.Name,
		Kind:        in.kind,
		Location:    in.location,
		Record:      in.cfg.Record,
		Volume:      in.effVolume,
		ZOrder:      in.place.zorder,
		Alpha:       in.place.alpha,
		XPos:        in.place.xpos,
		YPos:        in.place.ypos,
		Width:       in.place.width,
		Height:      in.place.height,
		Repeat:      in.cfg.Video.Repeat,
		Linked:      in.linked,
		AudioLinked: in.linked && (in.kind != InputURI || in.audioLinked),
		VideoLinked: in.linked && (in.kind != InputURI || in.videoLinked),
	}
	if !in.linked {
		info.Alpha = in.cfg.Video.Alpha
		info.XPos, info.YPos = in.cfg.Video.XPos, in.cfg.Video.YPos
		info.Width, info.Height = in.cfg.Video.Width, in.cfg.Video.Height
		if in.cfg.Video.ZOrder != nil {
			info.ZOrder = *in.cfg.Video.ZOrder
		}
	}
	return info
}

// link attaches the input to the trunk. On failure every element is
// removed again and the input can be discarded.
func (in *Input) link(tr trunk) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.used {
		return ErrInvalidParams(KindInput, in.cfg.Name, errors.New("input was already linked into a mixer"))
	}
	in.used = true

	if err := in.arena.attach(tr.graph); err != nil {
		return err
	}
	if err := in.linkLocked(tr); err != nil {
		in.rollbackLocked()
		return err
	}
	in.linked = true

	if in.kind == InputURI {
		in.position = tr.graph.Position
		in.startPadWatch()
	}
	if err := in.applyTargetLocked(); err != nil {
		in.stopPadWatchLocked()
		in.rollbackLocked()
		in.linked = false
		return err
	}
	return nil
}

func (in *Input) linkLocked(tr trunk) error {
	a := in.arena
	if err := a.link(in.chains[0]...); err != nil {
		return err
	}
	if err := a.link(in.chains[1]...); err != nil {
		return err
	}
	if err := in.videoTail.Link(tr.compositor); err != nil {
		return ErrEngine(KindInput, in.cfg.Name, "failed to link video to compositor", err)
	}
	if err := in.audioTail.Link(tr.audiomixer); err != nil {
		return ErrEngine(KindInput, in.cfg.Name, "failed to link audio to mixer", err)
	}
	if in.recorder != nil {
		if err := in.recorder.link(tr.graph, in.audioTee, in.videoTee); err != nil {
			return err
		}
	}
	if err := in.applyPlacementLocked(); err != nil {
		return err
	}
	return in.applyVolumeLocked(in.cfg.Audio.Volume)
}

// rollbackLocked undoes a partial link.
func (in *Input) rollbackLocked() {
	if in.recorder != nil {
		if err := in.recorder.unlink(); err != nil {
			in.logger.Warn("Failed to unlink recorder during rollback", "error", err)
		}
	}
	for _, tail := range []engine.Element{in.videoTail, in.audioTail} {
		if err := in.arena.releaseTrunkPad(tail, "src"); err != nil {
			in.logger.Warn("Failed to release trunk pad during rollback", "error", err)
		}
	}
	if err := in.arena.teardown(); err != nil {
		in.logger.Warn("Failed to tear down input during rollback", "error", err)
	}
}

// applyPlacementLocked pushes the configured compositing properties to the
// compositor pad, which only exists once the video chain is linked.
func (in *Input) applyPlacementLocked() error {
	pad, err := trunkPad(in.videoTail, "src")
	if err != nil {
		return ErrEngine(KindInput, in.cfg.Name, "video not linked to compositor", err)
	}
	v := in.cfg.Video
	props := []struct {
		name  string
		value any
	}{
		{"alpha", v.Alpha},
		{"xpos", v.XPos},
		{"ypos", v.YPos},
		{"width", v.Width},
		{"height", v.Height},
		{"repeat-after-eos", v.Repeat},
	}
	if v.ZOrder != nil {
		props = append(props, struct {
			name  string
			value any
		}{"zorder", *v.ZOrder})
	}
	for _, p := range props {
		if err := pad.SetProperty(p.name, p.value); err != nil {
			return ErrEngine(KindInput, in.cfg.Name, "failed to set "+p.name+" on compositor pad", err)
		}
	}

	z, err := engine.PropertyUint(pad, "zorder")
	if err != nil {
		return ErrEngine(KindInput, in.cfg.Name, "failed to read zorder", err)
	}
	in.place = placement{zorder: z, alpha: v.Alpha, xpos: v.XPos, ypos: v.YPos, width: v.Width, height: v.Height}
	return nil
}

func (in *Input) applyVolumeLocked(volume float64) error {
	if err := in.arena.set(in.volume, "volume", volume); err != nil {
		return err
	}
	in.effVolume = volume
	return nil
}

// setState records the state the input should be in and applies it when
// the input is linked. An unlinked input picks it up on link.
func (in *Input) setState(state engine.State) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.target = state
	if !in.linked {
		return nil
	}
	return in.applyTargetLocked()
}

func (in *Input) applyTargetLocked() error {
	if in.recorder != nil {
		if err := in.recorder.setState(in.target); err != nil {
			return err
		}
	}
	return in.arena.setState(in.target)
}

// unlink detaches the input from the trunk. Decoder pads stop being handled
// before anything is released. On failure the input stays linked, keeps
// handling pads, and unlink may be retried.
func (in *Input) unlink() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	watching := in.stop != nil
	in.stopPadWatchLocked()
	if !in.linked {
		return nil
	}
	if err := in.releaseLocked(); err != nil {
		if watching {
			in.startPadWatch()
		}
		return err
	}
	in.linked = false
	return nil
}

func (in *Input) releaseLocked() error {
	if in.recorder != nil {
		if err := in.recorder.unlink(); err != nil {
			return err
		}
	}
	if err := in.arena.releaseTrunkPad(in.videoTail, "src"); err != nil {
		return err
	}
	if err := in.arena.releaseTrunkPad(in.audioTail, "src"); err != nil {
		return err
	}
	return in.arena.teardown()
}

// quiesce stops reacting to engine callbacks without touching the graph.
func (in *Input) quiesce() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stopPadWatchLocked()
}

// stopPadWatchLocked clears liveness and waits for the pad goroutine. The
// goroutine takes in.mu, so the lock is dropped while waiting.
func (in *Input) stopPadWatchLocked() {
	in.live.Store(false)
	stop, done := in.stop, in.done
	in.stop, in.done = nil, nil
	if stop == nil {
		return
	}
	in.mu.Unlock()
	stop()
	<-done
	in.mu.Lock()
}

// InputUpdate holds the properties an update may change. Nil fields are
// left untouched.
type InputUpdate struct {
	Volume *float64
	ZOrder *uint32
	Width  *int
	Height *int
	XPos   *int
	YPos   *int
	Alpha  *float64
}

// Update validates and applies u. Configured values change along with the
// effective ones.
func (in *Input) Update(u InputUpdate) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	next := in.cfg
	if u.Volume != nil {
		next.Audio.Volume = *u.Volume
	}
	if u.ZOrder != nil {
		z := *u.ZOrder
		next.Video.ZOrder = &z
	}
	if u.Width != nil {
		next.Video.Width = *u.Width
	}
	if u.Height != nil {
		next.Video.Height = *u.Height
	}
	if u.XPos != nil {
		next.Video.XPos = *u.XPos
	}
	if u.YPos != nil {
		next.Video.YPos = *u.YPos
	}
	if u.Alpha != nil {
		next.Video.Alpha = *u.Alpha
	}
	if err := validatePlacement(next.Video); err != nil {
		return ErrInvalidParams(KindInput, in.cfg.Name, err)
	}
	if next.Video.Width < 0 || next.Video.Height < 0 {
		return ErrInvalidParams(KindInput, in.cfg.Name, errors.New("width and height must not be negative"))
	}
	if err := next.Audio.Validate(); err != nil {
		return ErrInvalidParams(KindInput, in.cfg.Name, err)
	}
	in.cfg = next

	if !in.linked {
		in.effVolume = next.Audio.Volume
		return nil
	}
	if u.Volume != nil {
		if err := in.applyVolumeLocked(*u.Volume); err != nil {
			return err
		}
	}
	pad, err := trunkPad(in.videoTail, "src")
	if err != nil {
		return ErrEngine(KindInput, in.cfg.Name, "video not linked to compositor", err)
	}
	place := in.place
	set := func(name string, value any) error {
		if err := pad.SetProperty(name, value); err != nil {
			return ErrEngine(KindInput, in.cfg.Name, "failed to set "+name+" on compositor pad", err)
		}
		return nil
	}
	if u.ZOrder != nil {
		if err := set("zorder", *u.ZOrder); err != nil {
			return err
		}
		place.zorder = *u.ZOrder
	}
	if u.Alpha != nil {
		if err := set("alpha", *u.Alpha); err != nil {
			return err
		}
		place.alpha = *u.Alpha
	}
	if u.XPos != nil {
		if err := set("xpos", *u.XPos); err != nil {
			return err
		}
		place.xpos = *u.XPos
	}
	if u.YPos != nil {
		if err := set("ypos", *u.YPos); err != nil {
			return err
		}
		place.ypos = *u.YPos
	}
	if u.Width != nil {
		if err := set("width", *u.Width); err != nil {
			return err
		}
		place.width = *u.Width
	}
	if u.Height != nil {
		if err := set("height", *u.Height); err != nil {
			return err
		}
		place.height = *u.Height
	}
	in.place = place
	return nil
}

// promote makes the input full-screen, topmost and audible at its
// configured volume. It returns the z-order now in effect.
func (in *Input) promote(canvas VideoConfig) (uint32, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.linked {
		return 0, ErrEngine(KindInput, in.cfg.Name, "input is not linked", nil)
	}
	pad, err := trunkPad(in.videoTail, "src")
	if err != nil {
		return 0, ErrEngine(KindInput, in.cfg.Name, "video not linked to compositor", err)
	}
	props := []struct {
		name  string
		value any
	}{
		{"zorder", ZOrderActive},
		{"xpos", 0},
		{"ypos", 0},
		{"width", canvas.Width},
		{"height", canvas.Height},
	}
	for _, p := range props {
		if err := pad.SetProperty(p.name, p.value); err != nil {
			return 0, ErrEngine(KindInput, in.cfg.Name, "failed to set "+p.name+" on compositor pad", err)
		}
	}
	in.place.zorder = ZOrderActive
	in.place.xpos, in.place.ypos = 0, 0
	in.place.width, in.place.height = canvas.Width, canvas.Height

	if err := in.applyVolumeLocked(in.cfg.Audio.Volume); err != nil {
		return 0, err
	}

	z, err := engine.PropertyUint(pad, "zorder")
	if err != nil {
		return 0, ErrEngine(KindInput, in.cfg.Name, "failed to read zorder", err)
	}
	in.place.zorder = z
	return z, nil
}

// demote silences the input and puts it at zorder. The configured volume
// is kept so a later promotion restores it.
func (in *Input) demote(zorder uint32) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.linked {
		return ErrEngine(KindInput, in.cfg.Name, "input is not linked", nil)
	}
	if err := in.applyVolumeLocked(0); err != nil {
		return err
	}
	pad, err := trunkPad(in.videoTail, "src")
	if err != nil {
		return ErrEngine(KindInput, in.cfg.Name, "video not linked to compositor", err)
	}
	if err := pad.SetProperty("zorder", zorder); err != nil {
		return ErrEngine(KindInput, in.cfg.Name, "failed to set zorder on compositor pad", err)
	}
	in.place.zorder = zorder
	return nil
}

// startPadWatch hands decoder pads to a goroutine owned by the input.
// Engine callbacks never take in.mu; pads arriving while the watch is
// stopped are dropped. The callback is registered once, so the watch can be
// stopped and started again.
func (in *Input) startPadWatch() {
	if in.pads == nil {
		pads := make(chan engine.Pad, padQueueSize)
		in.pads = pads
		in.decoder.OnPadAdded(func(p engine.Pad) {
			if !in.live.Load() {
				return
			}
			select {
			case pads <- p:
			default:
				in.logger.Warn("Dropping decoder pad, queue full", "pad", p.Name())
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	in.stop = cancel
	in.done = make(chan struct{})
	pads, done := in.pads, in.done
	in.live.Store(true)

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case p := <-pads:
				in.handlePad(p)
			}
		}
	}()
}

// handlePad links the first pad of each media type to its chain and aligns
// it with the running time of the graph.
func (in *Input) handlePad(p engine.Pad) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.live.Load() || !in.linked {
		return
	}

	var head engine.Element
	var done *bool
	switch p.MediaType() {
	case engine.MediaVideo:
		head, done = in.videoHead, &in.videoLinked
	case engine.MediaAudio:
		head, done = in.audioHead, &in.audioLinked
	default:
		in.logger.Debug("Ignoring decoder pad", "pad", p.Name(), "media", p.MediaType())
		return
	}
	if *done {
		in.logger.Info("Ignoring additional decoder pad", "pad", p.Name(), "media", p.MediaType())
		return
	}

	sink, err := head.StaticPad("sink")
	if err != nil {
		in.logger.Error("Decoder chain has no sink pad", "element", head.Name(), "error", err)
		return
	}
	if err := p.Link(sink); err != nil {
		in.logger.Error("Failed to link decoder pad", "pad", p.Name(), "error", err)
		return
	}
	p.SetOffset(in.position())
	*done = true
	in.logger.Info("Linked decoder pad", "pad", p.Name(), "media", p.MediaType())
}
