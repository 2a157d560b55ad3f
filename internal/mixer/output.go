package mixer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/smazurov/switchboard/internal/engine"
)

// OutputKind identifies the output variant.
type OutputKind string

// Output variants.
const (
	OutputRTMP OutputKind = "RTMP"
	OutputAuto OutputKind = "Auto"
	OutputFile OutputKind = "File"
	OutputFake OutputKind = "Fake"
)

// ParseOutputKind validates an output kind name.
func ParseOutputKind(s string) (OutputKind, error) {
	switch OutputKind(s) {
	case OutputRTMP, OutputAuto, OutputFile, OutputFake:
		return OutputKind(s), nil
	}
	return "", fmt.Errorf("unknown output type %q", s)
}

// Output is a sink subgraph fed by the trunk tees.
type Output struct {
	kind     OutputKind
	location string

	mu        sync.Mutex
	cfg       OutputConfig
	arena     *arena
	videoHead engine.Element
	audioHead engine.Element
	chains    [][]engine.Element
	mux       engine.Element
	muxPads   [2]string
	target    engine.State
	linked    bool
	used      bool
}

// NewOutput builds a detached output. location is the RTMP URL or file
// path and is ignored for Auto and Fake outputs.
func NewOutput(eng engine.Engine, kind OutputKind, cfg OutputConfig, location string) (*Output, error) {
	if err := ValidateName(KindOutput, cfg.Name); err != nil {
		return nil, err
	}
	return newOutput(eng, kind, cfg, location, "output_"+cfg.Name)
}

func newOutput(eng engine.Engine, kind OutputKind, cfg OutputConfig, location, prefix string) (*Output, error) {
	fillVideo(&cfg.Video, DefaultOutputConfig(cfg.Name).Video)
	cfg.Encoder.applyDefaults()
	if err := cfg.Encoder.Validate(); err != nil {
		return nil, ErrInvalidParams(KindOutput, cfg.Name, err)
	}

	o := &Output{kind: kind, cfg: cfg, arena: newArena(eng, KindOutput, cfg.Name, prefix)}
	var err error
	switch kind {
	case OutputRTMP:
		if !cfg.Encoder.Codec.IsH264() {
			return nil, ErrInvalidParams(KindOutput, cfg.Name, fmt.Errorf("codec %s cannot be muxed to FLV", cfg.Encoder.Codec))
		}
		fallthrough
	case OutputFile:
		if strings.TrimSpace(location) == "" {
			return nil, ErrInvalidParams(KindOutput, cfg.Name, errors.New("location required"))
		}
		o.location = location
		err = o.buildEncoded()
	case OutputAuto:
		err = o.buildAuto()
	case OutputFake:
		err = o.buildFake()
	default:
		return nil, ErrInvalidParams(KindOutput, cfg.Name, fmt.Errorf("unknown output type %q", kind))
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// NewRTMPOutput builds an output streaming FLV to an RTMP url.
func NewRTMPOutput(eng engine.Engine, cfg OutputConfig, url string) (*Output, error) {
	return NewOutput(eng, OutputRTMP, cfg, url)
}

// NewFileOutput builds an output writing Matroska to path.
func NewFileOutput(eng engine.Engine, cfg OutputConfig, path string) (*Output, error) {
	return NewOutput(eng, OutputFile, cfg, path)
}

// NewAutoOutput builds an output rendering to the local display and speakers.
func NewAutoOutput(eng engine.Engine, cfg OutputConfig) (*Output, error) {
	return NewOutput(eng, OutputAuto, cfg, "")
}

// NewFakeOutput builds an output discarding everything.
func NewFakeOutput(eng engine.Engine, cfg OutputConfig) (*Output, error) {
	return NewOutput(eng, OutputFake, cfg, "")
}

func (o *Output) buildEncoded() error {
	a := o.arena
	v := o.cfg.Video
	enc := o.cfg.Encoder

	mk := func(factory, suffix string, dst *[]engine.Element) error {
		el, err := a.make(factory, suffix)
		if err != nil {
			return err
		}
		*dst = append(*dst, el)
		return nil
	}

	var video []engine.Element
	for _, s := range [][2]string{
		{"queue", "video_queue"},
		{"videoconvert", "video_convert"},
		{"videoscale", "video_scale"},
		{"videorate", "video_rate"},
		{"capsfilter", "video_capsfilter"},
		{enc.Codec.Factory(), "video_encoder"},
	} {
		if err := mk(s[0], s[1], &video); err != nil {
			return err
		}
	}
	if err := a.set(video[4], "caps", engine.VideoCaps(v.Format, v.Width, v.Height, v.Framerate)); err != nil {
		return err
	}
	encoder := video[5]
	if enc.Speed != "" && enc.Speed != "none" && enc.Codec == CodecH264 {
		if err := a.set(encoder, "speed-preset", engine.Enum(enc.Speed)); err != nil {
			return err
		}
	}
	if enc.Bitrate > 0 {
		if enc.Codec == CodecVP8 {
			if err := a.set(encoder, "target-bitrate", enc.Bitrate*1000); err != nil {
				return err
			}
		} else if err := a.set(encoder, "bitrate", uint32(enc.Bitrate)); err != nil {
			return err
		}
	}
	if enc.Codec.IsH264() {
		if err := mk("capsfilter", "video_profile", &video); err != nil {
			return err
		}
		if err := a.set(video[len(video)-1], "caps", engine.Caps("video/x-h264,profile="+string(enc.Profile))); err != nil {
			return err
		}
		if err := mk("h264parse", "video_parse", &video); err != nil {
			return err
		}
	}

	var audio []engine.Element
	for _, s := range [][2]string{
		{"queue", "audio_queue"},
		{"audioconvert", "audio_convert"},
		{"audioresample", "audio_resample"},
		{enc.AudioEncoder, "audio_encoder"},
	} {
		if err := mk(s[0], s[1], &audio); err != nil {
			return err
		}
	}

	muxFactory, sinkFactory := "matroskamux", "filesink"
	if o.kind == OutputRTMP {
		muxFactory, sinkFactory = "flvmux", "rtmpsink"
	}
	var tail []engine.Element
	for _, s := range [][2]string{
		{muxFactory, "mux"},
		{"queue", "sink_queue"},
		{sinkFactory, "sink"},
	} {
		if err := mk(s[0], s[1], &tail); err != nil {
			return err
		}
	}
	if err := a.set(tail[0], "streamable", true); err != nil {
		return err
	}
	if err := a.set(tail[2], "location", o.location); err != nil {
		return err
	}

	o.mux = tail[0]
	o.muxPads = [2]string{"video_%u", "audio_%u"}
	if o.kind == OutputRTMP {
		o.muxPads = [2]string{"video", "audio"}
	}
	o.videoHead, o.audioHead = video[0], audio[0]
	o.chains = [][]engine.Element{video, audio, tail}
	return nil
}

func (o *Output) buildAuto() error {
	video, err := o.makeChain([2]string{"queue", "video_queue"}, [2]string{"videoconvert", "video_convert"}, [2]string{"autovideosink", "video_sink"})
	if err != nil {
		return err
	}
	audio, err := o.makeChain([2]string{"queue", "audio_queue"}, [2]string{"audioconvert", "audio_convert"}, [2]string{"autoaudiosink", "audio_sink"})
	if err != nil {
		return err
	}
	o.videoHead, o.audioHead = video[0], audio[0]
	o.chains = [][]engine.Element{video, audio}
	return nil
}

func (o *Output) buildFake() error {
	video, err := o.makeChain([2]string{"queue", "video_queue"}, [2]string{"fakesink", "video_sink"})
	if err != nil {
		return err
	}
	audio, err := o.makeChain([2]string{"queue", "audio_queue"}, [2]string{"fakesink", "audio_sink"})
	if err != nil {
		return err
	}
	o.videoHead, o.audioHead = video[0], audio[0]
	o.chains = [][]engine.Element{video, audio}
	return nil
}

func (o *Output) makeChain(specs ...[2]string) ([]engine.Element, error) {
	out := make([]engine.Element, 0, len(specs))
	for _, s := range specs {
		el, err := o.arena.make(s[0], s[1])
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

// Name returns the output name.
func (o *Output) Name() string { return o.cfg.Name }

// Kind returns the output variant.
func (o *Output) Kind() OutputKind { return o.kind }

// Location returns the URL or path the output writes to.
func (o *Output) Location() string { return o.location }

// Config returns the output configuration.
func (o *Output) Config() OutputConfig { return o.cfg }

// OutputInfo is a snapshot of an output.
type OutputInfo struct {
	Name     string        `json:"name"`
	Kind     OutputKind    `json:"output_type"`
	Location string        `json:"location"`
	Video    VideoConfig   `json:"video"`
	Encoder  EncoderConfig `json:"encoder"`
	Linked   bool          `json:"linked"`
}

// Info returns a snapshot of the output.
func (o *Output) Info() OutputInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return OutputInfo{
		Name:     o.cfg.Name,
		Kind:     o.kind,
		Location: o.location,
		Video:    o.cfg.Video,
		Encoder:  o.cfg.Encoder,
		Linked:   o.linked,
	}
}

// link attaches the output to g and requests a pad on each tee.
func (o *Output) link(g engine.Graph, audioTee, videoTee engine.Element) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.used {
		return ErrInvalidParams(KindOutput, o.cfg.Name, errors.New("output was already linked into a mixer"))
	}
	o.used = true

	if err := o.arena.attach(g); err != nil {
		return err
	}
	if err := o.linkLocked(audioTee, videoTee); err != nil {
		o.rollbackLocked()
		return err
	}
	o.linked = true
	if err := o.arena.setState(o.target); err != nil {
		o.rollbackLocked()
		o.linked = false
		return err
	}
	return nil
}

func (o *Output) linkLocked(audioTee, videoTee engine.Element) error {
	for _, chain := range o.chains {
		if err := o.arena.link(chain...); err != nil {
			return err
		}
	}
	if o.mux != nil {
		if err := o.linkMux(o.chains[0], o.muxPads[0]); err != nil {
			return err
		}
		if err := o.linkMux(o.chains[1], o.muxPads[1]); err != nil {
			return err
		}
	}
	if err := videoTee.Link(o.videoHead); err != nil {
		return ErrEngine(KindOutput, o.cfg.Name, "failed to link video tee", err)
	}
	if err := audioTee.Link(o.audioHead); err != nil {
		return ErrEngine(KindOutput, o.cfg.Name, "failed to link audio tee", err)
	}
	return nil
}

// linkMux links the end of chain to a pad requested from the muxer template.
func (o *Output) linkMux(chain []engine.Element, template string) error {
	last := chain[len(chain)-1]
	sink, err := o.mux.RequestPad(template)
	if err != nil {
		return ErrEngine(KindOutput, o.cfg.Name, "failed to request muxer pad "+template, err)
	}
	src, err := last.StaticPad("src")
	if err != nil {
		return ErrEngine(KindOutput, o.cfg.Name, "missing src pad on "+last.Name(), err)
	}
	if err := src.Link(sink); err != nil {
		return ErrEngine(KindOutput, o.cfg.Name, "failed to link "+last.Name()+" to muxer", err)
	}
	return nil
}

func (o *Output) rollbackLocked() {
	_ = o.releaseLocked()
	_ = o.arena.teardown()
}

func (o *Output) releaseLocked() error {
	if err := o.arena.releaseTrunkPad(o.videoHead, "sink"); err != nil {
		return err
	}
	return o.arena.releaseTrunkPad(o.audioHead, "sink")
}

// setState records the target state and applies it once linked.
func (o *Output) setState(state engine.State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.target = state
	if !o.linked {
		return nil
	}
	return o.arena.setState(state)
}

// unlink releases the tee pads and removes the output from its graph.
func (o *Output) unlink() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.linked {
		return nil
	}
	if err := o.releaseLocked(); err != nil {
		return err
	}
	if err := o.arena.teardown(); err != nil {
		return err
	}
	o.linked = false
	return nil
}
