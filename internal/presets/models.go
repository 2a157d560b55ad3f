package presets

import (
	"fmt"

	"github.com/smazurov/switchboard/internal/mixer"
	"github.com/smazurov/switchboard/internal/registry"
)

// File is the complete presets file.
type File struct {
	Version int                    `toml:"version" json:"version"`
	Mixers  map[string]MixerPreset `toml:"mixers" json:"mixers"`
}

// MixerPreset declares one mixer. Zero canvas fields fall back to the
// default 1920x1080 RGBA canvas at 30 fps.
type MixerPreset struct {
	Width     int            `toml:"width,omitempty" json:"width,omitempty"`
	Height    int            `toml:"height,omitempty" json:"height,omitempty"`
	Framerate int            `toml:"framerate,omitempty" json:"framerate,omitempty"`
	Format    string         `toml:"format,omitempty" json:"format,omitempty"`
	Volume    *float64       `toml:"volume,omitempty" json:"volume,omitempty"`
	Active    string         `toml:"active,omitempty" json:"active,omitempty"`
	Inputs    []InputPreset  `toml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs   []OutputPreset `toml:"outputs,omitempty" json:"outputs,omitempty"`
}

// InputPreset declares one input. Placement and gain default to the mixer
// canvas.
type InputPreset struct {
	Name     string   `toml:"name" json:"name"`
	Type     string   `toml:"type" json:"type"`
	Location string   `toml:"location,omitempty" json:"location,omitempty"`
	Record   bool     `toml:"record,omitempty" json:"record,omitempty"`
	Width    int      `toml:"width,omitempty" json:"width,omitempty"`
	Height   int      `toml:"height,omitempty" json:"height,omitempty"`
	XPos     int      `toml:"xpos,omitempty" json:"xpos,omitempty"`
	YPos     int      `toml:"ypos,omitempty" json:"ypos,omitempty"`
	ZOrder   *uint32  `toml:"zorder,omitempty" json:"zorder,omitempty"`
	Alpha    *float64 `toml:"alpha,omitempty" json:"alpha,omitempty"`
	Volume   *float64 `toml:"volume,omitempty" json:"volume,omitempty"`
	Repeat   bool     `toml:"repeat,omitempty" json:"repeat,omitempty"`
}

// OutputPreset declares one output.
type OutputPreset struct {
	Name         string `toml:"name" json:"name"`
	Type         string `toml:"type" json:"type"`
	Location     string `toml:"location,omitempty" json:"location,omitempty"`
	Width        int    `toml:"width,omitempty" json:"width,omitempty"`
	Height       int    `toml:"height,omitempty" json:"height,omitempty"`
	Framerate    int    `toml:"framerate,omitempty" json:"framerate,omitempty"`
	Codec        string `toml:"codec,omitempty" json:"codec,omitempty"`
	Profile      string `toml:"profile,omitempty" json:"profile,omitempty"`
	Speed        string `toml:"speed,omitempty" json:"speed,omitempty"`
	Bitrate      int    `toml:"bitrate,omitempty" json:"bitrate,omitempty"`
	AudioEncoder string `toml:"audio_encoder,omitempty" json:"audio_encoder,omitempty"`
}

// Config returns the mixer configuration for the preset named name.
func (p MixerPreset) Config(name string) mixer.Config {
	cfg := mixer.DefaultConfig(name)
	if p.Width != 0 {
		cfg.Video.Width = p.Width
	}
	if p.Height != 0 {
		cfg.Video.Height = p.Height
	}
	if p.Framerate != 0 {
		cfg.Video.Framerate = p.Framerate
	}
	if p.Format != "" {
		cfg.Video.Format = p.Format
	}
	if p.Volume != nil {
		cfg.Audio.Volume = *p.Volume
	}
	return cfg
}

// Spec converts the preset into an input spec on the canvas of m.
func (p InputPreset) Spec(m mixer.Config) (registry.InputSpec, error) {
	kind, err := mixer.ParseInputKind(p.Type)
	if err != nil {
		return registry.InputSpec{}, fmt.Errorf("input %s: %w", p.Name, err)
	}

	cfg := mixer.InputConfig{Name: p.Name, Video: m.Video, Audio: m.Audio, Record: p.Record}
	cfg.Video.ZOrder = nil
	if p.Width != 0 {
		cfg.Video.Width = p.Width
	}
	if p.Height != 0 {
		cfg.Video.Height = p.Height
	}
	cfg.Video.XPos, cfg.Video.YPos = p.XPos, p.YPos
	if p.ZOrder != nil {
		z := *p.ZOrder
		cfg.Video.ZOrder = &z
	}
	if p.Alpha != nil {
		cfg.Video.Alpha = *p.Alpha
	}
	if p.Volume != nil {
		cfg.Audio.Volume = *p.Volume
	}
	cfg.Video.Repeat = p.Repeat

	return registry.InputSpec{Kind: kind, Location: p.Location, Config: cfg}, nil
}

// Spec converts the preset into an output spec encoding the canvas of m.
func (p OutputPreset) Spec(m mixer.Config) (registry.OutputSpec, error) {
	kind, err := mixer.ParseOutputKind(p.Type)
	if err != nil {
		return registry.OutputSpec{}, fmt.Errorf("output %s: %w", p.Name, err)
	}

	cfg := mixer.DefaultOutputConfig(p.Name)
	cfg.Video.Width, cfg.Video.Height, cfg.Video.Framerate = m.Video.Width, m.Video.Height, m.Video.Framerate
	if p.Width != 0 {
		cfg.Video.Width = p.Width
	}
	if p.Height != 0 {
		cfg.Video.Height = p.Height
	}
	if p.Framerate != 0 {
		cfg.Video.Framerate = p.Framerate
	}
	cfg.Audio = m.Audio
	if p.Codec != "" {
		cfg.Encoder.Codec = mixer.VideoCodec(p.Codec)
	}
	if p.Profile != "" {
		cfg.Encoder.Profile = mixer.EncoderProfile(p.Profile)
	}
	if p.Speed != "" {
		cfg.Encoder.Speed = mixer.EncoderSpeed(p.Speed)
	}
	cfg.Encoder.Bitrate = p.Bitrate
	if p.AudioEncoder != "" {
		cfg.Encoder.AudioEncoder = p.AudioEncoder
	}

	return registry.OutputSpec{Kind: kind, Location: p.Location, Config: cfg}, nil
}
