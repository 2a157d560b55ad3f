package mixer

import (
	"fmt"
	"strings"
)

// ZOrderActive is the z-order given to the active input. Configured
// z-orders must stay below it.
const ZOrderActive uint32 = 1000

// VideoConfig describes a raw video format and placement on the canvas.
type VideoConfig struct {
	Framerate int     `json:"framerate" toml:"framerate"`
	Format    string  `json:"format" toml:"format"`
	Width     int     `json:"width" toml:"width"`
	Height    int     `json:"height" toml:"height"`
	XPos      int     `json:"xpos" toml:"xpos"`
	YPos      int     `json:"ypos" toml:"ypos"`
	ZOrder    *uint32 `json:"zorder,omitempty" toml:"zorder,omitempty"`
	Alpha     float64 `json:"alpha" toml:"alpha"`
	Repeat    bool    `json:"repeat" toml:"repeat"`
}

// DefaultVideoConfig returns a 1080p30 RGBA canvas.
func DefaultVideoConfig() VideoConfig {
	return VideoConfig{
		Framerate: 30,
		Format:    "RGBA",
		Width:     1920,
		Height:    1080,
		Alpha:     1.0,
	}
}

// AudioConfig describes gain.
type AudioConfig struct {
	Volume float64 `json:"volume" toml:"volume"`
}

// DefaultAudioConfig returns unity gain.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{Volume: 1.0}
}

// Config is the canvas configuration of a mixer.
type Config struct {
	Name  string      `json:"name" toml:"name"`
	Video VideoConfig `json:"video" toml:"video"`
	Audio AudioConfig `json:"audio" toml:"audio"`
}

// DefaultConfig returns a mixer config with default canvas settings.
func DefaultConfig(name string) Config {
	return Config{Name: name, Video: DefaultVideoConfig(), Audio: DefaultAudioConfig()}
}

// InputConfig is the identity, placement and gain of one input.
type InputConfig struct {
	Name   string      `json:"name" toml:"name"`
	Video  VideoConfig `json:"video" toml:"video"`
	Audio  AudioConfig `json:"audio" toml:"audio"`
	Record bool        `json:"record" toml:"record"`
}

// DefaultInputConfig returns an input config inheriting the canvas format.
func DefaultInputConfig(name string) InputConfig {
	return InputConfig{Name: name, Video: DefaultVideoConfig(), Audio: DefaultAudioConfig()}
}

// OutputConfig is the identity and encode parameters of one output.
type OutputConfig struct {
	Name    string        `json:"name" toml:"name"`
	Video   VideoConfig   `json:"video" toml:"video"`
	Audio   AudioConfig   `json:"audio" toml:"audio"`
	Encoder EncoderConfig `json:"encoder" toml:"encoder"`
}

// DefaultOutputConfig returns an output config encoding 1080p30 H.264.
func DefaultOutputConfig(name string) OutputConfig {
	v := DefaultVideoConfig()
	v.Format = "I420"
	return OutputConfig{Name: name, Video: v, Audio: DefaultAudioConfig(), Encoder: DefaultEncoderConfig()}
}

// VideoCodec selects the video encoder.
type VideoCodec string

// Supported video codecs.
const (
	CodecH264  VideoCodec = "H264"
	CodecNVENC VideoCodec = "NVENC"
	CodecVAAPI VideoCodec = "VAAPI"
	CodecVP8   VideoCodec = "VP8"
)

// Factory returns the encoder element factory for the codec.
func (c VideoCodec) Factory() string {
	switch c {
	case CodecNVENC:
		return "nvh264enc"
	case CodecVAAPI:
		return "vaapih264enc"
	case CodecVP8:
		return "vp8enc"
	default:
		return "x264enc"
	}
}

// IsH264 reports whether the codec produces an H.264 elementary stream.
func (c VideoCodec) IsH264() bool {
	return c == CodecH264 || c == CodecNVENC || c == CodecVAAPI
}

// EncoderProfile is the H.264 profile.
type EncoderProfile string

// H.264 profiles.
const (
	ProfileBaseline EncoderProfile = "baseline"
	ProfileMain     EncoderProfile = "main"
	ProfileHigh     EncoderProfile = "high"
)

// EncoderSpeed is the x264 speed preset; "none" leaves the encoder default.
type EncoderSpeed string

var encoderSpeeds = []EncoderSpeed{
	"none", "ultrafast", "superfast", "veryfast", "faster", "fast",
	"medium", "slow", "slower", "veryslow",
}

// EncoderConfig holds encode parameters.
type EncoderConfig struct {
	Codec        VideoCodec     `json:"codec" toml:"codec"`
	Profile      EncoderProfile `json:"profile" toml:"profile"`
	Speed        EncoderSpeed   `json:"speed" toml:"speed"`
	Bitrate      int            `json:"bitrate" toml:"bitrate"`
	AudioEncoder string         `json:"audio_encoder" toml:"audio_encoder"`
}

// DefaultEncoderConfig returns x264 high profile with encoder-default speed.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		Codec:        CodecH264,
		Profile:      ProfileHigh,
		Speed:        "none",
		AudioEncoder: "fdkaacenc",
	}
}

func (e *EncoderConfig) applyDefaults() {
	d := DefaultEncoderConfig()
	if e.Codec == "" {
		e.Codec = d.Codec
	}
	if e.Profile == "" {
		e.Profile = d.Profile
	}
	if e.Speed == "" {
		e.Speed = d.Speed
	}
	if e.AudioEncoder == "" {
		e.AudioEncoder = d.AudioEncoder
	}
}

// Validate checks encoder parameters.
func (e EncoderConfig) Validate() error {
	switch e.Codec {
	case CodecH264, CodecNVENC, CodecVAAPI, CodecVP8:
	default:
		return fmt.Errorf("unknown codec %q", e.Codec)
	}
	switch e.Profile {
	case ProfileBaseline, ProfileMain, ProfileHigh:
	default:
		return fmt.Errorf("unknown profile %q", e.Profile)
	}
	known := false
	for _, s := range encoderSpeeds {
		if s == e.Speed {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown speed %q", e.Speed)
	}
	if e.Bitrate < 0 {
		return fmt.Errorf("bitrate must not be negative")
	}
	return nil
}

// Validate checks that a canvas description is usable.
func (v VideoConfig) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", v.Width, v.Height)
	}
	if v.Framerate <= 0 {
		return fmt.Errorf("invalid framerate %d", v.Framerate)
	}
	if strings.TrimSpace(v.Format) == "" {
		return fmt.Errorf("format required")
	}
	return validatePlacement(v)
}

func validatePlacement(v VideoConfig) error {
	if v.Alpha < 0 || v.Alpha > 1 {
		return fmt.Errorf("alpha %v out of range [0,1]", v.Alpha)
	}
	if v.ZOrder != nil && *v.ZOrder >= ZOrderActive {
		return fmt.Errorf("zorder %d must be below %d", *v.ZOrder, ZOrderActive)
	}
	return nil
}

// Validate checks gain.
func (a AudioConfig) Validate() error {
	if a.Volume < 0 || a.Volume > 10 {
		return fmt.Errorf("volume %v out of range [0,10]", a.Volume)
	}
	return nil
}

func fillVideo(v *VideoConfig, base VideoConfig) {
	if v.Framerate == 0 {
		v.Framerate = base.Framerate
	}
	if v.Format == "" {
		v.Format = base.Format
	}
	if v.Width == 0 {
		v.Width = base.Width
	}
	if v.Height == 0 {
		v.Height = base.Height
	}
}
