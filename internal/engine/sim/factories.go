package sim

import "github.com/smazurov/switchboard/internal/engine"

type presence int

const (
	always presence = iota
	request
	sometimes
)

type padTemplate struct {
	name     string
	dir      engine.PadDirection
	presence presence
	media    string
}

type factory struct {
	templates []padTemplate
	props     map[string]any
	// padProps are the defaults of request sink pads.
	padProps map[string]any
}

func src(media string) padTemplate {
	return padTemplate{name: "src", dir: engine.PadSrc, presence: always, media: media}
}

func sink(media string) padTemplate {
	return padTemplate{name: "sink", dir: engine.PadSink, presence: always, media: media}
}

func source(media string, props map[string]any) factory {
	return factory{templates: []padTemplate{src(media)}, props: props}
}

func filter(props map[string]any) factory {
	return factory{templates: []padTemplate{sink(""), src("")}, props: props}
}

func terminal(props map[string]any) factory {
	return factory{templates: []padTemplate{sink("")}, props: props}
}

var factories = map[string]factory{
	"videotestsrc": source(engine.MediaVideo, map[string]any{"pattern": engine.Enum("smpte"), "is-live": false}),
	"audiotestsrc": source(engine.MediaAudio, map[string]any{"volume": 0.8, "is-live": false, "wave": engine.Enum("sine")}),
	"fakesrc":      source("", map[string]any{"is-live": false}),

	"capsfilter":    filter(map[string]any{"caps": engine.Caps("ANY")}),
	"queue":         filter(nil),
	"queue2":        filter(nil),
	"identity":      filter(nil),
	"videoconvert":  filter(nil),
	"videoscale":    filter(nil),
	"videorate":     filter(nil),
	"audioconvert":  filter(nil),
	"audioresample": filter(nil),
	"volume":        filter(map[string]any{"volume": 1.0, "mute": false}),
	"h264parse":     filter(nil),
	"x264enc":       filter(map[string]any{"bitrate": uint32(2048), "speed-preset": engine.Enum("medium"), "tune": engine.Enum("")}),
	"nvh264enc":     filter(map[string]any{"bitrate": uint32(0)}),
	"vaapih264enc":  filter(map[string]any{"bitrate": uint32(0)}),
	"vp8enc":        filter(map[string]any{"target-bitrate": 256000}),
	"fdkaacenc":     filter(map[string]any{"bitrate": 0}),
	"avenc_aac":     filter(map[string]any{"bitrate": 128000}),
	"voaacenc":      filter(map[string]any{"bitrate": 128000}),

	"compositor": {
		templates: []padTemplate{
			{name: "sink_%u", dir: engine.PadSink, presence: request, media: engine.MediaVideo},
			src(engine.MediaVideo),
		},
		props: map[string]any{"background": engine.Enum("checker")},
		padProps: map[string]any{
			"zorder":           uint32(0),
			"alpha":            1.0,
			"xpos":             0,
			"ypos":             0,
			"width":            0,
			"height":           0,
			"repeat-after-eos": false,
		},
	},
	"audiomixer": {
		templates: []padTemplate{
			{name: "sink_%u", dir: engine.PadSink, presence: request, media: engine.MediaAudio},
			src(engine.MediaAudio),
		},
		padProps: map[string]any{"volume": 1.0, "mute": false},
	},
	"tee": {
		templates: []padTemplate{
			sink(""),
			{name: "src_%u", dir: engine.PadSrc, presence: request},
		},
		props: map[string]any{"allow-not-linked": false},
	},
	"flvmux": {
		templates: []padTemplate{
			{name: "video", dir: engine.PadSink, presence: request},
			{name: "audio", dir: engine.PadSink, presence: request},
			src(""),
		},
		props: map[string]any{"streamable": false},
	},
	"matroskamux": {
		templates: []padTemplate{
			{name: "video_%u", dir: engine.PadSink, presence: request},
			{name: "audio_%u", dir: engine.PadSink, presence: request},
			src(""),
		},
		props: map[string]any{"streamable": false},
	},

	"rtmpsink":      terminal(map[string]any{"location": ""}),
	"filesink":      terminal(map[string]any{"location": ""}),
	"fakesink":      terminal(map[string]any{"sync": false}),
	"autovideosink": terminal(nil),
	"autoaudiosink": terminal(nil),

	"uridecodebin": {
		templates: []padTemplate{{name: "src_%u", dir: engine.PadSrc, presence: sometimes}},
		props:     map[string]any{"uri": ""},
	},
	"decodebin": {
		templates: []padTemplate{sink(""), {name: "src_%u", dir: engine.PadSrc, presence: sometimes}},
	},
}

// Factories lists the element factories the simulator knows.
func Factories() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
