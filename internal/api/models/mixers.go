package models

// MixerPath identifies a mixer in the URL.
type MixerPath struct {
	Mixer string `path:"mixer" example:"studio" doc:"Mixer name"`
}

// MixerData is a snapshot of one mixer.
type MixerData struct {
	Name        string    `json:"name" example:"studio" doc:"Mixer name"`
	State       string    `json:"state" example:"playing" doc:"Graph state"`
	InputCount  int       `json:"input_count" example:"2" doc:"Number of inputs"`
	OutputCount int       `json:"output_count" example:"1" doc:"Number of outputs"`
	ActiveInput string    `json:"active_input,omitempty" example:"camera1" doc:"Currently active input"`
	Video       VideoData `json:"video" doc:"Canvas"`
	Volume      float64   `json:"volume" example:"1.0" doc:"Master gain"`
	Error       string    `json:"error,omitempty" doc:"Last fatal engine error"`
}

type MixerResponse struct {
	Body MixerData
}

type MixerListData struct {
	Mixers []MixerData `json:"mixers" doc:"Registered mixers"`
	Count  int         `json:"count" example:"1" doc:"Number of mixers"`
}

type MixerListResponse struct {
	Body MixerListData
}

// MixerCreateData is the body of a create request.
type MixerCreateData struct {
	Name  string     `json:"name" minLength:"1" maxLength:"64" example:"studio" doc:"Mixer name (alphanumeric, dashes, underscores)"`
	Video *VideoData `json:"video,omitempty" doc:"Canvas, defaults to 1920x1080 RGBA at 30 fps"`
	Audio *AudioData `json:"audio,omitempty" doc:"Master gain"`
}

type MixerCreateRequest struct {
	Body MixerCreateData
}

// DebugDotResponse carries a graphviz rendering of a mixer graph.
type DebugDotResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}
