package models

// InputPath identifies an input in the URL.
type InputPath struct {
	Mixer string `path:"mixer" example:"studio" doc:"Mixer name"`
	Input string `path:"input" example:"camera1" doc:"Input name"`
}

// InputData is a snapshot of one input.
type InputData struct {
	Name        string  `json:"name" example:"camera1" doc:"Input name"`
	InputType   string  `json:"input_type" example:"URI" doc:"Input variant"`
	Location    string  `json:"location,omitempty" example:"rtmp://example.com/live/cam" doc:"Source URI"`
	Record      bool    `json:"record" doc:"Whether the input is recorded"`
	Active      bool    `json:"active" doc:"Whether this is the active input"`
	Volume      float64 `json:"volume" example:"1.0" doc:"Effective gain"`
	ZOrder      uint32  `json:"zorder" example:"1" doc:"Effective stacking order"`
	Alpha       float64 `json:"alpha" example:"1.0" doc:"Opacity"`
	XPos        int     `json:"xpos" doc:"Horizontal offset"`
	YPos        int     `json:"ypos" doc:"Vertical offset"`
	Width       int     `json:"width" example:"1920" doc:"Width on the canvas"`
	Height      int     `json:"height" example:"1080" doc:"Height on the canvas"`
	Linked      bool    `json:"linked" doc:"Whether the input is attached"`
	VideoLinked bool    `json:"video_linked" doc:"Whether a video stream was discovered and linked"`
	AudioLinked bool    `json:"audio_linked" doc:"Whether an audio stream was discovered and linked"`
}

type InputResponse struct {
	Body InputData
}

type InputListData struct {
	Inputs []InputData `json:"inputs" doc:"Inputs of the mixer"`
	Count  int         `json:"count" example:"2" doc:"Number of inputs"`
}

type InputListResponse struct {
	Body InputListData
}

// InputCreateData is the body of an add-input request.
type InputCreateData struct {
	Name      string     `json:"name" minLength:"1" maxLength:"64" example:"camera1" doc:"Input name (alphanumeric, dashes, underscores)"`
	InputType string     `json:"input_type" enum:"URI,Test,Fake" example:"URI" doc:"Input variant"`
	Location  string     `json:"location,omitempty" example:"rtmp://example.com/live/cam" doc:"Source URI, required for URI inputs"`
	Record    bool       `json:"record,omitempty" doc:"Record the input to a Matroska file"`
	Video     *VideoData `json:"video,omitempty" doc:"Placement, defaults to the mixer canvas"`
	Audio     *AudioData `json:"audio,omitempty" doc:"Gain, defaults to the mixer volume"`
}

type InputCreateRequest struct {
	Mixer string `path:"mixer" example:"studio" doc:"Mixer name"`
	Body  InputCreateData
}

// InputUpdateData lists the properties that can change on a live input.
// Omitted fields are left untouched.
type InputUpdateData struct {
	Volume *float64 `json:"volume,omitempty" example:"0.8" doc:"Gain between 0 and 10"`
	ZOrder *uint32  `json:"zorder,omitempty" example:"2" doc:"Stacking order, below 1000"`
	Width  *int     `json:"width,omitempty" example:"640" doc:"Width on the canvas"`
	Height *int     `json:"height,omitempty" example:"360" doc:"Height on the canvas"`
	XPos   *int     `json:"xpos,omitempty" example:"10" doc:"Horizontal offset"`
	YPos   *int     `json:"ypos,omitempty" example:"10" doc:"Vertical offset"`
	Alpha  *float64 `json:"alpha,omitempty" example:"0.5" doc:"Opacity between 0 and 1"`
}

type InputUpdateRequest struct {
	Mixer string `path:"mixer" example:"studio" doc:"Mixer name"`
	Input string `path:"input" example:"camera1" doc:"Input name"`
	Body  InputUpdateData
}
