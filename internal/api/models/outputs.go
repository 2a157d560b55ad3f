package models

// OutputPath identifies an output in the URL.
type OutputPath struct {
	Mixer  string `path:"mixer" example:"studio" doc:"Mixer name"`
	Output string `path:"output" example:"youtube" doc:"Output name"`
}

// EncoderData holds encode parameters.
type EncoderData struct {
	Codec        string `json:"codec,omitempty" enum:"H264,NVENC,VAAPI,VP8" example:"H264" doc:"Video codec"`
	Profile      string `json:"profile,omitempty" enum:"baseline,main,high" example:"high" doc:"H.264 profile"`
	Speed        string `json:"speed,omitempty" enum:"none,ultrafast,superfast,veryfast,faster,fast,medium,slow,slower,veryslow" example:"veryfast" doc:"x264 speed preset"`
	Bitrate      int    `json:"bitrate,omitempty" minimum:"0" example:"4000" doc:"Bitrate in kbit/s, 0 for the encoder default"`
	AudioEncoder string `json:"audio_encoder,omitempty" example:"fdkaacenc" doc:"AAC encoder element"`
}

// OutputData is a snapshot of one output.
type OutputData struct {
	Name       string      `json:"name" example:"youtube" doc:"Output name"`
	OutputType string      `json:"output_type" example:"RTMP" doc:"Output variant"`
	Location   string      `json:"location,omitempty" example:"rtmp://a.rtmp.youtube.com/live2/key" doc:"Destination"`
	Video      VideoData   `json:"video" doc:"Encoded video format"`
	Encoder    EncoderData `json:"encoder" doc:"Encode parameters"`
	Linked     bool        `json:"linked" doc:"Whether the output is attached"`
}

type OutputResponse struct {
	Body OutputData
}

type OutputListData struct {
	Outputs []OutputData `json:"outputs" doc:"Outputs of the mixer"`
	Count   int          `json:"count" example:"1" doc:"Number of outputs"`
}

type OutputListResponse struct {
	Body OutputListData
}

// OutputCreateData is the body of an add-output request.
type OutputCreateData struct {
	Name       string       `json:"name" minLength:"1" maxLength:"64" example:"youtube" doc:"Output name (alphanumeric, dashes, underscores)"`
	OutputType string       `json:"output_type" enum:"RTMP,Auto,File,Fake" example:"RTMP" doc:"Output variant"`
	Location   string       `json:"location,omitempty" example:"rtmp://a.rtmp.youtube.com/live2/key" doc:"Destination URL or file path"`
	Video      *VideoData   `json:"video,omitempty" doc:"Encoded video format, defaults to the mixer canvas in I420"`
	Encoder    *EncoderData `json:"encoder,omitempty" doc:"Encode parameters"`
}

type OutputCreateRequest struct {
	Mixer string `path:"mixer" example:"studio" doc:"Mixer name"`
	Body  OutputCreateData
}
