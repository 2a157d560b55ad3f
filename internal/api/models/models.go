// Package models holds the request and response bodies of the HTTP API.
package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
	Engine  string `json:"engine" example:"gstreamer" doc:"Media backend in use"`
	Mixers  int    `json:"mixers" example:"2" doc:"Number of registered mixers"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-01-01T00:00:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	Engine    string `json:"engine" example:"gstreamer" doc:"Media engine compiled in"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go toolchain version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// MessageData is a plain acknowledgement.
type MessageData struct {
	Message string `json:"message" example:"Input created" doc:"Result message"`
}

type MessageResponse struct {
	Body MessageData
}

// VideoData is a canvas or placement description. Zero values fall back to
// the mixer canvas.
type VideoData struct {
	Framerate int      `json:"framerate,omitempty" minimum:"0" example:"30" doc:"Frames per second"`
	Format    string   `json:"format,omitempty" example:"RGBA" doc:"Raw video format"`
	Width     int      `json:"width,omitempty" minimum:"0" example:"1920" doc:"Width in pixels"`
	Height    int      `json:"height,omitempty" minimum:"0" example:"1080" doc:"Height in pixels"`
	XPos      int      `json:"xpos,omitempty" example:"0" doc:"Horizontal offset on the canvas"`
	YPos      int      `json:"ypos,omitempty" example:"0" doc:"Vertical offset on the canvas"`
	ZOrder    *uint32  `json:"zorder,omitempty" example:"1" doc:"Stacking order, below 1000"`
	Alpha     *float64 `json:"alpha,omitempty" example:"1.0" doc:"Opacity between 0 and 1"`
	Repeat    bool     `json:"repeat,omitempty" doc:"Repeat the last frame after end of stream"`
}

// AudioData is a gain description.
type AudioData struct {
	Volume *float64 `json:"volume,omitempty" example:"1.0" doc:"Linear gain between 0 and 10"`
}
