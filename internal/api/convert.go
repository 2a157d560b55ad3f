package api

import (
	"github.com/smazurov/switchboard/internal/api/models"
	"github.com/smazurov/switchboard/internal/mixer"
)

func toVideoData(v mixer.VideoConfig) models.VideoData {
	alpha := v.Alpha
	data := models.VideoData{
		Framerate: v.Framerate,
		Format:    v.Format,
		Width:     v.Width,
		Height:    v.Height,
		XPos:      v.XPos,
		YPos:      v.YPos,
		Alpha:     &alpha,
		Repeat:    v.Repeat,
	}
	if v.ZOrder != nil {
		z := *v.ZOrder
		data.ZOrder = &z
	}
	return data
}

// applyVideo overlays the fields set in d onto base.
func applyVideo(base mixer.VideoConfig, d *models.VideoData) mixer.VideoConfig {
	if d == nil {
		return base
	}
	if d.Framerate != 0 {
		base.Framerate = d.Framerate
	}
	if d.Format != "" {
		base.Format = d.Format
	}
	if d.Width != 0 {
		base.Width = d.Width
	}
	if d.Height != 0 {
		base.Height = d.Height
	}
	if d.XPos != 0 {
		base.XPos = d.XPos
	}
	if d.YPos != 0 {
		base.YPos = d.YPos
	}
	if d.ZOrder != nil {
		z := *d.ZOrder
		base.ZOrder = &z
	}
	if d.Alpha != nil {
		base.Alpha = *d.Alpha
	}
	if d.Repeat {
		base.Repeat = true
	}
	return base
}

func applyAudio(base mixer.AudioConfig, d *models.AudioData) mixer.AudioConfig {
	if d != nil && d.Volume != nil {
		base.Volume = *d.Volume
	}
	return base
}

func toMixerData(info mixer.Info) models.MixerData {
	return models.MixerData{
		Name:        info.Name,
		State:       info.State,
		InputCount:  info.InputCount,
		OutputCount: info.OutputCount,
		ActiveInput: info.Active,
		Video:       toVideoData(info.Video),
		Volume:      info.Audio.Volume,
		Error:       info.Error,
	}
}

func toInputData(info mixer.InputInfo) models.InputData {
	return models.InputData{
		Name:        info.Name,
		InputType:   string(info.Kind),
		Location:    info.Location,
		Record:      info.Record,
		Active:      info.Active,
		Volume:      info.Volume,
		ZOrder:      info.ZOrder,
		Alpha:       info.Alpha,
		XPos:        info.XPos,
		YPos:        info.YPos,
		Width:       info.Width,
		Height:      info.Height,
		Linked:      info.Linked,
		VideoLinked: info.VideoLinked,
		AudioLinked: info.AudioLinked,
	}
}

func toOutputData(info mixer.OutputInfo) models.OutputData {
	return models.OutputData{
		Name:       info.Name,
		OutputType: string(info.Kind),
		Location:   info.Location,
		Video:      toVideoData(info.Video),
		Encoder: models.EncoderData{
			Codec:        string(info.Encoder.Codec),
			Profile:      string(info.Encoder.Profile),
			Speed:        string(info.Encoder.Speed),
			Bitrate:      info.Encoder.Bitrate,
			AudioEncoder: info.Encoder.AudioEncoder,
		},
		Linked: info.Linked,
	}
}

func applyEncoder(base mixer.EncoderConfig, d *models.EncoderData) mixer.EncoderConfig {
	if d == nil {
		return base
	}
	if d.Codec != "" {
		base.Codec = mixer.VideoCodec(d.Codec)
	}
	if d.Profile != "" {
		base.Profile = mixer.EncoderProfile(d.Profile)
	}
	if d.Speed != "" {
		base.Speed = mixer.EncoderSpeed(d.Speed)
	}
	if d.Bitrate != 0 {
		base.Bitrate = d.Bitrate
	}
	if d.AudioEncoder != "" {
		base.AudioEncoder = d.AudioEncoder
	}
	return base
}
