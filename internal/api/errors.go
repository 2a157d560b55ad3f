package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/switchboard/internal/mixer"
)

// mapMixerError maps domain errors to HTTP errors.
func mapMixerError(err error) error {
	var mixerErr *mixer.Error
	if errors.As(err, &mixerErr) {
		msg := mixerErr.Error()
		switch mixerErr.Code {
		case mixer.ErrCodeNotFound:
			return huma.Error404NotFound(msg, err)
		case mixer.ErrCodeExists:
			return huma.Error409Conflict(msg, err)
		case mixer.ErrCodeInvalidName, mixer.ErrCodeInvalidParams:
			return huma.Error400BadRequest(msg, err)
		default:
			return huma.Error500InternalServerError(msg, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return huma.Error503ServiceUnavailable("request cancelled", err)
	}
	return huma.Error500InternalServerError("internal server error", err)
}
