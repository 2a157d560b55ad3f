package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/switchboard/internal/api/models"
	"github.com/smazurov/switchboard/internal/mixer"
	"github.com/smazurov/switchboard/internal/registry"
)

func (s *Server) registerInputRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-inputs",
		Method:      http.MethodGet,
		Path:        "/api/mixers/{mixer}/inputs",
		Summary:     "List Inputs",
		Description: "Get all inputs of a mixer",
		Tags:        []string{"inputs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.MixerPath) (*models.InputListResponse, error) {
		infos, err := s.registry.InputList(input.Mixer)
		if err != nil {
			return nil, mapMixerError(err)
		}
		data := make([]models.InputData, len(infos))
		for i, info := range infos {
			data[i] = toInputData(info)
		}
		return &models.InputListResponse{
			Body: models.InputListData{Inputs: data, Count: len(data)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "add-input",
		Method:        http.MethodPost,
		Path:          "/api/mixers/{mixer}/inputs",
		Summary:       "Add Input",
		Description:   "Create an input and link it into a running mixer. Placement and gain default to the mixer canvas.",
		Tags:          []string{"inputs"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 401, 404, 409, 500},
		Security:      withAuth(),
	}, func(ctx context.Context, input *models.InputCreateRequest) (*models.InputResponse, error) {
		mixerInfo, err := s.registry.Get(input.Mixer)
		if err != nil {
			return nil, mapMixerError(err)
		}
		kind, err := mixer.ParseInputKind(input.Body.InputType)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error(), err)
		}

		base := mixerInfo.Video
		base.ZOrder = nil
		cfg := mixer.InputConfig{
			Name:   input.Body.Name,
			Video:  applyVideo(base, input.Body.Video),
			Audio:  applyAudio(mixerInfo.Audio, input.Body.Audio),
			Record: input.Body.Record,
		}
		spec := registry.InputSpec{Kind: kind, Location: input.Body.Location, Config: cfg}
		if err := s.registry.InputAdd(ctx, input.Mixer, spec); err != nil {
			return nil, mapMixerError(err)
		}

		info, err := s.registry.InputGet(input.Mixer, cfg.Name)
		if err != nil {
			return nil, mapMixerError(err)
		}
		return &models.InputResponse{Body: toInputData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-input",
		Method:      http.MethodGet,
		Path:        "/api/mixers/{mixer}/inputs/{input}",
		Summary:     "Get Input",
		Description: "Get the effective placement and gain of an input",
		Tags:        []string{"inputs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.InputPath) (*models.InputResponse, error) {
		info, err := s.registry.InputGet(input.Mixer, input.Input)
		if err != nil {
			return nil, mapMixerError(err)
		}
		return &models.InputResponse{Body: toInputData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-input",
		Method:      http.MethodPatch,
		Path:        "/api/mixers/{mixer}/inputs/{input}",
		Summary:     "Update Input",
		Description: "Change placement or gain of a live input. Nothing is applied if any value is invalid.",
		Tags:        []string{"inputs"},
		Errors:      []int{400, 401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.InputUpdateRequest) (*models.InputResponse, error) {
		u := mixer.InputUpdate{
			Volume: input.Body.Volume,
			ZOrder: input.Body.ZOrder,
			Width:  input.Body.Width,
			Height: input.Body.Height,
			XPos:   input.Body.XPos,
			YPos:   input.Body.YPos,
			Alpha:  input.Body.Alpha,
		}
		if err := s.registry.InputUpdate(ctx, input.Mixer, input.Input, u); err != nil {
			return nil, mapMixerError(err)
		}
		info, err := s.registry.InputGet(input.Mixer, input.Input)
		if err != nil {
			return nil, mapMixerError(err)
		}
		return &models.InputResponse{Body: toInputData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "remove-input",
		Method:        http.MethodDelete,
		Path:          "/api/mixers/{mixer}/inputs/{input}",
		Summary:       "Remove Input",
		Description:   "Unlink an input from its mixer",
		Tags:          []string{"inputs"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404, 500},
		Security:      withAuth(),
	}, func(ctx context.Context, input *models.InputPath) (*struct{}, error) {
		if err := s.registry.InputRemove(ctx, input.Mixer, input.Input); err != nil {
			return nil, mapMixerError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-active-input",
		Method:      http.MethodPost,
		Path:        "/api/mixers/{mixer}/inputs/{input}/active",
		Summary:     "Set Active Input",
		Description: "Bring an input to the front at full canvas size and mute every other input",
		Tags:        []string{"inputs"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.InputPath) (*models.MessageResponse, error) {
		if err := s.registry.InputSetActive(ctx, input.Mixer, input.Input); err != nil {
			return nil, mapMixerError(err)
		}
		return &models.MessageResponse{
			Body: models.MessageData{Message: "Input " + input.Input + " is active"},
		}, nil
	})
}
