package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/switchboard/internal/api/models"
	"github.com/smazurov/switchboard/internal/mixer"
	"github.com/smazurov/switchboard/internal/registry"
)

func (s *Server) registerOutputRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-outputs",
		Method:      http.MethodGet,
		Path:        "/api/mixers/{mixer}/outputs",
		Summary:     "List Outputs",
		Description: "Get all outputs of a mixer",
		Tags:        []string{"outputs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.MixerPath) (*models.OutputListResponse, error) {
		infos, err := s.registry.OutputList(input.Mixer)
		if err != nil {
			return nil, mapMixerError(err)
		}
		data := make([]models.OutputData, len(infos))
		for i, info := range infos {
			data[i] = toOutputData(info)
		}
		return &models.OutputListResponse{
			Body: models.OutputListData{Outputs: data, Count: len(data)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "add-output",
		Method:        http.MethodPost,
		Path:          "/api/mixers/{mixer}/outputs",
		Summary:       "Add Output",
		Description:   "Create an output and link it to a running mixer",
		Tags:          []string{"outputs"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 401, 404, 409, 500},
		Security:      withAuth(),
	}, func(ctx context.Context, input *models.OutputCreateRequest) (*models.OutputResponse, error) {
		mixerInfo, err := s.registry.Get(input.Mixer)
		if err != nil {
			return nil, mapMixerError(err)
		}
		kind, err := mixer.ParseOutputKind(input.Body.OutputType)
		if err != nil {
			return nil, huma.Error400BadRequest(err.Error(), err)
		}

		cfg := mixer.DefaultOutputConfig(input.Body.Name)
		base := mixerInfo.Video
		base.Format = cfg.Video.Format
		base.ZOrder = nil
		cfg.Video = applyVideo(base, input.Body.Video)
		cfg.Audio = mixerInfo.Audio
		cfg.Encoder = applyEncoder(cfg.Encoder, input.Body.Encoder)

		spec := registry.OutputSpec{Kind: kind, Location: input.Body.Location, Config: cfg}
		if err := s.registry.OutputAdd(ctx, input.Mixer, spec); err != nil {
			return nil, mapMixerError(err)
		}
		info, err := s.registry.OutputGet(input.Mixer, cfg.Name)
		if err != nil {
			return nil, mapMixerError(err)
		}
		return &models.OutputResponse{Body: toOutputData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-output",
		Method:      http.MethodGet,
		Path:        "/api/mixers/{mixer}/outputs/{output}",
		Summary:     "Get Output",
		Description: "Get the configuration of an output",
		Tags:        []string{"outputs"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.OutputPath) (*models.OutputResponse, error) {
		info, err := s.registry.OutputGet(input.Mixer, input.Output)
		if err != nil {
			return nil, mapMixerError(err)
		}
		return &models.OutputResponse{Body: toOutputData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "remove-output",
		Method:        http.MethodDelete,
		Path:          "/api/mixers/{mixer}/outputs/{output}",
		Summary:       "Remove Output",
		Description:   "Unlink an output from its mixer",
		Tags:          []string{"outputs"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404, 500},
		Security:      withAuth(),
	}, func(ctx context.Context, input *models.OutputPath) (*struct{}, error) {
		if err := s.registry.OutputRemove(ctx, input.Mixer, input.Output); err != nil {
			return nil, mapMixerError(err)
		}
		return &struct{}{}, nil
	})
}
