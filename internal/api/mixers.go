package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/switchboard/internal/api/models"
	"github.com/smazurov/switchboard/internal/mixer"
)

func (s *Server) registerMixerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-mixers",
		Method:      http.MethodGet,
		Path:        "/api/mixers",
		Summary:     "List Mixers",
		Description: "Get all registered mixers",
		Tags:        []string{"mixers"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.MixerListResponse, error) {
		infos := s.registry.List()
		data := make([]models.MixerData, len(infos))
		for i, info := range infos {
			data[i] = toMixerData(info)
		}
		return &models.MixerListResponse{
			Body: models.MixerListData{Mixers: data, Count: len(data)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-mixer",
		Method:        http.MethodPost,
		Path:          "/api/mixers",
		Summary:       "Create Mixer",
		Description:   "Create a mixer and start its graph",
		Tags:          []string{"mixers"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 401, 409, 500},
		Security:      withAuth(),
	}, func(ctx context.Context, input *models.MixerCreateRequest) (*models.MixerResponse, error) {
		cfg := mixer.DefaultConfig(input.Body.Name)
		cfg.Video = applyVideo(cfg.Video, input.Body.Video)
		cfg.Audio = applyAudio(cfg.Audio, input.Body.Audio)

		if err := s.registry.Create(ctx, cfg); err != nil {
			return nil, mapMixerError(err)
		}
		info, err := s.registry.Get(cfg.Name)
		if err != nil {
			return nil, mapMixerError(err)
		}
		return &models.MixerResponse{Body: toMixerData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-mixer",
		Method:      http.MethodGet,
		Path:        "/api/mixers/{mixer}",
		Summary:     "Get Mixer",
		Description: "Get state and counts of a mixer",
		Tags:        []string{"mixers"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.MixerPath) (*models.MixerResponse, error) {
		info, err := s.registry.Get(input.Mixer)
		if err != nil {
			return nil, mapMixerError(err)
		}
		return &models.MixerResponse{Body: toMixerData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-mixer",
		Method:        http.MethodDelete,
		Path:          "/api/mixers/{mixer}",
		Summary:       "Delete Mixer",
		Description:   "Stop a mixer and remove it",
		Tags:          []string{"mixers"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404, 500},
		Security:      withAuth(),
	}, func(ctx context.Context, input *models.MixerPath) (*struct{}, error) {
		if err := s.registry.Delete(ctx, input.Mixer); err != nil {
			return nil, mapMixerError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "debug-mixer",
		Method:      http.MethodGet,
		Path:        "/api/mixers/{mixer}/debug",
		Summary:     "Mixer Graph",
		Description: "Render the mixer graph in graphviz dot format",
		Tags:        []string{"mixers"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.MixerPath) (*models.DebugDotResponse, error) {
		dot, err := s.registry.DebugDot(input.Mixer)
		if err != nil {
			return nil, mapMixerError(err)
		}
		return &models.DebugDotResponse{
			ContentType: "text/vnd.graphviz",
			Body:        []byte(dot),
		}, nil
	})
}
