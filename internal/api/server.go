// Package api exposes the mixer registry over HTTP with huma.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/switchboard/internal/api/models"
	"github.com/smazurov/switchboard/internal/events"
	"github.com/smazurov/switchboard/internal/logging"
	"github.com/smazurov/switchboard/internal/registry"
	"github.com/smazurov/switchboard/internal/version"
)

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	CORSOrigin        string // "*" or comma separated origins; defaults to "*"
	Registry          *registry.Registry
	EventBus          *events.Bus
	PrometheusHandler http.Handler // optional, served at /metrics without auth
}

// Server is the HTTP control surface.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	mu         sync.Mutex
	httpServer *http.Server
	registry   *registry.Registry
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

// NewServer creates the API server and registers every route.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	cors := newCORSPolicy(opts.CORSOrigin)
	mux.HandleFunc("OPTIONS /", cors.preflight)

	config := huma.DefaultConfig("Switchboard API", version.String())
	config.Info.Description = "Live audio/video switching and compositing"
	// Relative server URLs keep the docs usable behind any host.
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	eventBus := opts.EventBus
	if eventBus == nil {
		eventBus = events.New()
	}

	server := &Server{
		api:      api,
		mux:      mux,
		registry: opts.Registry,
		eventBus: eventBus,
		options:  opts,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(cors.middleware)
	api.UseMiddleware(requestLogger(httpLogger()))
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(newBasicAuth(opts.AuthUsername, opts.AuthPassword).middleware(api))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// GetMux returns the underlying ServeMux.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// GetAPI returns the huma API.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves HTTP on addr until Stop is called. It returns
// http.ErrServerClosed after Stop.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves HTTP on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()
	s.logger.Info("API server listening", "addr", ln.Addr().String(), "docs", "/docs")
	return srv.Serve(ln)
}

// Stop closes the listener and every open connection. SSE streams never
// finish on their own, so a graceful drain would block.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("Stopping API server")
	return srv.Close()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		data := models.HealthData{Status: "ok", Message: "API is healthy"}
		if s.registry != nil {
			data.Engine = s.registry.Engine().Name()
			data.Mixers = len(s.registry.Names())
		}
		return &models.HealthResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		v := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   v.Version,
				GitCommit: v.GitCommit,
				BuildDate: v.BuildDate,
				BuildID:   v.BuildID,
				Engine:    v.Engine,
				GoVersion: v.GoVersion,
				Compiler:  v.Compiler,
				Platform:  v.Platform,
			},
		}, nil
	})

	s.registerMixerRoutes()
	s.registerInputRoutes()
	s.registerOutputRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
	s.registerMetricsRoutes()
}

// withAuth returns the basic auth security requirement.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
