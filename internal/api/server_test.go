package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/smazurov/switchboard/internal/api/models"
	"github.com/smazurov/switchboard/internal/engine/sim"
	"github.com/smazurov/switchboard/internal/events"
	"github.com/smazurov/switchboard/internal/metrics"
	"github.com/smazurov/switchboard/internal/registry"
)

func newTestServer(t *testing.T, opts *Options) (*Server, humatest.TestAPI) {
	t.Helper()
	if opts == nil {
		opts = &Options{}
	}
	if opts.EventBus == nil {
		opts.EventBus = events.New()
	}
	if opts.Registry == nil {
		opts.Registry = registry.New(registry.Options{
			Engine:       sim.New(),
			EventBus:     opts.EventBus,
			StateTimeout: time.Second,
			RecordDir:    t.TempDir(),
		})
	}
	t.Cleanup(func() { _ = opts.Registry.Close(context.Background()) })
	server := NewServer(opts)
	return server, humatest.Wrap(t, server.GetAPI())
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(resp.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v\nbody: %s", v, err, resp.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()
	if resp.Code != want {
		t.Fatalf("status = %d, want %d\nbody: %s", resp.Code, want, resp.Body.String())
	}
}

func TestHealthAndVersion(t *testing.T) {
	_, api := newTestServer(t, nil)

	resp := api.Get("/api/health")
	expectStatus(t, resp, http.StatusOK)
	health := decode[models.HealthData](t, resp)
	if health.Status != "ok" || health.Engine != "sim" {
		t.Errorf("health = %+v", health)
	}

	resp = api.Get("/api/version")
	expectStatus(t, resp, http.StatusOK)
	if v := decode[models.VersionData](t, resp); v.GoVersion == "" {
		t.Errorf("version = %+v", v)
	}
}

func TestMixerCRUD(t *testing.T) {
	_, api := newTestServer(t, nil)

	resp := api.Post("/api/mixers", map[string]any{
		"name":  "api-studio",
		"video": map[string]any{"width": 1280, "height": 720},
	})
	expectStatus(t, resp, http.StatusCreated)
	created := decode[models.MixerData](t, resp)
	if created.State != "playing" || created.Video.Width != 1280 || created.Video.Height != 720 {
		t.Errorf("created = %+v", created)
	}

	expectStatus(t, api.Post("/api/mixers", map[string]any{"name": "api-studio"}), http.StatusConflict)
	expectStatus(t, api.Post("/api/mixers", map[string]any{"name": "bad name"}), http.StatusBadRequest)

	resp = api.Get("/api/mixers")
	expectStatus(t, resp, http.StatusOK)
	if list := decode[models.MixerListData](t, resp); list.Count != 1 || list.Mixers[0].Name != "api-studio" {
		t.Errorf("list = %+v", list)
	}

	resp = api.Get("/api/mixers/api-studio/debug")
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header().Get("Content-Type"); ct != "text/vnd.graphviz" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(resp.Body.String(), "digraph") {
		t.Errorf("debug body = %s", resp.Body.String())
	}

	expectStatus(t, api.Delete("/api/mixers/api-studio"), http.StatusNoContent)
	expectStatus(t, api.Get("/api/mixers/api-studio"), http.StatusNotFound)
	expectStatus(t, api.Delete("/api/mixers/api-studio"), http.StatusNotFound)
}

func TestInputRoutes(t *testing.T) {
	_, api := newTestServer(t, nil)
	expectStatus(t, api.Post("/api/mixers", map[string]any{"name": "api-inputs"}), http.StatusCreated)

	resp := api.Post("/api/mixers/api-inputs/inputs", map[string]any{
		"name":       "cam1",
		"input_type": "Test",
		"video":      map[string]any{"width": 640, "height": 360, "zorder": 5},
		"audio":      map[string]any{"volume": 0.5},
	})
	expectStatus(t, resp, http.StatusCreated)
	in := decode[models.InputData](t, resp)
	if in.Width != 640 || in.ZOrder != 5 || in.Volume != 0.5 || !in.Linked {
		t.Errorf("input = %+v", in)
	}

	expectStatus(t, api.Post("/api/mixers/api-inputs/inputs", map[string]any{
		"name": "cam2", "input_type": "Fake",
	}), http.StatusCreated)

	tests := []struct {
		name   string
		body   map[string]any
		mixer  string
		status int
	}{
		{"duplicate", map[string]any{"name": "cam1", "input_type": "Test"}, "api-inputs", http.StatusConflict},
		{"background reserved", map[string]any{"name": "background", "input_type": "Test"}, "api-inputs", http.StatusConflict},
		{"uri without location", map[string]any{"name": "net", "input_type": "URI"}, "api-inputs", http.StatusBadRequest},
		{"zorder too high", map[string]any{"name": "top", "input_type": "Test", "video": map[string]any{"zorder": 1000}}, "api-inputs", http.StatusBadRequest},
		{"unknown mixer", map[string]any{"name": "cam", "input_type": "Test"}, "ghost", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, api.Post("/api/mixers/"+tt.mixer+"/inputs", tt.body), tt.status)
		})
	}

	resp = api.Get("/api/mixers/api-inputs/inputs")
	expectStatus(t, resp, http.StatusOK)
	if list := decode[models.InputListData](t, resp); list.Count != 2 {
		t.Errorf("inputs = %+v", list)
	}

	resp = api.Patch("/api/mixers/api-inputs/inputs/cam1", map[string]any{"alpha": 0.5, "xpos": 10})
	expectStatus(t, resp, http.StatusOK)
	if in := decode[models.InputData](t, resp); in.Alpha != 0.5 || in.XPos != 10 {
		t.Errorf("updated = %+v", in)
	}
	expectStatus(t, api.Patch("/api/mixers/api-inputs/inputs/cam1", map[string]any{"alpha": 2}), http.StatusBadRequest)
	expectStatus(t, api.Patch("/api/mixers/api-inputs/inputs/ghost", map[string]any{"alpha": 0.2}), http.StatusNotFound)

	expectStatus(t, api.Post("/api/mixers/api-inputs/inputs/cam2/active"), http.StatusOK)
	resp = api.Get("/api/mixers/api-inputs")
	if m := decode[models.MixerData](t, resp); m.ActiveInput != "cam2" || m.InputCount != 2 {
		t.Errorf("mixer = %+v", m)
	}
	resp = api.Get("/api/mixers/api-inputs/inputs/cam1")
	if in := decode[models.InputData](t, resp); in.Volume != 0 || in.ZOrder != 1000 {
		t.Errorf("demoted input = %+v", in)
	}
	expectStatus(t, api.Post("/api/mixers/api-inputs/inputs/ghost/active"), http.StatusNotFound)

	expectStatus(t, api.Delete("/api/mixers/api-inputs/inputs/cam2"), http.StatusNoContent)
	expectStatus(t, api.Get("/api/mixers/api-inputs/inputs/cam2"), http.StatusNotFound)
}

func TestOutputRoutes(t *testing.T) {
	_, api := newTestServer(t, nil)
	expectStatus(t, api.Post("/api/mixers", map[string]any{"name": "api-outputs"}), http.StatusCreated)

	resp := api.Post("/api/mixers/api-outputs/outputs", map[string]any{
		"name":        "archive",
		"output_type": "File",
		"location":    "/tmp/archive.mkv",
		"encoder":     map[string]any{"codec": "VP8", "bitrate": 2000},
	})
	expectStatus(t, resp, http.StatusCreated)
	out := decode[models.OutputData](t, resp)
	if out.OutputType != "File" || out.Encoder.Codec != "VP8" || out.Encoder.Bitrate != 2000 || out.Video.Format != "I420" {
		t.Errorf("output = %+v", out)
	}

	expectStatus(t, api.Post("/api/mixers/api-outputs/outputs", map[string]any{
		"name": "live", "output_type": "RTMP", "location": "rtmp://example.com/live", "encoder": map[string]any{"codec": "VP8"},
	}), http.StatusBadRequest)
	expectStatus(t, api.Post("/api/mixers/api-outputs/outputs", map[string]any{
		"name": "preview", "output_type": "Fake",
	}), http.StatusCreated)

	resp = api.Get("/api/mixers/api-outputs/outputs")
	if list := decode[models.OutputListData](t, resp); list.Count != 2 {
		t.Errorf("outputs = %+v", list)
	}
	expectStatus(t, api.Get("/api/mixers/api-outputs/outputs/preview"), http.StatusOK)
	expectStatus(t, api.Delete("/api/mixers/api-outputs/outputs/preview"), http.StatusNoContent)
	expectStatus(t, api.Delete("/api/mixers/api-outputs/outputs/preview"), http.StatusNotFound)
}

func TestBasicAuth(t *testing.T) {
	_, api := newTestServer(t, &Options{AuthUsername: "admin", AuthPassword: "secret"})

	good := "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	bad := "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte("admin:wrong"))

	expectStatus(t, api.Get("/api/health"), http.StatusOK)
	expectStatus(t, api.Get("/api/mixers"), http.StatusUnauthorized)
	expectStatus(t, api.Get("/api/mixers", bad), http.StatusUnauthorized)
	expectStatus(t, api.Get("/api/mixers", "Authorization: Bearer token"), http.StatusUnauthorized)
	expectStatus(t, api.Get("/api/mixers", good), http.StatusOK)

	query := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
	expectStatus(t, api.Get("/api/mixers?auth="+query), http.StatusOK)

	resp := api.Get("/api/mixers", "Authorization: Basic !!!")
	expectStatus(t, resp, http.StatusUnauthorized)
	if got := resp.Header().Get("WWW-Authenticate"); got != authRealm {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}

func TestServeAndStop(t *testing.T) {
	server, _ := newTestServer(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- server.Serve(ln) }()

	url := "http://" + ln.Addr().String() + "/api/health"
	var resp *http.Response
	for range 50 {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	if err := server.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Serve returned %v, want ErrServerClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &Options{
		PrometheusHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "switchboard_mixer_count 0\n")
		}),
	})
	rec := httptest.NewRecorder()
	server.GetMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "switchboard_mixer_count") {
		t.Errorf("metrics = %d %s", rec.Code, rec.Body.String())
	}
}

// newStreamServer serves server over HTTP. Close is registered as a cleanup
// before any stream is opened so it runs after readSSE has cancelled its
// requests.
func newStreamServer(t *testing.T, server *Server) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(server.GetMux())
	t.Cleanup(ts.Close)
	return ts
}

// readSSE collects data lines from an event stream. The request is
// cancelled in a cleanup, so the stream ends before the test server closes.
func readSSE(t *testing.T, url string) <-chan string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect SSE: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("SSE status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Fatalf("SSE content type = %s", ct)
	}

	lines := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data:") {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return lines
}

func nextLine(t *testing.T, lines <-chan string) string {
	t.Helper()
	select {
	case line := <-lines:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for SSE message")
		return ""
	}
}

func TestEventStream(t *testing.T) {
	server, _ := newTestServer(t, nil)
	ts := newStreamServer(t, server)

	lines := readSSE(t, ts.URL+"/api/events?mixer=sse-main")
	if msg := nextLine(t, lines); !strings.Contains(msg, "SSE connection established") {
		t.Fatalf("first message = %s", msg)
	}

	ctx := context.Background()
	if err := server.registry.Create(ctx, mixerConfig("sse-other")); err != nil {
		t.Fatal(err)
	}
	if err := server.registry.Create(ctx, mixerConfig("sse-main")); err != nil {
		t.Fatal(err)
	}

	msg := nextLine(t, lines)
	if !strings.Contains(msg, `"sse-main"`) || strings.Contains(msg, "sse-other") {
		t.Errorf("filtered message = %s", msg)
	}
}

func TestLogStream(t *testing.T) {
	server, _ := newTestServer(t, nil)
	ts := newStreamServer(t, server)

	lines := readSSE(t, ts.URL+"/api/logs/stream")

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line := <-lines:
			if strings.Contains(line, "hello from test") {
				return
			}
		case <-ticker.C:
			server.eventBus.Publish(events.LogEntryEvent{Level: "info", Module: "mixer", Message: "hello from test"})
		case <-deadline:
			t.Fatal("log entry not streamed")
		}
	}
}

func TestLogStreamFilters(t *testing.T) {
	server, _ := newTestServer(t, nil)
	ts := newStreamServer(t, server)

	lines := readSSE(t, ts.URL+"/api/logs/stream?module=nats&level=warn")

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line := <-lines:
			if strings.Contains(line, "filtered out") {
				t.Fatalf("filtered entry streamed: %s", line)
			}
			if strings.Contains(line, "controller offline") {
				return
			}
		case <-ticker.C:
			server.eventBus.Publish(events.LogEntryEvent{Level: "error", Module: "mixer", Message: "filtered out"})
			server.eventBus.Publish(events.LogEntryEvent{Level: "info", Module: "nats", Message: "filtered out"})
			server.eventBus.Publish(events.LogEntryEvent{Level: "warn", Module: "nats", Message: "controller offline"})
		case <-deadline:
			t.Fatal("matching log entry not streamed")
		}
	}
}

func TestMetricsStream(t *testing.T) {
	server, _ := newTestServer(t, nil)
	ts := newStreamServer(t, server)

	lines := readSSE(t, ts.URL+"/api/metrics")
	metrics.SetMixerInputs("stats-mixer", 4)
	defer metrics.DeleteMixerMetrics("stats-mixer")

	// The handler subscribes asynchronously; publish until one arrives.
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line := <-lines:
			if !strings.Contains(line, `"inputs":4`) {
				t.Errorf("stats message = %s", line)
			}
			return
		case <-ticker.C:
			server.eventBus.Publish(events.MixerStatsEvent{MixerName: "stats-mixer", Inputs: 4, Timestamp: events.Now()})
		case <-deadline:
			t.Fatal("stats not streamed")
		}
	}
}
