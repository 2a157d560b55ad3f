package nats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/switchboard/internal/events"
	"github.com/smazurov/switchboard/internal/mixer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(ServerOptions{
		Port:   RandomPort,
		Name:   "test-server",
		Logger: testLogger(),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(server.Stop)
	return server
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(ServerOptions{
		Port:       RandomPort,
		MaxPayload: 4096,
		Logger:     testLogger(),
	})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if !server.IsRunning() {
		t.Error("Server should be running after Start()")
	}
	if strings.HasSuffix(server.ClientURL(), ":-1") {
		t.Errorf("ClientURL = %q, want the chosen port", server.ClientURL())
	}

	nc, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := nc.MaxPayload(); got != 4096 {
		t.Errorf("MaxPayload = %d, want 4096", got)
	}
	if server.NumClients() != 1 {
		t.Errorf("NumClients = %d, want 1", server.NumClients())
	}
	nc.Close()

	server.Stop()
	if server.IsRunning() {
		t.Error("Server should not be running after Stop()")
	}
	if server.NumClients() != 0 {
		t.Error("NumClients should be 0 after Stop()")
	}
}

func TestServerDefaults(t *testing.T) {
	server := NewServer(ServerOptions{})
	if got := server.ClientURL(); got != "nats://127.0.0.1:4222" {
		t.Errorf("ClientURL before Start = %q", got)
	}
	if server.opts.MaxPayload != 256*1024 || server.opts.ReadyTimeout != 5*time.Second {
		t.Errorf("defaults = %+v", server.opts)
	}
}

func TestPublisherGracefulDegradation(t *testing.T) {
	bus := events.New()
	publisher := NewPublisher("nats://localhost:59999", bus, testLogger())

	// RetryOnFailedConnect keeps Start from failing; publishing is a no-op.
	_ = publisher.Start()
	bus.Publish(events.InputRemovedEvent{MixerName: "studio", InputName: "cam1"})

	if publisher.IsConnected() {
		t.Error("Publisher should not be connected")
	}
	publisher.Stop()
}

func TestPublisherForwardsEvents(t *testing.T) {
	server := startServer(t)

	sub, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer sub.Close()

	received := make(chan *nats.Msg, 10)
	if _, err := sub.ChanSubscribe(SubjectMixersPrefix+".>", received); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatal(err)
	}

	bus := events.New()
	publisher := NewPublisher(server.ClientURL(), bus, testLogger())
	if err := publisher.Start(); err != nil {
		t.Fatalf("Failed to start publisher: %v", err)
	}
	defer publisher.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for !publisher.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	bus.Publish(events.ActiveInputChangedEvent{MixerName: "studio", InputName: "cam2", Timestamp: events.Now()})
	bus.Publish(events.MixerStatsEvent{MixerName: "studio", Inputs: 2})

	want := map[string]string{
		SubjectMixerEvents("studio"): "active-input-changed",
		SubjectMixerStats("studio"):  "mixer-stats",
	}
	for range want {
		select {
		case msg := <-received:
			var ev EventMessage
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if want[msg.Subject] != ev.Event {
				t.Errorf("subject %s carried %s", msg.Subject, ev.Event)
			}
			if ev.Mixer != "studio" || ev.ID == "" {
				t.Errorf("event = %+v", ev)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("event was not published within timeout")
		}
	}
}

type fakeSwitcher struct {
	mu      sync.Mutex
	active  map[string]string
	removed []string
}

func (f *fakeSwitcher) InputSetActive(_ context.Context, mixerName, inputName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inputName == "ghost" {
		return mixer.ErrNotFound(mixer.KindInput, inputName)
	}
	if f.active == nil {
		f.active = map[string]string{}
	}
	f.active[mixerName] = inputName
	return nil
}

func (f *fakeSwitcher) InputRemove(_ context.Context, mixerName, inputName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, mixerName+"/"+inputName)
	return nil
}

func TestControllerAppliesCommands(t *testing.T) {
	server := startServer(t)

	switcher := &fakeSwitcher{}
	controller := NewController(server.ClientURL(), switcher, testLogger())
	if err := controller.Start(); err != nil {
		t.Fatalf("Failed to start controller: %v", err)
	}
	defer controller.Stop()

	client, err := NewControlClient(server.ClientURL(), testLogger())
	if err != nil {
		t.Fatalf("Failed to create control client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.SetActive(ctx, "studio", "cam2"); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if err := client.RemoveInput(ctx, "studio", "cam1"); err != nil {
		t.Fatalf("RemoveInput failed: %v", err)
	}

	switcher.mu.Lock()
	if switcher.active["studio"] != "cam2" {
		t.Errorf("active = %v", switcher.active)
	}
	if len(switcher.removed) != 1 || switcher.removed[0] != "studio/cam1" {
		t.Errorf("removed = %v", switcher.removed)
	}
	switcher.mu.Unlock()

	err = client.SetActive(ctx, "studio", "ghost")
	if !mixer.IsCode(err, mixer.ErrCodeNotFound) {
		t.Errorf("SetActive(ghost) = %v, want NOT_FOUND", err)
	}
}

func TestControllerRejectsBadCommands(t *testing.T) {
	server := startServer(t)

	controller := NewController(server.ClientURL(), &fakeSwitcher{}, testLogger())
	if err := controller.Start(); err != nil {
		t.Fatalf("Failed to start controller: %v", err)
	}
	defer controller.Stop()

	conn, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	tests := []struct {
		name    string
		subject string
		data    string
	}{
		{"unknown action", SubjectControl("studio", "explode"), `{"input":"cam1"}`},
		{"invalid json", SubjectControl("studio", ActionSetActive), `{`},
		{"mixer mismatch", SubjectControl("studio", ActionSetActive), `{"mixer":"other","input":"cam1"}`},
		{"action mismatch", SubjectControl("studio", ActionSetActive), `{"action":"remove","input":"cam1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := conn.Request(tt.subject, []byte(tt.data), 2*time.Second)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			reply, err := UnmarshalReply(resp.Data)
			if err != nil {
				t.Fatal(err)
			}
			if reply.OK || reply.Code != mixer.ErrCodeInvalidParams {
				t.Errorf("reply = %+v", reply)
			}
		})
	}
}

func TestControlClientNoResponders(t *testing.T) {
	server := startServer(t)

	client, err := NewControlClient(server.ClientURL(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.SetActive(ctx, "studio", "cam1"); !errors.Is(err, nats.ErrNoResponders) {
		t.Errorf("SetActive without controller = %v", err)
	}
}

func TestSubjectFunctions(t *testing.T) {
	tests := []struct {
		got      string
		expected string
	}{
		{SubjectMixerEvents("studio"), "switchboard.mixers.studio.events"},
		{SubjectMixerStats("studio"), "switchboard.mixers.studio.stats"},
		{SubjectControl("studio", ActionSetActive), "switchboard.control.studio.active"},
	}

	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("Got %s, want %s", tt.got, tt.expected)
		}
	}
}

func TestParseControlSubject(t *testing.T) {
	tests := []struct {
		subject string
		mixer   string
		action  string
		ok      bool
	}{
		{"switchboard.control.studio.active", "studio", "active", true},
		{"switchboard.control.studio", "", "", false},
		{"switchboard.control.studio.active.extra", "", "", false},
		{"switchboard.mixers.studio.events", "", "", false},
	}
	for _, tt := range tests {
		mixerName, action, ok := parseControlSubject(tt.subject)
		if ok != tt.ok || mixerName != tt.mixer || action != tt.action {
			t.Errorf("parseControlSubject(%q) = %q, %q, %v", tt.subject, mixerName, action, ok)
		}
	}
}
