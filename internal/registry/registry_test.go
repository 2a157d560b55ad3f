package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/switchboard/internal/engine"
	"github.com/smazurov/switchboard/internal/engine/sim"
	"github.com/smazurov/switchboard/internal/events"
	"github.com/smazurov/switchboard/internal/metrics"
	"github.com/smazurov/switchboard/internal/mixer"
)

func newTestRegistry(t *testing.T, opts ...sim.Option) (*Registry, *sim.Engine, *events.Bus) {
	t.Helper()
	eng := sim.New(opts...)
	bus := events.New()
	r := New(Options{Engine: eng, EventBus: bus, StateTimeout: time.Second, RecordDir: t.TempDir()})
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r, eng, bus
}

func mustCreate(t *testing.T, r *Registry, name string) {
	t.Helper()
	if err := r.Create(context.Background(), mixer.DefaultConfig(name)); err != nil {
		t.Fatalf("Create(%s): %v", name, err)
	}
}

func graphOf(t *testing.T, eng *sim.Engine, name string) *sim.Graph {
	t.Helper()
	for _, g := range eng.Graphs() {
		if g.Name() == name {
			return g
		}
	}
	t.Fatalf("graph %s not found", name)
	return nil
}

func testInput(name string) InputSpec {
	return InputSpec{Kind: mixer.InputTest, Config: mixer.DefaultInputConfig(name)}
}

func wait[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		var zero T
		t.Fatalf("timeout waiting for %T", zero)
		return zero
	}
}

func TestCreateAndGet(t *testing.T) {
	r, _, bus := newTestRegistry(t)
	created := make(chan events.MixerCreatedEvent, 1)
	bus.Subscribe(func(e events.MixerCreatedEvent) { created <- e })

	mustCreate(t, r, "reg-studio")

	info, err := r.Get("reg-studio")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if info.State != engine.StatePlaying.String() {
		t.Errorf("state = %s, want playing", info.State)
	}
	if info.InputCount != 0 || info.OutputCount != 0 {
		t.Errorf("counts = %d/%d, want 0/0", info.InputCount, info.OutputCount)
	}

	ev := wait(t, created)
	if ev.Mixer.Name != "reg-studio" || ev.ID == "" {
		t.Errorf("created event = %+v", ev)
	}
	if got := r.Names(); len(got) != 1 || got[0] != "reg-studio" {
		t.Errorf("Names() = %v", got)
	}
}

func TestCreateErrors(t *testing.T) {
	tests := []struct {
		name  string
		mixer string
		opts  []sim.Option
		code  string
	}{
		{"invalid name", "bad name", nil, mixer.ErrCodeInvalidName},
		{"empty name", "", nil, mixer.ErrCodeInvalidName},
		{"missing plugin", "reg-nocomp", []sim.Option{sim.WithMissing("compositor")}, mixer.ErrCodeEngine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRegistry(t, tt.opts...)
			err := r.Create(context.Background(), mixer.DefaultConfig(tt.mixer))
			if !mixer.IsCode(err, tt.code) {
				t.Fatalf("Create error = %v, want %s", err, tt.code)
			}
			if len(r.List()) != 0 {
				t.Error("failed mixer was registered")
			}
		})
	}
}

func TestCreateDuplicate(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	mustCreate(t, r, "reg-dup")
	err := r.Create(context.Background(), mixer.DefaultConfig("reg-dup"))
	if !mixer.IsCode(err, mixer.ErrCodeExists) {
		t.Errorf("error = %v, want EXISTS", err)
	}
}

func TestCreateConcurrentSameName(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.Create(context.Background(), mixer.DefaultConfig("reg-race"))
		}()
	}
	wg.Wait()
	close(errs)

	var ok, exists int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case mixer.IsCode(err, mixer.ErrCodeExists):
			exists++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || exists != n-1 {
		t.Errorf("ok=%d exists=%d, want 1/%d", ok, exists, n-1)
	}
}

func TestInputAddConcurrent(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	mustCreate(t, r, "reg-left")
	mustCreate(t, r, "reg-right")

	const n = 8
	type result struct {
		mixer string
		err   error
	}
	results := make(chan result, 2*n)
	var wg sync.WaitGroup
	for _, name := range []string{"reg-left", "reg-right"} {
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- result{name, r.InputAdd(context.Background(), name, testInput("cam"))}
			}()
		}
	}
	wg.Wait()
	close(results)

	ok := map[string]int{}
	for res := range results {
		switch {
		case res.err == nil:
			ok[res.mixer]++
		case mixer.IsCode(res.err, mixer.ErrCodeExists):
		default:
			t.Errorf("%s: unexpected error: %v", res.mixer, res.err)
		}
	}
	for _, name := range []string{"reg-left", "reg-right"} {
		if ok[name] != 1 {
			t.Errorf("%s successes = %d, want 1", name, ok[name])
		}
		inputs, err := r.InputList(name)
		if err != nil || len(inputs) != 1 {
			t.Errorf("%s inputs = %v (%v), want one", name, inputs, err)
		}
	}
}

func TestInputAddAfterDelete(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	mustCreate(t, r, "reg-gone")

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.InputAdd(context.Background(), "reg-gone", testInput(fmt.Sprintf("cam%d", i)))
		}()
	}
	if err := r.Delete(context.Background(), "reg-gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && !mixer.IsCode(err, mixer.ErrCodeNotFound) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if err := r.InputAdd(context.Background(), "reg-gone", testInput("late")); !mixer.IsCode(err, mixer.ErrCodeNotFound) {
		t.Errorf("InputAdd after Delete error = %v, want NOT_FOUND", err)
	}
}

func TestCreateCancelledContext(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Create(ctx, mixer.DefaultConfig("reg-cancel")); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestDelete(t *testing.T) {
	r, eng, bus := newTestRegistry(t)
	deleted := make(chan events.MixerDeletedEvent, 1)
	bus.Subscribe(func(e events.MixerDeletedEvent) { deleted <- e })

	if err := r.Delete(context.Background(), "reg-ghost"); !mixer.IsCode(err, mixer.ErrCodeNotFound) {
		t.Errorf("Delete unknown error = %v, want NOT_FOUND", err)
	}

	mustCreate(t, r, "reg-del")
	g := graphOf(t, eng, "reg-del")
	if err := r.Delete(context.Background(), "reg-del"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get("reg-del"); !mixer.IsCode(err, mixer.ErrCodeNotFound) {
		t.Errorf("Get after delete error = %v, want NOT_FOUND", err)
	}
	if st := g.State(time.Second); st != engine.StateNull {
		t.Errorf("graph state = %s, want null", st)
	}
	if ev := wait(t, deleted); ev.MixerName != "reg-del" {
		t.Errorf("deleted event = %+v", ev)
	}
	if metrics.GetMixerStats("reg-del") != nil {
		t.Error("per-mixer metrics not deleted")
	}
}

func TestInputLifecycle(t *testing.T) {
	r, _, bus := newTestRegistry(t)
	added := make(chan events.InputAddedEvent, 4)
	updated := make(chan events.InputUpdatedEvent, 4)
	active := make(chan events.ActiveInputChangedEvent, 4)
	removed := make(chan events.InputRemovedEvent, 4)
	bus.Subscribe(func(e events.InputAddedEvent) { added <- e })
	bus.Subscribe(func(e events.InputUpdatedEvent) { updated <- e })
	bus.Subscribe(func(e events.ActiveInputChangedEvent) { active <- e })
	bus.Subscribe(func(e events.InputRemovedEvent) { removed <- e })

	ctx := context.Background()
	mustCreate(t, r, "reg-inputs")

	for _, name := range []string{"cam1", "cam2"} {
		if err := r.InputAdd(ctx, "reg-inputs", testInput(name)); err != nil {
			t.Fatalf("InputAdd(%s): %v", name, err)
		}
		if ev := wait(t, added); ev.Input.Name != name || !ev.Input.Linked {
			t.Errorf("added event = %+v", ev)
		}
	}
	if stats := metrics.GetMixerStats("reg-inputs"); stats == nil || stats.Inputs != 2 {
		t.Errorf("stats = %+v, want 2 inputs", stats)
	}

	list, err := r.InputList("reg-inputs")
	if err != nil || len(list) != 2 || list[0].Name != "cam1" {
		t.Fatalf("InputList = %+v, %v", list, err)
	}

	vol := 0.25
	if err := r.InputUpdate(ctx, "reg-inputs", "cam1", mixer.InputUpdate{Volume: &vol}); err != nil {
		t.Fatalf("InputUpdate: %v", err)
	}
	if ev := wait(t, updated); ev.Input.Volume != 0.25 {
		t.Errorf("updated volume = %v, want 0.25", ev.Input.Volume)
	}

	if err := r.InputSetActive(ctx, "reg-inputs", "cam2"); err != nil {
		t.Fatalf("InputSetActive: %v", err)
	}
	if ev := wait(t, active); ev.InputName != "cam2" || ev.Partial {
		t.Errorf("active event = %+v", ev)
	}
	info, _ := r.Get("reg-inputs")
	if info.Active != "cam2" {
		t.Errorf("active = %q, want cam2", info.Active)
	}
	cam2, _ := r.InputGet("reg-inputs", "cam2")
	if !cam2.Active || cam2.ZOrder != mixer.ZOrderActive {
		t.Errorf("cam2 = %+v", cam2)
	}

	if err := r.InputRemove(ctx, "reg-inputs", "cam2"); err != nil {
		t.Fatalf("InputRemove: %v", err)
	}
	if ev := wait(t, removed); ev.InputName != "cam2" {
		t.Errorf("removed event = %+v", ev)
	}
	if info, _ := r.Get("reg-inputs"); info.Active != "" || info.InputCount != 1 {
		t.Errorf("after remove info = %+v", info)
	}
}

func TestNodeOperationsUnknownMixer(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	ctx := context.Background()

	ops := map[string]func() error{
		"InputAdd":       func() error { return r.InputAdd(ctx, "nope", testInput("a")) },
		"InputRemove":    func() error { return r.InputRemove(ctx, "nope", "a") },
		"InputUpdate":    func() error { return r.InputUpdate(ctx, "nope", "a", mixer.InputUpdate{}) },
		"InputSetActive": func() error { return r.InputSetActive(ctx, "nope", "a") },
		"OutputAdd": func() error {
			return r.OutputAdd(ctx, "nope", OutputSpec{Kind: mixer.OutputFake, Config: mixer.DefaultOutputConfig("o")})
		},
		"OutputRemove": func() error { return r.OutputRemove(ctx, "nope", "o") },
		"InputList": func() error {
			_, err := r.InputList("nope")
			return err
		},
		"OutputGet": func() error {
			_, err := r.OutputGet("nope", "o")
			return err
		},
		"DebugDot": func() error {
			_, err := r.DebugDot("nope")
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(); !mixer.IsCode(err, mixer.ErrCodeNotFound) {
				t.Errorf("error = %v, want NOT_FOUND", err)
			}
		})
	}
}

func TestInputSetActiveUnknownInput(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	mustCreate(t, r, "reg-noinput")
	err := r.InputSetActive(context.Background(), "reg-noinput", "ghost")
	if !mixer.IsCode(err, mixer.ErrCodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestInputAddInvalidSpec(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	mustCreate(t, r, "reg-badinput")
	ctx := context.Background()

	if err := r.InputAdd(ctx, "reg-badinput", testInput("has space")); !mixer.IsCode(err, mixer.ErrCodeInvalidName) {
		t.Errorf("bad name error = %v", err)
	}
	uri := InputSpec{Kind: mixer.InputURI, Config: mixer.DefaultInputConfig("net")}
	if err := r.InputAdd(ctx, "reg-badinput", uri); !mixer.IsCode(err, mixer.ErrCodeInvalidParams) {
		t.Errorf("missing uri error = %v", err)
	}
}

func TestOutputLifecycle(t *testing.T) {
	r, _, bus := newTestRegistry(t)
	added := make(chan events.OutputAddedEvent, 1)
	removed := make(chan events.OutputRemovedEvent, 1)
	bus.Subscribe(func(e events.OutputAddedEvent) { added <- e })
	bus.Subscribe(func(e events.OutputRemovedEvent) { removed <- e })

	ctx := context.Background()
	mustCreate(t, r, "reg-outputs")

	spec := OutputSpec{Kind: mixer.OutputFake, Config: mixer.DefaultOutputConfig("preview")}
	if err := r.OutputAdd(ctx, "reg-outputs", spec); err != nil {
		t.Fatalf("OutputAdd: %v", err)
	}
	if ev := wait(t, added); ev.Output.Name != "preview" {
		t.Errorf("added event = %+v", ev)
	}
	if err := r.OutputAdd(ctx, "reg-outputs", spec); !mixer.IsCode(err, mixer.ErrCodeExists) {
		t.Errorf("duplicate error = %v, want EXISTS", err)
	}

	out, err := r.OutputGet("reg-outputs", "preview")
	if err != nil || out.Kind != mixer.OutputFake {
		t.Fatalf("OutputGet = %+v, %v", out, err)
	}
	if list, _ := r.OutputList("reg-outputs"); len(list) != 1 {
		t.Errorf("OutputList len = %d, want 1", len(list))
	}

	if err := r.OutputRemove(ctx, "reg-outputs", "preview"); err != nil {
		t.Fatalf("OutputRemove: %v", err)
	}
	if ev := wait(t, removed); ev.OutputName != "preview" {
		t.Errorf("removed event = %+v", ev)
	}
	if stats := metrics.GetMixerStats("reg-outputs"); stats == nil || stats.Outputs != 0 {
		t.Errorf("stats = %+v, want 0 outputs", stats)
	}
}

func TestBusMessagesPublished(t *testing.T) {
	r, eng, bus := newTestRegistry(t)
	states := make(chan events.MixerStateChangedEvent, 8)
	errs := make(chan events.MixerErrorEvent, 8)
	bus.Subscribe(func(e events.MixerStateChangedEvent) { states <- e })
	bus.Subscribe(func(e events.MixerErrorEvent) { errs <- e })

	mustCreate(t, r, "reg-bus")
	if ev := wait(t, states); ev.MixerName != "reg-bus" || ev.NewState != "playing" {
		t.Errorf("state event = %+v", ev)
	}

	graphOf(t, eng, "reg-bus").PostError("input_cam_uridecodebin", errors.New("could not open resource"))
	ev := wait(t, errs)
	if ev.Severity != "error" || ev.Source != "input_cam_uridecodebin" || !strings.Contains(ev.Error, "could not open") {
		t.Errorf("error event = %+v", ev)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		info, _ := r.Get("reg-bus")
		if info.Error != "" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("mixer did not record the bus error")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if stats := metrics.GetMixerStats("reg-bus"); stats == nil || stats.BusErrors != 1 {
		t.Errorf("stats = %+v, want 1 bus error", stats)
	}
}

func TestDebugDot(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	mustCreate(t, r, "reg-dot")
	dot, err := r.DebugDot("reg-dot")
	if err != nil {
		t.Fatalf("DebugDot: %v", err)
	}
	if !strings.Contains(dot, "digraph") || !strings.Contains(dot, "mixer_video_mixer") {
		t.Errorf("unexpected dot output:\n%s", dot)
	}
}

func TestClose(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	mustCreate(t, r, "reg-close-a")
	mustCreate(t, r, "reg-close-b")
	if err := r.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := len(r.List()); n != 0 {
		t.Errorf("%d mixers left after Close", n)
	}
}
