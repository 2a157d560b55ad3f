package sim

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/switchboard/internal/engine"
)

func mustElement(t *testing.T, e *Engine, factory, name string) engine.Element {
	t.Helper()
	el, err := e.NewElement(factory, name)
	if err != nil {
		t.Fatalf("NewElement(%s, %s): %v", factory, name, err)
	}
	return el
}

func TestNewElementUnknownAndMissing(t *testing.T) {
	e := New(WithMissing("x264enc"))

	if _, err := e.NewElement("does-not-exist", "a"); err == nil {
		t.Error("expected error for unknown factory")
	}
	if _, err := e.NewElement("x264enc", "enc"); err == nil {
		t.Error("expected error for missing factory")
	}
	if _, err := e.NewElement("queue", ""); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestGraphAddRejectsDuplicates(t *testing.T) {
	e := New()
	g, _ := e.NewGraph("g")

	a := mustElement(t, e, "queue", "q")
	b := mustElement(t, e, "queue", "q")
	c := mustElement(t, e, "queue", "c")

	if err := g.Add(a, c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := g.Add(b); err == nil {
		t.Fatal("expected duplicate name error")
	}
	if err := g.Add(a); err == nil {
		t.Fatal("expected already-parented error")
	}

	sg := g.(*Graph)
	if got := sg.Elements(); len(got) != 2 {
		t.Errorf("Elements() = %v, want 2 entries", got)
	}
}

func TestLinkRequestsTrunkPads(t *testing.T) {
	e := New()
	g, _ := e.NewGraph("g")

	src1 := mustElement(t, e, "videotestsrc", "src1")
	src2 := mustElement(t, e, "videotestsrc", "src2")
	comp := mustElement(t, e, "compositor", "comp")
	if err := g.Add(src1, src2, comp); err != nil {
		t.Fatal(err)
	}

	if err := src1.Link(comp); err != nil {
		t.Fatalf("link src1: %v", err)
	}
	if err := src2.Link(comp); err != nil {
		t.Fatalf("link src2: %v", err)
	}

	pads := comp.(*Element).Pads()
	want := []string{"src", "sink_0", "sink_1"}
	if strings.Join(pads, ",") != strings.Join(want, ",") {
		t.Errorf("pads = %v, want %v", pads, want)
	}

	sinkPad, _ := comp.StaticPad("sink_1")
	z, err := engine.PropertyUint(sinkPad, "zorder")
	if err != nil {
		t.Fatal(err)
	}
	if z != 1 {
		t.Errorf("zorder = %d, want 1", z)
	}
}

func TestLinkIncompatibleCaps(t *testing.T) {
	e := New()
	g, _ := e.NewGraph("g")

	asrc := mustElement(t, e, "audiotestsrc", "a")
	comp := mustElement(t, e, "compositor", "comp")
	_ = g.Add(asrc, comp)

	if err := asrc.Link(comp); err == nil {
		t.Fatal("expected caps error linking audio into compositor")
	}
	if pads := comp.(*Element).Pads(); len(pads) != 1 {
		t.Errorf("failed link leaked request pads: %v", pads)
	}
}

func TestLinkAcrossGraphsFails(t *testing.T) {
	e := New()
	g1, _ := e.NewGraph("g1")
	g2, _ := e.NewGraph("g2")
	a := mustElement(t, e, "queue", "a")
	b := mustElement(t, e, "queue", "b")
	_ = g1.Add(a)
	_ = g2.Add(b)

	if err := a.Link(b); err == nil {
		t.Fatal("expected error linking elements in different graphs")
	}
}

func TestWithLinkFailure(t *testing.T) {
	e := New(WithLinkFailure("b"))
	g, _ := e.NewGraph("g")
	a := mustElement(t, e, "queue", "a")
	b := mustElement(t, e, "queue", "b")
	_ = g.Add(a, b)

	if err := engine.LinkMany(a, b); err == nil {
		t.Fatal("expected injected link failure")
	}
}

func TestReleasePeerPad(t *testing.T) {
	e := New()
	g, _ := e.NewGraph("g")
	tee := mustElement(t, e, "tee", "tee")
	q := mustElement(t, e, "queue", "q")
	_ = g.Add(tee, q)
	if err := tee.Link(q); err != nil {
		t.Fatal(err)
	}

	sinkPad, _ := q.StaticPad("sink")
	if err := engine.ReleasePeerPad(sinkPad); err != nil {
		t.Fatalf("ReleasePeerPad: %v", err)
	}
	if sinkPad.IsLinked() {
		t.Error("sink pad still linked")
	}
	if pads := tee.(*Element).Pads(); len(pads) != 1 {
		t.Errorf("tee pads after release = %v, want only sink", pads)
	}

	// Second call is a no-op.
	if err := engine.ReleasePeerPad(sinkPad); err != nil {
		t.Errorf("second ReleasePeerPad: %v", err)
	}
}

func TestSetUnlinkFailure(t *testing.T) {
	e := New()
	g, _ := e.NewGraph("g")
	tee := mustElement(t, e, "tee", "tee")
	q := mustElement(t, e, "queue", "q")
	_ = g.Add(tee, q)
	if err := tee.Link(q); err != nil {
		t.Fatal(err)
	}
	sinkPad, _ := q.StaticPad("sink")

	e.SetUnlinkFailure("tee")
	if err := engine.ReleasePeerPad(sinkPad); err == nil {
		t.Fatal("expected injected unlink failure")
	}
	if !sinkPad.IsLinked() {
		t.Fatal("failed unlink dropped the link")
	}

	e.SetUnlinkFailure()
	if err := engine.ReleasePeerPad(sinkPad); err != nil {
		t.Fatalf("ReleasePeerPad after clearing failure: %v", err)
	}
	if pads := tee.(*Element).Pads(); len(pads) != 1 {
		t.Errorf("tee pads after release = %v, want only sink", pads)
	}
}

func TestRemoveUnlinks(t *testing.T) {
	e := New()
	g, _ := e.NewGraph("g")
	a := mustElement(t, e, "queue", "a")
	b := mustElement(t, e, "queue", "b")
	_ = g.Add(a, b)
	_ = a.Link(b)

	if err := g.Remove(b); err != nil {
		t.Fatal(err)
	}
	srcPad, _ := a.StaticPad("src")
	if srcPad.IsLinked() {
		t.Error("src pad still linked after peer removal")
	}
	if err := g.Remove(b); err == nil {
		t.Error("expected error removing element twice")
	}
}

func TestEmitPadCallbacks(t *testing.T) {
	e := New()
	dec := mustElement(t, e, "uridecodebin", "dec")

	var got atomic.Value
	dec.OnPadAdded(func(p engine.Pad) {
		got.Store(p.MediaType())
	})

	pad, err := e.EmitPad(dec, engine.MediaAudio)
	if err != nil {
		t.Fatal(err)
	}
	if pad.Name() != "src_0" {
		t.Errorf("pad name = %s, want src_0", pad.Name())
	}
	if got.Load() != engine.MediaAudio {
		t.Errorf("callback media = %v", got.Load())
	}

	q := mustElement(t, e, "queue", "q")
	if _, err := e.EmitPad(q, engine.MediaAudio); err == nil {
		t.Error("expected error emitting on element without dynamic pads")
	}
}

func TestAutoNegotiate(t *testing.T) {
	e := New(WithAutoNegotiate(10 * time.Millisecond))
	g, _ := e.NewGraph("g")
	dec := mustElement(t, e, "uridecodebin", "dec")
	_ = g.Add(dec)

	pads := make(chan string, 4)
	dec.OnPadAdded(func(p engine.Pad) { pads <- p.MediaType() })

	if err := g.SetState(engine.StatePlaying); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case m := <-pads:
			seen[m] = true
		case <-timeout:
			t.Fatalf("timed out, saw %v", seen)
		}
	}
}

func TestStateBoundedRead(t *testing.T) {
	e := New()
	g, _ := e.NewGraph("g")
	_ = g.SetState(engine.StatePlaying)

	sg := g.(*Graph)
	sg.Stall()

	start := time.Now()
	st := g.State(30 * time.Millisecond)
	if st != engine.StatePlaying {
		t.Errorf("State = %v, want playing", st)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("State returned before timeout while stalled")
	}

	sg.Settle()
	start = time.Now()
	_ = g.State(time.Second)
	if time.Since(start) > 500*time.Millisecond {
		t.Error("State blocked after Settle")
	}
}

func TestBusMessages(t *testing.T) {
	e := New()
	g, _ := e.NewGraph("g")
	sg := g.(*Graph)

	_ = g.SetState(engine.StatePlaying)
	sg.PostError("comp", errors.New("boom"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msg, err := g.Bus().Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != engine.MessageStateChanged || msg.New != engine.StatePlaying {
		t.Errorf("first message = %+v", msg)
	}
	msg, err = g.Bus().Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != engine.MessageError || msg.Source != "comp" {
		t.Errorf("second message = %+v", msg)
	}

	cancel()
	if _, err := g.Bus().Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next after cancel = %v", err)
	}
}

func TestDebugDot(t *testing.T) {
	e := New()
	g, _ := e.NewGraph("main")
	a := mustElement(t, e, "videotestsrc", "src")
	b := mustElement(t, e, "fakesink", "sink")
	_ = g.Add(a, b)
	_ = a.Link(b)

	dot := g.DebugDot()
	for _, want := range []string{`digraph "main"`, `"src" -> "sink"`, "videotestsrc"} {
		if !strings.Contains(dot, want) {
			t.Errorf("dot output missing %q:\n%s", want, dot)
		}
	}
}

func TestPositionAdvancesWhilePlaying(t *testing.T) {
	e := New()
	g, _ := e.NewGraph("g")
	if g.Position() != 0 {
		t.Fatal("position should start at zero")
	}
	_ = g.SetState(engine.StatePlaying)
	time.Sleep(5 * time.Millisecond)
	if g.Position() <= 0 {
		t.Error("position did not advance")
	}
	_ = g.SetState(engine.StateNull)
	if g.Position() != 0 {
		t.Error("position not reset on Null")
	}
}

func TestRegistered(t *testing.T) {
	eng, err := engine.Open("sim")
	if err != nil {
		t.Fatal(err)
	}
	if eng.Name() != "sim" {
		t.Errorf("Name() = %s", eng.Name())
	}
}
