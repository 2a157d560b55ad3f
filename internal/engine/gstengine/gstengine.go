//go:build gstreamer

// Package gstengine drives GStreamer through go-gst. It is compiled only
// with the gstreamer build tag since it links against libgstreamer.
package gstengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smazurov/switchboard/internal/engine"
	"github.com/tinyzimmer/go-gst/gst"
)

var initOnce sync.Once

func init() {
	engine.Register("gstreamer", func() (engine.Engine, error) {
		return New(), nil
	})
}

// Engine is the GStreamer backend.
type Engine struct {
	mu       sync.Mutex
	elements map[string]*Element
}

// New initializes GStreamer once and returns an engine.
func New() *Engine {
	initOnce.Do(func() { gst.Init(nil) })
	return &Engine{elements: make(map[string]*Element)}
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return "gstreamer" }

// NewGraph implements engine.Engine.
func (e *Engine) NewGraph(name string) (engine.Graph, error) {
	p, err := gst.NewPipeline(name)
	if err != nil {
		return nil, fmt.Errorf("create pipeline %s: %w", name, err)
	}
	return &Graph{eng: e, pipeline: p, bus: &Bus{bus: p.GetPipelineBus()}}, nil
}

// NewElement implements engine.Engine.
func (e *Engine) NewElement(factory, name string) (engine.Element, error) {
	el, err := gst.NewElementWithName(factory, name)
	if err != nil {
		return nil, fmt.Errorf("no such element factory %q: %w", factory, err)
	}
	return e.wrap(el), nil
}

// wrap returns the single wrapper of el so identity comparisons hold.
// Element names are unique across graphs.
func (e *Engine) wrap(el *gst.Element) *Element {
	if el == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	name := el.GetName()
	if w, ok := e.elements[name]; ok {
		return w
	}
	w := &Element{eng: e, el: el}
	e.elements[name] = w
	return w
}

func (e *Engine) forget(el *Element) {
	e.mu.Lock()
	delete(e.elements, el.Name())
	e.mu.Unlock()
}

func toGst(s engine.State) gst.State {
	switch s {
	case engine.StateReady:
		return gst.StateReady
	case engine.StatePaused:
		return gst.StatePaused
	case engine.StatePlaying:
		return gst.StatePlaying
	default:
		return gst.StateNull
	}
}

func fromGst(s gst.State) engine.State {
	switch s {
	case gst.StateReady:
		return engine.StateReady
	case gst.StatePaused:
		return engine.StatePaused
	case gst.StatePlaying:
		return engine.StatePlaying
	default:
		return engine.StateNull
	}
}

// Graph wraps a pipeline.
type Graph struct {
	eng      *Engine
	pipeline *gst.Pipeline
	bus      *Bus
}

func (g *Graph) Name() string { return g.pipeline.GetName() }

func (g *Graph) Add(elems ...engine.Element) error {
	for _, el := range elems {
		if err := g.pipeline.Add(unwrap(el)); err != nil {
			return fmt.Errorf("add %s: %w", el.Name(), err)
		}
	}
	return nil
}

func (g *Graph) Remove(elems ...engine.Element) error {
	var errs []error
	for _, el := range elems {
		if err := g.pipeline.Remove(unwrap(el)); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", el.Name(), err))
			continue
		}
		if w, ok := el.(*Element); ok {
			g.eng.forget(w)
		}
	}
	return errors.Join(errs...)
}

func (g *Graph) SetState(state engine.State) error {
	return g.pipeline.SetState(toGst(state))
}

func (g *Graph) State(timeout time.Duration) engine.State {
	_, cur := g.pipeline.GetState(gst.VoidPending, gst.ClockTime(timeout.Nanoseconds()))
	return fromGst(cur)
}

func (g *Graph) Position() time.Duration {
	ok, pos := g.pipeline.QueryPosition(gst.FormatTime)
	if !ok || pos < 0 {
		return 0
	}
	return time.Duration(pos)
}

func (g *Graph) Bus() engine.Bus { return g.bus }

func (g *Graph) DebugDot() string {
	return g.pipeline.DebugBinToDotData(gst.DebugGraphShowAll)
}

// Bus polls the pipeline bus.
type Bus struct {
	bus *gst.Bus
}

// pollInterval bounds how long Next blocks in C before rechecking ctx.
const pollInterval = 100 * time.Millisecond

// Next implements engine.Bus.
func (b *Bus) Next(ctx context.Context) (engine.Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return engine.Message{}, err
		}
		msg := b.bus.TimedPop(pollInterval)
		if msg == nil {
			continue
		}
		if m, ok := convert(msg); ok {
			return m, nil
		}
	}
}

func convert(msg *gst.Message) (engine.Message, bool) {
	m := engine.Message{Source: msg.Source()}
	switch msg.Type() {
	case gst.MessageError:
		gerr := msg.ParseError()
		m.Type = engine.MessageError
		m.Err = errors.New(gerr.Error())
		m.Debug = gerr.DebugString()
	case gst.MessageWarning:
		gerr := msg.ParseWarning()
		m.Type = engine.MessageWarning
		m.Err = errors.New(gerr.Error())
		m.Debug = gerr.DebugString()
	case gst.MessageStateChanged:
		oldState, newState := msg.ParseStateChanged()
		m.Type = engine.MessageStateChanged
		m.Old, m.New = fromGst(oldState), fromGst(newState)
	case gst.MessageEOS:
		m.Type = engine.MessageEOS
	default:
		return m, false
	}
	return m, true
}

func unwrap(el engine.Element) *gst.Element {
	if w, ok := el.(*Element); ok {
		return w.el
	}
	return nil
}
