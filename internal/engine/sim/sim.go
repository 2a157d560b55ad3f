// Package sim is an in-process media engine that models element graphs
// without moving any samples.
//
// It tracks pads, request pads, links, properties, and states with the same
// rules a real engine enforces, so topology bugs (double links, leaked
// request pads, elements left behind after removal) surface in tests and
// when running the server with --engine=sim. Dynamic pads are produced by
// EmitPad or, with WithAutoNegotiate, automatically after a decoder reaches
// the Paused state.
package sim

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/switchboard/internal/engine"
)

func init() {
	engine.Register("sim", func() (engine.Engine, error) {
		return New(WithAutoNegotiate(200 * time.Millisecond)), nil
	})
}

// Option configures an Engine.
type Option func(*Engine)

// WithMissing makes the given factories unavailable, as if the plugin
// providing them was not installed.
func WithMissing(factoryNames ...string) Option {
	return func(e *Engine) {
		for _, f := range factoryNames {
			e.missing[f] = true
		}
	}
}

// WithLinkFailure makes every link involving an element with the given name
// fail.
func WithLinkFailure(elementNames ...string) Option {
	return func(e *Engine) {
		for _, n := range elementNames {
			e.failLinks[n] = true
		}
	}
}

// WithAutoNegotiate makes decoders emit one video and one audio pad after
// delay once they reach Paused.
func WithAutoNegotiate(delay time.Duration) Option {
	return func(e *Engine) {
		e.autoNegotiate = delay
	}
}

// Engine is the simulated backend. A single lock guards the whole
// topology; pad-added callbacks run outside it.
type Engine struct {
	mu            sync.Mutex
	missing       map[string]bool
	failLinks     map[string]bool
	failUnlinks   map[string]bool
	autoNegotiate time.Duration
	graphs        []*Graph
}

// New creates a simulated engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		missing:     make(map[string]bool),
		failLinks:   make(map[string]bool),
		failUnlinks: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements engine.Engine.
func (e *Engine) Name() string { return "sim" }

// NewGraph implements engine.Engine.
func (e *Engine) NewGraph(name string) (engine.Graph, error) {
	g := &Graph{
		eng:      e,
		name:     name,
		elements: make(map[string]*Element),
		bus:      &Bus{ch: make(chan engine.Message, busCapacity)},
	}
	e.mu.Lock()
	e.graphs = append(e.graphs, g)
	e.mu.Unlock()
	return g, nil
}

// NewElement implements engine.Engine.
func (e *Engine) NewElement(factoryName, name string) (engine.Element, error) {
	e.mu.Lock()
	missing := e.missing[factoryName]
	e.mu.Unlock()

	spec, ok := factories[factoryName]
	if !ok || missing {
		return nil, fmt.Errorf("no such element factory %q", factoryName)
	}
	if name == "" {
		return nil, fmt.Errorf("element name required for %q", factoryName)
	}

	el := &Element{
		eng:     e,
		name:    name,
		factory: factoryName,
		spec:    spec,
		props:   make(map[string]any, len(spec.props)),
		counter: make(map[string]int),
	}
	for k, v := range spec.props {
		el.props[k] = v
	}
	for _, t := range spec.templates {
		if t.presence == always {
			el.pads = append(el.pads, &Pad{eng: e, name: t.name, dir: t.dir, parent: el, media: t.media})
		}
	}
	return el, nil
}

// Graphs returns every graph created by this engine.
func (e *Engine) Graphs() []*Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Graph, len(e.graphs))
	copy(out, e.graphs)
	return out
}

// EmitPad creates a dynamic source pad on el carrying media and notifies
// pad-added subscribers from the calling goroutine.
func (e *Engine) EmitPad(el engine.Element, media string) (engine.Pad, error) {
	sel, ok := el.(*Element)
	if !ok {
		return nil, fmt.Errorf("element %s is not a sim element", el.Name())
	}

	e.mu.Lock()
	var tmpl *padTemplate
	for i := range sel.spec.templates {
		if sel.spec.templates[i].presence == sometimes {
			tmpl = &sel.spec.templates[i]
			break
		}
	}
	if tmpl == nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("element %s has no dynamic pads", sel.name)
	}
	pad := &Pad{eng: e, name: sel.nextPadName(tmpl.name), dir: tmpl.dir, parent: sel, media: media}
	sel.pads = append(sel.pads, pad)
	callbacks := append([]func(engine.Pad){}, sel.padAdded...)
	e.mu.Unlock()

	for _, fn := range callbacks {
		fn(pad)
	}
	return pad, nil
}

// SetUnlinkFailure makes unlinking any pad of the named elements fail until
// it is called again without them.
func (e *Engine) SetUnlinkFailure(elementNames ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failUnlinks = make(map[string]bool, len(elementNames))
	for _, n := range elementNames {
		e.failUnlinks[n] = true
	}
}

func (e *Engine) linkFails(a, b *Element) bool {
	return e.failLinks[a.name] || e.failLinks[b.name]
}

func (e *Engine) unlinkFails(a, b *Element) bool {
	return e.failUnlinks[a.name] || e.failUnlinks[b.name]
}

// Graph is a simulated pipeline.
type Graph struct {
	eng      *Engine
	name     string
	elements map[string]*Element
	order    []string
	state    engine.State
	pending  chan struct{}
	started  time.Time
	elapsed  time.Duration
	bus      *Bus
}

// Name implements engine.Graph.
func (g *Graph) Name() string { return g.name }

// Add implements engine.Graph. Either every element is added or none is.
func (g *Graph) Add(elems ...engine.Element) error {
	g.eng.mu.Lock()
	defer g.eng.mu.Unlock()

	batch := make(map[string]bool, len(elems))
	sels := make([]*Element, 0, len(elems))
	for _, el := range elems {
		sel, ok := el.(*Element)
		if !ok {
			return fmt.Errorf("element %s is not a sim element", el.Name())
		}
		if sel.graph != nil {
			return fmt.Errorf("element %s already has a parent", sel.name)
		}
		if _, exists := g.elements[sel.name]; exists || batch[sel.name] {
			return fmt.Errorf("name %s is not unique in graph %s", sel.name, g.name)
		}
		batch[sel.name] = true
		sels = append(sels, sel)
	}
	for _, sel := range sels {
		sel.graph = g
		g.elements[sel.name] = sel
		g.order = append(g.order, sel.name)
	}
	return nil
}

// Remove implements engine.Graph. Removed elements lose all their links.
func (g *Graph) Remove(elems ...engine.Element) error {
	g.eng.mu.Lock()
	defer g.eng.mu.Unlock()

	sels := make([]*Element, 0, len(elems))
	for _, el := range elems {
		sel, ok := el.(*Element)
		if !ok || sel.graph != g {
			return fmt.Errorf("element %s is not in graph %s", el.Name(), g.name)
		}
		sels = append(sels, sel)
	}
	for _, sel := range sels {
		for _, p := range sel.pads {
			if p.peer != nil {
				p.peer.peer = nil
				p.peer = nil
			}
		}
		sel.graph = nil
		delete(g.elements, sel.name)
		for i, n := range g.order {
			if n == sel.name {
				g.order = append(g.order[:i], g.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// SetState implements engine.Graph. Every child follows the graph state.
func (g *Graph) SetState(state engine.State) error {
	g.eng.mu.Lock()
	old := g.state
	if old == state {
		g.eng.mu.Unlock()
		return nil
	}
	switch {
	case state == engine.StatePlaying:
		g.started = time.Now()
	case old == engine.StatePlaying:
		g.elapsed += time.Since(g.started)
	}
	if state == engine.StateNull {
		g.elapsed = 0
	}
	g.state = state
	var negotiate []*Element
	for _, name := range g.order {
		el := g.elements[name]
		if el.setStateLocked(state) {
			negotiate = append(negotiate, el)
		}
	}
	g.eng.mu.Unlock()

	g.bus.post(engine.Message{Type: engine.MessageStateChanged, Source: g.name, Old: old, New: state})
	for _, el := range negotiate {
		el.startNegotiation()
	}
	return nil
}

// State implements engine.Graph.
func (g *Graph) State(timeout time.Duration) engine.State {
	g.eng.mu.Lock()
	pending := g.pending
	g.eng.mu.Unlock()

	if pending != nil {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-pending:
		case <-timer.C:
		}
	}

	g.eng.mu.Lock()
	defer g.eng.mu.Unlock()
	return g.state
}

// Position implements engine.Graph.
func (g *Graph) Position() time.Duration {
	g.eng.mu.Lock()
	defer g.eng.mu.Unlock()
	if g.state == engine.StatePlaying {
		return g.elapsed + time.Since(g.started)
	}
	return g.elapsed
}

// Bus implements engine.Graph.
func (g *Graph) Bus() engine.Bus { return g.bus }

// DebugDot implements engine.Graph.
func (g *Graph) DebugDot() string {
	g.eng.mu.Lock()
	defer g.eng.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", strconv.Quote(g.name))
	b.WriteString("  rankdir=LR;\n")
	fmt.Fprintf(&b, "  label=%s;\n", strconv.Quote(g.name+" ["+g.state.String()+"]"))
	b.WriteString("  node [shape=box, style=rounded];\n")

	var edges []string
	for _, name := range g.order {
		el := g.elements[name]
		fmt.Fprintf(&b, "  %s [label=%s];\n", strconv.Quote(el.name), strconv.Quote(el.name+"\\n"+el.factory))
		for _, p := range el.pads {
			if p.dir != engine.PadSrc || p.peer == nil {
				continue
			}
			edges = append(edges, fmt.Sprintf("  %s -> %s [taillabel=%s, headlabel=%s];\n",
				strconv.Quote(el.name), strconv.Quote(p.peer.parent.name),
				strconv.Quote(p.name), strconv.Quote(p.peer.name)))
		}
	}
	sort.Strings(edges)
	for _, e := range edges {
		b.WriteString(e)
	}
	b.WriteString("}\n")
	return b.String()
}

// Element returns the named element, or nil.
func (g *Graph) Element(name string) *Element {
	g.eng.mu.Lock()
	defer g.eng.mu.Unlock()
	return g.elements[name]
}

// Elements returns the names of all elements in insertion order.
func (g *Graph) Elements() []string {
	g.eng.mu.Lock()
	defer g.eng.mu.Unlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Stall makes State block until Settle is called or the caller's timeout
// elapses, as when negotiation is stuck.
func (g *Graph) Stall() {
	g.eng.mu.Lock()
	defer g.eng.mu.Unlock()
	if g.pending == nil {
		g.pending = make(chan struct{})
	}
}

// Settle releases callers blocked in State.
func (g *Graph) Settle() {
	g.eng.mu.Lock()
	defer g.eng.mu.Unlock()
	if g.pending != nil {
		close(g.pending)
		g.pending = nil
	}
}

// PostError posts an error message on the bus.
func (g *Graph) PostError(source string, err error) {
	g.bus.post(engine.Message{Type: engine.MessageError, Source: source, Err: err})
}

// PostEOS posts an end-of-stream message on the bus.
func (g *Graph) PostEOS() {
	g.bus.post(engine.Message{Type: engine.MessageEOS, Source: g.name})
}
