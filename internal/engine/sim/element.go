package sim

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/switchboard/internal/engine"
)

// Element is a simulated element.
type Element struct {
	eng        *Engine
	name       string
	factory    string
	spec       factory
	props      map[string]any
	state      engine.State
	graph      *Graph
	pads       []*Pad
	counter    map[string]int
	padAdded   []func(engine.Pad)
	negotiated bool
}

// Name implements engine.Element.
func (el *Element) Name() string { return el.name }

// Factory implements engine.Element.
func (el *Element) Factory() string { return el.factory }

// SetProperty implements engine.Element.
func (el *Element) SetProperty(name string, value any) error {
	el.eng.mu.Lock()
	defer el.eng.mu.Unlock()
	if value == nil {
		return fmt.Errorf("%s: nil value for property %s", el.name, name)
	}
	el.props[name] = value
	return nil
}

// Property implements engine.Element.
func (el *Element) Property(name string) (any, error) {
	el.eng.mu.Lock()
	defer el.eng.mu.Unlock()
	v, ok := el.props[name]
	if !ok {
		return nil, fmt.Errorf("%s: no property %s", el.name, name)
	}
	return v, nil
}

// SetState implements engine.Element.
func (el *Element) SetState(state engine.State) error {
	el.eng.mu.Lock()
	negotiate := el.setStateLocked(state)
	el.eng.mu.Unlock()
	if negotiate {
		el.startNegotiation()
	}
	return nil
}

// State returns the current element state.
func (el *Element) State() engine.State {
	el.eng.mu.Lock()
	defer el.eng.mu.Unlock()
	return el.state
}

// InGraph reports whether the element is currently inside a graph.
func (el *Element) InGraph() bool {
	el.eng.mu.Lock()
	defer el.eng.mu.Unlock()
	return el.graph != nil
}

func (el *Element) setStateLocked(state engine.State) bool {
	el.state = state
	return el.eng.autoNegotiate > 0 && !el.negotiated && state >= engine.StatePaused && el.hasDynamicPads()
}

func (el *Element) hasDynamicPads() bool {
	for _, t := range el.spec.templates {
		if t.presence == sometimes {
			return true
		}
	}
	return false
}

func (el *Element) startNegotiation() {
	el.eng.mu.Lock()
	if el.negotiated {
		el.eng.mu.Unlock()
		return
	}
	el.negotiated = true
	delay := el.eng.autoNegotiate
	el.eng.mu.Unlock()

	time.AfterFunc(delay, func() {
		for _, media := range []string{engine.MediaVideo, engine.MediaAudio} {
			el.eng.mu.Lock()
			live := el.graph != nil && el.state >= engine.StatePaused
			el.eng.mu.Unlock()
			if !live {
				return
			}
			if _, err := el.eng.EmitPad(el, media); err != nil {
				return
			}
		}
	})
}

// StaticPad implements engine.Element.
func (el *Element) StaticPad(name string) (engine.Pad, error) {
	el.eng.mu.Lock()
	defer el.eng.mu.Unlock()
	for _, p := range el.pads {
		if p.name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%s: no pad %s", el.name, name)
}

// RequestPad implements engine.Element.
func (el *Element) RequestPad(template string) (engine.Pad, error) {
	el.eng.mu.Lock()
	defer el.eng.mu.Unlock()
	return el.requestPadLocked(template)
}

func (el *Element) requestPadLocked(template string) (*Pad, error) {
	var tmpl *padTemplate
	for i := range el.spec.templates {
		if el.spec.templates[i].name == template && el.spec.templates[i].presence == request {
			tmpl = &el.spec.templates[i]
			break
		}
	}
	if tmpl == nil {
		return nil, fmt.Errorf("%s: no request pad template %s", el.name, template)
	}

	name := template
	if strings.Contains(template, "%u") {
		name = el.nextPadName(template)
	} else {
		for _, p := range el.pads {
			if p.name == name {
				return nil, fmt.Errorf("%s: pad %s already requested", el.name, name)
			}
		}
	}

	p := &Pad{eng: el.eng, name: name, dir: tmpl.dir, parent: el, media: tmpl.media, request: true}
	if tmpl.dir == engine.PadSink && el.spec.padProps != nil {
		p.props = make(map[string]any, len(el.spec.padProps))
		for k, v := range el.spec.padProps {
			p.props[k] = v
		}
		if _, ok := p.props["zorder"]; ok {
			p.props["zorder"] = uint32(el.counter[template] - 1)
		}
	}
	el.pads = append(el.pads, p)
	return p, nil
}

func (el *Element) nextPadName(template string) string {
	idx := el.counter[template]
	el.counter[template] = idx + 1
	return strings.Replace(template, "%u", strconv.Itoa(idx), 1)
}

// ReleaseRequestPad implements engine.Element.
func (el *Element) ReleaseRequestPad(pad engine.Pad) error {
	el.eng.mu.Lock()
	defer el.eng.mu.Unlock()
	p, ok := pad.(*Pad)
	if !ok || p.parent != el {
		return fmt.Errorf("%s: pad %s does not belong to element", el.name, pad.Name())
	}
	if !p.request {
		return fmt.Errorf("%s: pad %s is not a request pad", el.name, p.name)
	}
	if p.peer != nil {
		p.peer.peer = nil
		p.peer = nil
	}
	for i, q := range el.pads {
		if q == p {
			el.pads = append(el.pads[:i], el.pads[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s: pad %s already released", el.name, p.name)
}

// Link implements engine.Element.
func (el *Element) Link(dst engine.Element) error {
	d, ok := dst.(*Element)
	if !ok {
		return fmt.Errorf("element %s is not a sim element", dst.Name())
	}
	el.eng.mu.Lock()
	defer el.eng.mu.Unlock()

	if el.eng.linkFails(el, d) {
		return fmt.Errorf("could not link %s to %s", el.name, d.name)
	}
	if el.graph != d.graph {
		return fmt.Errorf("%s and %s have different parents", el.name, d.name)
	}

	srcPad, srcRequested, err := el.freePadLocked(engine.PadSrc, "")
	if err != nil {
		return err
	}
	sinkPad, sinkRequested, err := d.freePadLocked(engine.PadSink, srcPad.media)
	if err != nil {
		if srcRequested {
			el.dropPadLocked(srcPad)
		}
		return err
	}
	if err := srcPad.linkLocked(sinkPad); err != nil {
		if srcRequested {
			el.dropPadLocked(srcPad)
		}
		if sinkRequested {
			d.dropPadLocked(sinkPad)
		}
		return err
	}
	return nil
}

func (el *Element) freePadLocked(dir engine.PadDirection, media string) (*Pad, bool, error) {
	for _, p := range el.pads {
		if p.dir == dir && !p.request && p.peer == nil {
			return p, false, nil
		}
	}
	for _, t := range el.spec.templates {
		if t.dir != dir || t.presence != request {
			continue
		}
		if media != "" && t.media != "" && t.media != media {
			continue
		}
		p, err := el.requestPadLocked(t.name)
		if err != nil {
			continue
		}
		return p, true, nil
	}
	return nil, false, fmt.Errorf("%s: no free %s pad", el.name, dir)
}

func (el *Element) dropPadLocked(p *Pad) {
	for i, q := range el.pads {
		if q == p {
			el.pads = append(el.pads[:i], el.pads[i+1:]...)
			return
		}
	}
}

// OnPadAdded implements engine.Element.
func (el *Element) OnPadAdded(fn func(engine.Pad)) {
	el.eng.mu.Lock()
	defer el.eng.mu.Unlock()
	el.padAdded = append(el.padAdded, fn)
}

// Pads returns the names of all current pads.
func (el *Element) Pads() []string {
	el.eng.mu.Lock()
	defer el.eng.mu.Unlock()
	out := make([]string, 0, len(el.pads))
	for _, p := range el.pads {
		out = append(out, p.name)
	}
	return out
}

// Pad is a simulated pad.
type Pad struct {
	eng     *Engine
	name    string
	dir     engine.PadDirection
	parent  *Element
	media   string
	peer    *Pad
	request bool
	props   map[string]any
	offset  time.Duration
}

// Name implements engine.Pad.
func (p *Pad) Name() string { return p.name }

// Direction implements engine.Pad.
func (p *Pad) Direction() engine.PadDirection { return p.dir }

// Parent implements engine.Pad.
func (p *Pad) Parent() engine.Element { return p.parent }

// MediaType implements engine.Pad.
func (p *Pad) MediaType() string { return p.media }

// Link implements engine.Pad.
func (p *Pad) Link(sinkPad engine.Pad) error {
	s, ok := sinkPad.(*Pad)
	if !ok {
		return fmt.Errorf("pad %s is not a sim pad", sinkPad.Name())
	}
	p.eng.mu.Lock()
	defer p.eng.mu.Unlock()
	if p.eng.linkFails(p.parent, s.parent) {
		return fmt.Errorf("could not link %s:%s to %s:%s", p.parent.name, p.name, s.parent.name, s.name)
	}
	if p.parent.graph != s.parent.graph {
		return fmt.Errorf("%s and %s have different parents", p.parent.name, s.parent.name)
	}
	return p.linkLocked(s)
}

func (p *Pad) linkLocked(s *Pad) error {
	if p.dir != engine.PadSrc || s.dir != engine.PadSink {
		return fmt.Errorf("wrong direction linking %s:%s to %s:%s", p.parent.name, p.name, s.parent.name, s.name)
	}
	if p.peer != nil || s.peer != nil {
		return fmt.Errorf("pad %s:%s or %s:%s already linked", p.parent.name, p.name, s.parent.name, s.name)
	}
	if p.media != "" && s.media != "" && p.media != s.media {
		return fmt.Errorf("incompatible caps %s and %s", p.media, s.media)
	}
	p.peer = s
	s.peer = p
	if s.media == "" {
		s.media = p.media
	}
	return nil
}

// Unlink implements engine.Pad.
func (p *Pad) Unlink(sinkPad engine.Pad) error {
	s, ok := sinkPad.(*Pad)
	if !ok {
		return fmt.Errorf("pad %s is not a sim pad", sinkPad.Name())
	}
	p.eng.mu.Lock()
	defer p.eng.mu.Unlock()
	if p.eng.unlinkFails(p.parent, s.parent) {
		return fmt.Errorf("could not unlink %s:%s from %s:%s", p.parent.name, p.name, s.parent.name, s.name)
	}
	if p.peer != s {
		return fmt.Errorf("pad %s:%s is not linked to %s:%s", p.parent.name, p.name, s.parent.name, s.name)
	}
	p.peer = nil
	s.peer = nil
	return nil
}

// IsLinked implements engine.Pad.
func (p *Pad) IsLinked() bool {
	p.eng.mu.Lock()
	defer p.eng.mu.Unlock()
	return p.peer != nil
}

// Peer implements engine.Pad.
func (p *Pad) Peer() engine.Pad {
	p.eng.mu.Lock()
	defer p.eng.mu.Unlock()
	if p.peer == nil {
		return nil
	}
	return p.peer
}

// SetProperty implements engine.Pad.
func (p *Pad) SetProperty(name string, value any) error {
	p.eng.mu.Lock()
	defer p.eng.mu.Unlock()
	if _, ok := p.props[name]; !ok {
		return fmt.Errorf("pad %s:%s has no property %s", p.parent.name, p.name, name)
	}
	p.props[name] = value
	return nil
}

// Property implements engine.Pad.
func (p *Pad) Property(name string) (any, error) {
	p.eng.mu.Lock()
	defer p.eng.mu.Unlock()
	v, ok := p.props[name]
	if !ok {
		return nil, fmt.Errorf("pad %s:%s has no property %s", p.parent.name, p.name, name)
	}
	return v, nil
}

// SetOffset implements engine.Pad.
func (p *Pad) SetOffset(offset time.Duration) {
	p.eng.mu.Lock()
	defer p.eng.mu.Unlock()
	p.offset = offset
}

// Offset returns the running-time offset applied to the pad.
func (p *Pad) Offset() time.Duration {
	p.eng.mu.Lock()
	defer p.eng.mu.Unlock()
	return p.offset
}

const busCapacity = 256

// Bus is a buffered message queue. Messages are dropped when it is full.
type Bus struct {
	ch chan engine.Message
}

// Next implements engine.Bus.
func (b *Bus) Next(ctx context.Context) (engine.Message, error) {
	select {
	case msg := <-b.ch:
		return msg, nil
	case <-ctx.Done():
		return engine.Message{}, ctx.Err()
	}
}

func (b *Bus) post(msg engine.Message) {
	select {
	case b.ch <- msg:
	default:
	}
}
