//go:build gstreamer

package gstengine

import (
	"fmt"
	"time"

	"github.com/smazurov/switchboard/internal/engine"
	"github.com/tinyzimmer/go-gst/gst"
)

// Element wraps a gst.Element.
type Element struct {
	eng *Engine
	el  *gst.Element
}

func (e *Element) Name() string { return e.el.GetName() }

func (e *Element) Factory() string { return e.el.GetFactory().GetName() }

// SetProperty resolves engine.Enum by nick and engine.Caps by parsing.
func (e *Element) SetProperty(name string, value any) error {
	switch v := value.(type) {
	case engine.Enum:
		return e.el.SetArg(name, string(v))
	case engine.Caps:
		return e.el.SetProperty(name, gst.NewCapsFromString(string(v)))
	default:
		return e.el.SetProperty(name, value)
	}
}

func (e *Element) Property(name string) (any, error) {
	return e.el.GetProperty(name)
}

func (e *Element) SetState(state engine.State) error {
	return e.el.SetState(toGst(state))
}

func (e *Element) StaticPad(name string) (engine.Pad, error) {
	p := e.el.GetStaticPad(name)
	if p == nil {
		return nil, fmt.Errorf("%s: no pad %q", e.Name(), name)
	}
	return &Pad{eng: e.eng, pad: p}, nil
}

func (e *Element) RequestPad(template string) (engine.Pad, error) {
	p := e.el.GetRequestPad(template)
	if p == nil {
		return nil, fmt.Errorf("%s: cannot request pad from %q", e.Name(), template)
	}
	return &Pad{eng: e.eng, pad: p}, nil
}

func (e *Element) ReleaseRequestPad(pad engine.Pad) error {
	p, ok := pad.(*Pad)
	if !ok {
		return fmt.Errorf("%s: foreign pad %s", e.Name(), pad.Name())
	}
	e.el.ReleaseRequestPad(p.pad)
	return nil
}

func (e *Element) Link(dst engine.Element) error {
	return e.el.Link(unwrap(dst))
}

func (e *Element) OnPadAdded(fn func(engine.Pad)) {
	_, _ = e.el.Connect("pad-added", func(_ *gst.Element, p *gst.Pad) {
		fn(&Pad{eng: e.eng, pad: p})
	})
}

// Pad wraps a gst.Pad.
type Pad struct {
	eng *Engine
	pad *gst.Pad
}

func (p *Pad) Name() string { return p.pad.GetName() }

func (p *Pad) Direction() engine.PadDirection {
	if p.pad.GetDirection() == gst.PadDirectionSink {
		return engine.PadSink
	}
	return engine.PadSrc
}

func (p *Pad) Parent() engine.Element {
	parent := p.pad.GetParentElement()
	if parent == nil {
		return nil
	}
	return p.eng.wrap(parent)
}

func (p *Pad) MediaType() string {
	caps := p.pad.GetCurrentCaps()
	if caps == nil || caps.GetSize() == 0 {
		return ""
	}
	return caps.GetStructureAt(0).Name()
}

func (p *Pad) Link(sink engine.Pad) error {
	s, ok := sink.(*Pad)
	if !ok {
		return fmt.Errorf("link %s: foreign pad %s", p.Name(), sink.Name())
	}
	if ret := p.pad.Link(s.pad); ret != gst.PadLinkOK {
		return fmt.Errorf("link %s -> %s: %s", p.Name(), s.Name(), ret.String())
	}
	return nil
}

func (p *Pad) Unlink(sink engine.Pad) error {
	s, ok := sink.(*Pad)
	if !ok {
		return fmt.Errorf("unlink %s: foreign pad %s", p.Name(), sink.Name())
	}
	if !p.pad.Unlink(s.pad) {
		return fmt.Errorf("unlink %s -> %s failed", p.Name(), s.Name())
	}
	return nil
}

func (p *Pad) IsLinked() bool { return p.pad.IsLinked() }

func (p *Pad) Peer() engine.Pad {
	peer := p.pad.GetPeer()
	if peer == nil {
		return nil
	}
	return &Pad{eng: p.eng, pad: peer}
}

func (p *Pad) SetProperty(name string, value any) error {
	return p.pad.SetProperty(name, value)
}

func (p *Pad) Property(name string) (any, error) {
	return p.pad.GetProperty(name)
}

func (p *Pad) SetOffset(offset time.Duration) {
	p.pad.SetOffset(int64(offset))
}
