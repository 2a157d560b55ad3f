package mixer

import (
	"errors"
	"fmt"

	"github.com/smazurov/switchboard/internal/engine"
)

// arena owns the elements of one node. Elements are attached to a graph as a
// unit and torn down as a unit.
type arena struct {
	eng    engine.Engine
	kind   string
	node   string
	prefix string
	elems  []engine.Element
	graph  engine.Graph
}

func newArena(eng engine.Engine, kind, node, prefix string) *arena {
	return &arena{eng: eng, kind: kind, node: node, prefix: prefix}
}

// make creates an element named "<prefix>_<suffix>".
func (a *arena) make(factory, suffix string) (engine.Element, error) {
	name := a.prefix + "_" + suffix
	el, err := a.eng.NewElement(factory, name)
	if err != nil {
		return nil, ErrEngine(a.kind, a.node, fmt.Sprintf("failed to create %s (%s)", name, factory), err)
	}
	a.elems = append(a.elems, el)
	return el, nil
}

// set applies a property, naming the element on failure.
func (a *arena) set(el engine.Element, prop string, value any) error {
	if err := el.SetProperty(prop, value); err != nil {
		return ErrEngine(a.kind, a.node, fmt.Sprintf("failed to set %s on %s", prop, el.Name()), err)
	}
	return nil
}

// attach adds every element to g.
func (a *arena) attach(g engine.Graph) error {
	if a.graph != nil {
		return ErrEngine(a.kind, a.node, "already attached", nil)
	}
	if err := g.Add(a.elems...); err != nil {
		return ErrEngine(a.kind, a.node, "failed to add elements to graph", err)
	}
	a.graph = g
	return nil
}

// link wires elems in order, naming the failing pair.
func (a *arena) link(elems ...engine.Element) error {
	if err := engine.LinkMany(elems...); err != nil {
		return ErrEngine(a.kind, a.node, "failed to link elements", err)
	}
	return nil
}

// setState moves every element to state.
func (a *arena) setState(state engine.State) error {
	if err := engine.SetStateMany(state, a.elems...); err != nil {
		return ErrEngine(a.kind, a.node, "failed to set state "+state.String(), err)
	}
	return nil
}

// teardown stops the elements and removes them from the graph. Request pads
// on shared elements must be released before calling it. It is idempotent.
func (a *arena) teardown() error {
	if a.graph == nil {
		return nil
	}
	var errs []error
	if err := engine.SetStateMany(engine.StateNull, a.elems...); err != nil {
		errs = append(errs, err)
	}
	if err := a.graph.Remove(a.elems...); err != nil {
		return ErrEngine(a.kind, a.node, "failed to remove elements from graph", errors.Join(append(errs, err)...))
	}
	a.graph = nil
	return nil
}

// releaseTrunkPad releases the request pad the trunk handed out for the
// given pad of one of our elements.
func (a *arena) releaseTrunkPad(el engine.Element, padName string) error {
	if el == nil {
		return nil
	}
	pad, err := el.StaticPad(padName)
	if err != nil {
		return ErrEngine(a.kind, a.node, "missing pad "+padName+" on "+el.Name(), err)
	}
	if err := engine.ReleasePeerPad(pad); err != nil {
		return ErrEngine(a.kind, a.node, "failed to release trunk pad", err)
	}
	return nil
}

// trunkPad returns the peer of the given pad, i.e. the pad on the shared
// element where per-node compositing properties live.
func trunkPad(el engine.Element, padName string) (engine.Pad, error) {
	pad, err := el.StaticPad(padName)
	if err != nil {
		return nil, err
	}
	peer := pad.Peer()
	if peer == nil {
		return nil, fmt.Errorf("%s:%s is not linked", el.Name(), padName)
	}
	return peer, nil
}
