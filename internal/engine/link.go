package engine

import (
	"errors"
	"fmt"
)

// LinkMany links each element to the next one in order.
func LinkMany(elems ...Element) error {
	for i := 0; i+1 < len(elems); i++ {
		if err := elems[i].Link(elems[i+1]); err != nil {
			return fmt.Errorf("link %s -> %s: %w", elems[i].Name(), elems[i+1].Name(), err)
		}
	}
	return nil
}

// SetStateMany applies state to every element and joins the failures.
func SetStateMany(state State, elems ...Element) error {
	var errs []error
	for _, e := range elems {
		if err := e.SetState(state); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// ReleasePeerPad releases the request pad on the other side of pad, if any.
// It detaches a subgraph from a trunk element that handed out the pad
// (tee src_%u, compositor sink_%u, ...).
func ReleasePeerPad(pad Pad) error {
	if pad == nil || !pad.IsLinked() {
		return nil
	}
	peer := pad.Peer()
	if peer == nil {
		return nil
	}
	src, sink := pad, peer
	if pad.Direction() == PadSink {
		src, sink = peer, pad
	}
	if err := src.Unlink(sink); err != nil {
		return fmt.Errorf("unlink %s -> %s: %w", src.Name(), sink.Name(), err)
	}
	owner := peer.Parent()
	if owner == nil {
		return nil
	}
	if err := owner.ReleaseRequestPad(peer); err != nil {
		return fmt.Errorf("release %s.%s: %w", owner.Name(), peer.Name(), err)
	}
	return nil
}

// PropertyFloat reads a float property.
func PropertyFloat(p interface{ Property(string) (any, error) }, name string) (float64, error) {
	v, err := p.Property(name)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("property %s: unexpected type %T", name, v)
}

// PropertyUint reads an unsigned integer property.
func PropertyUint(p interface{ Property(string) (any, error) }, name string) (uint32, error) {
	v, err := p.Property(name)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case uint32:
		return n, nil
	case uint:
		return uint32(n), nil
	case uint64:
		return uint32(n), nil
	case int:
		return uint32(n), nil
	case int64:
		return uint32(n), nil
	}
	return 0, fmt.Errorf("property %s: unexpected type %T", name, v)
}

// PropertyInt reads a signed integer property.
func PropertyInt(p interface{ Property(string) (any, error) }, name string) (int, error) {
	v, err := p.Property(name)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint32:
		return int(n), nil
	}
	return 0, fmt.Errorf("property %s: unexpected type %T", name, v)
}
