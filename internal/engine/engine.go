// Package engine defines the element-graph interface the mixer drives.
//
// An Engine creates graphs and elements. Elements expose named pads which
// are linked to form the data-flow graph; request pads are created on demand
// from a pad template and must be released explicitly. Backends register
// themselves by name with Register and are selected at startup with Open.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Engine creates graphs and elements for a media backend.
type Engine interface {
	// Name returns the backend identifier, e.g. "sim" or "gstreamer".
	Name() string
	// NewGraph creates an empty graph in the Null state.
	NewGraph(name string) (Graph, error)
	// NewElement instantiates an element from a factory.
	NewElement(factory, name string) (Element, error)
}

// Graph is a container of elements with a shared clock and bus.
type Graph interface {
	Name() string
	Add(elems ...Element) error
	Remove(elems ...Element) error
	SetState(state State) error
	// State waits at most timeout for a pending transition to settle and
	// returns the last observed state.
	State(timeout time.Duration) State
	// Position returns the current running time of the graph.
	Position() time.Duration
	Bus() Bus
	// DebugDot renders the graph topology in graphviz dot format.
	DebugDot() string
}

// Element is a single processing node.
type Element interface {
	Name() string
	Factory() string
	SetProperty(name string, value any) error
	Property(name string) (any, error)
	SetState(state State) error
	StaticPad(name string) (Pad, error)
	// RequestPad creates a new pad from the named template (e.g. "sink_%u").
	RequestPad(template string) (Pad, error)
	ReleaseRequestPad(pad Pad) error
	// Link connects a free source pad of this element to a free or
	// requested sink pad of dst.
	Link(dst Element) error
	// OnPadAdded registers fn for pads created after construction.
	// fn may be invoked from an engine-owned goroutine.
	OnPadAdded(fn func(Pad))
}

// Pad is a typed port on an element.
type Pad interface {
	Name() string
	Direction() PadDirection
	Parent() Element
	// MediaType returns the negotiated media type ("video/x-raw",
	// "audio/x-raw", ...) or "" when not yet known.
	MediaType() string
	Link(sink Pad) error
	Unlink(sink Pad) error
	IsLinked() bool
	Peer() Pad
	SetProperty(name string, value any) error
	Property(name string) (any, error)
	SetOffset(offset time.Duration)
}

// Bus delivers asynchronous graph messages.
type Bus interface {
	// Next blocks until a message is available or ctx is done.
	Next(ctx context.Context) (Message, error)
}

// Constructor opens a backend.
type Constructor func() (Engine, error)

var (
	registryMu   sync.RWMutex
	constructors = make(map[string]Constructor)
)

// Register makes a backend available under name. It panics on duplicates.
func Register(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := constructors[name]; exists {
		panic(fmt.Sprintf("engine: backend %q registered twice", name))
	}
	constructors[name] = ctor
}

// Open constructs the backend registered under name.
func Open(name string) (Engine, error) {
	registryMu.RLock()
	ctor, ok := constructors[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("engine: unknown backend %q (available: %v)", name, Available())
	}
	return ctor()
}

// Available lists registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
