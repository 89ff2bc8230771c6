// Package mock provides a recording pipeline engine for tests.
package mock

import (
	"fmt"
	"sync"

	"pipelined.dev/conductor/engine"
)

// PadSpec describes a static pad created with the element.
type PadSpec struct {
	Name      string
	Direction engine.Direction
	Caps      *engine.Caps
}

// Engine mocks engine.Engine. Elements get "src" and "sink" static pads
// unless Pads has an entry for their kind.
type Engine struct {
	mu sync.Mutex
	// Pads overrides static pads per kind.
	Pads map[string][]PadSpec
	// ErrorOnMake fails Make for the kind.
	ErrorOnMake map[string]error
	// ErrorOnMakeAfter fails Make for the kind once it was called that
	// many times.
	ErrorOnMakeAfter map[string]int
	// ErrorOnLink fails links between elements, key is "src->sink".
	ErrorOnLink map[string]error
	// ErrorOnPipeline fails NewPipeline.
	ErrorOnPipeline error

	made      map[string]int
	Elements  []*Element
	Pipelines []*Pipeline
}

// NewPipeline implements engine.Engine.
func (e *Engine) NewPipeline(name string) (engine.Pipeline, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ErrorOnPipeline != nil {
		return nil, e.ErrorOnPipeline
	}
	p := NewPipeline(name)
	p.engine = e
	e.Pipelines = append(e.Pipelines, p)
	return p, nil
}

// Make implements engine.Engine.
func (e *Engine) Make(kind, name string) (engine.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ErrorOnMake[kind]; err != nil {
		return nil, err
	}
	if e.made == nil {
		e.made = make(map[string]int)
	}
	if limit, ok := e.ErrorOnMakeAfter[kind]; ok && e.made[kind] >= limit {
		return nil, fmt.Errorf("make %s: %w", kind, engine.ErrUnknownKind)
	}
	e.made[kind]++

	specs, ok := e.Pads[kind]
	if !ok {
		specs = []PadSpec{{Name: "src", Direction: engine.Src}, {Name: "sink", Direction: engine.Sink}}
	}
	el := NewElement(kind, name)
	el.engine = e
	for _, s := range specs {
		el.AddPad(s.Name, s.Direction, s.Caps)
	}
	e.Elements = append(e.Elements, el)
	return el, nil
}

// Made returns elements of the kind in creation order.
func (e *Engine) Made(kind string) []*Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	var els []*Element
	for _, el := range e.Elements {
		if el.kind == kind {
			els = append(els, el)
		}
	}
	return els
}

func (e *Engine) linkError(src, sink string) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ErrorOnLink[src+"->"+sink]
}

// Element mocks engine.Element.
type Element struct {
	mu       sync.Mutex
	engine   *Engine
	name     string
	kind     string
	pads     []*Pad
	props    map[string]interface{}
	state    engine.State
	handlers []engine.PadAddedFunc

	// States records every requested state.
	States   []engine.State
	Released bool

	ErrorOnSetState error
	ErrorOnProperty error
}

// NewElement returns element without pads.
func NewElement(kind, name string) *Element {
	return &Element{
		kind:  kind,
		name:  name,
		props: make(map[string]interface{}),
	}
}

// Name implements engine.Element.
func (e *Element) Name() string { return e.name }

// Kind implements engine.Element.
func (e *Element) Kind() string { return e.kind }

// AddPad adds pad without announcing it.
func (e *Element) AddPad(name string, d engine.Direction, caps *engine.Caps) *Pad {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := &Pad{name: name, direction: d, parent: e}
	if caps != nil {
		c := *caps
		p.caps = &c
	}
	e.pads = append(e.pads, p)
	return p
}

// EmitPadAdded adds a new pad and synchronously invokes registered
// callbacks.
func (e *Element) EmitPadAdded(name string, caps *engine.Caps) *Pad {
	p := e.AddPad(name, engine.Src, caps)
	e.mu.Lock()
	handlers := append([]engine.PadAddedFunc(nil), e.handlers...)
	e.mu.Unlock()
	for _, fn := range handlers {
		fn(e, p)
	}
	return p
}

// StaticPad implements engine.Element.
func (e *Element) StaticPad(name string) (engine.Pad, bool) {
	p := e.Pad(name)
	if p == nil {
		return nil, false
	}
	return p, true
}

// Pad returns mock pad by name.
func (e *Element) Pad(name string) *Pad {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.pads {
		if p.name == name {
			return p
		}
	}
	return nil
}

// SetProperty implements engine.Element.
func (e *Element) SetProperty(name string, value interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ErrorOnProperty != nil {
		return e.ErrorOnProperty
	}
	e.props[name] = value
	return nil
}

// Property implements engine.Element.
func (e *Element) Property(name string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.props[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, engine.ErrUnknownProperty)
	}
	return v, nil
}

// SetState implements engine.Element.
func (e *Element) SetState(s engine.State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.States = append(e.States, s)
	if e.ErrorOnSetState != nil {
		return e.ErrorOnSetState
	}
	e.state = s
	return nil
}

// State implements engine.Element.
func (e *Element) State() engine.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// OnPadAdded implements engine.Element.
func (e *Element) OnPadAdded(fn engine.PadAddedFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, fn)
}

// Handlers returns number of registered pad-added callbacks.
func (e *Element) Handlers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

// Release implements engine.Element.
func (e *Element) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Released = true
}

// IsReleased reports whether Release was called.
func (e *Element) IsReleased() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Released
}

// Pad mocks engine.Pad.
type Pad struct {
	mu        sync.Mutex
	name      string
	direction engine.Direction
	parent    *Element
	caps      *engine.Caps
	peer      *Pad
	// Links counts successful links.
	Links       int
	ErrorOnLink error
}

// Name implements engine.Pad.
func (p *Pad) Name() string { return p.name }

// Direction implements engine.Pad.
func (p *Pad) Direction() engine.Direction { return p.direction }

// Parent implements engine.Pad.
func (p *Pad) Parent() engine.Element { return p.parent }

// IsLinked implements engine.Pad.
func (p *Pad) IsLinked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peer != nil
}

// Peer returns linked pad.
func (p *Pad) Peer() *Pad {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peer
}

// CurrentCaps implements engine.Pad.
func (p *Pad) CurrentCaps() (engine.Caps, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.caps == nil {
		return engine.Caps{}, false
	}
	return *p.caps, true
}

// Link implements engine.Pad.
func (p *Pad) Link(sink engine.Pad) error {
	s, ok := sink.(*Pad)
	if !ok {
		return fmt.Errorf("link %s: foreign pad %T", p.name, sink)
	}
	if p.direction != engine.Src || s.direction != engine.Sink {
		return engine.ErrWrongDirection
	}
	if p.ErrorOnLink != nil {
		return p.ErrorOnLink
	}
	if err := p.parent.engine.linkError(p.parent.name, s.parent.name); err != nil {
		return err
	}
	if p.IsLinked() || s.IsLinked() {
		return engine.ErrAlreadyLinked
	}
	p.mu.Lock()
	p.peer = s
	p.Links++
	p.mu.Unlock()
	s.mu.Lock()
	s.peer = p
	s.Links++
	s.mu.Unlock()
	return nil
}

// Unlink breaks the link of the pad.
func (p *Pad) Unlink() {
	p.mu.Lock()
	peer := p.peer
	p.peer = nil
	p.mu.Unlock()
	if peer != nil {
		peer.mu.Lock()
		peer.peer = nil
		peer.mu.Unlock()
	}
}
