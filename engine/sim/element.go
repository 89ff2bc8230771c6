package sim

import (
	"fmt"
	"reflect"
	"sync"

	"pipelined.dev/conductor/engine"
)

type element struct {
	mu       sync.Mutex
	engine   *Engine
	name     string
	kind     string
	factory  factory
	props    map[string]interface{}
	pads     []*pad
	state    engine.State
	handlers []engine.PadAddedFunc
	parent   *Pipeline
	released bool
}

func (e *element) Name() string { return e.name }

func (e *element) Kind() string { return e.kind }

func (e *element) StaticPad(name string) (engine.Pad, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.pads {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

func (e *element) SetProperty(name string, value interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	current, ok := e.props[name]
	if !ok {
		return fmt.Errorf("%s: set %s: %w", e.name, name, engine.ErrUnknownProperty)
	}
	v, err := coerce(current, value)
	if err != nil {
		return fmt.Errorf("%s: set %s: %w", e.name, name, err)
	}
	e.props[name] = v
	return nil
}

func (e *element) Property(name string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.props[name]
	if !ok {
		return nil, fmt.Errorf("%s: get %s: %w", e.name, name, engine.ErrUnknownProperty)
	}
	return v, nil
}

// SetState changes state of a single element. Elements inside a pipeline
// change their state together with it.
func (e *element) SetState(s engine.State) error {
	e.mu.Lock()
	old := e.state
	e.state = s
	parent := e.parent
	e.mu.Unlock()
	if parent != nil && old != s {
		parent.bus.post(engine.StateChanged{Src: e.name, Old: old, New: s, Pending: engine.StateNull})
	}
	return nil
}

func (e *element) State() engine.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *element) OnPadAdded(fn engine.PadAddedFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, fn)
}

func (e *element) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.released = true
	e.handlers = nil
}

func (e *element) boolProp(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, _ := e.props[name].(bool)
	return v
}

func (e *element) stringProp(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, _ := e.props[name].(string)
	return v
}

// exposePad adds dynamic output pad and invokes callbacks without holding
// the lock.
func (e *element) exposePad(name string, caps engine.Caps) *pad {
	e.mu.Lock()
	p := &pad{name: name, direction: engine.Src, caps: caps, parent: e, dynamic: true}
	e.pads = append(e.pads, p)
	handlers := append([]engine.PadAddedFunc(nil), e.handlers...)
	e.mu.Unlock()
	for _, fn := range handlers {
		fn(e, p)
	}
	return p
}

// removeDynamicPads drops pads exposed by the streaming goroutine.
func (e *element) removeDynamicPads() {
	e.mu.Lock()
	var static, dynamic []*pad
	for _, p := range e.pads {
		if p.dynamic {
			dynamic = append(dynamic, p)
		} else {
			static = append(static, p)
		}
	}
	e.pads = static
	e.mu.Unlock()
	for _, p := range dynamic {
		p.unlink()
	}
}

func (e *element) unlinkAll() {
	e.mu.Lock()
	pads := append([]*pad(nil), e.pads...)
	e.mu.Unlock()
	for _, p := range pads {
		p.unlink()
	}
}

func (e *element) setParent(p *Pipeline) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p != nil && e.parent != nil {
		return fmt.Errorf("%s already belongs to %s", e.name, e.parent.name)
	}
	e.parent = p
	return nil
}

func (e *element) getParent() *Pipeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parent
}

// coerce converts value to the type of current property value.
func coerce(current, value interface{}) (interface{}, error) {
	switch current.(type) {
	case string:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case bool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case int:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return int(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int(rv.Uint()), nil
		}
	case float64:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return rv.Float(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), nil
		}
	}
	return nil, fmt.Errorf("invalid value %v of type %T, expected %T", value, value, current)
}

type pad struct {
	name      string
	direction engine.Direction
	caps      engine.Caps
	parent    *element
	dynamic   bool
	peer      *pad
}

func (p *pad) Name() string { return p.name }

func (p *pad) Direction() engine.Direction { return p.direction }

func (p *pad) Parent() engine.Element { return p.parent }

func (p *pad) IsLinked() bool {
	p.parent.engine.links.Lock()
	defer p.parent.engine.links.Unlock()
	return p.peer != nil
}

// CurrentCaps returns stream caps for dynamic pads and template caps for
// static ones. Template ANY is unknown until linked.
func (p *pad) CurrentCaps() (engine.Caps, bool) {
	if p.caps.Name == engine.AnyCaps {
		p.parent.engine.links.Lock()
		defer p.parent.engine.links.Unlock()
		if p.peer == nil {
			return engine.Caps{}, false
		}
		return p.peer.caps, true
	}
	return p.caps, true
}

func (p *pad) Link(sink engine.Pad) error {
	s, ok := sink.(*pad)
	if !ok {
		return fmt.Errorf("link %s: foreign pad %T", p.name, sink)
	}
	if p.direction != engine.Src || s.direction != engine.Sink {
		return fmt.Errorf("link %s.%s -> %s.%s: %w", p.parent.name, p.name, s.parent.name, s.name, engine.ErrWrongDirection)
	}
	if pp := p.parent.getParent(); pp == nil || pp != s.parent.getParent() {
		return fmt.Errorf("link %s -> %s: no common pipeline: %w", p.parent.name, s.parent.name, engine.ErrNotOwned)
	}
	if !s.caps.Accepts(p.caps) {
		return fmt.Errorf("link %s.%s (%s) -> %s.%s (%s): %w", p.parent.name, p.name, p.caps, s.parent.name, s.name, s.caps, engine.ErrNoFormat)
	}

	links := &p.parent.engine.links
	links.Lock()
	defer links.Unlock()
	if p.peer != nil || s.peer != nil {
		return engine.ErrAlreadyLinked
	}
	p.peer, s.peer = s, p
	return nil
}

func (p *pad) unlink() {
	links := &p.parent.engine.links
	links.Lock()
	defer links.Unlock()
	if p.peer != nil {
		p.peer.peer = nil
		p.peer = nil
	}
}
