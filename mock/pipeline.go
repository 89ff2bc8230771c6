package mock

import (
	"fmt"
	"sync"

	"pipelined.dev/conductor/engine"
)

// Seek is a recorded seek call.
type Seek struct {
	Target engine.ClockTime
	Flags  engine.SeekFlags
}

// Pipeline mocks engine.Pipeline. Queries are scripted: Positions are
// returned one per call and the last one is repeated; ClockTimeNone means
// the query fails.
type Pipeline struct {
	*Element
	mu       sync.Mutex
	children []engine.Element
	bus      chan engine.Notification

	Positions []engine.ClockTime
	Duration  engine.ClockTime
	Seeking   engine.SeekRange
	// SeekingFails makes seeking query fail.
	SeekingFails bool
	StreamInfo   []engine.StreamInfo

	PositionQueries int
	DurationQueries int
	SeekingQueries  int
	Seeks           []Seek

	ErrorOnAdd    error
	ErrorOnRemove error
	ErrorOnSeek   error
}

// NewPipeline returns empty pipeline with unknown duration.
func NewPipeline(name string) *Pipeline {
	return &Pipeline{
		Element:  NewElement("pipeline", name),
		bus:      make(chan engine.Notification, 64),
		Duration: engine.ClockTimeNone,
	}
}

// Add implements engine.Pipeline.
func (p *Pipeline) Add(elements ...engine.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ErrorOnAdd != nil {
		return p.ErrorOnAdd
	}
	p.children = append(p.children, elements...)
	return nil
}

// Remove implements engine.Pipeline. Pads of removed element are unlinked.
func (p *Pipeline) Remove(e engine.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ErrorOnRemove != nil {
		return p.ErrorOnRemove
	}
	for i := range p.children {
		if p.children[i] != e {
			continue
		}
		p.children = append(p.children[:i], p.children[i+1:]...)
		if el, ok := e.(*Element); ok {
			el.mu.Lock()
			pads := append([]*Pad(nil), el.pads...)
			el.mu.Unlock()
			for _, pad := range pads {
				pad.Unlink()
			}
		}
		return nil
	}
	return fmt.Errorf("remove %s: %w", e.Name(), engine.ErrNotOwned)
}

// Elements implements engine.Pipeline.
func (p *Pipeline) Elements() []engine.Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]engine.Element(nil), p.children...)
}

// Notifications implements engine.Pipeline.
func (p *Pipeline) Notifications() <-chan engine.Notification {
	return p.bus
}

// Post puts notification on the bus.
func (p *Pipeline) Post(n ...engine.Notification) {
	for i := range n {
		p.bus <- n[i]
	}
}

// QueryPosition implements engine.Pipeline.
func (p *Pipeline) QueryPosition() (engine.ClockTime, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PositionQueries++
	if len(p.Positions) == 0 {
		return engine.ClockTimeNone, false
	}
	pos := p.Positions[0]
	if len(p.Positions) > 1 {
		p.Positions = p.Positions[1:]
	}
	return pos, pos.Valid()
}

// QueryDuration implements engine.Pipeline.
func (p *Pipeline) QueryDuration() (engine.ClockTime, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DurationQueries++
	return p.Duration, p.Duration.Valid()
}

// QuerySeeking implements engine.Pipeline.
func (p *Pipeline) QuerySeeking() (engine.SeekRange, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SeekingQueries++
	if p.SeekingFails {
		return engine.SeekRange{}, false
	}
	return p.Seeking, true
}

// Seek implements engine.Pipeline.
func (p *Pipeline) Seek(target engine.ClockTime, flags engine.SeekFlags) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Seeks = append(p.Seeks, Seek{Target: target, Flags: flags})
	return p.ErrorOnSeek
}

// Streams implements engine.StreamInspector.
func (p *Pipeline) Streams() []engine.StreamInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]engine.StreamInfo(nil), p.StreamInfo...)
}

// Counters returns query counters.
func (p *Pipeline) Counters() (position, duration, seeking int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PositionQueries, p.DurationQueries, p.SeekingQueries
}

// SeekCalls returns recorded seeks.
func (p *Pipeline) SeekCalls() []Seek {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Seek(nil), p.Seeks...)
}
