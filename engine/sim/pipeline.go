package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"pipelined.dev/conductor/engine"
)

// Pipeline is a simulated top-level element. It also implements
// engine.StreamInspector.
type Pipeline struct {
	*element
	ID  xid.ID
	log logrus.FieldLogger
	bus *bus

	// guarded by the element lock
	children  []*element
	media     map[string]media
	base      engine.ClockTime
	startedAt time.Time
	eosPosted bool
	quit      chan struct{}
	wg        sync.WaitGroup
}

// Add implements engine.Pipeline.
func (p *Pipeline) Add(elements ...engine.Element) error {
	added := make([]*element, 0, len(elements))
	for _, el := range elements {
		e, ok := el.(*element)
		if !ok {
			return fmt.Errorf("add %s: foreign element %T", el.Name(), el)
		}
		if e.name == p.name {
			return fmt.Errorf("add %s: element has the name of the pipeline", e.name)
		}
		added = append(added, e)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	names := make(map[string]struct{}, len(p.children)+len(added))
	for _, c := range p.children {
		names[c.name] = struct{}{}
	}
	for _, e := range added {
		if _, ok := names[e.name]; ok {
			return fmt.Errorf("add %s: name is not unique in %s", e.name, p.name)
		}
		names[e.name] = struct{}{}
	}
	for i, e := range added {
		if err := e.setParent(p); err != nil {
			for _, rollback := range added[:i] {
				_ = rollback.setParent(nil)
			}
			return fmt.Errorf("add %s: %w", e.name, err)
		}
	}
	p.children = append(p.children, added...)
	return nil
}

// Remove implements engine.Pipeline. All pads of the removed element are
// unlinked.
func (p *Pipeline) Remove(el engine.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.children {
		if engine.Element(c) != el {
			continue
		}
		p.children = append(p.children[:i], p.children[i+1:]...)
		_ = c.setParent(nil)
		c.unlinkAll()
		delete(p.media, c.name)
		return nil
	}
	return fmt.Errorf("remove %s from %s: %w", el.Name(), p.name, engine.ErrNotOwned)
}

// Elements implements engine.Pipeline.
func (p *Pipeline) Elements() []engine.Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	els := make([]engine.Element, 0, len(p.children))
	for _, c := range p.children {
		els = append(els, c)
	}
	return els
}

// Notifications implements engine.Pipeline.
func (p *Pipeline) Notifications() <-chan engine.Notification {
	return p.bus.out
}

// SetState implements engine.Pipeline. The pipeline and its children walk
// through every intermediate state, each step is posted on the bus.
func (p *Pipeline) SetState(target engine.State) error {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return errors.New("pipeline is released")
	}
	var stopped chan struct{}
	for p.state != target {
		next := p.state.Next(target)
		if q := p.changeLocked(next, target); q != nil {
			stopped = q
		}
	}
	p.mu.Unlock()
	if stopped != nil {
		close(stopped)
	}
	return nil
}

// changeLocked moves pipeline one state further. Streaming quit channel
// is returned if streaming must be stopped.
func (p *Pipeline) changeLocked(next, target engine.State) chan struct{} {
	old := p.state
	for _, c := range p.children {
		_ = c.SetState(next)
	}
	var stopped chan struct{}
	switch {
	case old == engine.StateReady && next == engine.StatePaused:
		p.startStreamingLocked()
	case old == engine.StatePaused && next == engine.StatePlaying:
		p.startedAt = time.Now()
	case old == engine.StatePlaying && next == engine.StatePaused:
		p.base = p.positionLocked()
	case old == engine.StatePaused && next == engine.StateReady:
		stopped = p.quit
		p.quit = nil
		for _, c := range p.children {
			c.removeDynamicPads()
		}
		p.media = nil
		p.base = 0
		p.eosPosted = false
	}
	p.state = next

	pending := target
	if next == target {
		pending = engine.StateNull
	}
	p.log.Debugf("state changed from %s to %s", old, next)
	p.bus.post(engine.StateChanged{Src: p.name, Old: old, New: next, Pending: pending})
	return stopped
}

func (p *Pipeline) startStreamingLocked() {
	var decoders []*element
	for _, c := range p.children {
		if c.factory.decoder {
			decoders = append(decoders, c)
		}
	}
	p.quit = make(chan struct{})
	p.media = make(map[string]media)
	p.wg.Add(1)
	go p.stream(p.quit, decoders)
}

// stream is the streaming goroutine: it prerolls decoders and then posts
// end of stream when the clock reaches the duration.
func (p *Pipeline) stream(quit chan struct{}, decoders []*element) {
	defer p.wg.Done()
	for _, d := range decoders {
		select {
		case <-time.After(p.engine.padDelay):
		case <-quit:
			return
		}
		m, err := probe(d.stringProp("uri"))
		if err != nil {
			var pe *probeError
			if errors.As(err, &pe) {
				p.bus.post(engine.Error{Src: d.name, Message: pe.message, Detail: pe.detail})
			}
			return
		}
		if !p.setMedia(quit, d, m) {
			return
		}
		if !d.factory.selfContained {
			for i, s := range m.streams {
				select {
				case <-quit:
					return
				default:
				}
				d.exposePad(fmt.Sprintf("src_%d", i), s.caps)
			}
		}
		p.bus.post(engine.DurationChanged{Src: d.name})
		p.bus.post(engine.Application{Src: p.name, Name: engine.TagsChanged})
	}

	ticker := time.NewTicker(p.engine.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if p.reachedEnd() {
				p.bus.post(engine.EndOfStream{Src: p.name})
			}
		case <-quit:
			return
		}
	}
}

// setMedia stores probed media unless streaming was stopped.
func (p *Pipeline) setMedia(quit chan struct{}, d *element, m media) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quit != quit {
		return false
	}
	p.media[d.name] = m
	return true
}

func (p *Pipeline) reachedEnd() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eosPosted || p.state != engine.StatePlaying || p.liveLocked() {
		return false
	}
	d := p.durationLocked()
	if !d.Valid() || p.positionLocked() < d {
		return false
	}
	p.eosPosted = true
	return true
}

func (p *Pipeline) liveLocked() bool {
	for _, c := range p.children {
		if c.boolProp("is-live") {
			return true
		}
	}
	return false
}

func (p *Pipeline) durationLocked() engine.ClockTime {
	d := engine.ClockTimeNone
	for _, m := range p.media {
		if m.duration > d {
			d = m.duration
		}
	}
	return d
}

func (p *Pipeline) positionLocked() engine.ClockTime {
	pos := p.base
	if p.state == engine.StatePlaying {
		pos += engine.ClockTime(time.Since(p.startedAt))
	}
	if d := p.durationLocked(); d.Valid() && pos > d {
		pos = d
	}
	return pos
}

// QueryPosition implements engine.Pipeline. Position is known only in
// paused and playing states.
func (p *Pipeline) QueryPosition() (engine.ClockTime, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state < engine.StatePaused {
		return engine.ClockTimeNone, false
	}
	return p.positionLocked(), true
}

// QueryDuration implements engine.Pipeline.
func (p *Pipeline) QueryDuration() (engine.ClockTime, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.liveLocked() {
		return engine.ClockTimeNone, false
	}
	d := p.durationLocked()
	return d, d.Valid()
}

// QuerySeeking implements engine.Pipeline. Live pipelines are never
// seekable.
func (p *Pipeline) QuerySeeking() (engine.SeekRange, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state < engine.StatePaused {
		return engine.SeekRange{}, false
	}
	d := p.durationLocked()
	if p.liveLocked() || !d.Valid() {
		return engine.SeekRange{Start: engine.ClockTimeNone, End: engine.ClockTimeNone}, true
	}
	return engine.SeekRange{Seekable: true, Start: 0, End: d}, true
}

// Seek implements engine.Pipeline. Key unit seeks snap to whole seconds.
func (p *Pipeline) Seek(target engine.ClockTime, flags engine.SeekFlags) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.durationLocked()
	if p.state < engine.StatePaused || p.liveLocked() || !d.Valid() {
		return engine.ErrNotSeekable
	}
	if !target.Valid() {
		return fmt.Errorf("seek to %s: invalid position", target)
	}
	if flags.Has(engine.SeekFlagKeyUnit) {
		target -= target % engine.Second
	}
	if target > d {
		target = d
	}
	p.base = target
	p.startedAt = time.Now()
	p.eosPosted = false
	p.log.WithField("flags", flags).Debugf("seek to %s", target)
	return nil
}

// Streams implements engine.StreamInspector.
func (p *Pipeline) Streams() []engine.StreamInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	var (
		streams []engine.StreamInfo
		index   = map[engine.StreamType]int{}
	)
	for _, c := range p.children {
		m, ok := p.media[c.name]
		if !ok {
			continue
		}
		for _, s := range m.streams {
			info := s.info
			info.Index = index[info.Type]
			index[info.Type]++
			streams = append(streams, info)
		}
	}
	return streams
}

// Release implements engine.Element. Streaming goroutine and bus are
// stopped, pipeline must not be used afterwards.
func (p *Pipeline) Release() {
	p.mu.Lock()
	if p.released {
		p.mu.Unlock()
		return
	}
	p.released = true
	quit := p.quit
	p.quit = nil
	p.mu.Unlock()
	if quit != nil {
		close(quit)
	}
	p.wg.Wait()
	p.bus.close()
}
