// Package graph builds processing graphs out of engine elements.
//
// A graph is built from a Descriptor in three steps: every stage is
// created and configured, all stages are added to the pipeline and static
// links are established in the declared order. Deferred links are only
// resolved to their endpoints: they are completed later, when the source
// stage announces a matching pad. If any step fails, everything created so
// far is released before the error is returned.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"pipelined.dev/conductor/engine"
)

var errNoPad = errors.New("pad not found")

type (
	// Graph is a built pipeline with its stages.
	Graph struct {
		Pipeline engine.Pipeline
		Deferred []Deferred
		stages   map[string]engine.Element
		order    []string
		released bool
	}

	// Deferred is a resolved deferred link.
	Deferred struct {
		Source engine.Element
		Target engine.Pad
		Accept string
	}
)

// Build instantiates the descriptor with provided engine. Returned errors
// are *StageCreationError or *StaticLinkError, except validation errors.
func Build(e engine.Engine, d Descriptor) (*Graph, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	p, err := e.NewPipeline(d.Name)
	if err != nil {
		return nil, &StageCreationError{Kind: "pipeline", Name: d.Name, Err: err}
	}
	g := &Graph{
		Pipeline: p,
		stages:   make(map[string]engine.Element, len(d.Stages)),
	}
	if err := g.build(e, d); err != nil {
		g.rollback()
		return nil, err
	}
	return g, nil
}

func (g *Graph) build(e engine.Engine, d Descriptor) error {
	created := make([]engine.Element, 0, len(d.Stages))
	for _, s := range d.Stages {
		el, err := e.Make(s.Kind, s.Name)
		if err != nil {
			releaseAll(created)
			return &StageCreationError{Kind: s.Kind, Name: s.Name, Err: err}
		}
		created = append(created, el)
		if err := setProperties(el, s.Properties); err != nil {
			releaseAll(created)
			return &StageCreationError{Kind: s.Kind, Name: s.Name, Err: err}
		}
	}
	if err := g.Pipeline.Add(created...); err != nil {
		releaseAll(created)
		return &StageCreationError{Kind: "pipeline", Name: d.Name, Err: fmt.Errorf("add stages: %w", err)}
	}
	for i, s := range d.Stages {
		g.stages[s.Name] = created[i]
		g.order = append(g.order, s.Name)
	}

	for _, l := range d.Links {
		if err := g.Link(l.From, l.To); err != nil {
			return err
		}
	}
	for _, l := range d.Deferred {
		src, ok := g.stages[l.From]
		if !ok {
			return &StaticLinkError{From: l.From, To: Endpoint(l.To, DefaultSink), Err: engine.ErrNotOwned}
		}
		target, err := g.pad(l.To, DefaultSink)
		if err != nil {
			return &StaticLinkError{From: l.From, To: Endpoint(l.To, DefaultSink), Err: err}
		}
		g.Deferred = append(g.Deferred, Deferred{Source: src, Target: target, Accept: l.Accept})
	}
	return nil
}

// Link links output pad of one stage to input pad of another. Endpoints
// are "stage" or "stage.pad".
func (g *Graph) Link(from, to string) error {
	fromEndpoint, toEndpoint := Endpoint(from, DefaultSrc), Endpoint(to, DefaultSink)
	src, err := g.pad(from, DefaultSrc)
	if err != nil {
		return &StaticLinkError{From: fromEndpoint, To: toEndpoint, Err: err}
	}
	sink, err := g.pad(to, DefaultSink)
	if err != nil {
		return &StaticLinkError{From: fromEndpoint, To: toEndpoint, Err: err}
	}
	if err := src.Link(sink); err != nil {
		return &StaticLinkError{From: fromEndpoint, To: toEndpoint, Err: err}
	}
	return nil
}

func (g *Graph) pad(ref, defaultPad string) (engine.Pad, error) {
	stage, name := splitRef(ref, defaultPad)
	el, ok := g.stages[stage]
	if !ok {
		return nil, fmt.Errorf("stage %s: %w", stage, errNoPad)
	}
	p, ok := el.StaticPad(name)
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", stage, name, errNoPad)
	}
	return p, nil
}

// Stage returns stage by name.
func (g *Graph) Stage(name string) (engine.Element, bool) {
	el, ok := g.stages[name]
	return el, ok
}

// Stages returns stage names in creation order.
func (g *Graph) Stages() []string {
	return append([]string(nil), g.order...)
}

// Detach removes the stage from the pipeline and returns its ownership to
// the caller.
func (g *Graph) Detach(name string) (engine.Element, error) {
	el, ok := g.stages[name]
	if !ok {
		return nil, fmt.Errorf("detach %s: %w", name, engine.ErrNotOwned)
	}
	if err := g.Pipeline.Remove(el); err != nil {
		return nil, fmt.Errorf("detach %s: %w", name, err)
	}
	delete(g.stages, name)
	for i := range g.order {
		if g.order[i] == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return el, nil
}

// Attach adds the stage to the pipeline. Graph takes ownership of the
// stage only if it was added.
func (g *Graph) Attach(el engine.Element) error {
	if _, ok := g.stages[el.Name()]; ok {
		return fmt.Errorf("attach %s: duplicate stage", el.Name())
	}
	if err := g.Pipeline.Add(el); err != nil {
		return fmt.Errorf("attach %s: %w", el.Name(), err)
	}
	g.stages[el.Name()] = el
	g.order = append(g.order, el.Name())
	return nil
}

// Teardown brings the pipeline to the null state and releases all stages
// and the pipeline. Consequent calls do nothing.
func (g *Graph) Teardown() error {
	if g.released {
		return nil
	}
	var errs teardownErrors
	if err := g.Pipeline.SetState(engine.StateNull); err != nil {
		errs = append(errs, fmt.Errorf("stop %s: %w", g.Pipeline.Name(), err))
	}
	if err := g.release(); err != nil {
		errs = append(errs, err)
	}
	return errs.ret()
}

// rollback releases partially built graph.
func (g *Graph) rollback() {
	_ = g.release()
}

func (g *Graph) release() error {
	var errs teardownErrors
	for _, el := range g.Pipeline.Elements() {
		if err := g.Pipeline.Remove(el); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", el.Name(), err))
		}
		el.Release()
	}
	g.stages = map[string]engine.Element{}
	g.order = nil
	g.Deferred = nil
	g.Pipeline.Release()
	g.released = true
	return errs.ret()
}

func releaseAll(els []engine.Element) {
	for _, el := range els {
		el.Release()
	}
}

// setProperties applies properties in key order.
func setProperties(el engine.Element, props map[string]interface{}) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := el.SetProperty(k, props[k]); err != nil {
			return fmt.Errorf("property %s: %w", k, err)
		}
	}
	return nil
}
