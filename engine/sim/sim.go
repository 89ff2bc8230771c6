// Package sim is an in-process pipeline engine. It doesn't decode or
// render anything, but behaves like a real engine from the orchestrator
// point of view: states change step by step, decoders expose pads from a
// streaming goroutine once media is probed, the clock runs while playing,
// seeks move it and the end of stream is posted when it reaches media
// duration.
//
// Remote http(s) media is simulated as a 52s webm with one video and one
// audio stream. Local wav files are probed for real.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/log"
)

type (
	// Engine creates simulated pipelines and elements.
	Engine struct {
		log      logrus.FieldLogger
		padDelay time.Duration
		tick     time.Duration
		// links guards peers of all pads.
		links sync.Mutex
	}

	// Option configures the engine.
	Option func(*Engine)

	padTemplate struct {
		name      string
		direction engine.Direction
		caps      engine.Caps
	}

	factory struct {
		pads  []padTemplate
		props map[string]interface{}
		// decoder probes uri and exposes pads per stream.
		decoder bool
		// sinks are internal: no pads are exposed.
		selfContained bool
	}
)

var (
	rawAudio = engine.NewCaps("audio/x-raw")
	rawVideo = engine.NewCaps("video/x-raw")
	anyCaps  = engine.NewCaps(engine.AnyCaps)
)

func filter(caps engine.Caps) []padTemplate {
	return []padTemplate{
		{name: "sink", direction: engine.Sink, caps: caps},
		{name: "src", direction: engine.Src, caps: caps},
	}
}

var factories = map[string]factory{
	"uridecodebin":  {decoder: true, props: map[string]interface{}{"uri": ""}},
	"playbin":       {decoder: true, selfContained: true, props: map[string]interface{}{"uri": "", "volume": 1.0}},
	"audioconvert":  {pads: filter(rawAudio)},
	"audioresample": {pads: filter(rawAudio)},
	"videoconvert":  {pads: filter(rawVideo)},
	"autoaudiosink": {pads: []padTemplate{{name: "sink", direction: engine.Sink, caps: rawAudio}}},
	"autovideosink": {pads: []padTemplate{{name: "sink", direction: engine.Sink, caps: rawVideo}}},
	"fakesink":      {pads: []padTemplate{{name: "sink", direction: engine.Sink, caps: anyCaps}}},
	"audiotestsrc": {
		pads:  []padTemplate{{name: "src", direction: engine.Src, caps: rawAudio}},
		props: map[string]interface{}{"wave": 0, "is-live": false},
	},
	"videotestsrc": {
		pads:  []padTemplate{{name: "src", direction: engine.Src, caps: rawVideo}},
		props: map[string]interface{}{"pattern": 0, "is-live": false},
	},
}

// Kinds returns supported element kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	return kinds
}

// WithLogger sets engine logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithPadDelay sets delay between preroll start and dynamic pads
// exposure.
func WithPadDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.padDelay = d
	}
}

// New returns simulated engine.
func New(options ...Option) *Engine {
	e := &Engine{
		padDelay: 20 * time.Millisecond,
		tick:     10 * time.Millisecond,
	}
	for _, option := range options {
		option(e)
	}
	e.log = log.OrDiscard(e.log).WithField("component", "sim")
	return e
}

// Make implements engine.Engine.
func (e *Engine) Make(kind, name string) (engine.Element, error) {
	f, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("make %s: %w", kind, engine.ErrUnknownKind)
	}
	return e.newElement(kind, name, f), nil
}

// NewPipeline implements engine.Engine.
func (e *Engine) NewPipeline(name string) (engine.Pipeline, error) {
	p := &Pipeline{
		element: e.newElement("pipeline", name, factory{}),
		ID:      xid.New(),
		bus:     newBus(),
		base:    0,
	}
	p.log = e.log.WithFields(logrus.Fields{"pipeline": name, "id": p.ID.String()})
	return p, nil
}

func (e *Engine) newElement(kind, name string, f factory) *element {
	el := &element{
		engine:  e,
		name:    name,
		kind:    kind,
		factory: f,
		props:   make(map[string]interface{}, len(f.props)),
	}
	for k, v := range f.props {
		el.props[k] = v
	}
	for _, t := range f.pads {
		el.pads = append(el.pads, &pad{name: t.name, direction: t.direction, caps: t.caps, parent: el})
	}
	return el
}
