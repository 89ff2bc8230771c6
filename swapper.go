package conductor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/graph"
	"pipelined.dev/conductor/log"
	"pipelined.dev/conductor/metric"
)

// SwapperConfig defines which source is swapped and how its configuration
// rotates.
type SwapperConfig struct {
	Interval time.Duration
	// Source is the name of swapped stage. Kind defaults to the kind of
	// the current source.
	Source string
	Kind   string
	// Sink is the endpoint the source is linked to, "stage" or
	// "stage.pad".
	Sink string
	// Property is set to the rotating index, it wraps to 0 at Modulus.
	Property string
	Modulus  int
}

// DefaultSwapperConfig rotates test source pattern every second.
func DefaultSwapperConfig() SwapperConfig {
	return SwapperConfig{
		Interval: time.Second,
		Source:   "source",
		Kind:     "videotestsrc",
		Sink:     "sink",
		Property: "pattern",
		Modulus:  26,
	}
}

// Swapper replaces live source stage with a new one on every firing.
type Swapper struct {
	cfg     SwapperConfig
	engine  engine.Engine
	graph   *graph.Graph
	index   int
	log     logrus.FieldLogger
	metrics *metric.Metrics
}

// NewSwapper returns swapper task. Rotation starts from index 0.
func NewSwapper(cfg SwapperConfig, e engine.Engine, g *graph.Graph, l logrus.FieldLogger, m *metric.Metrics) (*Swapper, error) {
	if cfg.Modulus <= 0 {
		return nil, fmt.Errorf("swapper: modulus must be positive, got %d", cfg.Modulus)
	}
	if cfg.Kind == "" {
		src, ok := g.Stage(cfg.Source)
		if !ok {
			return nil, fmt.Errorf("swapper: source %s not found and kind is not set", cfg.Source)
		}
		cfg.Kind = src.Kind()
	}
	return &Swapper{
		cfg:     cfg,
		engine:  e,
		graph:   g,
		log:     log.OrDiscard(l).WithField("component", "swapper"),
		metrics: m,
	}, nil
}

// Name implements Task.
func (s *Swapper) Name() string { return "swapper" }

// Interval implements Task.
func (s *Swapper) Interval() time.Duration { return s.cfg.Interval }

// Index returns current rotation index.
func (s *Swapper) Index() int { return s.index }

// Fire implements Task. Any failure is returned as *SwapError.
func (s *Swapper) Fire(context.Context) error {
	name := s.cfg.Source
	if old, ok := s.graph.Stage(name); ok {
		if err := old.SetState(engine.StateNull); err != nil {
			return s.fail("stop", err)
		}
		if _, err := s.graph.Detach(name); err != nil {
			return s.fail("detach", err)
		}
		old.Release()
	}

	next := (s.index + 1) % s.cfg.Modulus
	src, err := s.engine.Make(s.cfg.Kind, name)
	if err != nil {
		return s.fail("create", err)
	}
	if err := s.configure(src, next); err != nil {
		src.Release()
		return s.fail("configure", err)
	}
	if err := s.graph.Attach(src); err != nil {
		src.Release()
		return s.fail("attach", err)
	}
	if err := s.graph.Link(name, s.cfg.Sink); err != nil {
		return s.fail("link", err)
	}
	if err := src.SetState(engine.StatePlaying); err != nil {
		return s.fail("start", err)
	}
	s.index = next
	s.metrics.Swap()
	s.log.Debugf("source swapped, %s=%d", s.cfg.Property, next)
	return nil
}

func (s *Swapper) configure(src engine.Element, index int) error {
	if err := src.SetProperty(s.cfg.Property, index); err != nil {
		return err
	}
	return src.SetProperty("is-live", true)
}

func (s *Swapper) fail(step string, err error) error {
	s.log.WithError(err).Errorf("source swap failed at %s", step)
	return &SwapError{Step: step, Stage: s.cfg.Source, Err: err}
}
