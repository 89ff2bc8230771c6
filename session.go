package conductor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/graph"
	"pipelined.dev/conductor/log"
	"pipelined.dev/conductor/metric"
)

type (
	// Session owns the graph and runs the orchestration loop.
	Session struct {
		ID     xid.ID
		engine engine.Engine
		graph  *graph.Graph
		state  *SessionState

		dispatcher *Dispatcher
		tasks      []Task

		log           logrus.FieldLogger
		metrics       *metric.Metrics
		out           io.Writer
		pollerConfig  *PollerConfig
		swapperConfig *SwapperConfig
		onStreams     func([]engine.StreamInfo)

		mutations chan mutation
		done      chan struct{}
		started   atomic.Bool
		finish    sync.Once
		closeOnce sync.Once
		closeErr  error
	}

	// mutation is applied by the loop. Error returned by apply stops the
	// loop.
	mutation func() error
)

// New creates session for built graph. Session takes ownership of the
// graph: it's released by Close.
func New(e engine.Engine, g *graph.Graph, options ...Option) (*Session, error) {
	if g == nil {
		return nil, errors.New("conductor: graph is required")
	}
	s := &Session{
		ID:        xid.New(),
		engine:    e,
		graph:     g,
		state:     NewSessionState(),
		out:       io.Discard,
		mutations: make(chan mutation),
		done:      make(chan struct{}),
	}
	for _, option := range options {
		option(s)
	}
	s.log = log.OrDiscard(s.log).WithFields(logrus.Fields{
		"session":  s.ID.String(),
		"pipeline": g.Pipeline.Name(),
	})

	s.dispatcher = NewDispatcher(g.Pipeline, s.state, s.log, s.metrics)
	s.dispatcher.OnStreams = s.onStreams
	var tasks []Task
	if s.pollerConfig != nil {
		tasks = append(tasks, NewPoller(*s.pollerConfig, g.Pipeline, s.state, s.out, s.log, s.metrics))
	}
	if s.swapperConfig != nil {
		sw, err := NewSwapper(*s.swapperConfig, e, g, s.log, s.metrics)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, sw)
	}
	s.tasks = append(tasks, s.tasks...)
	for _, t := range s.tasks {
		if t.Interval() <= 0 {
			return nil, fmt.Errorf("conductor: task %s has non-positive interval", t.Name())
		}
	}
	return s, nil
}

// Run starts the pipeline and processes notifications, pad callbacks,
// recurring tasks and controls until the stream ends, an error occurs or
// the context is done. Pipeline is always stopped before Run returns.
// Cancelled context is a normal termination.
func (s *Session) Run(ctx context.Context) (err error) {
	if !s.started.CompareAndSwap(false, true) {
		return ErrSessionStarted
	}
	p := s.graph.Pipeline
	defer func() {
		// done must be closed before the stop: engine might wait for
		// callbacks blocked on the loop.
		s.stopLoop()
		if serr := p.SetState(engine.StateNull); serr != nil {
			s.log.WithError(serr).Error("unable to stop the pipeline")
		}
		s.log.WithField("phase", s.state.Phase).Info("session finished")
	}()

	for _, d := range s.graph.Deferred {
		s.watch(d)
	}
	s.log.Info("starting pipeline")
	if err := p.SetState(engine.StatePlaying); err != nil {
		s.log.WithError(err).Error("unable to set the pipeline to the playing state")
		return fmt.Errorf("%w: set %s to %s: %w", ErrStateChange, p.Name(), engine.StatePlaying, err)
	}

	sched := newSchedule(time.Now(), s.tasks)
	defer sched.stop()
	bus := p.Notifications()
	for {
		select {
		case n := <-bus:
			if stop, err := s.dispatcher.Dispatch(n); stop {
				return err
			}
		case m := <-s.mutations:
			if err := m(); err != nil {
				return err
			}
		case now := <-sched.C():
			if err := sched.fire(ctx, now); err != nil {
				return err
			}
		case <-ctx.Done():
			s.log.Info("interrupted")
			return nil
		}
	}
}

// watch registers deferred linker on the source stage. Callbacks are
// executed in the loop.
func (s *Session) watch(d graph.Deferred) {
	linker := NewDeferredLinker(d, s.log, s.metrics)
	d.Source.OnPadAdded(func(src engine.Element, pad engine.Pad) {
		s.push(func() error {
			if _, err := linker.Link(src, pad); err != nil {
				s.log.WithError(err).Warn("deferred link not established")
			}
			return nil
		})
	})
}

// push queues mutation into the loop. It returns false if the loop is
// not started or done.
func (s *Session) push(m mutation) bool {
	if !s.started.Load() {
		return false
	}
	select {
	case s.mutations <- m:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) stopLoop() {
	s.finish.Do(func() {
		close(s.done)
	})
}

// Done is closed when the session loop exits.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close releases the graph. It must be called after Run returned or if
// Run was never called. Consequent calls return the same result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.stopLoop()
		s.closeErr = s.graph.Teardown()
	})
	return s.closeErr
}
