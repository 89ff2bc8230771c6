package conductor

import (
	"fmt"

	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/metric"
)

// Play sends a play event into session loop. Returned channel receives
// the result once the event is applied and then is closed. Controls called
// before Run receive ErrSessionNotStarted, after the loop exited
// ErrSessionDone.
func (s *Session) Play() chan error {
	return s.control(func() error {
		return s.setState(engine.StatePlaying)
	})
}

// Pause sends a pause event into session loop.
func (s *Session) Pause() chan error {
	return s.control(func() error {
		return s.setState(engine.StatePaused)
	})
}

// Stop sends a stop event into session loop. The pipeline is set to ready
// state, so it can be played again.
func (s *Session) Stop() chan error {
	return s.control(func() error {
		return s.setState(engine.StateReady)
	})
}

// Seek sends a flushing key-unit seek into session loop.
func (s *Session) Seek(target engine.ClockTime) chan error {
	return s.control(func() error {
		if !s.state.Seekable {
			return engine.ErrNotSeekable
		}
		if err := s.graph.Pipeline.Seek(target, engine.SeekFlagFlush|engine.SeekFlagKeyUnit); err != nil {
			s.metrics.QueryFailure(metric.SeekCommand)
			return fmt.Errorf("seek to %s: %w", target, err)
		}
		s.metrics.Seek()
		return nil
	})
}

// State returns a copy of the session state. While the loop is running it
// is read by the loop itself, before Run and after it returned the state is
// read directly.
func (s *Session) State() SessionState {
	var st SessionState
	if s.push(func() error {
		st = *s.state
		return nil
	}) {
		return st
	}
	return *s.state
}

// Wait for control to be applied.
func Wait(errc chan error) error {
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

// control queues fn into the loop. Errors of controls are returned to the
// caller and never stop the loop.
func (s *Session) control(fn func() error) chan error {
	errc := make(chan error, 1)
	ok := s.push(func() error {
		errc <- fn()
		close(errc)
		return nil
	})
	if !ok {
		if s.started.Load() {
			errc <- ErrSessionDone
		} else {
			errc <- ErrSessionNotStarted
		}
		close(errc)
	}
	return errc
}

func (s *Session) setState(st engine.State) error {
	if s.state.Phase.Terminal() {
		return fmt.Errorf("set %s: session is in %s phase", st, s.state.Phase)
	}
	if err := s.graph.Pipeline.SetState(st); err != nil {
		return fmt.Errorf("%w: set %s to %s: %w", ErrStateChange, s.graph.Pipeline.Name(), st, err)
	}
	s.log.Infof("pipeline state requested: %s", st)
	return nil
}
