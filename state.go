package conductor

import "pipelined.dev/conductor/engine"

// Phase is the lifecycle phase of the session.
type Phase int

// Phases. Error and EndOfStream are terminal.
const (
	PhaseIdle Phase = iota
	PhaseReady
	PhasePaused
	PhasePlaying
	PhaseError
	PhaseEndOfStream
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseReady:
		return "ready"
	case PhasePaused:
		return "paused"
	case PhasePlaying:
		return "playing"
	case PhaseError:
		return "error"
	case PhaseEndOfStream:
		return "end-of-stream"
	}
	return "unknown"
}

// Terminal returns true for phases that cannot be left.
func (p Phase) Terminal() bool {
	return p == PhaseError || p == PhaseEndOfStream
}

func phaseOf(s engine.State) Phase {
	switch s {
	case engine.StateReady:
		return PhaseReady
	case engine.StatePaused:
		return PhasePaused
	case engine.StatePlaying:
		return PhasePlaying
	}
	return PhaseIdle
}

// SessionState is owned by the session loop. It's mutated by dispatcher
// and poller only.
type SessionState struct {
	Phase Phase
	// Duration is ClockTimeNone if it must be queried again.
	Duration  engine.ClockTime
	Seekable  bool
	SeekStart engine.ClockTime
	SeekEnd   engine.ClockTime
	// SeekDone is set once the one-shot seek was issued.
	SeekDone bool

	seekingQueried bool
}

// NewSessionState returns idle state with unknown duration.
func NewSessionState() *SessionState {
	return &SessionState{
		Duration:  engine.ClockTimeNone,
		SeekStart: engine.ClockTimeNone,
		SeekEnd:   engine.ClockTimeNone,
	}
}

// transition moves to the phase unless current one is terminal.
func (s *SessionState) transition(p Phase) bool {
	if s.Phase.Terminal() {
		return false
	}
	s.Phase = p
	return true
}
