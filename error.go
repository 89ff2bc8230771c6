package conductor

import (
	"errors"
	"fmt"

	"pipelined.dev/conductor/engine"
)

var (
	// ErrEndOfStream is used to mark normal termination of the stream.
	ErrEndOfStream = errors.New("end of stream")
	// ErrStateChange is returned if pipeline cannot be set to playing
	// state.
	ErrStateChange = errors.New("unable to change pipeline state")
	// ErrSessionDone is returned by controls if session loop is not
	// running anymore.
	ErrSessionDone = errors.New("session is done")
	// ErrSessionNotStarted is returned by controls called before Run.
	ErrSessionNotStarted = errors.New("session is not started")
	// ErrSessionStarted is returned if Run is called more than once.
	ErrSessionStarted = errors.New("session already started")
	// ErrSwap matches every *SwapError.
	ErrSwap = errors.New("source swap failed")
)

// noDetail is rendered when engine error has no diagnostic detail.
const noDetail = "none"

// LinkNegotiationError is returned when deferred link was attempted, but
// the engine refused it.
type LinkNegotiationError struct {
	Source string
	Pad    string
	Target string
	Caps   engine.Caps
	Err    error
}

func (e *LinkNegotiationError) Error() string {
	return fmt.Sprintf("link %s.%s (%s) -> %s: %v", e.Source, e.Pad, e.Caps, e.Target, e.Err)
}

func (e *LinkNegotiationError) Unwrap() error {
	return e.Err
}

// QueryFailure is reported when engine query didn't return a value.
type QueryFailure struct {
	Query string
}

func (e *QueryFailure) Error() string {
	return fmt.Sprintf("could not query %s", e.Query)
}

// EngineError is an error posted by the engine on the bus.
type EngineError struct {
	Source  string
	Message string
	Detail  string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("error received from element %s: %s (debugging information: %s)", e.Source, e.Message, e.DetailOrNone())
}

// DetailOrNone returns diagnostic detail or "none" if it's absent.
func (e *EngineError) DetailOrNone() string {
	if e.Detail == "" {
		return noDetail
	}
	return e.Detail
}

// SwapError is returned when source swap failed. The graph is left
// without a connected source.
type SwapError struct {
	Step  string
	Stage string
	Err   error
}

func (e *SwapError) Error() string {
	return fmt.Sprintf("swap %s: %s failed: %v", e.Stage, e.Step, e.Err)
}

func (e *SwapError) Unwrap() error {
	return e.Err
}

// Is allows to match any swap error with ErrSwap.
func (e *SwapError) Is(err error) bool {
	return err == ErrSwap
}
