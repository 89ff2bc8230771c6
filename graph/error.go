package graph

import (
	"fmt"
	"strings"
)

// StageCreationError is returned when the engine cannot instantiate a
// stage or the pipeline itself.
type StageCreationError struct {
	Kind string
	Name string
	Err  error
}

func (e *StageCreationError) Error() string {
	return fmt.Sprintf("create stage %s (%s): %v", e.Name, e.Kind, e.Err)
}

func (e *StageCreationError) Unwrap() error {
	return e.Err
}

// StaticLinkError is returned when a static link cannot be negotiated.
type StaticLinkError struct {
	From string
	To   string
	Err  error
}

func (e *StaticLinkError) Error() string {
	return fmt.Sprintf("link %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *StaticLinkError) Unwrap() error {
	return e.Err
}

// teardownErrors wraps errors that occur while releasing multiple
// stages.
type teardownErrors []error

func (e teardownErrors) Error() string {
	s := make([]string, 0, len(e))
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

// ret returns untyped nil if error list is empty.
func (e teardownErrors) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
