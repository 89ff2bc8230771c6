// Package engine defines the contract between the orchestrator and a media
// pipeline engine. The engine owns decoding, rendering and all streaming
// threads; the orchestrator only builds graphs out of opaque elements,
// links their pads, changes states, issues queries and consumes
// notifications.
package engine

import "errors"

var (
	// ErrUnknownKind is returned when the engine has no factory for the
	// requested element kind.
	ErrUnknownKind = errors.New("unknown element kind")
	// ErrUnknownProperty is returned on get/set of a property the element
	// does not expose.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrAlreadyLinked is returned when one of the pads is already linked.
	ErrAlreadyLinked = errors.New("pad already linked")
	// ErrNoFormat is returned when pad capabilities are incompatible.
	ErrNoFormat = errors.New("no common format")
	// ErrWrongDirection is returned when a link is requested from an input
	// pad or into an output pad.
	ErrWrongDirection = errors.New("wrong pad direction")
	// ErrNotOwned is returned when an element is removed from a pipeline it
	// does not belong to.
	ErrNotOwned = errors.New("element not owned by pipeline")
	// ErrNotSeekable is returned when a seek is requested on a stream that
	// does not support it.
	ErrNotSeekable = errors.New("stream is not seekable")
)

type (
	// Engine instantiates pipelines and elements.
	Engine interface {
		NewPipeline(name string) (Pipeline, error)
		Make(kind, name string) (Element, error)
	}

	// Element is an opaque processing node. It's owned by at most one
	// pipeline.
	Element interface {
		Name() string
		Kind() string
		// StaticPad returns the pad that exists from element creation or
		// one that was already announced dynamically.
		StaticPad(name string) (Pad, bool)
		SetProperty(name string, value interface{}) error
		Property(name string) (interface{}, error)
		SetState(State) error
		State() State
		// OnPadAdded registers a callback for dynamic pads. The callback
		// may be invoked from engine streaming threads.
		OnPadAdded(PadAddedFunc)
		// Release frees engine resources. Released element must not be
		// used.
		Release()
	}

	// Pad is a typed connection point of an element.
	Pad interface {
		Name() string
		Direction() Direction
		Parent() Element
		IsLinked() bool
		// CurrentCaps returns negotiated capabilities. False is returned
		// if caps are not known yet.
		CurrentCaps() (Caps, bool)
		// Link connects this output pad to the provided input pad.
		Link(sink Pad) error
	}

	// Pipeline is the top-level element. It owns child elements, emits
	// notifications and answers time queries.
	Pipeline interface {
		Element
		Add(elements ...Element) error
		// Remove detaches the element and returns its ownership to the
		// caller.
		Remove(e Element) error
		Elements() []Element
		// Notifications returns the bus. Channel is never closed while
		// the pipeline is alive.
		Notifications() <-chan Notification
		QueryPosition() (ClockTime, bool)
		QueryDuration() (ClockTime, bool)
		QuerySeeking() (SeekRange, bool)
		Seek(target ClockTime, flags SeekFlags) error
	}

	// PadAddedFunc is called when element exposes a new pad.
	PadAddedFunc func(src Element, pad Pad)

	// Direction of the pad.
	Direction int

	// SeekRange describes seekability of the current stream.
	SeekRange struct {
		Seekable bool
		Start    ClockTime
		End      ClockTime
	}

	// SeekFlags controls seek behaviour.
	SeekFlags uint
)

// Pad directions.
const (
	Src Direction = iota
	Sink
)

// Seek flags.
const (
	// SeekFlagFlush discards all data queued in the pipeline.
	SeekFlagFlush SeekFlags = 1 << iota
	// SeekFlagKeyUnit resumes playback at the nearest key frame.
	SeekFlagKeyUnit
)

func (d Direction) String() string {
	switch d {
	case Src:
		return "src"
	case Sink:
		return "sink"
	}
	return "unknown"
}

// Has returns true if all flags in f are set.
func (s SeekFlags) Has(f SeekFlags) bool {
	return s&f == f
}
