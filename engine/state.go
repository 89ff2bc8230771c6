package engine

import (
	"fmt"
	"time"
)

// State of an element or pipeline.
type State int

// States in order of activation.
const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	}
	return "unknown"
}

// Next returns the state one step closer to target. If s is target, it
// is returned unchanged.
func (s State) Next(target State) State {
	switch {
	case s < target:
		return s + 1
	case s > target:
		return s - 1
	}
	return s
}

// ClockTime is a stream time in nanoseconds.
type ClockTime int64

const (
	// ClockTimeNone is returned when time is unknown.
	ClockTimeNone ClockTime = -1
	// Second is one second of stream time.
	Second = ClockTime(time.Second)
)

// Valid returns false for unknown time.
func (t ClockTime) Valid() bool {
	return t >= 0
}

// Duration converts stream time to time.Duration.
func (t ClockTime) Duration() time.Duration {
	return time.Duration(t)
}

// String formats time as H:MM:SS.nnnnnnnnn. Unknown time is rendered with
// dashes.
func (t ClockTime) String() string {
	if !t.Valid() {
		return "--:--:--.---------"
	}
	ns := int64(t)
	sec, rem := ns/int64(time.Second), ns%int64(time.Second)
	return fmt.Sprintf("%02d:%02d:%02d.%09d", sec/3600, sec/60%60, sec%60, rem)
}
