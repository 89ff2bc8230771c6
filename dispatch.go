package conductor

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/log"
	"pipelined.dev/conductor/metric"
)

// Dispatcher applies bus notifications to the session state. It's not
// safe for concurrent use: notifications must be dispatched one by one in
// arrival order.
type Dispatcher struct {
	pipeline engine.Pipeline
	state    *SessionState
	log      logrus.FieldLogger
	metrics  *metric.Metrics
	// OnStreams is called with stream analysis results.
	OnStreams func([]engine.StreamInfo)
}

// NewDispatcher returns dispatcher for pipeline notifications. Logger and
// metrics are optional.
func NewDispatcher(p engine.Pipeline, st *SessionState, l logrus.FieldLogger, m *metric.Metrics) *Dispatcher {
	return &Dispatcher{
		pipeline: p,
		state:    st,
		log:      log.OrDiscard(l).WithField("component", "dispatcher"),
		metrics:  m,
	}
}

// Dispatch handles a single notification. Stop is true if the session
// loop must exit, error is non-nil only for engine errors.
func (d *Dispatcher) Dispatch(n engine.Notification) (stop bool, err error) {
	d.metrics.Notification(engine.Kind(n))
	switch m := n.(type) {
	case engine.StateChanged:
		d.stateChanged(m)
	case engine.DurationChanged:
		d.state.Duration = engine.ClockTimeNone
	case engine.Error:
		d.state.transition(PhaseError)
		err := &EngineError{Source: m.Src, Message: m.Message, Detail: m.Detail}
		d.log.WithFields(logrus.Fields{
			"source": m.Src,
			"detail": err.DetailOrNone(),
		}).Errorf("error received from element %s: %s", m.Src, m.Message)
		return true, err
	case engine.EndOfStream:
		d.state.transition(PhaseEndOfStream)
		d.log.Info("end-of-stream reached")
		return true, nil
	case engine.Application:
		if m.Name == engine.TagsChanged {
			d.analyze()
			return false, nil
		}
		d.unexpected(n)
	default:
		d.unexpected(n)
	}
	return false, nil
}

func (d *Dispatcher) stateChanged(m engine.StateChanged) {
	// children state changes are not relevant for the session.
	if m.Src != d.pipeline.Name() {
		return
	}
	if !d.state.transition(phaseOf(m.New)) {
		return
	}
	d.log.Infof("pipeline state changed from %s to %s", m.Old, m.New)
	if m.New == engine.StatePlaying && !d.state.seekingQueried {
		d.state.seekingQueried = true
		d.querySeeking()
	}
}

func (d *Dispatcher) querySeeking() {
	r, ok := d.pipeline.QuerySeeking()
	if !ok {
		d.metrics.QueryFailure(metric.SeekingQuery)
		d.log.WithError(&QueryFailure{Query: metric.SeekingQuery}).Warn("seeking query failed")
		return
	}
	d.state.Seekable = r.Seekable
	d.state.SeekStart, d.state.SeekEnd = r.Start, r.End
	if r.Seekable {
		d.log.Infof("seeking is ENABLED from %s to %s", r.Start, r.End)
		return
	}
	d.log.Info("seeking is DISABLED for this stream")
}

func (d *Dispatcher) analyze() {
	insp, ok := d.pipeline.(engine.StreamInspector)
	if !ok {
		d.log.Debug("pipeline doesn't support stream analysis")
		return
	}
	streams := insp.Streams()
	d.log.WithField("streams", len(streams)).Info("stream tags changed")
	if d.OnStreams != nil {
		d.OnStreams(streams)
	}
}

func (d *Dispatcher) unexpected(n engine.Notification) {
	d.log.Debugf("unexpected notification received:\n%s", spew.Sdump(n))
}
