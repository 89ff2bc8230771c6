package conductor

import (
	"github.com/sirupsen/logrus"

	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/graph"
	"pipelined.dev/conductor/log"
	"pipelined.dev/conductor/metric"
)

// Outcome of deferred link attempt.
type Outcome int

// Deferred link outcomes.
const (
	Linked Outcome = iota
	AlreadyLinked
	Rejected
	NegotiationFailed
)

func (o Outcome) String() string {
	switch o {
	case Linked:
		return metric.Linked
	case AlreadyLinked:
		return metric.AlreadyLinked
	case Rejected:
		return metric.CapsRejected
	case NegotiationFailed:
		return metric.NegotiationError
	}
	return "unknown"
}

// DeferredLinker completes a deferred link when the source stage exposes
// a pad with accepted caps. The target pad is linked at most once, all
// other announced pads are ignored.
type DeferredLinker struct {
	target  engine.Pad
	accept  string
	log     logrus.FieldLogger
	metrics *metric.Metrics
}

// NewDeferredLinker returns linker for resolved deferred link. Logger and
// metrics are optional.
func NewDeferredLinker(d graph.Deferred, l logrus.FieldLogger, m *metric.Metrics) *DeferredLinker {
	return &DeferredLinker{
		target:  d.Target,
		accept:  d.Accept,
		log:     log.OrDiscard(l).WithField("component", "linker"),
		metrics: m,
	}
}

// Link handles the pad announced by src. Only *LinkNegotiationError is
// returned and it's recoverable.
func (dl *DeferredLinker) Link(src engine.Element, pad engine.Pad) (Outcome, error) {
	o, err := dl.link(src, pad)
	dl.metrics.LinkDecision(o.String())
	return o, err
}

func (dl *DeferredLinker) link(src engine.Element, pad engine.Pad) (Outcome, error) {
	l := dl.log.WithFields(logrus.Fields{
		"source": src.Name(),
		"pad":    pad.Name(),
	})
	l.Infof("received new pad '%s' from '%s'", pad.Name(), src.Name())

	if dl.target.IsLinked() {
		l.Info("target is already linked, ignoring")
		return AlreadyLinked, nil
	}
	if pad.Direction() != engine.Src {
		l.Info("pad is not an output, ignoring")
		return Rejected, nil
	}
	caps, ok := pad.CurrentCaps()
	if !ok {
		l.Info("pad has no caps, ignoring")
		return Rejected, nil
	}
	if !caps.HasPrefix(dl.accept) {
		l.Infof("it has type '%s' which is not %s, ignoring", caps.Name, dl.accept)
		return Rejected, nil
	}

	if err := pad.Link(dl.target); err != nil {
		l.WithError(err).Warnf("type is '%s' but link failed", caps.Name)
		return NegotiationFailed, &LinkNegotiationError{
			Source: src.Name(),
			Pad:    pad.Name(),
			Target: dl.targetName(),
			Caps:   caps,
			Err:    err,
		}
	}
	l.Infof("link succeeded (type '%s')", caps.Name)
	return Linked, nil
}

func (dl *DeferredLinker) targetName() string {
	if p := dl.target.Parent(); p != nil {
		return p.Name() + "." + dl.target.Name()
	}
	return dl.target.Name()
}
