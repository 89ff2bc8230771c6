package conductor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/log"
	"pipelined.dev/conductor/metric"
)

// PollerConfig defines poll interval and one-shot seek.
type PollerConfig struct {
	Interval time.Duration
	// Seek is issued once position exceeds Threshold.
	Threshold time.Duration
	Target    time.Duration
}

// DefaultPollerConfig polls every 100ms and seeks to 30s after 10s of
// playback.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:  100 * time.Millisecond,
		Threshold: 10 * time.Second,
		Target:    30 * time.Second,
	}
}

// Poller displays playback position and issues one seek per session.
type Poller struct {
	cfg      PollerConfig
	pipeline engine.Pipeline
	state    *SessionState
	out      io.Writer
	log      logrus.FieldLogger
	metrics  *metric.Metrics
}

// NewPoller returns poller task. Position line is written to out.
func NewPoller(cfg PollerConfig, p engine.Pipeline, st *SessionState, out io.Writer, l logrus.FieldLogger, m *metric.Metrics) *Poller {
	if out == nil {
		out = io.Discard
	}
	return &Poller{
		cfg:      cfg,
		pipeline: p,
		state:    st,
		out:      out,
		log:      log.OrDiscard(l).WithField("component", "poller"),
		metrics:  m,
	}
}

// Name implements Task.
func (p *Poller) Name() string { return "poller" }

// Interval implements Task.
func (p *Poller) Interval() time.Duration { return p.cfg.Interval }

// Fire implements Task. Query and seek failures are logged, the returned
// error is always nil.
func (p *Poller) Fire(context.Context) error {
	if p.state.Phase != PhasePlaying {
		return nil
	}

	pos, ok := p.pipeline.QueryPosition()
	if !ok {
		pos = engine.ClockTimeNone
		p.failed(metric.PositionQuery)
	}
	if !p.state.Duration.Valid() {
		d, ok := p.pipeline.QueryDuration()
		if !ok {
			d = engine.ClockTimeNone
			p.failed(metric.DurationQuery)
		}
		p.state.Duration = d
	}
	fmt.Fprintf(p.out, "Position %s / %s \r", pos, p.state.Duration)

	threshold := engine.ClockTime(p.cfg.Threshold)
	if p.state.Seekable && !p.state.SeekDone && pos.Valid() && pos > threshold {
		p.seek()
	}
	return nil
}

func (p *Poller) seek() {
	target := engine.ClockTime(p.cfg.Target)
	p.log.Infof("reached %s, performing seek to %s", p.cfg.Threshold, p.cfg.Target)
	// seek is one-shot even if it was refused.
	p.state.SeekDone = true
	if err := p.pipeline.Seek(target, engine.SeekFlagFlush|engine.SeekFlagKeyUnit); err != nil {
		p.metrics.QueryFailure(metric.SeekCommand)
		p.log.WithError(err).Warn("seek failed")
		return
	}
	p.metrics.Seek()
}

func (p *Poller) failed(query string) {
	p.metrics.QueryFailure(query)
	p.log.WithError(&QueryFailure{Query: query}).Warn("query failed")
}
