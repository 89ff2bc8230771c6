package conductor

import (
	"io"

	"github.com/sirupsen/logrus"

	"pipelined.dev/conductor/engine"
	"pipelined.dev/conductor/metric"
)

// Option configures the session.
type Option func(*Session)

// WithLogger sets logger to the session. If this option is not provided,
// silent logger is used.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithMetrics enables metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithOutput sets writer for position display.
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		s.out = w
	}
}

// WithPoller enables position poller.
func WithPoller(c PollerConfig) Option {
	return func(s *Session) {
		s.pollerConfig = &c
	}
}

// WithSwapper enables source swapper.
func WithSwapper(c SwapperConfig) Option {
	return func(s *Session) {
		s.swapperConfig = &c
	}
}

// WithTask adds custom recurring tasks.
func WithTask(tasks ...Task) Option {
	return func(s *Session) {
		s.tasks = append(s.tasks, tasks...)
	}
}

// WithStreamHandler sets function that receives stream analysis.
func WithStreamHandler(fn func([]engine.StreamInfo)) Option {
	return func(s *Session) {
		s.onStreams = fn
	}
}
