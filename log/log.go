package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Config defines logger settings.
type Config struct {
	Debug  bool
	Format string // "text" or "json"
	Output io.Writer
}

// New returns a new logger instance. Output defaults to stderr, stdout is
// reserved for position display.
func New(c Config) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if c.Output != nil {
		l.SetOutput(c.Output)
	}
	if c.Debug {
		l.SetLevel(logrus.DebugLevel)
	}
	switch c.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Discard returns logger that drops all entries.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// OrDiscard returns provided logger or discarding one if it's nil.
func OrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return Discard()
	}
	return l
}
