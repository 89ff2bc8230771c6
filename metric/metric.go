// Package metric exposes orchestration counters as prometheus metrics.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "conductor"

// Link decision outcomes.
const (
	Linked           = "linked"
	AlreadyLinked    = "already_linked"
	CapsRejected     = "caps_rejected"
	NegotiationError = "negotiation_failed"
)

// Queries that can fail.
const (
	PositionQuery = "position"
	DurationQuery = "duration"
	SeekingQuery  = "seeking"
	SeekCommand   = "seek"
)

// Metrics holds counters of a single registry. Nil *Metrics is valid and
// measures nothing.
type Metrics struct {
	LinkDecisions *prometheus.CounterVec
	QueryFailures *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Seeks         prometheus.Counter
	Swaps         prometheus.Counter
}

// New creates counters and registers them in provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LinkDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_decisions_total",
			Help:      "Deferred link decisions, by outcome.",
		}, []string{"outcome"}),
		QueryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_failures_total",
			Help:      "Failed engine queries and commands, by query.",
		}, []string{"query"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Dispatched bus notifications, by kind.",
		}, []string{"kind"}),
		Seeks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seeks_total",
			Help:      "Issued seeks.",
		}),
		Swaps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swaps_total",
			Help:      "Completed source swaps.",
		}),
	}
}

// LinkDecision counts deferred link outcome.
func (m *Metrics) LinkDecision(outcome string) {
	if m == nil {
		return
	}
	m.LinkDecisions.WithLabelValues(outcome).Inc()
}

// QueryFailure counts failed query.
func (m *Metrics) QueryFailure(query string) {
	if m == nil {
		return
	}
	m.QueryFailures.WithLabelValues(query).Inc()
}

// Notification counts dispatched notification.
func (m *Metrics) Notification(kind string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(kind).Inc()
}

// Seek counts issued seek.
func (m *Metrics) Seek() {
	if m == nil {
		return
	}
	m.Seeks.Inc()
}

// Swap counts completed source swap.
func (m *Metrics) Swap() {
	if m == nil {
		return
	}
	m.Swaps.Inc()
}
