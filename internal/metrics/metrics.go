package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors of the sync layer. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	MutationsTotal           *prometheus.CounterVec
	MutationDuration         prometheus.Histogram
	EventsPublishedTotal     *prometheus.CounterVec
	StaleEventsTotal         *prometheus.CounterVec
	ResyncsTotal             *prometheus.CounterVec
	PersistenceFailuresTotal *prometheus.CounterVec
	PenaltiesTotal           prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordersync_mutations_total",
				Help: "Total number of status mutations by source and result",
			},
			[]string{"source", "result"},
		),
		MutationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ordersync_mutation_duration_seconds",
				Help:    "Duration of status mutations up to their first publish",
				Buckets: prometheus.DefBuckets,
			},
		),
		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordersync_events_published_total",
				Help: "Total number of broadcast signals emitted, repeats included",
			},
			[]string{"signal"},
		),
		StaleEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordersync_stale_events_total",
				Help: "Total number of events dropped by the per-order timestamp guard",
			},
			[]string{"view"},
		),
		ResyncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordersync_resyncs_total",
				Help: "Total number of full overlay passes by view and trigger",
			},
			[]string{"view", "trigger"},
		),
		PersistenceFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordersync_persistence_failures_total",
				Help: "Total number of durable store failures by operation",
			},
			[]string{"op"},
		),
		PenaltiesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ordersync_penalties_total",
				Help: "Total number of simulated cancellation fees charged",
			},
		),
	}

	reg.MustRegister(
		m.MutationsTotal,
		m.MutationDuration,
		m.EventsPublishedTotal,
		m.StaleEventsTotal,
		m.ResyncsTotal,
		m.PersistenceFailuresTotal,
		m.PenaltiesTotal,
	)
	return m
}

func (m *Metrics) ObserveMutation(source, result string, took time.Duration) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(source, result).Inc()
	m.MutationDuration.Observe(took.Seconds())
}

func (m *Metrics) EventPublished(signal string) {
	if m == nil {
		return
	}
	m.EventsPublishedTotal.WithLabelValues(signal).Inc()
}

func (m *Metrics) StaleEvent(view string) {
	if m == nil {
		return
	}
	m.StaleEventsTotal.WithLabelValues(view).Inc()
}

func (m *Metrics) Resync(view, trigger string) {
	if m == nil {
		return
	}
	m.ResyncsTotal.WithLabelValues(view, trigger).Inc()
}

func (m *Metrics) PersistenceFailure(op string) {
	if m == nil {
		return
	}
	m.PersistenceFailuresTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) PenaltyCharged() {
	if m == nil {
		return
	}
	m.PenaltiesTotal.Inc()
}
