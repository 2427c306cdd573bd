package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus instruments
type Metrics struct {
	PaymentsCreated     *prometheus.CounterVec
	IdempotentReplays   prometheus.Counter
	IdempotencyConflict prometheus.Counter
	ValidationFailures  prometheus.Counter
	SettlementDecisions *prometheus.CounterVec
	MessagesRendered    *prometheus.CounterVec
	SettlementDuration  prometheus.Histogram
}

// New registers the instruments on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PaymentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_created_total",
			Help: "Payments written to the ledger, by currency.",
		}, []string{"currency"}),
		IdempotentReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payments_idempotent_replays_total",
			Help: "Create requests answered from an existing idempotency record.",
		}),
		IdempotencyConflict: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payments_idempotency_conflicts_total",
			Help: "Create requests that reused a key with a different body.",
		}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payments_validation_failures_total",
			Help: "Create requests rejected by validation.",
		}),
		SettlementDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_settlement_decisions_total",
			Help: "Terminal settlement decisions, by status and reason.",
		}, []string{"status", "reason"}),
		MessagesRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "iso20022_messages_rendered_total",
			Help: "ISO 20022 documents rendered, by message kind.",
		}, []string{"kind"}),
		SettlementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "payments_settlement_duration_seconds",
			Help:    "Time from PENDING to a terminal status.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}

	reg.MustRegister(
		m.PaymentsCreated,
		m.IdempotentReplays,
		m.IdempotencyConflict,
		m.ValidationFailures,
		m.SettlementDecisions,
		m.MessagesRendered,
		m.SettlementDuration,
	)
	return m
}

// NewNop returns instruments registered nowhere
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
