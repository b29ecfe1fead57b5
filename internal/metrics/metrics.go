package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects retrieval pipeline counters.
type Metrics struct {
	FetchAttempts *prometheus.CounterVec
	FetchFailures *prometheus.CounterVec
	Fallbacks     prometheus.Counter
	DegradedReads prometheus.Counter
	ClearTotal    *prometheus.CounterVec
}

// New registers the pipeline collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_fetch_attempts_total",
			Help: "Retrieval attempts per protocol.",
		}, []string{"protocol"}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mail_fetch_failures_total",
			Help: "Failed retrieval attempts per protocol.",
		}, []string{"protocol"}),
		Fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_fetch_fallbacks_total",
			Help: "Retrievals that fell back from Graph to IMAP.",
		}),
		DegradedReads: factory.NewCounter(prometheus.CounterOpts{
			Name: "mail_fetch_degraded_total",
			Help: "Retrievals served from the local cache after both protocols failed.",
		}),
		ClearTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mailbox_clear_total",
			Help: "Mailbox clear operations per protocol.",
		}, []string{"protocol"}),
	}
}
