// Package metrics exposes relay operational metrics for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_relay_events_applied_total",
		Help: "Total number of ledger events applied to the mirror",
	}, []string{"kind"})

	aiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_relay_ai_requests_total",
		Help: "Total number of AI answer request completions",
	}, []string{"status"})

	roundsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_rounds_finalized_total",
		Help: "Total number of voting rounds finalized",
	}, []string{"verdict"})

	cursorGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oracle_relay_cursor_seq",
		Help: "Last event sequence number applied by the relay",
	})

	backlogGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oracle_relay_ai_backlog",
		Help: "Pending AI answer requests",
	})
)

// RecordEventApplied records one applied ledger event.
func RecordEventApplied(kind string) {
	eventsApplied.WithLabelValues(kind).Inc()
}

// RecordAIRequest records an AI request completion or failure.
func RecordAIRequest(status string) {
	aiRequests.WithLabelValues(status).Inc()
}

// RecordFinalized records a finalized round by verdict.
func RecordFinalized(approved bool) {
	verdict := "reject"
	if approved {
		verdict = "approve"
	}
	roundsFinalized.WithLabelValues(verdict).Inc()
}

// SetCursor updates the relay cursor gauge.
func SetCursor(seq uint64) {
	cursorGauge.Set(float64(seq))
}

// SetBacklog updates the AI backlog gauge.
func SetBacklog(n int64) {
	backlogGauge.Set(float64(n))
}
