package egress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jsdeminify",
		Subsystem: "oracle",
		Name:      "calls_total",
		Help:      "Total oracle call attempts by provider and status",
	}, []string{"provider", "status"})

	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jsdeminify",
		Subsystem: "oracle",
		Name:      "tokens_total",
		Help:      "Total tokens by provider and direction",
	}, []string{"provider", "direction"})

	blockedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jsdeminify",
		Subsystem: "oracle",
		Name:      "blocked_total",
		Help:      "Total requests blocked before dispatch, by provider and blocker",
	}, []string{"provider", "blocked_by"})

	latencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jsdeminify",
		Subsystem: "oracle",
		Name:      "latency_seconds",
		Help:      "End-to-end oracle call latency including retry waits",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"provider"})

	costCentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jsdeminify",
		Subsystem: "oracle",
		Name:      "cost_cents_total",
		Help:      "Cumulative estimated cost in US cents by provider",
	}, []string{"provider"})
)

// RecordAllowed records a call that passed every guard and completed.
func RecordAllowed(provider string, inputTokens, outputTokens int, durationSec, costCents float64) {
	callsTotal.WithLabelValues(provider, "allowed").Inc()
	tokensTotal.WithLabelValues(provider, "input").Add(float64(inputTokens))
	tokensTotal.WithLabelValues(provider, "output").Add(float64(outputTokens))
	latencySeconds.WithLabelValues(provider).Observe(durationSec)
	if costCents > 0 {
		costCentsTotal.WithLabelValues(provider).Add(costCents)
	}
}

// RecordBlocked records a call that a guard rejected before dispatch.
func RecordBlocked(provider, blockedBy string) {
	callsTotal.WithLabelValues(provider, "blocked").Inc()
	blockedTotal.WithLabelValues(provider, blockedBy).Inc()
}
