package http

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brojonat/github-bounty-agent/agent"
)

var (
	payoutAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_attempts_total",
		Help: "Payout attempts by result.",
	}, []string{"result"})
	webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "GitHub webhook deliveries by event type.",
	}, []string{"event"})
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "http_response_duration_seconds",
		Help: "Latency of requests in seconds.",
	}, []string{"path"})
)

func observePayoutOutcome(outcome agent.PayoutOutcome) {
	switch {
	case outcome.AlreadyPaid:
		payoutAttempts.WithLabelValues("already_paid").Inc()
	case outcome.Success:
		payoutAttempts.WithLabelValues("paid").Inc()
	default:
		payoutAttempts.WithLabelValues("failed").Inc()
	}
}

func withMetrics() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next(w, r)
			httpDuration.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
		}
	}
}
