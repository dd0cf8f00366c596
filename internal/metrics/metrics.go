package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Outcomes counts one entry per visited record.
	Outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_outcomes_total",
		Help: "Total number of recipient outcomes by kind",
	}, []string{"outcome"})
	SendAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_send_attempts_total",
		Help: "Total number of transport send attempts",
	}, []string{"transport", "result"})
	BackoffSeconds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_backoff_seconds_total",
		Help: "Total time spent waiting between send attempts",
	}, []string{"transport"})
	JournalErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_journal_errors_total",
		Help: "Total number of outcome events a journal failed to persist",
	}, []string{"journal"})
)

func init() {
	prometheus.MustRegister(Outcomes)
	prometheus.MustRegister(SendAttempts)
	prometheus.MustRegister(BackoffSeconds)
	prometheus.MustRegister(JournalErrors)
}

// Handler returns an http.Handler exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
