package session

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// settlesTotal counts settles that had queued events.
	settlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scorenet",
		Subsystem: "session",
		Name:      "settles_total",
		Help:      "Settles that propagated at least one fact event",
	})

	// settleDuration measures the time spent propagating one settle.
	settleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scorenet",
		Subsystem: "session",
		Name:      "settle_duration_seconds",
		Help:      "Settle latency in seconds",
		Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	// factEvents counts fact events by kind (insert, update, retract).
	factEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scorenet",
		Subsystem: "session",
		Name:      "fact_events_total",
		Help:      "Fact events received by sessions",
	}, []string{"kind"})

	// brokenTotal counts sessions broken by a failing constraint function.
	brokenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scorenet",
		Subsystem: "session",
		Name:      "broken_total",
		Help:      "Sessions broken by a user function failure",
	})
)

// MetricsHandler serves the session metrics, and everything else registered
// with the default registry, in the Prometheus exposition format.
//
// Usage:
//
//	mux.Handle("/metrics", session.MetricsHandler())
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
