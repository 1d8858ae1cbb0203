package backend

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdrelay",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Backend calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sdrelay",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of backend calls in seconds",
			// generation runs for tens of seconds on CPU backends
			Buckets: []float64{0.01, 0.05, 0.25, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}

func observe(endpoint, outcome string, d time.Duration) {
	requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	if d > 0 {
		requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
