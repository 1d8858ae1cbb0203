package stream

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	streamsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sdrelay",
			Subsystem: "stream",
			Name:      "active",
			Help:      "Open event streams by kind",
		},
		[]string{"kind"},
	)

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdrelay",
			Subsystem: "stream",
			Name:      "events_total",
			Help:      "Events written to streams by type",
		},
		[]string{"type"},
	)

	heartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sdrelay",
			Subsystem: "stream",
			Name:      "heartbeats_total",
			Help:      "Heartbeat pings sent",
		},
	)
)

func init() {
	prometheus.MustRegister(streamsActive, eventsTotal, heartbeatsTotal)
}

func msDuration(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }
