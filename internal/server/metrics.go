package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	smartReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_reads_total",
			Help: "Total number of SMART read requests by protocol and outcome.",
		},
		[]string{"protocol", "outcome"},
	)
	smartReadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smart_read_duration_seconds",
			Help:    "Duration of SMART read requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(smartReadsTotal)
	prometheus.MustRegister(smartReadDuration)
}

func incSmartRead(protocol, outcome string) { smartReadsTotal.WithLabelValues(protocol, outcome).Inc() }
func observeSmartRead(start time.Time)      { smartReadDuration.Observe(time.Since(start).Seconds()) }
