package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tos-network/gaudit/metrics"
)

type chainMetrics struct {
	appended        *prometheus.CounterVec
	persistFailures prometheus.Counter
	persistTime     prometheus.Histogram
	height          prometheus.Gauge
}

func newChainMetrics(reg prometheus.Registerer, subsystem string) (*chainMetrics, error) {
	m := &chainMetrics{
		appended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: subsystem,
			Name:      "blocks_total",
			Help:      "Number of blocks appended, by certificate status",
		}, []string{"status"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: subsystem,
			Name:      "persist_failures_total",
			Help:      "Number of failed writes to the backing store",
		}),
		persistTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: subsystem,
			Name:      "persist_seconds",
			Help:      "Time spent writing to the backing store",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: subsystem,
			Name:      "length",
			Help:      "Number of blocks held",
		}),
	}
	if err := metrics.Register(reg, m.appended, m.persistFailures, m.persistTime, m.height); err != nil {
		return nil, err
	}
	return m, nil
}
