package bft

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tos-network/gaudit/metrics"
)

const statusLabel = "status"

type engineMetrics struct {
	proposals  prometheus.Counter
	signatures prometheus.Counter
	dropped    prometheus.Counter
	stale      prometheus.Counter
	finalized  *prometheus.CounterVec
	pending    prometheus.Gauge
}

func newEngineMetrics(reg prometheus.Registerer) (*engineMetrics, error) {
	m := &engineMetrics{
		proposals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "bft",
			Name:      "proposals_total",
			Help:      "Number of block proposals created",
		}),
		signatures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "bft",
			Name:      "signatures_total",
			Help:      "Number of validator signatures produced",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "bft",
			Name:      "signatures_dropped_total",
			Help:      "Number of stored approvals that failed re-verification",
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "bft",
			Name:      "stale_proposals_total",
			Help:      "Number of proposals discarded because the chain tip moved",
		}),
		finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "bft",
			Name:      "finalized_total",
			Help:      "Number of proposals finalized, by certificate status",
		}, []string{statusLabel}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "bft",
			Name:      "pending",
			Help:      "Number of proposals awaiting quorum",
		}),
	}
	err := metrics.Register(reg, m.proposals, m.signatures, m.dropped, m.stale, m.finalized, m.pending)
	if err != nil {
		return nil, err
	}
	return m, nil
}
