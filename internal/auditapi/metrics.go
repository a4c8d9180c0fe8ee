package auditapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tos-network/gaudit/metrics"
)

type apiMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

func newAPIMetrics(reg prometheus.Registerer) (*apiMetrics, error) {
	m := &apiMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Number of API requests, by route and status code",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency, by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "api",
			Name:      "requests_inflight",
			Help:      "Number of API requests being served",
		}),
	}
	if err := metrics.Register(reg, m.requests, m.duration, m.inflight); err != nil {
		return nil, err
	}
	return m, nil
}

// instrument wraps h with the collectors, labelled with route.
func (m *apiMetrics) instrument(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	h = promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(labels), h)
	h = promhttp.InstrumentHandlerDuration(m.duration.MustCurryWith(labels), h)
	return promhttp.InstrumentHandlerInFlight(m.inflight, h)
}
