package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

// ClientMetrics instruments docctl. It satisfies rest.RequestObserver and ports.LifecycleObserver.
type ClientMetrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	pollTicksTotal  *prometheus.CounterVec
	transitions     *prometheus.CounterVec
}

func NewClientMetrics() *ClientMetrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docctl",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total backend requests by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docctl",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Backend request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docctl",
			Subsystem: "backend",
			Name:      "retries_total",
			Help:      "Total retried backend calls.",
		},
		[]string{"operation"},
	)
	pollTicksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docctl",
			Name:      "poll_ticks_total",
			Help:      "Total status polls by observed status.",
		},
		[]string{"status"},
	)
	transitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docctl",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Total lifecycle phase transitions.",
		},
		[]string{"from", "to"},
	)

	registry.MustRegister(requestsTotal, requestDuration, retriesTotal, pollTicksTotal, transitions)

	return &ClientMetrics{
		registry:        registry,
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
		retriesTotal:    retriesTotal,
		pollTicksTotal:  pollTicksTotal,
		transitions:     transitions,
	}
}

func (m *ClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ClientMetrics) ObserveBackendRequest(operation, outcome string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(operation, outcome).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveRetry matches resilience.RetryObserver.
func (m *ClientMetrics) ObserveRetry(operation string, _ int, _ error) {
	m.retriesTotal.WithLabelValues(operation).Inc()
}

func (m *ClientMetrics) ObservePollTick(status domain.Status) {
	label := string(status)
	if !status.Valid() {
		label = "unknown"
	}
	m.pollTicksTotal.WithLabelValues(label).Inc()
}

func (m *ClientMetrics) ObserveTransition(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}
