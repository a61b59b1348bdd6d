package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch sources and outcomes used as label values.
const (
	SourceBalance      = "balance"
	SourceTransactions = "transactions"

	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeStale   = "stale"
)

// Metrics holds the walletdash collectors. A nil *Metrics is valid and
// records nothing, so components can take it as an optional dependency.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	fetchDropped  *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletdash",
			Name:      "fetch_total",
			Help:      "Settled fetches by source and outcome",
		}, []string{"source", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "walletdash",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent in balance and transaction fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		fetchDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletdash",
			Name:      "fetch_dropped_total",
			Help:      "Fetch triggers dropped because one was already in flight",
		}, []string{"source"}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletdash",
			Name:      "cache_requests_total",
			Help:      "Chain data cache lookups by key and result",
		}, []string{"key", "result"}),
	}

	m.registry.MustRegister(
		m.fetchTotal, m.fetchDuration, m.fetchDropped, m.cacheRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveFetch records one settled fetch.
func (m *Metrics) ObserveFetch(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(source, outcome).Inc()
	m.fetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// Dropped records a trigger ignored by the in-flight guard.
func (m *Metrics) Dropped(source string) {
	if m == nil {
		return
	}
	m.fetchDropped.WithLabelValues(source).Inc()
}

// CacheLookup records a cache hit or miss for key.
func (m *Metrics) CacheLookup(key string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(key, result).Inc()
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
