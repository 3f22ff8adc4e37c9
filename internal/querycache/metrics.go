package querycache

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelEndpoint = "endpoint"
	labelTag      = "tag"
)

type Metrics struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	dropped       prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_hits_total",
			Help:      "Queries served from a fresh cache entry",
		}, []string{labelEndpoint}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_misses_total",
			Help:      "Queries that required a fetch or joined one in flight",
		}, []string{labelEndpoint}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_fetches_total",
			Help:      "Fetches issued against the catalog service",
		}, []string{labelEndpoint}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_fetch_errors_total",
			Help:      "Fetches that returned an error",
		}, []string{labelEndpoint}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_invalidations_total",
			Help:      "Tag invalidations triggered by mutations",
		}, []string{labelTag}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_dropped_entries_total",
			Help:      "Unsubscribed entries removed by invalidation",
		}),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.hits, m.misses, m.fetches, m.fetchErrors, m.invalidations, m.dropped}
}

func (m *Metrics) hit(e Endpoint) {
	if m != nil {
		m.hits.WithLabelValues(string(e)).Inc()
	}
}

func (m *Metrics) miss(e Endpoint) {
	if m != nil {
		m.misses.WithLabelValues(string(e)).Inc()
	}
}

func (m *Metrics) fetched(e Endpoint) {
	if m != nil {
		m.fetches.WithLabelValues(string(e)).Inc()
	}
}

func (m *Metrics) failed(e Endpoint) {
	if m != nil {
		m.fetchErrors.WithLabelValues(string(e)).Inc()
	}
}

func (m *Metrics) invalidated(t Tag) {
	if m != nil {
		m.invalidations.WithLabelValues(string(t)).Inc()
	}
}

func (m *Metrics) drop(n int) {
	if m != nil && n > 0 {
		m.dropped.Add(float64(n))
	}
}
