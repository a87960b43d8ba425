package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eoq"

// Metrics holds the pipeline collectors on a private registry.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	scores        *prometheus.CounterVec
	failures      *prometheus.CounterVec
	fetchAttempts *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	enrichments   *prometheus.CounterVec
	queueActive   prometheus.Gauge
	queuePending  prometheus.Gauge
	scoreSeconds  prometheus.Histogram
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scores_total",
			Help:      "EOQ scores computed, by method.",
		}, []string{"method"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_failures_total",
			Help:      "Remote scoring backend failures, by reason.",
		}, []string{"reason"}),
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Fetch method attempts, by method and outcome.",
		}, []string{"method", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups, by cache and outcome.",
		}, []string{"cache", "outcome"}),
		enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Enrichment records produced, by method.",
		}, []string{"method"}),
		queueActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_queue_active",
			Help:      "Fetches currently in flight.",
		}),
		queuePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_queue_pending",
			Help:      "Fetches waiting for a slot.",
		}),
		scoreSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "score_duration_seconds",
			Help:      "Time to score one result, cache misses only.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}

	m.registry.MustRegister(
		m.scores, m.failures, m.fetchAttempts, m.cacheLookups, m.enrichments,
		m.queueActive, m.queuePending, m.scoreSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for tests and custom exporters
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ScoreComputed(method string, seconds float64) {
	if m == nil {
		return
	}
	m.scores.WithLabelValues(method).Inc()
	if seconds > 0 {
		m.scoreSeconds.Observe(seconds)
	}
}

func (m *Metrics) BackendFailure(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}

func (m *Metrics) FetchAttempt(method, outcome string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, outcome).Inc()
}

func (m *Metrics) Enrichment(method string) {
	if m == nil {
		return
	}
	m.enrichments.WithLabelValues(method).Inc()
}

func (m *Metrics) QueueDepth(active, pending int) {
	if m == nil {
		return
	}
	m.queueActive.Set(float64(active))
	m.queuePending.Set(float64(pending))
}
