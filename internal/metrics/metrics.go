package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voiceguard"

// #region metrics
// Metrics holds the pipeline's Prometheus collectors. It satisfies the
// cache recorder and the safety gate observer.
type Metrics struct {
	cacheHits            *prometheus.CounterVec
	cacheMisses          *prometheus.CounterVec
	cacheEvictions       *prometheus.CounterVec
	cacheRefreshFailures *prometheus.CounterVec
	validations          *prometheus.CounterVec
	validationScore      prometheus.Histogram
	safetyRouting        *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which keeps tests off the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache reads served from a valid entry",
		}, []string{"cache"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache reads with no valid entry",
		}, []string{"cache"}),
		cacheEvictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries evicted to make room",
		}, []string{"cache"}),
		cacheRefreshFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_refresh_failures_total",
			Help:      "Background stale refreshes that failed",
		}, []string{"cache"}),
		validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Validation results by outcome",
		}, []string{"result"}),
		validationScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_score",
			Help:      "Trust score of validated texts",
			Buckets:   []float64{50, 60, 70, 75, 80, 85, 90, 95, 100},
		}),
		safetyRouting: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_routing_total",
			Help:      "Safety gate decisions by routing",
		}, []string{"routing"}),
	}
}

// #endregion metrics

// #region recorders
// CacheHit implements cache.Recorder.
func (m *Metrics) CacheHit(cache string) { m.cacheHits.WithLabelValues(cache).Inc() }

// CacheMiss implements cache.Recorder.
func (m *Metrics) CacheMiss(cache string) { m.cacheMisses.WithLabelValues(cache).Inc() }

// CacheEviction implements cache.Recorder.
func (m *Metrics) CacheEviction(cache string) { m.cacheEvictions.WithLabelValues(cache).Inc() }

// CacheRefreshFailure implements cache.Recorder.
func (m *Metrics) CacheRefreshFailure(cache string) {
	m.cacheRefreshFailures.WithLabelValues(cache).Inc()
}

// ObserveRouting implements safety.Observer.
func (m *Metrics) ObserveRouting(routing string) { m.safetyRouting.WithLabelValues(routing).Inc() }

// ObserveValidation records one validation outcome.
// Result is "passed", "failed" or "skipped".
func (m *Metrics) ObserveValidation(result string, score int) {
	m.validations.WithLabelValues(result).Inc()
	if result != "skipped" {
		m.validationScore.Observe(float64(score))
	}
}

// #endregion recorders
