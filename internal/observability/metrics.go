package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	suggestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "suggestion_service",
		Subsystem: "engine",
		Name:      "request_duration_seconds",
		Help:      "Latency of suggestion requests end to end.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
	suggestionsReturned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "suggestion_service",
		Subsystem: "engine",
		Name:      "suggestions_returned",
		Help:      "Number of suggestions returned per request.",
		Buckets:   []float64{0, 1, 2, 3, 4, 5},
	})
	themeFallbackCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "suggestion_service",
		Subsystem: "themes",
		Name:      "keyword_fallback_total",
		Help:      "Times theme extraction degraded to the keyword path.",
	})
	themeCacheCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "suggestion_service",
		Subsystem: "themes",
		Name:      "cache_lookups_total",
		Help:      "Theme retrieval cache lookups grouped by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(suggestDuration, suggestionsReturned, themeFallbackCounter, themeCacheCounter)
}

// ObserveSuggestRequest records the latency and result size of one request.
func ObserveSuggestRequest(elapsed time.Duration, returned int) {
	suggestDuration.Observe(elapsed.Seconds())
	suggestionsReturned.Observe(float64(returned))
}

// RecordThemeFallback counts a degradation to keyword matching.
func RecordThemeFallback() {
	themeFallbackCounter.Inc()
}

// RecordThemeCacheLookup counts a cache hit or miss.
func RecordThemeCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	themeCacheCounter.WithLabelValues(result).Inc()
}
