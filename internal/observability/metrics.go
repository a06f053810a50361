package observability

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream provider calls by provider (openweather, cwa), operation and outcome status.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency. Watch for: p99 approaching the fixed per-provider timeout.
	UpstreamDuration *prometheus.HistogramVec

	// Upstream failures by error category (timeout, not_found, unauthorized, ...).
	// Any unauthorized count means the API key is wrong.
	UpstreamErrorsTotal *prometheus.CounterVec

	// Memoized lookups answered from cache, by operation.
	MemoHitsTotal *prometheus.CounterVec

	// Memoized lookups that went upstream, by operation.
	MemoMissesTotal *prometheus.CounterVec

	// Cache backend errors by cache operation (get, set). Lookups still succeed upstream.
	CacheErrorsTotal *prometheus.CounterVec

	// Explicit invalidations (unit preference changes), by memo operation.
	CacheInvalidationsTotal *prometheus.CounterVec

	// Invalidations that failed at the backend. Swallowed, so this is the only signal.
	CacheInvalidationErrorsTotal prometheus.Counter

	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Favorites store operations by op (save, remove) and outcome (saved, already_saved, removed, not_found, error).
	FavoritesOperationsTotal *prometheus.CounterVec

	// Total weather searches.
	WeatherSearchesTotal prometheus.Counter

	// Per-city search count (allow-list; others go to "other").
	WeatherSearchesByCityTotal *prometheus.CounterVec

	// Rate limit denials.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker state per provider: 0 closed, 1 half-open, 2 open.
	CircuitBreakerState *prometheus.GaugeVec

	trackedCitiesMu sync.RWMutex
	trackedCities   map[string]struct{}
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of weather provider calls",
		},
		[]string{"provider", "operation", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "Weather provider latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 8, 10},
		},
		[]string{"provider", "operation"},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamErrorsTotal",
			Help: "Weather provider failures by error category",
		},
		[]string{"provider", "category"},
	)
	MemoHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memoHitsTotal",
			Help: "Memoized lookups served from cache",
		},
		[]string{"operation"},
	)
	MemoMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memoMissesTotal",
			Help: "Memoized lookups that required an upstream call",
		},
		[]string{"operation"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache backend errors by operation",
		},
		[]string{"operation"},
	)
	CacheInvalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheInvalidationsTotal",
			Help: "Explicit cache invalidations by memo operation",
		},
		[]string{"operation"},
	)
	CacheInvalidationErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheInvalidationErrorsTotal",
			Help: "Cache invalidations that failed at the backend",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs with at least one failed city",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Cache warming duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30},
		},
	)
	FavoritesOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "favoritesOperationsTotal",
			Help: "Saved-city operations by op and outcome",
		},
		[]string{"op", "outcome"},
	)
	WeatherSearchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherSearchesTotal",
			Help: "Total number of weather searches",
		},
	)
	WeatherSearchesByCityTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherSearchesByCityTotal",
			Help: "Weather searches by city (allow-list; others use city=other)",
		},
		[]string{"city"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state per provider: 0 closed, 1 half-open, 2 open",
		},
		[]string{"provider"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration, UpstreamErrorsTotal,
		MemoHitsTotal, MemoMissesTotal, CacheErrorsTotal,
		CacheInvalidationsTotal, CacheInvalidationErrorsTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		FavoritesOperationsTotal,
		WeatherSearchesTotal, WeatherSearchesByCityTotal,
		RateLimitDeniedTotal,
		CircuitBreakerState,
	)
}

// SetTrackedCities sets the allow-list for per-city metrics. Other cities increment "other".
func SetTrackedCities(cities []string) {
	trackedCitiesMu.Lock()
	defer trackedCitiesMu.Unlock()
	trackedCities = make(map[string]struct{}, len(cities))
	for _, c := range cities {
		trackedCities[normalizeCityForMetrics(c)] = struct{}{}
	}
}

// RecordWeatherSearch records one search for city.
func RecordWeatherSearch(city string) {
	WeatherSearchesTotal.Inc()
	c := normalizeCityForMetrics(city)
	trackedCitiesMu.RLock()
	_, ok := trackedCities[c]
	trackedCitiesMu.RUnlock()
	if ok {
		WeatherSearchesByCityTotal.WithLabelValues(c).Inc()
	} else {
		WeatherSearchesByCityTotal.WithLabelValues("other").Inc()
	}
}

func normalizeCityForMetrics(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
