package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolution pipeline
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinespin_resolutions_total",
			Help: "Vibe resolutions by outcome and strategy",
		},
		[]string{"outcome", "strategy"}, // outcome: ok, degraded, fatal
	)

	ResolutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinespin_resolution_duration_seconds",
			Help:    "End-to-end vibe resolution latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13},
		},
		[]string{"strategy"},
	)

	ProposerCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinespin_proposer_calls_total",
			Help: "Candidate proposer invocations by result",
		},
		[]string{"result"}, // ok, safety_list, timeout, unconfigured
	)

	CandidatesChecked = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinespin_candidates_checked",
			Help:    "Candidates whose availability checks were issued per resolution",
			Buckets: []float64{0, 1, 2, 3, 4, 6, 9, 12, 15},
		},
	)

	// Response cache
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinespin_cache_lookups_total",
			Help: "Proposal cache lookups by backend and result",
		},
		[]string{"backend", "result"}, // hit, miss, error
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cinespin_cache_entries",
			Help: "Current number of cached proposals",
		},
		[]string{"backend"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinespin_cache_evictions_total",
			Help: "Cached proposals removed by reason",
		},
		[]string{"backend", "reason"}, // expired, capacity
	)

	// Upstream APIs
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinespin_upstream_request_duration_seconds",
			Help:    "Latency of upstream API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation", "result"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinespin_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinespin_api_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinespin_api_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)
)

// RecordResolution records one finished pipeline run.
func RecordResolution(outcome, strategy string, checked int, duration time.Duration) {
	ResolutionsTotal.WithLabelValues(outcome, strategy).Inc()
	ResolutionDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	CandidatesChecked.Observe(float64(checked))
}

// RecordProposer records the result of a proposer invocation.
func RecordProposer(result string) {
	ProposerCalls.WithLabelValues(result).Inc()
}

// RecordCacheLookup records a cache lookup result for backend.
func RecordCacheLookup(backend string, hit bool, err error) {
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case hit:
		result = "hit"
	}
	CacheLookups.WithLabelValues(backend, result).Inc()
}

// RecordUpstream records the latency of an upstream call.
func RecordUpstream(service, operation string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	UpstreamRequestDuration.WithLabelValues(service, operation, result).Observe(duration.Seconds())
}

// RecordAPIRequest records HTTP request metrics.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
