// Package metrics exposes Prometheus instrumentation for the HTTP API,
// ranking sessions and title lookups.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session outcomes.
const (
	OutcomeCompleted     = "completed"
	OutcomeEmptyPool     = "empty_pool"
	OutcomeAbandoned     = "abandoned"
	OutcomeExpired       = "expired"
	OutcomePersistFailed = "persist_failed"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierank_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movierank_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movierank_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Ranking sessions
	RankingSessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movierank_ranking_sessions_started_total",
			Help: "Total number of ranking sessions started",
		},
	)

	RankingSessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierank_ranking_sessions_finished_total",
			Help: "Total number of ranking sessions that ended, by outcome",
		},
		[]string{"outcome"},
	)

	RankingVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierank_ranking_verdicts_total",
			Help: "Total number of verdicts applied, by verdict",
		},
		[]string{"verdict"},
	)

	RankingComparisons = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "movierank_ranking_comparisons",
			Help:    "Number of comparisons a finished ranking session needed",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 8, 10, 12},
		},
	)

	RankingActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "movierank_ranking_active_sessions",
			Help: "Number of ranking sessions awaiting a verdict",
		},
	)

	// Title lookup
	TitleLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierank_title_lookups_total",
			Help: "Total number of title lookups, by provider and result",
		},
		[]string{"provider", "result"},
	)

	TitleLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movierank_title_lookup_duration_seconds",
			Help:    "Title lookup latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movierank_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movierank_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func RecordSessionStarted() {
	RankingSessionsStarted.Inc()
}

// RecordSessionFinished records how a session ended and how many
// comparisons it took.
func RecordSessionFinished(outcome string, comparisons int) {
	RankingSessionsFinished.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCompleted || outcome == OutcomeEmptyPool {
		RankingComparisons.Observe(float64(comparisons))
	}
}

func RecordVerdict(verdict string) {
	RankingVerdicts.WithLabelValues(verdict).Inc()
}

func SetActiveSessions(n int) {
	RankingActiveSessions.Set(float64(n))
}

// RecordTitleLookup records a lookup against one provider.
func RecordTitleLookup(provider string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	TitleLookups.WithLabelValues(provider, result).Inc()
	TitleLookupDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordBreakerTransition records a circuit breaker moving between states.
func RecordBreakerTransition(name, from, to string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}
