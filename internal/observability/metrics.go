package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadpulse_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threadpulse_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ThreadsAPIRequests counts outbound Threads API calls by endpoint and outcome.
	ThreadsAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadpulse_threads_api_requests_total",
		Help: "Total Threads API requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	// ThreadsAPILatency records outbound Threads API latency by endpoint.
	ThreadsAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threadpulse_threads_api_request_duration_seconds",
		Help:    "Threads API request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "threadpulse_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	// CircuitBreakerTransitions counts state transitions.
	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadpulse_circuit_breaker_transitions_total",
		Help: "Circuit breaker state transitions",
	}, []string{"name", "from", "to"})

	// SyncRuns counts sync runs by outcome.
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadpulse_sync_runs_total",
		Help: "Total sync runs by outcome",
	}, []string{"outcome"})

	// SyncedPosts counts posts upserted by sync runs.
	SyncedPosts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadpulse_synced_posts_total",
		Help: "Total posts upserted by sync runs",
	})

	// InsightsFetches counts per-post insights fetches by result
	// (updated, permanent_failure, transient_failure).
	InsightsFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadpulse_insights_fetches_total",
		Help: "Per-post insights fetches by result",
	}, []string{"policy", "result"})

	// EventsPublished counts realtime events by type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadpulse_events_published_total",
		Help: "Realtime events published by type",
	}, []string{"event_type"})

	// WebSocketConnectionsTotal is the gauge of open event-stream connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadpulse_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ObserveThreadsCall records the outcome and latency of a Threads API call.
func ObserveThreadsCall(endpoint, outcome string, start time.Time) {
	ThreadsAPIRequests.WithLabelValues(endpoint, outcome).Inc()
	ThreadsAPILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
