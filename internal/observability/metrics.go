package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secret_heart_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and backend.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "secret_heart_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "backend"})

	// ConfessionsCreated counts confessions stored.
	ConfessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "secret_heart_confessions_created_total",
		Help: "Total number of confessions created",
	})

	// LikesRecorded counts successful likes.
	LikesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "secret_heart_likes_total",
		Help: "Total number of likes recorded",
	})

	// ListFallbacks counts list requests served by the unordered fallback query.
	ListFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "secret_heart_list_fallback_total",
		Help: "Total number of list requests that fell back to the unordered query",
	})

	// CacheLookups counts feed cache lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secret_heart_cache_lookups_total",
		Help: "Feed cache lookups by result",
	}, []string{"result"})

	// RateLimitRejections counts requests rejected by a named limit.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secret_heart_rate_limit_rejections_total",
		Help: "Requests rejected by rate limiting",
	}, []string{"resource"})

	// WebSocketConnections is the gauge of live feed connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "secret_heart_websocket_connections",
		Help: "Number of active live feed WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secret_heart_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, backend string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, backend).Observe(time.Since(start).Seconds())
	}
}
