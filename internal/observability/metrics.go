package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silverlink_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records directory query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "silverlink_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// MatchRefreshes counts match refreshes by outcome.
	MatchRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silverlink_match_refreshes_total",
		Help: "Match refreshes by outcome (applied, failed, stale)",
	}, []string{"outcome"})

	// StaleResults counts asynchronous results discarded because the session moved on.
	StaleResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silverlink_stale_results_total",
		Help: "Asynchronous results discarded by workflow",
	}, []string{"workflow"})

	// AssistantCallLatency records assistant call latency by service and outcome.
	AssistantCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "silverlink_assistant_call_latency_seconds",
		Help:    "Assistant call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "outcome"})

	// AssistantFallbacks counts fallback substitutions by service.
	AssistantFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silverlink_assistant_fallbacks_total",
		Help: "Fallback results substituted for failed assistant calls",
	}, []string{"service"})

	// ChatMessages counts chat messages by sender kind.
	ChatMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silverlink_chat_messages_total",
		Help: "Chat messages appended by sender kind (member, auto_reply)",
	}, []string{"sender"})

	// ActiveSessions is the gauge of open sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "silverlink_active_sessions",
		Help: "Number of open sessions",
	})

	// SessionsExpired counts sessions closed by the idle sweep.
	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "silverlink_sessions_expired_total",
		Help: "Sessions closed after staying idle past the TTL",
	})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "silverlink_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts events dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silverlink_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// ObserveAssistantCall records the latency of one assistant call.
func ObserveAssistantCall(service string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	AssistantCallLatency.WithLabelValues(service, outcome).Observe(time.Since(start).Seconds())
}
