package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Chat metrics
	ChatTurnsTotal      *prometheus.CounterVec
	ChatDurationSeconds *prometheus.HistogramVec
	ToolCallsTotal      *prometheus.CounterVec

	// NEIS metrics
	NEISRequestsTotal   *prometheus.CounterVec
	NEISDurationSeconds *prometheus.HistogramVec
	CacheHitsTotal      *prometheus.CounterVec
	CacheMissesTotal    *prometheus.CounterVec
	CacheEvictedTotal   prometheus.Counter
	CacheEntries        *prometheus.GaugeVec

	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMDurationSeconds *prometheus.HistogramVec
	LLMFallbackTotal   *prometheus.CounterVec

	// Session metrics
	ActiveSessions prometheus.Gauge
	SessionsSwept  prometheus.Counter

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterKeys    *prometheus.GaugeVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		ChatTurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatshhs_chat_turns_total",
				Help: "Total number of chat turns by outcome",
			},
			[]string{"outcome"}, // outcome: success, tool, error
		),

		ChatDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatshhs_chat_duration_seconds",
				Help:    "Chat turn duration in seconds by outcome",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"outcome"},
		),

		ToolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatshhs_tool_calls_total",
				Help: "Total number of tool calls by kind and status",
			},
			[]string{"kind", "status"}, // status: success, partial, invalid, error
		),

		NEISRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatshhs_neis_requests_total",
				Help: "Total number of NEIS requests by kind and status",
			},
			[]string{"kind", "status"}, // status: success, no_data, error
		),

		NEISDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatshhs_neis_duration_seconds",
				Help:    "NEIS request duration in seconds by kind",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatshhs_cache_hits_total",
				Help: "Total number of NEIS cache hits by kind",
			},
			[]string{"kind"},
		),

		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatshhs_cache_misses_total",
				Help: "Total number of NEIS cache misses by kind",
			},
			[]string{"kind"},
		),

		CacheEvictedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chatshhs_cache_evicted_total",
				Help: "Total number of expired cache entries removed",
			},
		),

		CacheEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chatshhs_cache_entries",
				Help: "Number of cached NEIS responses by endpoint",
			},
			[]string{"endpoint"},
		),

		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatshhs_llm_requests_total",
				Help: "Total number of completion requests by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error
		),

		LLMDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatshhs_llm_duration_seconds",
				Help:    "Completion request duration in seconds by provider",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"provider"},
		),

		LLMFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatshhs_llm_fallback_total",
				Help: "Total number of provider fallbacks",
			},
			[]string{"from", "to"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatshhs_active_sessions",
				Help: "Number of live chat sessions",
			},
		),

		SessionsSwept: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chatshhs_sessions_swept_total",
				Help: "Total number of idle sessions removed",
			},
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatshhs_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter"},
		),

		RateLimiterKeys: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chatshhs_rate_limiter_keys",
				Help: "Number of keys tracked by rate limiter",
			},
			[]string{"limiter"},
		),

		HTTPErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatshhs_http_errors_total",
				Help: "Total HTTP errors by type and route",
			},
			[]string{"error_type", "route"}, // error_type: bad_request, not_found, rate_limit, internal
		),
	}
}

// RecordChatTurn records a completed or failed chat turn
func (m *Metrics) RecordChatTurn(outcome string, duration time.Duration) {
	m.ChatTurnsTotal.WithLabelValues(outcome).Inc()
	m.ChatDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordToolCall records one executed tool call
func (m *Metrics) RecordToolCall(kind, status string) {
	m.ToolCallsTotal.WithLabelValues(kind, status).Inc()
}

// RecordNEISRequest records an upstream NEIS request
func (m *Metrics) RecordNEISRequest(kind, status string, duration time.Duration) {
	m.NEISRequestsTotal.WithLabelValues(kind, status).Inc()
	m.NEISDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordNEISCache records a cache lookup
func (m *Metrics) RecordNEISCache(kind string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(kind).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(kind).Inc()
}

// RecordCacheEvicted records expired cache rows removed by cleanup
func (m *Metrics) RecordCacheEvicted(n int64) {
	if n > 0 {
		m.CacheEvictedTotal.Add(float64(n))
	}
}

// SetCacheEntries sets the cached response count for one endpoint
func (m *Metrics) SetCacheEntries(endpoint string, count int) {
	m.CacheEntries.WithLabelValues(endpoint).Set(float64(count))
}

// RecordLLMRequest records a completion request
func (m *Metrics) RecordLLMRequest(provider, status string, duration time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMDurationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordLLMFallback records a switch to the next provider
func (m *Metrics) RecordLLMFallback(from, to string) {
	m.LLMFallbackTotal.WithLabelValues(from, to).Inc()
}

// SetActiveSessions sets the live session gauge
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionsSwept records idle sessions removed by the sweeper
func (m *Metrics) RecordSessionsSwept(n int) {
	if n > 0 {
		m.SessionsSwept.Add(float64(n))
	}
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SetRateLimiterKeys sets the number of keys a limiter tracks
func (m *Metrics) SetRateLimiterKeys(limiter string, count int) {
	m.RateLimiterKeys.WithLabelValues(limiter).Set(float64(count))
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, route string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, route).Inc()
}
