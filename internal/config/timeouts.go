package config

import "time"

// HTTP server timeouts
const (
	// ChatTurn bounds one chat turn: two completions plus the NEIS calls
	// in between, each of which may retry.
	ChatTurn = 45 * time.Second

	// HTTPRead is the server read timeout. Requests are small JSON bodies.
	HTTPRead = 10 * time.Second

	// HTTPWrite must exceed ChatTurn so a slow turn can still be answered.
	HTTPWrite = ChatTurn + 5*time.Second

	// HTTPIdle is the keep-alive idle timeout.
	HTTPIdle = 120 * time.Second
)

// NEIS timeouts
const (
	// NEISRequest is the timeout for a single NEIS HTTP request.
	NEISRequest = 10 * time.Second

	// NEISRetryInitial is the first backoff delay when retries are enabled.
	NEISRetryInitial = 500 * time.Millisecond
)

// Probe timeouts
const (
	// ReadinessCheck bounds the database ping behind /readyz.
	ReadinessCheck = 3 * time.Second
)

// Background job intervals
const (
	// CacheCleanupInterval is how often expired NEIS responses are deleted.
	CacheCleanupInterval = time.Hour

	// CacheCleanupInitialDelay lets the server settle before the first cleanup.
	CacheCleanupInitialDelay = 5 * time.Minute

	// SessionSweepInterval is how often idle sessions are dropped.
	SessionSweepInterval = time.Minute

	// MetricsUpdateInterval is how often cache size metrics are refreshed.
	MetricsUpdateInterval = 5 * time.Minute

	// RateLimiterCleanupInterval is how often idle client buckets are dropped.
	RateLimiterCleanupInterval = 5 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown allows in-flight turns to complete before termination.
	GracefulShutdown = 30 * time.Second
)
