package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.ChatTurnsTotal == nil || m.NEISRequestsTotal == nil || m.LLMRequestsTotal == nil {
		t.Error("core metrics not initialized")
	}
	if m.ActiveSessions == nil || m.RateLimiterDropped == nil || m.HTTPErrorsTotal == nil {
		t.Error("ambient metrics not initialized")
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Registering twice on one registry panics; separate registries must not.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func TestRecordChatTurn(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordChatTurn("tool", 2*time.Second)
	m.RecordChatTurn("tool", time.Second)
	m.RecordChatTurn("error", time.Second)

	if got := testutil.ToFloat64(m.ChatTurnsTotal.WithLabelValues("tool")); got != 2 {
		t.Errorf("tool turns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ChatTurnsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("error turns = %v, want 1", got)
	}
}

func TestRecordNEISCache(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordNEISCache("meal", true)
	m.RecordNEISCache("meal", true)
	m.RecordNEISCache("meal", false)

	if got := testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("meal")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("meal")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
}

func TestRecordNEISRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordNEISRequest("calendar", "success", 300*time.Millisecond)
	m.RecordNEISRequest("calendar", "no_data", 100*time.Millisecond)

	if got := testutil.ToFloat64(m.NEISRequestsTotal.WithLabelValues("calendar", "no_data")); got != 1 {
		t.Errorf("no_data = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.NEISDurationSeconds); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestRecordLLM(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordLLMRequest("openai", "error", time.Second)
	m.RecordLLMFallback("openai", "gemini")
	m.RecordLLMRequest("gemini", "success", time.Second)

	if got := testutil.ToFloat64(m.LLMFallbackTotal.WithLabelValues("openai", "gemini")); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("gemini", "success")); got != 1 {
		t.Errorf("gemini success = %v, want 1", got)
	}
}

func TestGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetActiveSessions(5)
	m.SetActiveSessions(3)
	m.SetRateLimiterKeys("client_ip", 7)
	m.RecordSessionsSwept(0)
	m.RecordSessionsSwept(2)
	m.RecordCacheEvicted(4)
	m.SetCacheEntries("mealServiceDietInfo", 12)

	if got := testutil.ToFloat64(m.ActiveSessions); got != 3 {
		t.Errorf("active sessions = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.RateLimiterKeys.WithLabelValues("client_ip")); got != 7 {
		t.Errorf("limiter keys = %v, want 7", got)
	}
	if got := testutil.ToFloat64(m.SessionsSwept); got != 2 {
		t.Errorf("swept = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CacheEvictedTotal); got != 4 {
		t.Errorf("evicted = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.CacheEntries.WithLabelValues("mealServiceDietInfo")); got != 12 {
		t.Errorf("cache entries = %v, want 12", got)
	}
}

func TestRecordDrops(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRateLimiterDrop("client_ip")
	m.RecordHTTPError("rate_limit", "/api/sessions/:id/messages")

	if got := testutil.ToFloat64(m.RateLimiterDropped.WithLabelValues("client_ip")); got != 1 {
		t.Errorf("drops = %v, want 1", got)
	}
}
