package ratelimit

import (
	"sync"
	"time"
)

// Recorder receives limiter metrics. *metrics.Metrics implements it.
type Recorder interface {
	RecordRateLimiterDrop(limiter string)
	SetRateLimiterKeys(limiter string, count int)
}

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name identifies this limiter for metrics (e.g., "client_ip")
	Name string

	Burst      float64 // Maximum tokens (burst capacity)
	RefillRate float64 // Tokens refilled per second

	// CleanupPeriod is how often idle buckets are dropped.
	CleanupPeriod time.Duration

	Recorder Recorder
}

// KeyedLimiter tracks one token bucket per key (e.g., client IP) and
// periodically drops buckets that have refilled completely.
type KeyedLimiter struct {
	mu       sync.RWMutex
	entries  map[string]*Limiter
	config   KeyedConfig
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewKeyedLimiter creates a per-key limiter and starts its cleanup loop.
//
//	limiter := NewKeyedLimiter(KeyedConfig{
//	    Name:          "client_ip",
//	    Burst:         10,
//	    RefillRate:    0.2, // 1 message per 5 seconds
//	    CleanupPeriod: 5 * time.Minute,
//	})
//	defer limiter.Stop()
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	kl := &KeyedLimiter{
		entries: make(map[string]*Limiter),
		config:  cfg,
		stopCh:  make(chan struct{}),
	}
	go kl.cleanupLoop()
	return kl
}

// Allow consumes a token for key. Empty keys are never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	if kl.limiter(key).Allow() {
		return true
	}
	if kl.config.Recorder != nil {
		kl.config.Recorder.RecordRateLimiterDrop(kl.config.Name)
	}
	return false
}

// RetryAfter reports how long key must wait for its next token.
func (kl *KeyedLimiter) RetryAfter(key string) time.Duration {
	kl.mu.RLock()
	l, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return 0
	}
	return l.RetryAfter()
}

func (kl *KeyedLimiter) limiter(key string) *Limiter {
	kl.mu.RLock()
	l, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		return l
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok = kl.entries[key]; ok {
		return l
	}
	l = New(kl.config.Burst, kl.config.RefillRate)
	kl.entries[key] = l
	return l
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

// Cleanup drops idle buckets and returns how many remain.
func (kl *KeyedLimiter) Cleanup() int {
	kl.mu.Lock()
	for key, l := range kl.entries {
		if l.IsFull() {
			delete(kl.entries, key)
		}
	}
	active := len(kl.entries)
	kl.mu.Unlock()

	if kl.config.Recorder != nil {
		kl.config.Recorder.SetRateLimiterKeys(kl.config.Name, active)
	}
	return active
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.Cleanup()
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call multiple times.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() { close(kl.stopCh) })
}
