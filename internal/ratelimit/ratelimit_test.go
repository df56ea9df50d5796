package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNew(t *testing.T) {
	t.Parallel()
	l := New(10, 5)
	if l.maxTokens != 10 {
		t.Errorf("maxTokens = %v, want 10", l.maxTokens)
	}
	if l.refillRate != 5 {
		t.Errorf("refillRate = %v, want 5", l.refillRate)
	}
	if l.tokens != 10 {
		t.Errorf("initial tokens = %v, want 10", l.tokens)
	}
}

func TestAllowAndRefill(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := newWithClock(3, 1, clock.Now)

	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("request %d denied, want allowed", i)
		}
	}
	if l.Allow() {
		t.Fatal("request allowed on empty bucket")
	}
	if got := l.RetryAfter(); got != time.Second {
		t.Errorf("RetryAfter = %v, want 1s", got)
	}

	clock.Advance(500 * time.Millisecond)
	if l.Allow() {
		t.Error("half a token should not allow a request")
	}

	clock.Advance(500 * time.Millisecond)
	if !l.Allow() {
		t.Error("refilled token should allow a request")
	}

	clock.Advance(time.Hour)
	if !l.IsFull() {
		t.Error("bucket should be full after a long idle period")
	}
	if got := l.Available(); got != 3 {
		t.Errorf("Available = %v, want 3 (capped)", got)
	}
}

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("acquires immediately", func(t *testing.T) {
		t.Parallel()
		l := New(1, 1)
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	})

	t.Run("waits for refill", func(t *testing.T) {
		t.Parallel()
		l := New(1, 20) // one token per 50ms
		l.Allow()

		start := time.Now()
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
			t.Errorf("Wait returned after %v, expected to block for a refill", elapsed)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		t.Parallel()
		l := New(1, 0.001)
		l.Allow()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := l.Wait(ctx); err != context.DeadlineExceeded {
			t.Errorf("Wait err = %v, want deadline exceeded", err)
		}
	})
}

func TestConcurrentAllow(t *testing.T) {
	t.Parallel()
	l := New(50, 0.0001)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}
