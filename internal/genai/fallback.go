package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Recorder receives completion metrics. *metrics.Metrics implements it.
type Recorder interface {
	RecordLLMRequest(provider, status string, duration time.Duration)
	RecordLLMFallback(from, to string)
}

// FallbackCompleter tries a chain of completers in order. Each one is
// retried on transient errors; quota, auth and exhausted retries move on
// to the next; permanent errors stop the chain.
type FallbackCompleter struct {
	chain       []Completer
	retryConfig RetryConfig
	recorder    Recorder
}

// NewFallbackCompleter creates a fallback-enabled completer.
func NewFallbackCompleter(cfg RetryConfig, recorder Recorder, chain ...Completer) *FallbackCompleter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &FallbackCompleter{chain: chain, retryConfig: cfg, recorder: recorder}
}

// Complete runs req through the chain until one completer succeeds.
func (f *FallbackCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	if f == nil || len(f.chain) == 0 {
		return nil, errors.New("completer not configured")
	}

	var lastErr error
	for i, c := range f.chain {
		if i > 0 {
			prev := f.chain[i-1].Provider()
			slog.InfoContext(ctx, "falling back to next completer",
				"from", prev,
				"to", c.Provider(),
				"error", lastErr)
			if f.recorder != nil {
				f.recorder.RecordLLMFallback(prev.String(), c.Provider().String())
			}
		}

		start := time.Now()
		resp, err := f.completeWithRetry(ctx, c, req)
		f.record(c.Provider(), err, time.Since(start))
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || ClassifyError(err) == ActionFail {
			return nil, err
		}
	}

	slog.ErrorContext(ctx, "all completers failed",
		"chain_size", len(f.chain),
		"error", lastErr)
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// completeWithRetry attempts one completer with backoff between attempts.
func (f *FallbackCompleter) completeWithRetry(ctx context.Context, c Completer, req Request) (*Response, error) {
	var lastErr error

	for attempt := range f.retryConfig.MaxAttempts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, err := c.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry {
			return nil, err
		}
		if attempt == f.retryConfig.MaxAttempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, f.retryConfig.InitialDelay, f.retryConfig.MaxDelay)
		if !HasSufficientBudget(ctx, backoff) {
			return nil, fmt.Errorf("timeout during retry: %w", lastErr)
		}

		slog.DebugContext(ctx, "retrying completion",
			"provider", c.Provider(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)

		if err := Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (f *FallbackCompleter) record(p Provider, err error, d time.Duration) {
	if f.recorder == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	f.recorder.RecordLLMRequest(p.String(), status, d)
}

// Provider returns the primary provider type.
func (f *FallbackCompleter) Provider() Provider {
	if f == nil || len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].Provider()
}

// Len returns the number of completers in the chain.
func (f *FallbackCompleter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.chain)
}

// Close closes every completer in the chain.
func (f *FallbackCompleter) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, c := range f.chain {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
