package genai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrorAction defines the action to take based on error type.
type ErrorAction int

const (
	// ActionRetry indicates the request should be retried with the same model.
	ActionRetry ErrorAction = iota
	// ActionFallback indicates the next model or provider should be tried.
	ActionFallback
	// ActionFail indicates the request should fail immediately.
	ActionFail
)

// String returns a human-readable string for the error action.
func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// LLMError wraps a provider error with its HTTP status.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
	Model      string
}

// Error implements the error interface.
func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *LLMError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider, model and status code information.
func WrapError(err error, provider Provider, model string, statusCode int) error {
	if err == nil {
		return nil
	}
	return &LLMError{Err: err, StatusCode: statusCode, Provider: provider, Model: model}
}

// ClassifyError determines the appropriate action based on the error:
//   - transient errors (429, 5xx, network, timeout) → retry
//   - quota exhaustion, unknown model → fallback
//   - other client errors, cancellation → fail
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}

	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}

	errStr := strings.ToLower(err.Error())

	// Quota exhaustion reads like a 429 but will not recover by waiting.
	if containsAny(errStr, "quota", "daily limit", "monthly limit", "billing", "insufficient_quota") {
		return ActionFallback
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	switch {
	case containsAny(errStr, "rate limit", "too many requests", "resource_exhausted", "429"):
		return ActionRetry
	case containsAny(errStr, "unavailable", "internal server error", "bad gateway",
		"gateway timeout", "overloaded", "capacity", "500", "502", "503", "504"):
		return ActionRetry
	case containsAny(errStr, "timeout", "deadline", "connection", "eof"):
		return ActionRetry
	case containsAny(errStr, "401", "unauthorized", "unauthenticated", "api key",
		"403", "forbidden", "permission denied"):
		return ActionFallback
	case containsAny(errStr, "404", "not found", "400", "invalid", "bad request", "malformed", "422"):
		return ActionFail
	default:
		return ActionRetry
	}
}

// classifyStatusCode determines action based on HTTP status code.
// Authentication and unknown-model failures are provider specific, so the
// next provider may still succeed.
func classifyStatusCode(statusCode int) ErrorAction {
	switch {
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusConflict,
		statusCode >= 500 && statusCode < 600:
		return ActionRetry
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden,
		statusCode == http.StatusNotFound:
		return ActionFallback
	case statusCode >= 400 && statusCode < 500:
		return ActionFail
	default:
		return ActionRetry
	}
}

// IsRetryable returns true if the error is transient and can be retried.
func IsRetryable(err error) bool {
	return ClassifyError(err) == ActionRetry
}

// containsAny checks if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
