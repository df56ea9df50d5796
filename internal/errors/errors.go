// Package errors provides domain-specific error types and sentinel errors
// shared by the NEIS adapter, the dialogue resolver and the HTTP layer.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is() to check these errors.
var (
	// ErrInvalidInput indicates the caller provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidDate indicates a date token could not be normalized to YYYYMMDD.
	ErrInvalidDate = errors.New("invalid date")

	// ErrUnsupportedKind indicates a query named an unknown data endpoint.
	ErrUnsupportedKind = errors.New("unsupported query kind")

	// ErrMissingCredential indicates a required API key is not configured.
	ErrMissingCredential = errors.New("missing credential")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrSessionNotFound indicates the chat session does not exist or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoData indicates the upstream answered successfully with no rows.
	ErrNoData = errors.New("no data")
)

// IsInvalidInput reports whether err wraps ErrInvalidInput or ErrInvalidDate.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidDate)
}

// IsRateLimitExceeded reports whether err wraps ErrRateLimitExceeded.
func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap returns the sentinel the failure belongs to, if any.
func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}

// NewValidationError creates a new validation error wrapping ErrInvalidInput.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewDateError creates a validation error for a date token.
func NewDateError(token string) *ValidationError {
	return &ValidationError{
		Field:   "date",
		Message: fmt.Sprintf("%q is not a valid date", token),
		Err:     ErrInvalidDate,
	}
}

// UpstreamError represents a failed call to an external data provider.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Code       string // provider result code, e.g. ERROR-290
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("upstream error (endpoint=%s, code=%s): %v", e.Endpoint, e.Code, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("upstream error (endpoint=%s, status=%d): %v", e.Endpoint, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("upstream error (endpoint=%s): %v", e.Endpoint, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError creates a new upstream error.
func NewUpstreamError(endpoint string, statusCode int, err error) *UpstreamError {
	return &UpstreamError{Endpoint: endpoint, StatusCode: statusCode, Err: err}
}

// MissingCredentialError names the credential that could not be resolved.
type MissingCredentialError struct {
	Name string // environment variable name
	Path string // secrets store path
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s is required (set %s or secrets key %s)", e.Name, e.Name, e.Path)
}

func (e *MissingCredentialError) Unwrap() error {
	return ErrMissingCredential
}
