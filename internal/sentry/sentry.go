// Package sentry initializes the Sentry SDK for error tracking, either with
// a plain DSN or with a Better Stack token and host.
package sentry

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/garyellow/chatshhs-go/internal/ctxutil"
)

// Config holds Sentry configuration.
type Config struct {
	// DSN is used as-is when set.
	DSN string

	// Token and Host build a Better Stack DSN when DSN is empty.
	Token string
	Host  string

	Environment string
	Release     string

	// SampleRate controls error sampling (0.0-1.0, default 1.0 = 100%).
	SampleRate float64

	Debug bool
}

// Initialize sets up the Sentry SDK. With neither DSN nor Token, Sentry is
// disabled and nil is returned.
func Initialize(cfg Config) error {
	dsn, err := cfg.dsn()
	if err != nil || dsn == "" {
		return err
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		BeforeSend:       scrubEvent,
	})
}

func (cfg Config) dsn() (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.Token == "" {
		return "", nil
	}
	if cfg.Host == "" {
		return "", fmt.Errorf("sentry host is required when token is provided")
	}
	// The project ID (/1) is required by the SDK but ignored by Better Stack.
	return fmt.Sprintf("https://%s@%s/1", cfg.Token, cfg.Host), nil
}

var secretParam = regexp.MustCompile(`(?i)(KEY|api_key|apikey)=[^&\s"]+`)

// Scrub masks credential query parameters in s.
func Scrub(s string) string {
	return secretParam.ReplaceAllString(s, "${1}=REDACTED")
}

func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.Message = Scrub(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = Scrub(event.Exception[i].Value)
	}
	if event.Request != nil {
		event.Request.URL = Scrub(event.Request.URL)
		event.Request.QueryString = Scrub(event.Request.QueryString)
	}
	return event
}

// Flush waits for buffered events to be sent to the server.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureExceptionWithContext captures err on the request's hub, tagged with
// the request and session IDs found in ctx.
func CaptureExceptionWithContext(ctx context.Context, err error) {
	if err == nil || !IsEnabled() {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if id, ok := ctxutil.GetRequestID(ctx); ok {
			scope.SetTag("request_id", id)
		}
		if id := ctxutil.GetSessionID(ctx); id != "" {
			scope.SetTag("session_id", id)
		}
		hub.CaptureException(err)
	})
}
