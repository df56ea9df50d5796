package neis

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"

	domerrors "github.com/garyellow/chatshhs-go/internal/errors"
)

// maxRetryDelay caps a single backoff wait.
const maxRetryDelay = 5 * time.Second

// serverFaultCodes are envelope codes for failures on the NEIS side that a
// later attempt can clear. Key, parameter and quota codes are final.
var serverFaultCodes = map[string]bool{
	"ERROR-500": true, // 서버 오류
	"ERROR-600": true, // 데이터베이스 연결 오류
	"ERROR-601": true, // SQL 문장 오류
}

// retryable reports whether another attempt could succeed. Transport
// failures, unreadable bodies, 429, 5xx and server fault codes qualify.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, domerrors.ErrNoData) {
		return false
	}
	var upErr *domerrors.UpstreamError
	if !errors.As(err, &upErr) {
		return false
	}
	switch {
	case upErr.Code != "":
		return serverFaultCodes[upErr.Code]
	case upErr.StatusCode == 0:
		return true
	default:
		return upErr.StatusCode == http.StatusTooManyRequests || upErr.StatusCode >= 500
	}
}

// backoff returns the wait before the given retry (1-based): the delay
// doubles from initial up to maxRetryDelay and is jittered into [d/2, d].
func backoff(retry int, initial time.Duration) time.Duration {
	d := initial << (retry - 1)
	if d <= 0 || d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d/2 + rand.N(d/2+1)
}

// withRetry runs attempt once plus up to maxRetries retries. Only
// retryable errors are retried; the last error is returned.
func (c *Client) withRetry(ctx context.Context, endpointName string, attempt func() error) error {
	for n := 0; ; n++ {
		err := attempt()
		if err == nil || n >= c.maxRetries || !retryable(err) {
			return err
		}

		delay := backoff(n+1, c.retryDelay)
		c.log.WithError(err).
			WithField("endpoint", endpointName).
			WithField("retry", n+1).
			WithField("delay_ms", delay.Milliseconds()).
			Warn("Retrying NEIS request")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
