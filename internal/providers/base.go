package providers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/haasonsaas/agentrun/internal/retry"
)

// retryConfig is spec.md §4.3 step 5's schedule: exponential backoff
// starting at 1s, factor 2, capped at 60s, capped at 5 attempts.
var retryConfig = retry.Config{
	MaxAttempts:  5,
	InitialDelay: time.Second,
	MaxDelay:     60 * time.Second,
	Factor:       2.0,
	Jitter:       false,
}

// retryableHTTPError marks a response as eligible for retry and, when the
// server supplied one, carries the Retry-After delay that should override
// the computed backoff for the next attempt.
type retryableHTTPError struct {
	status     int
	retryAfter time.Duration
	hasAfter   bool
	body       string
}

func (e *retryableHTTPError) Error() string {
	return "retryable http status " + strconv.Itoa(e.status) + ": " + truncate([]byte(e.body), 500)
}

// isRetryableStatus reports whether an HTTP status code should be retried
// per spec.md §4.3 step 5: 429 or any 5xx.
func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func parseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(header); err == nil {
		d := time.Until(when)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// doWithRetry executes op, retrying on transport errors and on the
// retryableHTTPError sentinel op can return. It honors a Retry-After delay
// when the error carries one, otherwise uses the exponential schedule in
// retryConfig. Errors op wraps with retry.Permanent propagate immediately;
// every other error, including any *retryableHTTPError, is retried.
func doWithRetry(ctx context.Context, op func(attempt int) error) error {
	delay := retryConfig.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= retryConfig.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if retry.IsPermanent(err) {
			return err
		}
		if attempt == retryConfig.MaxAttempts {
			break
		}

		sleep := delay
		if httpErr, ok := err.(*retryableHTTPError); ok && httpErr.hasAfter {
			sleep = httpErr.retryAfter
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		delay = time.Duration(float64(delay) * retryConfig.Factor)
		if delay > retryConfig.MaxDelay {
			delay = retryConfig.MaxDelay
		}
	}
	return lastErr
}
