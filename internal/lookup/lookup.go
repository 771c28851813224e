// Package lookup wraps calls to external services with a timeout, a small
// bounded retry and an optional fallback value.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/awaistahir/skyplan/internal/metrics"
	"github.com/cenkalti/backoff/v4"
)

// Policy controls how a single lookup is attempted
type Policy struct {
	Timeout    time.Duration // per attempt, 0 means only the parent context applies
	MaxRetries uint64        // extra attempts after the first
	RetryDelay time.Duration
}

// DefaultPolicy is one attempt plus one retry, five seconds each
var DefaultPolicy = Policy{
	Timeout:    5 * time.Second,
	MaxRetries: 1,
	RetryDelay: 200 * time.Millisecond,
}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs fn under p. The returned error is the last attempt's error.
func Do[T any](ctx context.Context, provider string, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()

	var result T
	operation := func() error {
		callCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}

		v, err := fn(callCtx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.RetryDelay), p.MaxRetries),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		log.Printf("%s: attempt failed, retrying in %s: %v", provider, wait, err)
	}

	err := backoff.RetryNotify(operation, bo, notify)

	metrics.LookupLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	metrics.LookupCallsTotal.WithLabelValues(provider, outcome(err)).Inc()

	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// WithFallback runs fn under p and returns fallback(err) if it fails
func WithFallback[T any](ctx context.Context, provider string, p Policy, fn func(ctx context.Context) (T, error), fallback func(err error) T) T {
	v, err := Do(ctx, provider, p, fn)
	if err != nil {
		log.Printf("%s: using fallback: %v", provider, err)
		return fallback(err)
	}
	return v
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// StatusError is a non-2xx response from an external API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// CheckStatus returns nil for 2xx responses. Rate limiting and server errors
// are retryable, any other status is permanent.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := &StatusError{StatusCode: resp.StatusCode, Body: string(b)}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return err
	}
	return backoff.Permanent(err)
}
