// Package remote holds the error classification and retry policy shared by
// the clients that talk to external AI providers.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// APIError is a non-2xx response from a remote provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API returned status %d: %s", e.StatusCode, e.Body)
}

// RateLimited reports whether the provider rejected the call for quota reasons.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == 429
}

// Transient reports whether the call is worth retrying. 429/503 and other
// 5xx responses are transient; 400/401/403 mean the request itself is bad
// and must not be repeated.
func (e *APIError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.RateLimited()
}

// IsTransient reports whether err is worth retrying: a transient API status,
// a timeout, or a connection failure.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// Policy is a bounded exponential backoff.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Do runs fn up to p.Attempts times, sleeping with doubling backoff between
// attempts while retryable(err) holds. The first non-retryable error is
// returned immediately; otherwise the last error is returned.
func (p Policy) Do(ctx context.Context, logger *zap.Logger, retryable func(error) bool, fn func() error) error {
	delay := p.BaseDelay

	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == p.Attempts {
			break
		}

		logger.Warn("Remote call failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return err
}
