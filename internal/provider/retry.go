package provider

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultCallTimeout and DefaultCallAttempts bound every concrete client's
// RPCs (§4.6): each attempt gets its own timeout, and only errors the caller
// classifies as transient are retried, up to DefaultCallAttempts total.
const (
	DefaultCallTimeout  = 30 * time.Second
	DefaultCallAttempts = 3
)

// Retrier wraps one provider RPC with a per-attempt timeout and exponential
// backoff between attempts. The zero value is usable; NewRetrier exists for
// readability at call sites.
type Retrier struct {
	Timeout  time.Duration
	Attempts int
}

// NewRetrier returns a Retrier configured with §4.6's defaults.
func NewRetrier() Retrier {
	return Retrier{Timeout: DefaultCallTimeout, Attempts: DefaultCallAttempts}
}

// Do calls fn under a fresh per-attempt timeout, retrying while transient
// reports the returned error as transient, up to r.Attempts attempts total.
// A non-transient error, or the final attempt's error, is returned as-is so
// the caller's own error-translation logic still applies to it.
func (r Retrier) Do(ctx context.Context, transient func(error) bool, fn func(ctx context.Context) error) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = DefaultCallAttempts
	}

	boff := backoff.NewExponentialBackOff()
	boff.InitialInterval = 250 * time.Millisecond
	boff.MaxInterval = timeout
	boff.MaxElapsedTime = 0

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		lastErr = fn(callCtx)
		cancel()

		if lastErr == nil || !transient(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(boff.NextBackOff()):
		}
	}
	return lastErr
}
