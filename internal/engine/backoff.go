package engine

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultBackoffStart and DefaultBackoffMax bound the retry delay §7 assigns
// to transient-infra and corrupt-artifact failures: min(backoff-max,
// backoff-start * 2^failure-count), jittered by ±20%.
const (
	DefaultBackoffStart = 1 * time.Second
	DefaultBackoffMax   = 7 * time.Minute
	backoffJitterFactor = 0.2
)

// Thresholds §7 assigns before a retried failure is surfaced as Ready=False,
// to avoid flapping on a blip that resolves itself within a few attempts.
const (
	transientInfraThreshold  = 3
	corruptArtifactThreshold = 2
)

// backoffDelay computes the delay for the (failureCount)'th consecutive
// failure using the same exponential-backoff shape as internal/scheduler,
// without needing a persistent per-key instance: a fresh ExponentialBackOff
// advances deterministically from its initial interval, so replaying it
// failureCount+1 times reproduces backoff-start * 2^failureCount capped at
// backoff-max.
func backoffDelay(failureCount int, start, max time.Duration) time.Duration {
	boff := backoff.NewExponentialBackOff()
	boff.InitialInterval = start
	boff.MaxInterval = max
	boff.Multiplier = 2
	boff.RandomizationFactor = backoffJitterFactor
	boff.MaxElapsedTime = 0

	delay := boff.NextBackOff()
	for i := 0; i < failureCount; i++ {
		delay = boff.NextBackOff()
	}
	return delay
}
