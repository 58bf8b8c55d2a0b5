// Package retry runs operations with exponential backoff. It is the single
// retry surface for outbound annotation API calls.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultMaxAttempts is the attempt cap used when the policy leaves it unset
	DefaultMaxAttempts = 5

	// DefaultInitialDelay is the base delay before the first retry
	DefaultInitialDelay = 500 * time.Millisecond
)

// Policy carries the caller-supplied retry configuration.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first attempt
	MaxAttempts uint

	// InitialDelay is the delay before the first retry; subsequent delays
	// grow exponentially with jitter
	InitialDelay time.Duration
}

// OnFailure observes every failed attempt, including ones that will be
// retried and the final one. attempt is 1-based.
type OnFailure func(err error, attempt uint)

// Predicate reports whether a failure is worth another attempt.
type Predicate func(err error) bool

// Always treats every failure as retryable.
func Always(error) bool { return true }

// Do runs op until it succeeds, the predicate rejects the failure, or the
// attempt budget is exhausted. The last error is returned unchanged so
// callers can inspect it with errors.Is / errors.As. The backoff wait between
// attempts is abandoned when ctx is cancelled; an attempt already in flight
// runs to completion.
func Do[T any](
	ctx context.Context,
	policy Policy,
	op func(ctx context.Context) (T, error),
	onFailure OnFailure,
	retryable Predicate,
) (T, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	initialDelay := policy.InitialDelay
	if initialDelay == 0 {
		initialDelay = DefaultInitialDelay
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = initialDelay

	var attempt uint
	wrapped := func() (T, error) {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		attempt++
		if onFailure != nil {
			onFailure(err, attempt)
		}
		if retryable != nil && !retryable(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(maxAttempts),
	)
}
