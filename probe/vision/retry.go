package vision

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy controls how adapters retry transient provider failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff ladder: BaseDelay, 2x, 4x...
	BaseDelay time.Duration

	// MaxDelay caps a single backoff wait.
	MaxDelay time.Duration

	// OnRetry, when set, is invoked before each backoff wait with the
	// failure class ("rate_limited", "server_error", ...). Used to feed
	// retry counters without coupling adapters to a metrics backend.
	OnRetry func(reason string)
}

// DefaultRetryPolicy mirrors the rate-limit handling the harness was tuned
// with: up to 8 attempts, 1s/2s/4s... backoff capped at 30 seconds, with
// server-suggested waits honored when present.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 8,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Delay returns the backoff wait before the given zero-indexed retry.
func (p RetryPolicy) Delay(retry int) time.Duration {
	d := p.BaseDelay << uint(retry)
	if d <= 0 || d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Retry invokes call until it succeeds, exhausts the policy, or hits a
// non-retryable error.
//
// Between attempts it waits for either the provider's suggested delay
// (see RetryAfterHint) or the policy's exponential backoff, whichever the
// failure supplies. Context cancellation aborts the wait immediately.
func Retry(ctx context.Context, policy RetryPolicy, call func() (Answer, error)) (Answer, error) {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Answer{}, err
		}

		ans, err := call()
		if err == nil {
			return ans, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return Answer{}, err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		if policy.OnRetry != nil {
			policy.OnRetry(failureClass(err))
		}

		wait := policy.Delay(attempt)
		if hint, ok := RetryAfterHint(err); ok && hint > 0 {
			wait = hint
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return Answer{}, ctx.Err()
		}
	}

	return Answer{}, fmt.Errorf("provider call failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}

// failureClass extracts the classified error code for retry accounting.
func failureClass(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	return "transient"
}
