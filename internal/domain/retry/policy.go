// Package retry defines the retry policy and executor for outbound AI calls.
package retry

import (
	"context"
	"math"
	"time"

	"tutorchat/internal/domain/chaterrors"
	"tutorchat/internal/domain/status"
)

// Policy defines a retry strategy for a remote call.
type Policy struct {
	MaxRetries      int           `json:"max_retries"`
	InitialDelay    time.Duration `json:"initial_delay"`
	MaxDelay        time.Duration `json:"max_delay"`
	AttemptTimeout  time.Duration `json:"attempt_timeout"`
	BackoffStrategy BackoffType   `json:"backoff_strategy"`
}

// BackoffType identifies the backoff strategy.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"       // Same delay each time
	BackoffLinear      BackoffType = "linear"      // Delay increases linearly
	BackoffExponential BackoffType = "exponential" // Delay doubles each time
)

// DefaultPolicy returns the policy the prediction dispatch ships with:
// two retries after the initial attempt, a 500ms linear backoff step and a
// hard 15s timeout per attempt.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      2,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        30 * time.Second,
		AttemptTimeout:  15 * time.Second,
		BackoffStrategy: BackoffLinear,
	}
}

// NoRetryPolicy returns a policy that never retries.
func NoRetryPolicy() Policy {
	return Policy{
		MaxRetries:     0,
		AttemptTimeout: 15 * time.Second,
	}
}

// CalculateDelay calculates the delay after the given number of completed
// attempts (1-based: attempt 1 is the delay before the first retry).
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay time.Duration

	switch p.BackoffStrategy {
	case BackoffFixed:
		delay = p.InitialDelay
	case BackoffLinear:
		delay = p.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		delay = p.InitialDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	default:
		delay = p.InitialDelay
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	return delay
}

// ShouldRetry determines if another attempt should be made.
func (p *Policy) ShouldRetry(attempt int, severity status.ErrorSeverity) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	return severity.IsRetryable()
}

// Executor provides retry execution functionality.
type Executor struct {
	policy Policy
}

// NewExecutor creates a new retry executor with the given policy.
func NewExecutor(policy Policy) *Executor {
	return &Executor{policy: policy}
}

// Policy returns the executor's configured policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// RetryableFunc is a function that can be retried. The context passed in
// carries the per-attempt timeout.
type RetryableFunc func(ctx context.Context, attempt int) error

// Execute runs the function with retries according to the policy. Each
// attempt runs under its own timeout; a failure that classifies as fatal
// stops immediately, and once MaxRetries is exhausted the error from the
// final attempt is returned unchanged.
func (e *Executor) Execute(ctx context.Context, fn RetryableFunc) error {
	_, err := ExecuteWithResult(ctx, e.policy, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}

// ExecuteWithResult runs fn with retries and returns its result.
func ExecuteWithResult[T any](ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := runAttempt(ctx, policy.AttemptTimeout, attempt, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !policy.ShouldRetry(attempt, chaterrors.SeverityOf(err)) {
			break
		}

		delay := policy.CalculateDelay(attempt + 1)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, attempt int, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx, attempt)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx, attempt)
}
