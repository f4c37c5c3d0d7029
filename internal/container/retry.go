// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"
	"time"

	"toolhost-cli/internal/runner"

	"github.com/charmbracelet/log"
)

// RetryPolicy bounds how container invocations are retried.
type RetryPolicy struct {
	// Attempts is the total number of tries; values below 1 mean 1.
	Attempts int
	// Backoff is the wait before the second try; it doubles after each retry.
	Backoff time.Duration
}

// RetryWithBackoff retries op up to maxAttempts times with exponential backoff.
// Cancelling ctx aborts the wait between attempts.
//
// op returns (shouldRetry bool, err error). If shouldRetry is false, err is
// returned immediately (nil on success, non-nil on permanent failure).
// On retry exhaustion, the last error is returned.
func RetryWithBackoff(
	ctx context.Context,
	maxAttempts int,
	baseBackoff time.Duration,
	op func(attempt int) (retry bool, err error),
) error {
	var lastErr error
	for attempt := range max(maxAttempts, 1) {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-time.After(baseBackoff * time.Duration(1<<(attempt-1))):
			}
		}

		retry, err := op(attempt)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// errTransient marks an attempt whose outcome is worth retrying.
type errTransient struct{ outcome *runner.ExecutionOutcome }

func (e errTransient) Error() string {
	return fmt.Sprintf("transient container engine failure (exit code %s)", e.outcome.ExitCode)
}

// RunWithRetry calls run until it yields an outcome that is not a transient
// engine failure or the policy is exhausted, and returns the last outcome.
// Start errors are returned immediately.
func RunWithRetry(
	ctx context.Context,
	policy RetryPolicy,
	logger *log.Logger,
	run func(ctx context.Context, attempt int) (*runner.ExecutionOutcome, error),
) (*runner.ExecutionOutcome, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	var (
		last     *runner.ExecutionOutcome
		startErr error
	)
	err := RetryWithBackoff(ctx, policy.Attempts, policy.Backoff, func(attempt int) (bool, error) {
		outcome, err := run(ctx, attempt)
		if err != nil {
			startErr = err
			return false, err
		}
		last = outcome
		if IsTransientOutcome(outcome) {
			logger.Warn("transient container engine failure", "attempt", attempt+1, "of", max(policy.Attempts, 1))
			return true, errTransient{outcome}
		}
		return false, nil
	})
	if startErr != nil {
		return nil, startErr
	}
	if last != nil {
		// Exhausted retries or an aborted wait still leave a real outcome.
		return last, nil
	}
	return nil, err
}
