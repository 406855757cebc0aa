// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package retry

import (
	"context"
	"log/slog"
	"time"
)

// DefaultDelay is the pause before the single retry used across the pipeline.
const DefaultDelay = 2 * time.Second

// BackoffFunc returns the delay to wait after the given failed attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// Backoff computes the wait after a failed attempt. Nil means no wait.
	Backoff BackoffFunc

	// Retryable reports whether an error should be retried. Nil retries every error.
	Retryable func(error) bool
}

// Fixed waits the same delay after every failed attempt.
func Fixed(delay time.Duration) BackoffFunc {
	return func(int) time.Duration {
		return delay
	}
}

// Once retries a failed operation exactly one time after delay.
func Once(delay time.Duration) Policy {
	return Policy{MaxAttempts: 2, Backoff: Fixed(delay)}
}

// Default is Once(DefaultDelay).
func Default() Policy {
	return Once(DefaultDelay)
}

// Do runs operation until it succeeds, returns a non-retryable error, the
// attempts are exhausted or ctx is done. The error of the last attempt is
// returned on exhaustion.
func (p Policy) Do(ctx context.Context, operation func(attempt int) error) error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation(attempt)
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", p.MaxAttempts, "err", lastErr)

		if attempt == p.MaxAttempts {
			break
		}

		if err := p.Wait(ctx, attempt); err != nil {
			return err
		}
	}

	return lastErr
}

// Wait blocks for the backoff following the given failed attempt, or until
// ctx is done.
func (p Policy) Wait(ctx context.Context, attempt int) error {
	if p.Backoff == nil {
		return nil
	}
	delay := p.Backoff(attempt)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
