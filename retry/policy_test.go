package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(maxAttempts int) Policy {
	return Policy{MaxAttempts: maxAttempts, Backoff: Fixed(time.Millisecond)}
}

func TestPolicy_Success(t *testing.T) {
	attempts := 0
	err := fixed(3).Do(context.Background(), func(int) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestPolicy_EventualSuccess(t *testing.T) {
	attempts := 0
	err := fixed(5).Do(context.Background(), func(int) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestPolicy_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	err := fixed(3).Do(context.Background(), func(int) error {
		attempts++
		return expectedErr
	})
	require.Error(t, err)
	assert.Equal(t, expectedErr, err, "should return the last error")
	assert.Equal(t, 3, attempts, "should attempt exactly MaxAttempts times")
}

func TestPolicy_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := fixed(10).Do(ctx, func(int) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestPolicy_InvalidMaxAttempts(t *testing.T) {
	for _, maxAttempts := range []int{0, -1} {
		attempts := 0
		err := fixed(maxAttempts).Do(context.Background(), func(int) error {
			attempts++
			return errors.New("error")
		})
		require.ErrorIs(t, err, ErrInvalidMaxAttempts)
		assert.Equal(t, 0, attempts)
	}
}

func TestPolicy_NilBackoffDoesNotWait(t *testing.T) {
	p := Policy{MaxAttempts: 2}
	assert.NoError(t, p.Wait(context.Background(), 1))
}

func TestPolicy_OnceRetriesExactlyOnce(t *testing.T) {
	attempts := []int{}
	p := Once(time.Millisecond)

	err := p.Do(context.Background(), func(attempt int) error {
		attempts = append(attempts, attempt)
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestPolicy_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("missing api key")
	p := Policy{
		MaxAttempts: 5,
		Backoff:     Fixed(time.Millisecond),
		Retryable: func(err error) bool {
			return !errors.Is(err, fatal)
		},
	}

	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestPolicy_FixedDelayIsHonored(t *testing.T) {
	p := Once(20 * time.Millisecond)
	start := time.Now()
	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		if calls == 1 {
			return errors.New("first")
		}
		return nil
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
