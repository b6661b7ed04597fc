package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithMaxAttempts(5), WithBackoff(Fixed(time.Millisecond)))
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("still broken")
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	}, WithMaxAttempts(3), WithBackoff(Fixed(time.Millisecond)))
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("fatal")
	}, WithRetryIf(func(error) bool { return false }))
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRespectsDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Do(ctx, func(ctx context.Context) error {
		return errors.New("transient")
	}, WithMaxAttempts(100), WithBackoff(Fixed(10*time.Millisecond)))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExponentialBackoffCapped(t *testing.T) {
	b := Exponential(10*time.Millisecond, 40*time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, b.Next(0))
	assert.Equal(t, 20*time.Millisecond, b.Next(1))
	assert.Equal(t, 40*time.Millisecond, b.Next(2))
	assert.Equal(t, 40*time.Millisecond, b.Next(5))
}
