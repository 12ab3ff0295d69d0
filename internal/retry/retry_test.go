package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coopdigital/tenant-harness/internal/logger"
	"github.com/coopdigital/tenant-harness/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errProbeFailed = errors.New("endpoint not ready")

func newHelper(t *testing.T) *retry.Helper {
	t.Helper()
	return retry.NewHelper(logger.NewDefaultLogger("error"))
}

func TestDoSucceedsOnKthAttempt(t *testing.T) {
	helper := newHelper(t)

	calls := 0
	err := helper.Do(context.Background(), retry.Config{
		Attempts: 5,
		Delay:    time.Millisecond,
	}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errProbeFailed
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls, "operation should not run again after the first success")
}

func TestDoReturnsLastErrorAfterExhaustion(t *testing.T) {
	helper := newHelper(t)

	calls := 0
	err := helper.Do(context.Background(), retry.Config{
		Attempts: 4,
		Delay:    time.Millisecond,
	}, func(ctx context.Context) error {
		calls++
		return errProbeFailed
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errProbeFailed)
	assert.Equal(t, 4, calls, "budget must be spent exactly, counted from 1")
}

func TestDoZeroAttemptsTreatedAsOne(t *testing.T) {
	helper := newHelper(t)

	calls := 0
	err := helper.Do(context.Background(), retry.Config{}, func(ctx context.Context) error {
		calls++
		return errProbeFailed
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoContextCancellationInterruptsDelay(t *testing.T) {
	helper := newHelper(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	err := helper.Do(ctx, retry.Config{
		Attempts: 10,
		Delay:    time.Second,
	}, func(ctx context.Context) error {
		calls++
		return errProbeFailed
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errProbeFailed, "the wrapped error must keep the last attempt failure")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "the wrapped error must keep the context cause")
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second, "cancellation must interrupt the inter-attempt sleep")
}

func TestDoCancelledBeforeFirstAttempt(t *testing.T) {
	helper := newHelper(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := helper.Do(ctx, retry.Config{Attempts: 3}, func(ctx context.Context) error {
		calls++
		return errProbeFailed
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
