package asyncx_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abraxas-365/relay/pkg/asyncx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_PreservesOrder(t *testing.T) {
	got, err := asyncx.All(context.Background(),
		func(context.Context) (int, error) { time.Sleep(5 * time.Millisecond); return 1, nil },
		func(context.Context) (int, error) { return 2, nil },
	)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
}

func TestAll_ReturnsError(t *testing.T) {
	boom := errors.New("boom")
	_, err := asyncx.All(context.Background(),
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (int, error) { return 0, boom },
	)
	assert.ErrorIs(t, err, boom)
}

func TestAllSettled_RunsEverything(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	results := asyncx.AllSettled(context.Background(),
		func(context.Context) (struct{}, error) { calls.Add(1); return struct{}{}, boom },
		func(context.Context) (struct{}, error) { calls.Add(1); return struct{}{}, nil },
	)
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, results[0].OK())
	assert.True(t, results[1].OK())
	assert.ErrorIs(t, asyncx.FirstError(results), boom)
}

func TestRetryWithBackoff_RetriesUntilSuccess(t *testing.T) {
	var calls int
	v, err := asyncx.RetryWithBackoff(context.Background(), 3, time.Millisecond, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_StopsOnPermanent(t *testing.T) {
	var calls int
	cause := errors.New("bad input")
	_, err := asyncx.RetryWithBackoff(context.Background(), 5, time.Millisecond, func(context.Context) (string, error) {
		calls++
		return "", asyncx.Permanent(cause)
	})
	assert.Same(t, cause, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := asyncx.RetryWithBackoff(ctx, 3, time.Millisecond, func(context.Context) (int, error) {
		return 0, errors.New("never called")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithTimeout(t *testing.T) {
	_, err := asyncx.WithTimeout(context.Background(), 5*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		time.Sleep(time.Millisecond)
		return 0, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
