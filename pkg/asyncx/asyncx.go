package asyncx

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Result is the outcome of one function run by AllSettled.
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) OK() bool { return r.Err == nil }

// FirstError returns the first non-nil error in input order.
func FirstError[T any](results []Result[T]) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// AllSettled runs fns concurrently and returns one Result per fn, in order.
func AllSettled[T any](ctx context.Context, fns ...func(context.Context) (T, error)) []Result[T] {
	results := make([]Result[T], len(fns))

	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i].Value, results[i].Err = fn(ctx)
		}()
	}
	wg.Wait()

	return results
}

// All runs fns concurrently and returns their values in order, or the first
// error in input order. It always waits for every fn.
func All[T any](ctx context.Context, fns ...func(context.Context) (T, error)) ([]T, error) {
	settled := AllSettled(ctx, fns...)
	if err := FirstError(settled); err != nil {
		return nil, err
	}

	values := make([]T, len(settled))
	for i, r := range settled {
		values[i] = r.Value
	}
	return values, nil
}

// ============================================================================
// Retry
// ============================================================================

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as final. RetryWithBackoff stops and returns the
// unwrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff calls fn at most attempts times, sleeping initialDelay
// after the first failure and doubling it after each one. Cancellation of
// ctx ends the loop with ctx.Err().
func RetryWithBackoff[T any](
	ctx context.Context,
	attempts int,
	initialDelay time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T
	attempts = max(attempts, 1)
	delay := initialDelay

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err

		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return zero, lastErr
}

// ============================================================================
// Timeout
// ============================================================================

// WithTimeout runs fn under a deadline of d. When fn overruns, the deadline
// error is returned and fn's eventual result is discarded.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan Result[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- Result[T]{Value: v, Err: err}
	}()

	select {
	case r := <-done:
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
