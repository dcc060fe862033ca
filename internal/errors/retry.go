package errors

import (
	"context"
	"errors"
	"time"
)

// Backoff describes how often and how patiently a retryable operation is repeated.
type Backoff struct {
	Retries int
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

// DefaultBackoff is used by WithRetry: four attempts, 200ms, 400ms and 800ms apart.
var DefaultBackoff = Backoff{
	Retries: 3,
	Initial: 100 * time.Millisecond,
	Max:     2 * time.Second,
	Factor:  2,
}

// Delay returns the wait before retry number n, counting from 1.
func (b Backoff) Delay(n int) time.Duration {
	d := float64(b.Initial)
	for i := 0; i < n; i++ {
		d *= b.Factor
		if time.Duration(d) >= b.Max {
			return b.Max
		}
	}
	return time.Duration(d)
}

// Run calls fn until it succeeds or returns an error that is not retryable.
// It gives up after b.Retries retries or when ctx is done, returning the last error fn produced.
func (b Backoff) Run(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	for n := 0; ; n++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		if err = fn(); err == nil || !IsRetryable(err) || n >= b.Retries {
			return err
		}

		timer := time.NewTimer(b.Delay(n + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// WithRetry runs fn under DefaultBackoff.
func WithRetry(ctx context.Context, fn func() error) error {
	return DefaultBackoff.Run(ctx, fn)
}

// IsRetryable reports whether err is an AppError marked retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr != nil && appErr.Retryable
}
