// Package ratelimit throttles updates per telegram user.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Result captures the outcome of a rate-limit evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter checks one hit against a sliding window.
// A rejected hit returns its Result together with ErrLimitExceeded and is not counted.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// ErrLimitExceeded indicates the rate limit has been reached for the key.
var ErrLimitExceeded = errors.New("rate limit exceeded")

func rejected(resetAt time.Time) (*Result, error) {
	return &Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, ErrLimitExceeded
}
