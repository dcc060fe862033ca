package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rateLimitChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numbot_ratelimit_checks_total",
		Help: "Rate limit checks by backend and result.",
	}, []string{"backend", "result"})

	rateLimitBackendErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "numbot_ratelimit_backend_errors_total",
		Help: "Errors returned by the primary rate limit backend.",
	})
)

// AdaptiveLimiter asks the primary limiter and falls back to the secondary one when the primary fails.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

var _ Limiter = (*AdaptiveLimiter)(nil)

// NewAdaptiveLimiter combines a shared (Redis) limiter with a local fallback.
func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, span time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, span)
	if err == nil || errors.Is(err, ErrLimitExceeded) {
		rateLimitChecksTotal.WithLabelValues("primary", resultLabel(err)).Inc()
		return result, err
	}

	rateLimitBackendErrorsTotal.Inc()
	a.log.Warn("primary limiter failed, falling back", slog.String("key", key), slog.Any("error", err))

	result, err = a.fallback.Check(ctx, key, limit, span)
	rateLimitChecksTotal.WithLabelValues("fallback", resultLabel(err)).Inc()
	return result, err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "allowed"
	case errors.Is(err, ErrLimitExceeded):
		return "rejected"
	default:
		return "error"
	}
}
