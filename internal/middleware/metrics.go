package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/Proton-105/number-bot/internal/bot/handlers"
	"github.com/Proton-105/number-bot/pkg/metrics"
)

// Metrics reports the duration and outcome of every routed event to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(ctx context.Context, req *handlers.Request) error {
		start := time.Now()
		err := next(ctx, req)

		route := "unknown"
		if req != nil && req.Route != "" {
			route = req.Route
		}
		metrics.RecordEvent(route, outcome(err), time.Since(start))

		return err
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
