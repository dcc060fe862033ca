package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gopkg.in/telebot.v3"

	apperrors "github.com/Proton-105/number-bot/internal/errors"
	"github.com/Proton-105/number-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	notice  string
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component. notice is sent to throttled users.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, notice string, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		notice:  notice,
		log:     log,
	}
}

// Allow reports whether userID may proceed. Limiter failures let the update through.
func (m *RateLimitMiddleware) Allow(ctx context.Context, userID int64) bool {
	return m.check(ctx, userID) == nil
}

// check returns a rate-limit error when userID is throttled.
func (m *RateLimitMiddleware) check(ctx context.Context, userID int64) *apperrors.AppError {
	if m.limiter == nil || m.rules == nil || !m.rules.Enabled() || m.rules.IsWhitelisted(userID) {
		return nil
	}

	limit, window, err := m.rules.GetPerUserLimit()
	if err != nil {
		m.log.Error("failed to load per-user rate limit", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil
	}

	result, err := m.limiter.Check(ctx, fmt.Sprintf("user:%d", userID), limit, window)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrLimitExceeded):
		appErr := apperrors.NewRateLimitError(retryAfter(result, time.Now()))
		m.log.Warn("rate limit exceeded", slog.Int64("user_id", userID), slog.String("code", appErr.Code), slog.Any("error", appErr))
		return appErr
	default:
		m.log.Warn("rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil
	}
}

// retryAfter rounds the wait until the window resets up to whole seconds, at least one.
func retryAfter(result *ratelimit.Result, now time.Time) int {
	if result == nil {
		return 1
	}

	secs := int(math.Ceil(result.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Handle returns a telebot middleware that enforces per-user rate limits.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil || m.Allow(context.Background(), sender.ID) {
			return next(c)
		}

		if c.Callback() != nil {
			return c.Respond(&telebot.CallbackResponse{Text: m.notice})
		}
		return c.Send(m.notice)
	}
}
