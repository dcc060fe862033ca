package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/number-bot/internal/bot/handlers"
	"github.com/Proton-105/number-bot/internal/idempotency"
	"github.com/Proton-105/number-bot/internal/ratelimit"
	"github.com/Proton-105/number-bot/pkg/config"
	"github.com/Proton-105/number-bot/pkg/logger"
)

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	args := m.Called(ctx, key, limit, window)
	result, _ := args.Get(0).(*ratelimit.Result)
	return result, args.Error(1)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRateLimit_Allow(t *testing.T) {
	rules := ratelimit.NewRules(config.RateLimitConfig{Enabled: true, Limit: 3, Window: time.Minute}, 1)
	limiter := &mockLimiter{}
	mw := NewRateLimitMiddleware(limiter, rules, "slow down", discard())
	ctx := context.Background()

	limiter.On("Check", mock.Anything, "user:2", 3, time.Minute).Return(&ratelimit.Result{Allowed: true}, nil).Once()
	limiter.On("Check", mock.Anything, "user:2", 3, time.Minute).Return(&ratelimit.Result{}, ratelimit.ErrLimitExceeded).Once()
	limiter.On("Check", mock.Anything, "user:3", 3, time.Minute).Return(nil, errors.New("redis down")).Once()

	assert.True(t, mw.Allow(ctx, 1), "whitelisted admin skips the limiter")
	assert.True(t, mw.Allow(ctx, 2))
	assert.False(t, mw.Allow(ctx, 2))
	assert.True(t, mw.Allow(ctx, 3), "limiter failures fail open")

	limiter.AssertExpectations(t)
}

func TestRateLimit_CheckReportsRetryAfter(t *testing.T) {
	rules := ratelimit.NewRules(config.RateLimitConfig{Enabled: true, Limit: 3, Window: time.Minute})
	limiter := &mockLimiter{}
	mw := NewRateLimitMiddleware(limiter, rules, "slow down", discard())

	resetAt := time.Now().Add(30 * time.Second)
	limiter.On("Check", mock.Anything, "user:9", 3, time.Minute).Return(&ratelimit.Result{ResetAt: resetAt}, ratelimit.ErrLimitExceeded).Once()

	appErr := mw.check(context.Background(), 9)
	require.NotNil(t, appErr)
	assert.Equal(t, "E500", appErr.Code)
	assert.Contains(t, appErr.UserMessage, "30 seconds")
}

func TestRetryAfter(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 1, retryAfter(nil, now))
	assert.Equal(t, 1, retryAfter(&ratelimit.Result{ResetAt: now.Add(-time.Second)}, now))
	assert.Equal(t, 3, retryAfter(&ratelimit.Result{ResetAt: now.Add(2500 * time.Millisecond)}, now))
}

func TestRateLimit_Disabled(t *testing.T) {
	limiter := &mockLimiter{}
	mw := NewRateLimitMiddleware(limiter, ratelimit.NewRules(config.RateLimitConfig{}), "", discard())

	assert.True(t, mw.Allow(context.Background(), 5))
	limiter.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMetrics_PassesThrough(t *testing.T) {
	want := errors.New("boom")
	h := Metrics(func(context.Context, *handlers.Request) error { return want })

	err := h(context.Background(), &handlers.Request{Route: "add_service"})
	assert.ErrorIs(t, err, want)

	require.NoError(t, Metrics(func(context.Context, *handlers.Request) error { return nil })(context.Background(), nil))
	assert.Nil(t, Metrics(nil))
}

func TestLoggingMiddleware_KeepsStatus(t *testing.T) {
	h := logger.Middleware(New(discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, logger.CorrelationIDFromContext(r.Context()))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}

func TestDedup_Seen(t *testing.T) {
	mw := NewDedupMiddleware(idempotency.NewGuard(idempotency.NewMemoryStore(), 1, time.Minute, discard()), discard())
	ctx := context.Background()

	assert.False(t, mw.Seen(ctx, 100))
	assert.True(t, mw.Seen(ctx, 100), "redelivered update is dropped")
	assert.False(t, mw.Seen(ctx, 101))
}

func TestMetrics_Outcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "timeout", outcome(fmt.Errorf("fetch: %w", context.DeadlineExceeded)))
	assert.Equal(t, "canceled", outcome(context.Canceled))
	assert.Equal(t, "error", outcome(errors.New("boom")))
}
