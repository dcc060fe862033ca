package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLiveness(t *testing.T) {
	h := NewMux(nil, nil, testLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, AliveMessage, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checker := NewChecker(testLogger())
	checker.AddCheck("redis", NewRedisChecker(client))
	checker.AddCheck("inventory", CheckFunc(func(context.Context) error { return nil }))
	h := NewMux(checker, nil, testLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"redis": "OK", "inventory": "OK"}, body.Components)

	checker.AddCheck("inventory", CheckFunc(func(context.Context) error { return errors.New("store offline") }))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "store offline", body.Components["inventory"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(nil, nil, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestWebhookMounted(t *testing.T) {
	called := false
	hook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	NewMux(nil, hook, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, nil))
	assert.True(t, called)
}

func TestCheckers(t *testing.T) {
	assert.Error(t, NewRedisChecker(nil).HealthCheck(context.Background()))
	assert.Error(t, NewTelegramChecker(nil).HealthCheck(context.Background()))
	assert.Error(t, NewTelegramChecker(&telebot.Bot{}).HealthCheck(context.Background()))
	assert.NoError(t, NewTelegramChecker(&telebot.Bot{Me: &telebot.User{ID: 1}}).HealthCheck(context.Background()))

	checker := NewChecker(nil)
	checker.AddCheck("telegram", NewTelegramChecker(nil))
	checker.AddCheck("", NewTelegramChecker(nil))
	checker.AddCheck("redis", NewRedisChecker(nil))
	assert.Equal(t, []string{"redis", "telegram"}, checker.Names())
}
