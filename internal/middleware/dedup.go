package middleware

import (
	"context"
	"log/slog"

	"gopkg.in/telebot.v3"

	"github.com/Proton-105/number-bot/internal/idempotency"
	"github.com/Proton-105/number-bot/pkg/metrics"
)

// DedupMiddleware skips Telegram updates that were already handled, such as webhook redeliveries.
type DedupMiddleware struct {
	guard *idempotency.Guard
	log   *slog.Logger
}

// NewDedupMiddleware builds the middleware around guard.
func NewDedupMiddleware(guard *idempotency.Guard, log *slog.Logger) *DedupMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &DedupMiddleware{guard: guard, log: log}
}

// Seen reports whether updateID should be skipped.
func (m *DedupMiddleware) Seen(ctx context.Context, updateID int) bool {
	if !m.guard.Duplicate(ctx, updateID) {
		return false
	}

	m.log.Debug("dropping duplicate update", slog.Int("update_id", updateID))
	metrics.RecordDuplicateUpdate()
	return true
}

// Handle returns a telebot middleware that drops duplicates without replying.
func (m *DedupMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.Seen(context.Background(), c.Update().ID) {
			return nil
		}
		return next(c)
	}
}
