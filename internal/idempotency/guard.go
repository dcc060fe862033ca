// Package idempotency drops repeated deliveries of the same Telegram update.
package idempotency

import (
	"context"
	"log/slog"
	"time"
)

const defaultTTL = 10 * time.Minute

// Guard decides whether an update was already handled.
type Guard struct {
	store Store
	botID int64
	ttl   time.Duration
	log   *slog.Logger
}

// NewGuard wraps store. A non-positive ttl falls back to ten minutes.
func NewGuard(store Store, botID int64, ttl time.Duration, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Guard{store: store, botID: botID, ttl: ttl, log: log}
}

// Duplicate reports whether the update has been seen before.
// Store failures let the update through.
func (g *Guard) Duplicate(ctx context.Context, updateID int) bool {
	if g == nil || g.store == nil || updateID == 0 {
		return false
	}

	first, err := g.store.Claim(ctx, UpdateKey(g.botID, updateID), g.ttl)
	if err != nil {
		g.log.Warn("idempotency check failed, processing update", slog.Int("update_id", updateID), slog.Any("error", err))
		return false
	}

	return !first
}
