package ratelimit

import (
	"errors"
	"time"

	"github.com/Proton-105/number-bot/pkg/config"
)

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config    config.RateLimitConfig
	whitelist map[int64]struct{}
}

// NewRules constructs rules from configuration. Extra ids, such as the admin, are always whitelisted.
func NewRules(cfg config.RateLimitConfig, extra ...int64) *Rules {
	whitelist := make(map[int64]struct{}, len(cfg.Whitelist)+len(extra))
	for _, id := range cfg.Whitelist {
		whitelist[id] = struct{}{}
	}
	for _, id := range extra {
		whitelist[id] = struct{}{}
	}

	return &Rules{config: cfg, whitelist: whitelist}
}

// Enabled reports whether limiting is switched on.
func (r *Rules) Enabled() bool {
	return r.config.Enabled
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	_, ok := r.whitelist[userID]
	return ok
}

// GetPerUserLimit returns the per-user limit and window.
func (r *Rules) GetPerUserLimit() (int, time.Duration, error) {
	if r.config.Window <= 0 {
		return r.config.Limit, 0, errors.New("rate limit window is not set")
	}
	if r.config.Limit <= 0 {
		return 0, 0, errors.New("rate limit is not positive")
	}
	return r.config.Limit, r.config.Window, nil
}
