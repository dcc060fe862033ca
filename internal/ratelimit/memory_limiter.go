package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type window struct {
	hits []time.Time
}

// MemoryLimiter keeps sliding windows in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
	log     *slog.Logger
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter returns an in-memory limiter.
func NewMemoryLimiter(log *slog.Logger) *MemoryLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
		log:     log,
	}
}

// Check enforces a sliding-window limit for the provided key.
func (m *MemoryLimiter) Check(_ context.Context, key string, limit int, span time.Duration) (*Result, error) {
	now := m.now()
	start := now.Add(-span)

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok {
		w = &window{hits: make([]time.Time, 0, 8)}
		m.windows[key] = w
	}
	w.hits = keepRecent(w.hits, start)

	resetAt := now.Add(span)
	if len(w.hits) > 0 {
		resetAt = w.hits[0].Add(span)
	}

	if len(w.hits) >= limit {
		return rejected(resetAt)
	}

	w.hits = append(w.hits, now)
	return &Result{Allowed: true, Remaining: limit - len(w.hits), ResetAt: resetAt}, nil
}

// Cleanup removes windows whose last hit is older than maxAge.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}

	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		if len(w.hits) == 0 || w.hits[len(w.hits)-1].Before(cutoff) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// Run prunes idle windows every interval until ctx is done.
func (m *MemoryLimiter) Run(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("rate limit janitor stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			if removed := m.Cleanup(maxAge); removed > 0 {
				m.log.Debug("rate limit windows pruned", slog.Int("removed", removed))
			}
		}
	}
}

// Len reports how many keys currently hold a window.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func keepRecent(hits []time.Time, start time.Time) []time.Time {
	first := 0
	for first < len(hits) && !hits[first].After(start) {
		first++
	}

	if first == 0 {
		return hits
	}

	n := copy(hits, hits[first:])
	return hits[:n]
}
