// Package lifecycle runs shutdown hooks when the process is asked to stop.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Shutdown coordinates graceful shutdown hooks in parallel.
type Shutdown struct {
	mu    sync.Mutex
	hooks []Hook
	log   *slog.Logger
}

// NewShutdown constructs a new Shutdown coordinator.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a named shutdown hook.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, Hook{Name: name, Fn: fn})
}

// Len reports how many hooks are registered.
func (s *Shutdown) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hooks)
}

// Execute runs all registered hooks concurrently and waits for them or for ctx.
// Hooks still running when ctx ends are reported as failed.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("hook_count", len(hooks)))

	results := make(chan error, len(hooks))
	pending := make(map[string]struct{}, len(hooks))
	var pendingMu sync.Mutex

	for _, hook := range hooks {
		h := hook
		pendingMu.Lock()
		pending[h.Name] = struct{}{}
		pendingMu.Unlock()

		go func() {
			err := s.run(ctx, h)

			pendingMu.Lock()
			delete(pending, h.Name)
			pendingMu.Unlock()

			results <- err
		}()
	}

	var errs []error
	for range hooks {
		select {
		case err := <-results:
			if err != nil {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			pendingMu.Lock()
			for name := range pending {
				errs = append(errs, fmt.Errorf("%s: %w", name, ctx.Err()))
			}
			pendingMu.Unlock()

			s.log.Warn("shutdown deadline reached", slog.Duration("elapsed", time.Since(start)))
			return errors.Join(errs...)
		}
	}

	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)))
	return errors.Join(errs...)
}

func (s *Shutdown) run(ctx context.Context, h Hook) error {
	s.log.Info("running shutdown hook", slog.String("hook", h.Name))

	if err := h.Fn(ctx); err != nil {
		s.log.Error("shutdown hook failed", slog.String("hook", h.Name), slog.Any("error", err))
		return fmt.Errorf("%s: %w", h.Name, err)
	}

	s.log.Info("shutdown hook completed", slog.String("hook", h.Name))
	return nil
}
