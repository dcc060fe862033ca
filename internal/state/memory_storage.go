package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps sessions in process memory for the lifetime of the process.
type MemoryStorage struct {
	mu     sync.RWMutex
	states map[int64]*UserState
}

// NewMemoryStorage constructs an empty in-memory Storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{states: make(map[int64]*UserState)}
}

// GetState returns a copy of the stored state or ErrStateNotFound.
func (s *MemoryStorage) GetState(_ context.Context, userID int64) (*UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return cloneState(st), nil
}

// SetState stores a copy of state.
func (s *MemoryStorage) SetState(_ context.Context, userID int64, state *UserState) error {
	stored := cloneState(state)
	stored.UserID = userID
	stored.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = stored
	return nil
}

// ClearState forgets the session.
func (s *MemoryStorage) ClearState(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

// GetAllStates returns copies of every stored session.
func (s *MemoryStorage) GetAllStates(_ context.Context) ([]*UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*UserState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, cloneState(st))
	}
	return out, nil
}
