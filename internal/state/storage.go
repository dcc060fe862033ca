// Package state manages per-session conversation state.
package state

import "context"

// Storage defines the persistence contract for session state.
type Storage interface {
	// GetState returns the stored state or ErrStateNotFound.
	GetState(ctx context.Context, userID int64) (*UserState, error)
	// SetState saves the provided state for the specified session.
	SetState(ctx context.Context, userID int64, state *UserState) error
	// ClearState removes the state for the specified session.
	ClearState(ctx context.Context, userID int64) error
	// GetAllStates returns every stored state.
	GetAllStates(ctx context.Context) ([]*UserState, error)
}
