package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrInvalidTransition indicates that a requested FSM transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound indicates that a session state record does not exist.
	ErrStateNotFound = errors.New("user state not found")
	// ErrUnknownState indicates a state name outside the closed enumeration.
	ErrUnknownState = errors.New("unknown state")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// StateMachine describes the operations supported by the FSM controller.
type StateMachine interface {
	// GetState returns the session state; unseen sessions are idle with an empty context.
	GetState(ctx context.Context, userID int64) (*UserState, error)
	// SetState moves the session to state and replaces its context.
	SetState(ctx context.Context, userID int64, state State, data Context) error
	// TransitionTo moves the session to state and keeps its context.
	TransitionTo(ctx context.Context, userID int64, newState State) error
	GetContext(ctx context.Context, userID int64, key string) (string, bool, error)
	SetContext(ctx context.Context, userID int64, key, value string) error
	// ClearState resets the session to idle and drops its context.
	ClearState(ctx context.Context, userID int64) error
	GetAllStates(ctx context.Context) ([]*UserState, error)
	// Lock serializes event processing for one session.
	Lock(userID int64) (unlock func())
}

type machine struct {
	storage Storage
	log     *slog.Logger
	events  *Locker
	ops     *Locker
}

// NewStateMachine creates a FSM controller using the provided storage backend.
func NewStateMachine(storage Storage, log *slog.Logger) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage: storage,
		log:     log,
		events:  NewLocker(),
		ops:     NewLocker(),
	}
}

func (m *machine) Lock(userID int64) func() {
	return m.events.Lock(userID)
}

func (m *machine) GetState(ctx context.Context, userID int64) (*UserState, error) {
	return m.load(ctx, userID)
}

func (m *machine) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return m.storage.GetAllStates(ctx)
}

func (m *machine) SetState(ctx context.Context, userID int64, newState State, data Context) error {
	unlock := m.ops.Lock(userID)
	defer unlock()

	current, err := m.load(ctx, userID)
	if err != nil {
		return err
	}

	if err := m.checkTransition(userID, current.CurrentState, newState); err != nil {
		return err
	}

	if data == nil {
		data = Context{}
	}

	return m.save(ctx, userID, current.CurrentState, &UserState{
		UserID:       userID,
		CurrentState: newState,
		Context:      data.Clone(),
	})
}

func (m *machine) TransitionTo(ctx context.Context, userID int64, newState State) error {
	unlock := m.ops.Lock(userID)
	defer unlock()

	current, err := m.load(ctx, userID)
	if err != nil {
		return err
	}

	if err := m.checkTransition(userID, current.CurrentState, newState); err != nil {
		return err
	}

	from := current.CurrentState
	current.CurrentState = newState
	return m.save(ctx, userID, from, current)
}

func (m *machine) GetContext(ctx context.Context, userID int64, key string) (string, bool, error) {
	current, err := m.load(ctx, userID)
	if err != nil {
		return "", false, err
	}

	v, ok := current.Context.Get(key)
	return v, ok, nil
}

func (m *machine) SetContext(ctx context.Context, userID int64, key, value string) error {
	unlock := m.ops.Lock(userID)
	defer unlock()

	current, err := m.load(ctx, userID)
	if err != nil {
		return err
	}

	if current.Context == nil {
		current.Context = Context{}
	}
	current.Context[key] = value

	return m.storage.SetState(ctx, userID, current)
}

func (m *machine) ClearState(ctx context.Context, userID int64) error {
	unlock := m.ops.Lock(userID)
	defer unlock()

	current, err := m.load(ctx, userID)
	if err != nil {
		return err
	}

	if err := m.storage.ClearState(ctx, userID); err != nil {
		return err
	}

	if current.CurrentState != StateIdle {
		transitionRecorder(string(current.CurrentState), string(StateIdle))
	}
	return nil
}

func (m *machine) load(ctx context.Context, userID int64) (*UserState, error) {
	stored, err := m.storage.GetState(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return idleState(userID), nil
		}
		return nil, err
	}
	if stored == nil {
		return idleState(userID), nil
	}

	return stored, nil
}

func (m *machine) checkTransition(userID int64, from, to State) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownState, to)
	}

	if !IsTransitionAllowed(from, to) {
		m.log.Warn("invalid state transition", "user_id", userID, "from", from, "to", to)
		return ErrInvalidTransition
	}

	return nil
}

func (m *machine) save(ctx context.Context, userID int64, from State, st *UserState) error {
	if err := m.storage.SetState(ctx, userID, st); err != nil {
		return err
	}

	if from != st.CurrentState {
		transitionRecorder(string(from), string(st.CurrentState))
	}
	return nil
}
