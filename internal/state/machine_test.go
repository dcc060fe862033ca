package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	args := m.Called(ctx, userID)
	state, _ := args.Get(0).(*UserState)
	return state, args.Error(1)
}

func (m *mockStorage) SetState(ctx context.Context, userID int64, state *UserState) error {
	args := m.Called(ctx, userID, state)
	return args.Error(0)
}

func (m *mockStorage) ClearState(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]*UserState)
	return states, args.Error(1)
}

func TestStateMachine_SetState(t *testing.T) {
	ctx := context.Background()
	userID := int64(11)

	testCases := []struct {
		name       string
		setupMocks func(ms *mockStorage)
		newState   State
		data       Context
		expectErr  error
	}{
		{
			name: "new session enters flow",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return((*UserState)(nil), ErrStateNotFound).Once()
				ms.On("SetState", mock.Anything, userID, mock.MatchedBy(func(st *UserState) bool {
					return st.CurrentState == StateAddingNumberSelectService && len(st.Context) == 0
				})).Return(nil).Once()
			},
			newState: StateAddingNumberSelectService,
		},
		{
			name: "context replaced",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{CurrentState: StateAddingNumberSelectCountry, Context: Context{KeyService: "Old"}}, nil).Once()
				ms.On("SetState", mock.Anything, userID, mock.MatchedBy(func(st *UserState) bool {
					return st.CurrentState == StateAddingNumberMethodChoice &&
						st.Context[KeyService] == "WhatsApp" && st.Context[KeyCountry] == "US"
				})).Return(nil).Once()
			},
			newState: StateAddingNumberMethodChoice,
			data:     Context{KeyService: "WhatsApp", KeyCountry: "US"},
		},
		{
			name: "invalid transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{CurrentState: StateIdle}, nil).Once()
			},
			newState:  StateGettingNumberDisplay,
			expectErr: ErrInvalidTransition,
		},
		{
			name: "unknown state",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return((*UserState)(nil), ErrStateNotFound).Once()
			},
			newState:  State("buying"),
			expectErr: ErrUnknownState,
		},
		{
			name: "storage error",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return((*UserState)(nil), ErrStateNotFound).Once()
				ms.On("SetState", mock.Anything, userID, mock.Anything).
					Return(errStorageFailure).Once()
			},
			newState:  StateSettingNumLimit,
			expectErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewStateMachine(ms, testLogger())
			err := fsm.SetState(ctx, userID, tc.newState, tc.data)

			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				assert.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_GetStateDefaultsToIdle(t *testing.T) {
	ms := &mockStorage{}
	ms.On("GetState", mock.Anything, int64(7)).Return((*UserState)(nil), ErrStateNotFound).Once()

	fsm := NewStateMachine(ms, testLogger())
	st, err := fsm.GetState(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, StateIdle, st.CurrentState)
	assert.Empty(t, st.Context)
	assert.Equal(t, int64(7), st.UserID)
	ms.AssertExpectations(t)
}

func TestStateMachine_GetStatePropagatesErrors(t *testing.T) {
	ms := &mockStorage{}
	ms.On("GetState", mock.Anything, int64(7)).Return((*UserState)(nil), errStorageFailure).Once()

	fsm := NewStateMachine(ms, testLogger())
	_, err := fsm.GetState(context.Background(), 7)

	assert.ErrorIs(t, err, errStorageFailure)
}

func TestStateMachine_TransitionKeepsContext(t *testing.T) {
	ctx := context.Background()
	fsm := NewStateMachine(NewMemoryStorage(), testLogger())

	require.NoError(t, fsm.SetState(ctx, 1, StateAddingNumberSelectService, nil))
	require.NoError(t, fsm.SetContext(ctx, 1, KeyService, "Telegram"))
	require.NoError(t, fsm.TransitionTo(ctx, 1, StateAddingNumberSelectCountry))

	st, err := fsm.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateAddingNumberSelectCountry, st.CurrentState)

	value, ok, err := fsm.GetContext(ctx, 1, KeyService)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Telegram", value)

	_, ok, err = fsm.GetContext(ctx, 1, KeyCountry)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, fsm.TransitionTo(ctx, 1, StateRemovingServiceSelect), ErrInvalidTransition)
}

func TestStateMachine_ClearState(t *testing.T) {
	ctx := context.Background()

	var recorded []string
	RegisterTransitionRecorder(func(from, to string) {
		recorded = append(recorded, from+">"+to)
	})
	t.Cleanup(func() { RegisterTransitionRecorder(nil) })

	fsm := NewStateMachine(NewMemoryStorage(), testLogger())
	require.NoError(t, fsm.SetState(ctx, 3, StateSettingNumLimit, Context{"k": "v"}))
	require.NoError(t, fsm.ClearState(ctx, 3))

	st, err := fsm.GetState(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st.CurrentState)
	assert.Empty(t, st.Context)

	require.NoError(t, fsm.ClearState(ctx, 3))
	assert.Equal(t, []string{"idle>setting_num_limit", "setting_num_limit>idle"}, recorded)
}

func TestStateMachine_ClearStateError(t *testing.T) {
	ms := &mockStorage{}
	ms.On("GetState", mock.Anything, int64(13)).Return((*UserState)(nil), ErrStateNotFound).Once()
	ms.On("ClearState", mock.Anything, int64(13)).Return(errStorageFailure).Once()

	fsm := NewStateMachine(ms, testLogger())
	assert.ErrorIs(t, fsm.ClearState(context.Background(), 13), errStorageFailure)
	ms.AssertExpectations(t)
}

func TestStateMachine_SessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	fsm := NewStateMachine(NewMemoryStorage(), testLogger())

	require.NoError(t, fsm.SetState(ctx, 1, StateAddingServiceName, nil))
	require.NoError(t, fsm.SetState(ctx, 2, StateGettingNumberSelectService, Context{KeyService: "X"}))

	first, err := fsm.GetState(ctx, 1)
	require.NoError(t, err)
	second, err := fsm.GetState(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, StateAddingServiceName, first.CurrentState)
	assert.Empty(t, first.Context)
	assert.Equal(t, StateGettingNumberSelectService, second.CurrentState)

	all, err := fsm.GetAllStates(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStateMachine_Lock(t *testing.T) {
	fsm := NewStateMachine(NewMemoryStorage(), testLogger())

	var (
		wg      sync.WaitGroup
		inside  int32
		overlap int32
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := fsm.Lock(77)
			defer unlock()

			if atomic.AddInt32(&inside, 1) > 1 {
				atomic.StoreInt32(&overlap, 1)
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}

	wg.Wait()
	assert.Zero(t, atomic.LoadInt32(&overlap))
}

func TestLocker_ReleasesEntries(t *testing.T) {
	locker := NewLocker()

	unlockA := locker.Lock(1)
	unlockB := locker.Lock(2)
	assert.Equal(t, 2, locker.Len())

	unlockA()
	unlockA()
	unlockB()
	assert.Zero(t, locker.Len())
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	original := &UserState{CurrentState: StateAddingCountryName, Context: Context{KeyService: "A"}}
	require.NoError(t, storage.SetState(ctx, 9, original))
	original.Context[KeyService] = "mutated"

	got, err := storage.GetState(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Context[KeyService])

	got.Context[KeyService] = "again"
	again, err := storage.GetState(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Context[KeyService])

	require.NoError(t, storage.ClearState(ctx, 9))
	_, err = storage.GetState(ctx, 9)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
