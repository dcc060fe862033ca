package bot

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/number-bot/internal/bot/handlers"
	errors "github.com/Proton-105/number-bot/internal/errors"
	"github.com/Proton-105/number-bot/internal/i18n"
	"github.com/Proton-105/number-bot/internal/inventory"
	"github.com/Proton-105/number-bot/internal/screen"
	"github.com/Proton-105/number-bot/internal/state"
)

const (
	adminID int64 = 1
	userID  int64 = 2
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	sent     []screen.Payload
	notified []string
}

func (r *recorder) Send(_ context.Context, p screen.Payload) error {
	r.sent = append(r.sent, p)
	return nil
}

func (r *recorder) Notify(_ context.Context, text string, _ bool) error {
	r.notified = append(r.notified, text)
	return nil
}

type fixture struct {
	fsm        state.StateMachine
	screens    *screen.Renderer
	router     *Router
	dispatcher *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalogues, err := i18n.Load("en")
	require.NoError(t, err)

	screens := screen.NewRenderer(catalogues.Translator("en"))
	fsm := state.NewStateMachine(state.NewMemoryStorage(), discard())
	router := NewRouter(discard())

	flows := handlers.NewFlows(handlers.FlowsConfig{
		Store:         inventory.NewMemoryStore(inventory.DefaultPageSize),
		FSM:           fsm,
		Screens:       screens,
		AdminUsername: "boss",
		Log:           discard(),
	})

	errHandler := errors.NewHandler(discard(), false)
	router.Use(RecoveryMiddleware(discard(), errHandler, fsm))
	router.Use(ErrorHandlingMiddleware(discard(), errHandler, fsm))
	RegisterRoutes(router, flows, screens)

	return &fixture{
		fsm:        fsm,
		screens:    screens,
		router:     router,
		dispatcher: NewDispatcher(fsm, router, adminID, discard()),
	}
}

func (f *fixture) text(t *testing.T, caller int64, text string) *recorder {
	t.Helper()
	rec := &recorder{}
	err := f.dispatcher.Dispatch(context.Background(), handlers.Event{
		Kind:      handlers.EventText,
		SessionID: caller,
		CallerID:  caller,
		FirstName: "Ann",
		Text:      text,
	}, rec)
	require.NoError(t, err)
	return rec
}

func (f *fixture) stateOf(t *testing.T, session int64) state.State {
	t.Helper()
	st, err := f.fsm.GetState(context.Background(), session)
	require.NoError(t, err)
	return st.CurrentState
}

func TestDispatch_AdminRouteDroppedForUser(t *testing.T) {
	f := newFixture(t)

	rec := f.text(t, userID, f.screens.Label("menu.add_service"))

	assert.Empty(t, rec.sent)
	assert.Empty(t, rec.notified)
	assert.Equal(t, state.StateIdle, f.stateOf(t, userID))
}

func TestDispatcher_Authorize(t *testing.T) {
	f := newFixture(t)
	adminRoute := Route{Name: "add_service", Role: RoleAdmin}

	assert.ErrorIs(t, f.dispatcher.authorize(adminRoute, userID), errors.ErrUnauthorized)
	assert.NoError(t, f.dispatcher.authorize(adminRoute, adminID))
	assert.NoError(t, f.dispatcher.authorize(Route{Name: "start", Role: RoleAny}, userID))
}

func TestDispatch_AdminRouteForAdmin(t *testing.T) {
	f := newFixture(t)

	rec := f.text(t, adminID, f.screens.Label("menu.add_service"))

	require.Len(t, rec.sent, 1)
	assert.Equal(t, state.StateAddingServiceName, f.stateOf(t, adminID))
}

func TestDispatch_CancelBeatsFreeText(t *testing.T) {
	f := newFixture(t)
	f.text(t, adminID, f.screens.Label("menu.add_service"))

	rec := f.text(t, adminID, CommandCancel)

	require.Len(t, rec.sent, 1)
	assert.Equal(t, f.screens.Label("notice.cancelled_menu"), rec.sent[0].Text)
	assert.Equal(t, state.StateIdle, f.stateOf(t, adminID))
}

func TestDispatch_UnmatchedEventIsDropped(t *testing.T) {
	f := newFixture(t)

	rec := f.text(t, userID, "hello there")

	assert.Empty(t, rec.sent)
	assert.Empty(t, rec.notified)
}

func TestDispatch_StartShowsRoleMenu(t *testing.T) {
	f := newFixture(t)

	admin := f.text(t, adminID, CommandStart)
	user := f.text(t, userID, CommandStart)

	require.Len(t, admin.sent, 1)
	require.Len(t, user.sent, 1)
	assert.Equal(t, screen.KeyboardAdminMenu, admin.sent[0].Keyboard)
	assert.Equal(t, screen.KeyboardUserMenu, user.sent[0].Keyboard)
}

func TestDispatch_SessionsAreIsolated(t *testing.T) {
	f := newFixture(t)

	f.text(t, adminID, f.screens.Label("menu.add_service"))
	f.text(t, userID, f.screens.Label("menu.get_number"))

	assert.Equal(t, state.StateAddingServiceName, f.stateOf(t, adminID))
	assert.Equal(t, state.StateGettingNumberSelectService, f.stateOf(t, userID))
}

func TestRouter_SpecificityAndOrder(t *testing.T) {
	r := NewRouter(discard())
	noop := func(context.Context, *handlers.Request) error { return nil }

	r.Register(Route{Name: "free_text", State: state.StateSettingNumLimit, Predicate: AnyText(), Handler: noop})
	r.Register(Route{Name: "wild_cmd", AnyState: true, Predicate: TextEquals("/cancel"), Handler: noop})
	r.Register(Route{Name: "exact_cmd", State: state.StateSettingNumLimit, Predicate: TextEquals("/cancel"), Handler: noop})
	r.Register(Route{Name: "first", AnyState: true, Predicate: OnSelection(screen.ActionBack), Handler: noop})
	r.Register(Route{Name: "second", AnyState: true, Predicate: OnSelection(screen.ActionBack), Handler: noop})

	text := func(s string) handlers.Event { return handlers.Event{Kind: handlers.EventText, Text: s} }

	route, ok := r.Match(state.StateSettingNumLimit, text("5"))
	require.True(t, ok)
	assert.Equal(t, "free_text", route.Name)

	route, ok = r.Match(state.StateSettingNumLimit, text("/cancel"))
	require.True(t, ok)
	assert.Equal(t, "exact_cmd", route.Name)

	route, ok = r.Match(state.StateIdle, text("/cancel"))
	require.True(t, ok)
	assert.Equal(t, "wild_cmd", route.Name)

	route, ok = r.Match(state.StateIdle, handlers.Event{Kind: handlers.EventSelection, Selection: screen.Selection{Action: screen.ActionBack}})
	require.True(t, ok)
	assert.Equal(t, "first", route.Name, "earliest registration wins a tie")

	_, ok = r.Match(state.StateIdle, handlers.Event{Kind: handlers.EventFile})
	assert.False(t, ok)
	assert.Equal(t, 5, r.Len())
}

func TestErrorHandlingMiddleware_ResetsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.fsm.SetState(ctx, userID, state.StateGettingNumberSelectService, nil))

	h := ErrorHandlingMiddleware(discard(), errors.NewHandler(discard(), false), f.fsm)(
		func(context.Context, *handlers.Request) error {
			return errors.NewStorageError(stderrors.New("redis down"))
		},
	)

	rec := &recorder{}
	session, err := f.fsm.GetState(ctx, userID)
	require.NoError(t, err)

	require.NoError(t, h(ctx, &handlers.Request{Event: handlers.Event{SessionID: userID}, Session: session, Reply: rec}))
	require.Len(t, rec.sent, 1)
	assert.True(t, rec.sent[0].NewMessage)
	assert.Equal(t, "Temporary problem, please try again later.", rec.sent[0].Text)
	assert.Equal(t, state.StateIdle, f.stateOf(t, userID))
}

func TestRecoveryMiddleware_RecoversPanic(t *testing.T) {
	f := newFixture(t)
	h := RecoveryMiddleware(discard(), errors.NewHandler(discard(), false), f.fsm)(
		func(context.Context, *handlers.Request) error { panic("boom") },
	)

	rec := &recorder{}
	err := h(context.Background(), &handlers.Request{
		Event:   handlers.Event{SessionID: userID},
		Session: &state.UserState{UserID: userID, CurrentState: state.StateIdle},
		Reply:   rec,
	})

	require.NoError(t, err)
	require.Len(t, rec.sent, 1)
	assert.Contains(t, rec.sent[0].Text, "/start")
}

func TestNormalizeCommand(t *testing.T) {
	me := &telebot.User{Username: "NumberBot"}

	cases := map[string]string{
		"/start":                "/start",
		"/start@NumberBot":      "/start",
		"/start@numberbot deep": "/start",
		"/cancel now":           "/cancel",
		"/start@OtherBot":       "/start@OtherBot",
		"plain text":            "plain text",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeCommand(in, me), in)
	}
	assert.Equal(t, "/start", normalizeCommand("/start@Anyone", nil))
}

func TestDecodeText(t *testing.T) {
	got, err := decodeText(append([]byte{0xEF, 0xBB, 0xBF}, "+100\n+200"...), 1024)
	require.NoError(t, err)
	assert.Equal(t, "+100\n+200", got)

	_, err = decodeText([]byte{0xff, 0xfe, 0x00}, 1024)
	assert.ErrorIs(t, err, errors.ErrRetrieval)

	_, err = decodeText([]byte("12345"), 4)
	assert.ErrorIs(t, err, errors.ErrRetrieval)
}

type fakeSource struct {
	failures int32
	calls    atomic.Int32
	body     string
	block    chan struct{}
}

func (s *fakeSource) File(*telebot.File) (io.ReadCloser, error) {
	n := s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if n <= s.failures {
		return nil, stderrors.New("telegram unavailable")
	}
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func TestTelegramFetcher_RetriesTransientFailure(t *testing.T) {
	src := &fakeSource{failures: 1, body: "+1\n+2"}
	fetcher := NewTelegramFetcher(src, 5*time.Second, 1024, discard())

	got, err := fetcher.Fetch(context.Background(), handlers.FileRef{ID: "f1", Size: 5})

	require.NoError(t, err)
	assert.Equal(t, "+1\n+2", got)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestTelegramFetcher_RejectsOversizedFile(t *testing.T) {
	src := &fakeSource{body: "x"}
	fetcher := NewTelegramFetcher(src, time.Second, 10, discard())

	_, err := fetcher.Fetch(context.Background(), handlers.FileRef{ID: "big", Size: 11})

	assert.ErrorIs(t, err, errors.ErrRetrieval)
	assert.Zero(t, src.calls.Load())
}

func TestTelegramFetcher_TimesOut(t *testing.T) {
	src := &fakeSource{body: "x", block: make(chan struct{})}
	t.Cleanup(func() { close(src.block) })
	fetcher := NewTelegramFetcher(src, 50*time.Millisecond, 1024, discard())

	start := time.Now()
	_, err := fetcher.Fetch(context.Background(), handlers.FileRef{ID: "slow"})

	assert.ErrorIs(t, err, errors.ErrRetrieval)
	assert.Less(t, time.Since(start), 2*time.Second)
}
