package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	apperrors "github.com/Proton-105/number-bot/internal/errors"
	"github.com/Proton-105/number-bot/internal/inventory"
	"github.com/Proton-105/number-bot/internal/screen"
	"github.com/Proton-105/number-bot/internal/state"
	"github.com/Proton-105/number-bot/pkg/logger"
)

// Flows holds the dependencies shared by every conversation handler.
type Flows struct {
	store         inventory.Store
	fsm           state.StateMachine
	screens       *screen.Renderer
	files         FileFetcher
	adminUsername string
	log           *slog.Logger
}

// FlowsConfig wires a Flows.
type FlowsConfig struct {
	Store         inventory.Store
	FSM           state.StateMachine
	Screens       *screen.Renderer
	Files         FileFetcher
	AdminUsername string
	Log           *slog.Logger
}

func NewFlows(cfg FlowsConfig) *Flows {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &Flows{
		store:         cfg.Store,
		fsm:           cfg.FSM,
		screens:       cfg.Screens,
		files:         cfg.Files,
		adminUsername: cfg.AdminUsername,
		log:           log,
	}
}

// enter moves the session to st with data and shows the screen of st.
func (f *Flows) enter(ctx context.Context, req *Request, st state.State, data state.Context) error {
	snap, err := f.snapshot(ctx, st, data)
	if err != nil {
		return err
	}

	if err := f.fsm.SetState(ctx, req.Event.SessionID, st, data); err != nil {
		return fmt.Errorf("enter %s: %w", st, err)
	}

	return req.Reply.Send(ctx, f.screens.Render(st, data, snap))
}

// finish clears the session and shows a notice.
func (f *Flows) finish(ctx context.Context, req *Request, key string, pairs ...string) error {
	if err := f.fsm.ClearState(ctx, req.Event.SessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return req.Reply.Send(ctx, f.screens.Notice(key, pairs...))
}

// retry keeps the session where it is and re-prompts.
func (f *Flows) retry(ctx context.Context, req *Request, key string, pairs ...string) error {
	return req.Reply.Send(ctx, f.screens.Retry(req.Session.CurrentState, key, pairs...))
}

// snapshot reads the part of the inventory the screen of st shows.
func (f *Flows) snapshot(ctx context.Context, st state.State, data state.Context) (screen.Snapshot, error) {
	var snap screen.Snapshot

	switch st {
	case state.StateAddingCountrySelectService,
		state.StateAddingNumberSelectService,
		state.StateRemovingServiceSelect,
		state.StateRemovingCountrySelectService,
		state.StateGettingNumberSelectService:
		services, err := f.store.Services(ctx)
		if err != nil {
			return snap, apperrors.NewStorageError(err)
		}
		snap.Services = services

	case state.StateAddingNumberSelectCountry,
		state.StateRemovingCountrySelect,
		state.StateGettingNumberSelectCountry:
		service, _ := data.Get(state.KeyService)
		countries, err := f.store.Countries(ctx, service)
		switch {
		case err == nil:
			snap.Countries = countries
			snap.ServiceFound = true
		case stderrors.Is(err, apperrors.ErrServiceNotFound):
		default:
			return snap, apperrors.NewStorageError(err)
		}

	case state.StateSettingNumLimit:
		size, err := f.store.PageSize(ctx)
		if err != nil {
			return snap, apperrors.NewStorageError(err)
		}
		snap.PageSize = size
	}

	return snap, nil
}

func (f *Flows) logger(ctx context.Context, req *Request) *slog.Logger {
	return f.log.With(
		slog.Int64("session_id", req.Event.SessionID),
		slog.String("route", req.Route),
		slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
	)
}
