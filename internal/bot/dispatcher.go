package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/number-bot/internal/bot/handlers"
	"github.com/Proton-105/number-bot/internal/errors"
	"github.com/Proton-105/number-bot/internal/state"
	"github.com/Proton-105/number-bot/pkg/logger"
)

// Dispatcher runs one event at a time per session through the router.
type Dispatcher struct {
	fsm     state.StateMachine
	router  *Router
	adminID int64
	log     *slog.Logger
}

// NewDispatcher creates a Dispatcher. adminID is the only caller allowed on admin routes.
func NewDispatcher(fsm state.StateMachine, router *Router, adminID int64, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		fsm:     fsm,
		router:  router,
		adminID: adminID,
		log:     log,
	}
}

// IsAdmin reports whether callerID is the configured admin.
func (d *Dispatcher) IsAdmin(callerID int64) bool {
	return d.adminID != 0 && callerID == d.adminID
}

// authorize rejects admin routes for everyone but the admin.
func (d *Dispatcher) authorize(route Route, callerID int64) error {
	if route.Role == RoleAdmin && !d.IsAdmin(callerID) {
		return fmt.Errorf("%w: route %s needs admin", errors.ErrUnauthorized, route.Name)
	}
	return nil
}

// Dispatch routes ev based on the session's current state.
// Unmatched events and admin routes hit by other callers are dropped without a reply.
func (d *Dispatcher) Dispatch(ctx context.Context, ev handlers.Event, reply handlers.Responder) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithCorrelationID(ctx)

	unlock := d.fsm.Lock(ev.SessionID)
	defer unlock()

	log := d.log.With(
		slog.Int64("session_id", ev.SessionID),
		slog.String("kind", ev.Kind.String()),
		slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
	)

	session, err := d.fsm.GetState(ctx, ev.SessionID)
	if err != nil {
		return fmt.Errorf("load session %d: %w", ev.SessionID, err)
	}

	route, ok := d.router.Match(session.CurrentState, ev)
	if !ok {
		log.Debug("no route for event", "state", session.CurrentState)
		return nil
	}

	if err := d.authorize(route, ev.CallerID); err != nil {
		log.Debug("dropping admin route for non-admin caller", "caller_id", ev.CallerID, "error", err)
		return nil
	}
	isAdmin := d.IsAdmin(ev.CallerID)

	handler := d.router.applyMiddlewares(route.Handler)
	if handler == nil {
		return nil
	}

	return handler(ctx, &handlers.Request{
		Route:   route.Name,
		Event:   ev,
		Session: session,
		IsAdmin: isAdmin,
		Reply:   reply,
	})
}
