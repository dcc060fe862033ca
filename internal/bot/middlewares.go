package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Proton-105/number-bot/internal/bot/handlers"
	errors "github.com/Proton-105/number-bot/internal/errors"
	"github.com/Proton-105/number-bot/internal/screen"
	"github.com/Proton-105/number-bot/internal/state"
)

const fallbackUserMessage = "⚠️ Something went wrong. Please try again later."

// RecoveryMiddleware catches panics, reports them via the centralized handler, resets the session and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler, fsm state.StateMachine) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(ctx context.Context, req *handlers.Request) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler",
						slog.Any("panic", r),
						slog.String("route", req.Route),
						slog.String("stack", string(debug.Stack())),
					)

					userMsg := fallbackUserMessage
					if errHandler != nil {
						appErr := errors.NewStateError(fmt.Sprintf("panic recovered: %v", r))
						appErr.Severity = errors.SeverityCritical
						if msg, _ := errHandler.Handle(ctx, appErr); msg != "" {
							userMsg = msg
						}
					}

					resetAndNotify(ctx, log, fsm, req, userMsg)
					err = nil
				}
			}()

			return next(ctx, req)
		}
	}
}

// ErrorHandlingMiddleware reports handler failures, drops the session back to idle and tells the user.
func ErrorHandlingMiddleware(log *slog.Logger, errHandler *errors.Handler, fsm state.StateMachine) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(ctx context.Context, req *handlers.Request) error {
			err := next(ctx, req)
			if err == nil {
				return nil
			}

			userMsg := fallbackUserMessage
			if errHandler != nil {
				if msg, _ := errHandler.Handle(ctx, err); msg != "" {
					userMsg = msg
				}
			}

			resetAndNotify(ctx, log, fsm, req, userMsg)
			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about routed events.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(ctx context.Context, req *handlers.Request) error {
			start := time.Now()

			log.Debug("handling event",
				slog.Int64("session_id", req.Event.SessionID),
				slog.String("route", req.Route),
				slog.String("state", string(req.Session.CurrentState)),
			)
			err := next(ctx, req)
			log.Info("handled event",
				slog.Int64("session_id", req.Event.SessionID),
				slog.String("route", req.Route),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

func resetAndNotify(ctx context.Context, log *slog.Logger, fsm state.StateMachine, req *handlers.Request, msg string) {
	if fsm != nil {
		if err := fsm.ClearState(ctx, req.Event.SessionID); err != nil {
			log.Error("failed to reset session after error", slog.Int64("session_id", req.Event.SessionID), slog.Any("error", err))
		}
	}

	if req.Reply == nil {
		return
	}
	if err := req.Reply.Send(ctx, screen.Payload{Text: msg, NewMessage: true}); err != nil {
		log.Error("failed to notify user about error", slog.Int64("session_id", req.Event.SessionID), slog.Any("error", err))
	}
}
