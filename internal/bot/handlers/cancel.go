package handlers

import (
	"context"

	"github.com/Proton-105/number-bot/internal/state"
)

// CancelCommand handles /cancel and the menu's cancel entry from any state.
func (f *Flows) CancelCommand() Handler {
	return func(ctx context.Context, req *Request) error {
		if req.Session.CurrentState == state.StateIdle {
			return req.Reply.Send(ctx, f.screens.Notice("notice.not_in_operation"))
		}

		f.logger(ctx, req).Info("operation cancelled", "state", req.Session.CurrentState)
		return f.finish(ctx, req, "notice.cancelled_menu")
	}
}

// CancelButton handles the inline cancel button from any state.
func (f *Flows) CancelButton() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.finish(ctx, req, "notice.cancelled")
	}
}
