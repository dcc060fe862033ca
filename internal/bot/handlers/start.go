package handlers

import (
	"context"
	"fmt"
)

// Start resets the session and shows the role's main menu.
func (f *Flows) Start() Handler {
	return func(ctx context.Context, req *Request) error {
		if err := f.fsm.ClearState(ctx, req.Event.SessionID); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}

		f.logger(ctx, req).Info("session started", "admin", req.IsAdmin)
		return req.Reply.Send(ctx, f.screens.MainMenu(req.IsAdmin, req.Event.FirstName))
	}
}

// Support links the caller to the admin.
func (f *Flows) Support() Handler {
	return func(ctx context.Context, req *Request) error {
		return req.Reply.Send(ctx, f.screens.Support(f.adminUsername))
	}
}

// NoAction answers placeholder buttons.
func (f *Flows) NoAction() Handler {
	return func(ctx context.Context, req *Request) error {
		return req.Reply.Notify(ctx, f.screens.Notice("notice.no_action").Text, false)
	}
}
