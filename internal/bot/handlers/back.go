package handlers

import (
	"context"
	"fmt"

	"github.com/Proton-105/number-bot/internal/navigation"
)

// Back steps the session up to the parent screen of its flow.
func (f *Flows) Back() Handler {
	return func(ctx context.Context, req *Request) error {
		res := navigation.Resolve(req.Session.CurrentState, req.Session.Context)
		log := f.logger(ctx, req)

		switch res.Outcome {
		case navigation.OutcomeIdle:
			return req.Reply.Notify(ctx, f.screens.Notice("notice.nothing_to_do").Text, true)
		case navigation.OutcomeCancelled:
			return f.finish(ctx, req, "notice.cancelled")
		case navigation.OutcomeCorrupted:
			log.Warn("back navigation lost its context", "state", req.Session.CurrentState)
			return f.finish(ctx, req, "notice.session_lost")
		}

		snap, err := f.snapshot(ctx, res.Target, res.Context)
		if err != nil {
			return err
		}

		if err := f.fsm.SetState(ctx, req.Event.SessionID, res.Target, res.Context); err != nil {
			return fmt.Errorf("back to %s: %w", res.Target, err)
		}

		log.Debug("navigated back", "from", req.Session.CurrentState, "to", res.Target)
		return req.Reply.Send(ctx, f.screens.Render(res.Target, res.Context, snap))
	}
}
