package handlers

import (
	"context"
	"fmt"

	apperrors "github.com/Proton-105/number-bot/internal/errors"
	"github.com/Proton-105/number-bot/internal/screen"
	"github.com/Proton-105/number-bot/internal/state"
	"github.com/Proton-105/number-bot/pkg/metrics"
)

// GetStart lists services a number can be taken from.
func (f *Flows) GetStart() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.enter(ctx, req, state.StateGettingNumberSelectService, nil)
	}
}

// GetService lists the countries of the picked service.
func (f *Flows) GetService() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.enter(ctx, req, state.StateGettingNumberSelectCountry, state.Context{
			state.KeyService: req.Event.Selection.Service,
		})
	}
}

// GetCountry takes the first page for the picked pair and posts it as a new message.
func (f *Flows) GetCountry() Handler {
	return func(ctx context.Context, req *Request) error {
		sel := req.Event.Selection
		data := state.Context{
			state.KeyService: sel.Service,
			state.KeyCountry: sel.Country,
		}

		if err := f.fsm.SetState(ctx, req.Event.SessionID, state.StateGettingNumberDisplay, data); err != nil {
			return fmt.Errorf("enter display: %w", err)
		}

		p, err := f.display(ctx, req, sel.Service, sel.Country)
		if err != nil {
			return err
		}
		p.NewMessage = true
		return req.Reply.Send(ctx, p)
	}
}

// Refresh takes the next page for the remembered pair and edits the display in place.
func (f *Flows) Refresh() Handler {
	return func(ctx context.Context, req *Request) error {
		service, country, ok := f.pair(req)
		if !ok {
			return f.finish(ctx, req, "notice.session_lost")
		}

		p, err := f.display(ctx, req, service, country)
		if err != nil {
			return err
		}
		return req.Reply.Send(ctx, p)
	}
}

// ChangeCountry returns to the country list of the remembered service.
func (f *Flows) ChangeCountry() Handler {
	return func(ctx context.Context, req *Request) error {
		if _, ok := req.Session.Service(); !ok {
			return f.finish(ctx, req, "notice.session_lost")
		}
		return f.enter(ctx, req, state.StateGettingNumberSelectCountry, req.Session.Context.Only(state.KeyService))
	}
}

// ChangeService returns to the service list with an empty context.
func (f *Flows) ChangeService() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.enter(ctx, req, state.StateGettingNumberSelectService, nil)
	}
}

func (f *Flows) display(ctx context.Context, req *Request, service, country string) (screen.Payload, error) {
	size, err := f.store.PageSize(ctx)
	if err != nil {
		return screen.Payload{}, apperrors.NewStorageError(err)
	}

	page, err := f.store.TakeFront(ctx, service, country, size)
	if err != nil {
		return screen.Payload{}, apperrors.NewStorageError(err)
	}

	remaining, err := f.store.RemainingCount(ctx, service, country)
	if err != nil {
		return screen.Payload{}, apperrors.NewStorageError(err)
	}

	if len(page) > 0 {
		metrics.RecordNumbersIssued(service, len(page))
		f.logger(ctx, req).Info("numbers issued",
			"service", service, "country", country, "count", len(page), "remaining", remaining)
	}

	return f.screens.Display(service, country, screen.Snapshot{
		PageSize:  size,
		Page:      page,
		Remaining: remaining,
	}), nil
}
