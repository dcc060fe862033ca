package handlers

import (
	"context"
	stderrors "errors"
	"strings"

	apperrors "github.com/Proton-105/number-bot/internal/errors"
	"github.com/Proton-105/number-bot/internal/state"
)

// AddCountryStart lists services to add a country under.
func (f *Flows) AddCountryStart() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.enter(ctx, req, state.StateAddingCountrySelectService, nil)
	}
}

// AddCountryService remembers the picked service and asks for the country name.
func (f *Flows) AddCountryService() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.enter(ctx, req, state.StateAddingCountryName, state.Context{
			state.KeyService: req.Event.Selection.Service,
		})
	}
}

// AddCountryName creates the typed country under the remembered service.
func (f *Flows) AddCountryName() Handler {
	return func(ctx context.Context, req *Request) error {
		service, ok := req.Session.Service()
		if !ok {
			return f.finish(ctx, req, "notice.something_wrong")
		}

		name := strings.TrimSpace(req.Event.Text)
		if name == "" {
			return f.retry(ctx, req, "prompt.country_name", "service", service)
		}

		err := f.store.CreateCountry(ctx, service, name)
		switch {
		case err == nil:
			f.logger(ctx, req).Info("country added", "service", service, "country", name)
			return f.finish(ctx, req, "notice.country_added", "country", name, "service", service)
		case stderrors.Is(err, apperrors.ErrAlreadyExists):
			return f.retry(ctx, req, "notice.country_exists", "country", name, "service", service)
		case stderrors.Is(err, apperrors.ErrServiceNotFound):
			return f.finish(ctx, req, "notice.something_wrong")
		default:
			return apperrors.NewStorageError(err)
		}
	}
}

// RemoveCountryStart lists services to remove a country from.
func (f *Flows) RemoveCountryStart() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.enter(ctx, req, state.StateRemovingCountrySelectService, nil)
	}
}

// RemoveCountryService lists the countries of the picked service.
func (f *Flows) RemoveCountryService() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.enter(ctx, req, state.StateRemovingCountrySelect, state.Context{
			state.KeyService: req.Event.Selection.Service,
		})
	}
}

// RemoveCountrySelect deletes the picked country. A missing country still ends the flow.
func (f *Flows) RemoveCountrySelect() Handler {
	return func(ctx context.Context, req *Request) error {
		sel := req.Event.Selection

		err := f.store.DeleteCountry(ctx, sel.Service, sel.Country)
		switch {
		case err == nil:
			f.logger(ctx, req).Info("country removed", "service", sel.Service, "country", sel.Country)
			return f.finish(ctx, req, "notice.country_removed", "country", sel.Country, "service", sel.Service)
		case stderrors.Is(err, apperrors.ErrNotFound):
			return f.finish(ctx, req, "notice.country_missing")
		default:
			return apperrors.NewStorageError(err)
		}
	}
}
