package handlers

import (
	"context"
	stderrors "errors"
	"strings"

	apperrors "github.com/Proton-105/number-bot/internal/errors"
	"github.com/Proton-105/number-bot/internal/state"
)

// AddServiceStart asks for the new service name.
func (f *Flows) AddServiceStart() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.enter(ctx, req, state.StateAddingServiceName, nil)
	}
}

// AddServiceName creates the typed service or re-prompts on a duplicate.
func (f *Flows) AddServiceName() Handler {
	return func(ctx context.Context, req *Request) error {
		name := strings.TrimSpace(req.Event.Text)
		if name == "" {
			return f.retry(ctx, req, "prompt.service_name")
		}

		err := f.store.CreateService(ctx, name)
		switch {
		case err == nil:
			f.logger(ctx, req).Info("service added", "service", name)
			return f.finish(ctx, req, "notice.service_added", "service", name)
		case stderrors.Is(err, apperrors.ErrAlreadyExists):
			return f.retry(ctx, req, "notice.service_exists", "service", name)
		default:
			return apperrors.NewStorageError(err)
		}
	}
}

// RemoveServiceStart lists services to remove.
func (f *Flows) RemoveServiceStart() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.enter(ctx, req, state.StateRemovingServiceSelect, nil)
	}
}

// RemoveServiceSelect deletes the picked service. A missing service still ends the flow.
func (f *Flows) RemoveServiceSelect() Handler {
	return func(ctx context.Context, req *Request) error {
		name := req.Event.Selection.Service

		err := f.store.DeleteService(ctx, name)
		switch {
		case err == nil:
			f.logger(ctx, req).Info("service removed", "service", name)
			return f.finish(ctx, req, "notice.service_removed", "service", name)
		case stderrors.Is(err, apperrors.ErrNotFound):
			return f.finish(ctx, req, "notice.service_missing")
		default:
			return apperrors.NewStorageError(err)
		}
	}
}
