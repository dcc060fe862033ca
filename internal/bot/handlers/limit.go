package handlers

import (
	"context"
	"strconv"
	"strings"

	apperrors "github.com/Proton-105/number-bot/internal/errors"
	"github.com/Proton-105/number-bot/internal/inventory"
	"github.com/Proton-105/number-bot/internal/state"
)

// LimitStart shows the current page size and asks for a new one.
func (f *Flows) LimitStart() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.enter(ctx, req, state.StateSettingNumLimit, nil)
	}
}

// LimitInput stores a page size between 1 and inventory.MaxPageSize or re-prompts.
func (f *Flows) LimitInput() Handler {
	return func(ctx context.Context, req *Request) error {
		n, err := strconv.Atoi(strings.TrimSpace(req.Event.Text))
		if err != nil {
			return f.retry(ctx, req, "notice.limit_not_number")
		}
		if n <= 0 {
			return f.retry(ctx, req, "notice.limit_not_positive")
		}
		if n > inventory.MaxPageSize {
			return f.retry(ctx, req, "notice.limit_too_large", "max", strconv.Itoa(inventory.MaxPageSize))
		}

		if err := f.store.SetPageSize(ctx, n); err != nil {
			return apperrors.NewStorageError(err)
		}

		f.logger(ctx, req).Info("page size changed", "page_size", n)
		return f.finish(ctx, req, "notice.limit_set", "limit", strconv.Itoa(n))
	}
}
