package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	apperrors "github.com/Proton-105/number-bot/internal/errors"
	"github.com/Proton-105/number-bot/internal/screen"
	"github.com/Proton-105/number-bot/internal/state"
	"github.com/Proton-105/number-bot/pkg/metrics"
)

const textMIME = "text/plain"

// AddNumberStart lists services to add numbers to.
func (f *Flows) AddNumberStart() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.enter(ctx, req, state.StateAddingNumberSelectService, nil)
	}
}

// AddNumberService lists the countries of the picked service.
func (f *Flows) AddNumberService() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.enter(ctx, req, state.StateAddingNumberSelectCountry, state.Context{
			state.KeyService: req.Event.Selection.Service,
		})
	}
}

// AddNumberCountry remembers the pair and asks how the numbers will arrive.
func (f *Flows) AddNumberCountry() Handler {
	return func(ctx context.Context, req *Request) error {
		sel := req.Event.Selection
		return f.enter(ctx, req, state.StateAddingNumberMethodChoice, state.Context{
			state.KeyService: sel.Service,
			state.KeyCountry: sel.Country,
		})
	}
}

// MethodText switches to typed input.
func (f *Flows) MethodText() Handler {
	return f.method(state.StateAddingNumberInputText)
}

// MethodFile switches to file upload.
func (f *Flows) MethodFile() Handler {
	return f.method(state.StateAddingNumberInputFile)
}

func (f *Flows) method(target state.State) Handler {
	return func(ctx context.Context, req *Request) error {
		if err := f.fsm.TransitionTo(ctx, req.Event.SessionID, target); err != nil {
			return fmt.Errorf("choose method: %w", err)
		}
		return req.Reply.Send(ctx, f.screens.Render(target, req.Session.Context, screen.Snapshot{}))
	}
}

// NumbersText appends the typed numbers, one per line.
func (f *Flows) NumbersText() Handler {
	return func(ctx context.Context, req *Request) error {
		return f.appendNumbers(ctx, req, req.Event.Text, "notice.numbers_added")
	}
}

// NumbersFile appends the numbers of an uploaded text file.
func (f *Flows) NumbersFile() Handler {
	return func(ctx context.Context, req *Request) error {
		if _, _, ok := f.pair(req); !ok {
			return f.finish(ctx, req, "notice.something_wrong")
		}

		ref := req.Event.File
		if !isTextMIME(ref.MIME) {
			return f.retry(ctx, req, "notice.file_not_text")
		}

		content, err := f.files.Fetch(ctx, ref)
		if err != nil {
			f.logger(ctx, req).Warn("file retrieval failed", "file_id", ref.ID, "error", err)
			return f.retry(ctx, req, "notice.file_failed", "reason", retrievalReason(err))
		}

		return f.appendNumbers(ctx, req, content, "notice.numbers_added_file")
	}
}

func (f *Flows) appendNumbers(ctx context.Context, req *Request, content, key string) error {
	service, country, ok := f.pair(req)
	if !ok {
		return f.finish(ctx, req, "notice.something_wrong")
	}

	added, err := f.store.AppendNumbers(ctx, service, country, SplitNumbers(content))
	if err != nil {
		return apperrors.NewStorageError(err)
	}

	metrics.RecordNumbersAdded(service, added)
	f.logger(ctx, req).Info("numbers added", "service", service, "country", country, "count", added)

	return f.finish(ctx, req, key, "count", fmt.Sprint(added), "country", country, "service", service)
}

func (f *Flows) pair(req *Request) (string, string, bool) {
	service, ok := req.Session.Service()
	if !ok {
		return "", "", false
	}
	country, ok := req.Session.Country()
	if !ok {
		return "", "", false
	}
	return service, country, true
}

// SplitNumbers returns the trimmed non-empty lines of content.
func SplitNumbers(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func isTextMIME(mime string) bool {
	base, _, _ := strings.Cut(mime, ";")
	return strings.EqualFold(strings.TrimSpace(base), textMIME)
}

func retrievalReason(err error) string {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
