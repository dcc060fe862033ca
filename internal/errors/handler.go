package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/number-bot/pkg/logger"
	"github.com/Proton-105/number-bot/pkg/metrics"
)

// Handler turns handler failures into log records, metrics, sentry events and a user-facing message.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle reports err and returns the message to show the user and whether retrying makes sense.
// Errors outside the AppError taxonomy count as high severity.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	appErr := classify(err)
	correlationID := logger.CorrelationIDFromContext(ctx)

	h.log.Error("request failed",
		slog.String("code", appErr.Code),
		slog.String("message", err.Error()),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
		slog.String("correlation_id", correlationID),
	)
	metrics.RecordError(appErr.Code, string(appErr.Severity))

	if h.sentryEnabled && (appErr.Severity == SeverityCritical || appErr.Severity == SeverityHigh) {
		h.report(err, appErr, correlationID)
	}

	if appErr.UserMessage == "" {
		return defaultUserMessage, appErr.Retryable
	}
	return appErr.UserMessage, appErr.Retryable
}

func classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}

	return &AppError{
		Code:     "unknown",
		Message:  err.Error(),
		Severity: SeverityHigh,
		cause:    err,
	}
}

func (h *Handler) report(err error, appErr *AppError, correlationID string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", appErr.Code)
		scope.SetTag("severity", string(appErr.Severity))
		if correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}
		sentry.CaptureException(err)
	})
}
