// Package errors defines the error taxonomy shared by the stores, handlers and transport.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Stores wrap them with context; callers branch with errors.Is.
var (
	ErrAlreadyExists   = errors.New("already exists")
	ErrNotFound        = errors.New("not found")
	ErrServiceNotFound = errors.New("service not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRetrieval       = errors.New("file retrieval failed")
	ErrUnauthorized    = errors.New("unauthorized")
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const defaultUserMessage = "⚠️ Something went wrong. Please try again later."

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: fmt.Sprintf("Invalid input. %s", msg),
		Severity:    SeverityLow,
		cause:       ErrInvalidArgument,
	}
}

// NewStorageError reports a failing inventory or session backend.
func NewStorageError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("storage error: %s", underlyingMsg),
		UserMessage: "Temporary problem, please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewRetrievalError reports a failed file download. Transient failures can be retried.
func NewRetrievalError(cause error, transient bool) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("file retrieval: %s", underlyingMsg),
		UserMessage: "Could not read the uploaded file. Please try again.",
		Severity:    SeverityMedium,
		Retryable:   transient,
		cause:       errors.Join(ErrRetrieval, cause),
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "Something went wrong. Please send /start and try again.",
		Severity:    SeverityMedium,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
		Severity:    SeverityLow,
	}
}
