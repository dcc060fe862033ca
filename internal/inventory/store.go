// Package inventory owns the service → country → number queue mapping and the page-size setting.
package inventory

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/Proton-105/number-bot/internal/errors"
)

// DefaultPageSize is used when no page size has been configured.
const DefaultPageSize = 7

// MaxPageSize caps how many numbers one request may take.
const MaxPageSize = 50

// Store is the contract shared by the in-memory and Redis inventories.
//
// Failures wrap the sentinels of internal/errors (ErrAlreadyExists, ErrNotFound,
// ErrServiceNotFound, ErrInvalidArgument) so callers can branch with errors.Is.
type Store interface {
	CreateService(ctx context.Context, name string) error
	// DeleteService removes the service together with its countries and numbers.
	DeleteService(ctx context.Context, name string) error
	CreateCountry(ctx context.Context, service, name string) error
	DeleteCountry(ctx context.Context, service, name string) error
	// AppendNumbers creates the country when missing, skips numbers already queued
	// and returns how many were appended.
	AppendNumbers(ctx context.Context, service, country string, numbers []string) (int, error)
	// TakeFront removes and returns up to n numbers in arrival order.
	// A missing pair yields an empty slice.
	TakeFront(ctx context.Context, service, country string, n int) ([]string, error)
	RemainingCount(ctx context.Context, service, country string) (int, error)
	// Services lists service names in creation order.
	Services(ctx context.Context) ([]string, error)
	// Countries lists the countries of service in creation order.
	Countries(ctx context.Context, service string) ([]string, error)
	PageSize(ctx context.Context) (int, error)
	SetPageSize(ctx context.Context, n int) error
}

func validateName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty %s name", apperrors.ErrInvalidArgument, kind)
	}
	return nil
}

func validatePageSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: page size must be positive, got %d", apperrors.ErrInvalidArgument, n)
	}
	if n > MaxPageSize {
		return fmt.Errorf("%w: page size must not exceed %d, got %d", apperrors.ErrInvalidArgument, MaxPageSize, n)
	}
	return nil
}

func alreadyExists(kind, name string) error {
	return fmt.Errorf("%w: %s %q", apperrors.ErrAlreadyExists, kind, name)
}

func notFound(kind, name string) error {
	return fmt.Errorf("%w: %s %q", apperrors.ErrNotFound, kind, name)
}

func serviceNotFound(name string) error {
	return fmt.Errorf("%w: %q", apperrors.ErrServiceNotFound, name)
}

// uniqueFresh returns numbers absent from existing, dropping blanks and repeats, in input order.
func uniqueFresh(existing map[string]struct{}, numbers []string) []string {
	fresh := make([]string, 0, len(numbers))
	seen := make(map[string]struct{}, len(numbers))
	for _, number := range numbers {
		if number == "" {
			continue
		}
		if _, ok := existing[number]; ok {
			continue
		}
		if _, ok := seen[number]; ok {
			continue
		}
		seen[number] = struct{}{}
		fresh = append(fresh, number)
	}
	return fresh
}
