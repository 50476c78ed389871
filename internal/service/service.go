package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
	"github.com/noah-isme/roadwatch-api/pkg/validation"
)

// transactor runs fn inside a single database transaction.
type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock returns the current time. Tests inject fixed clocks.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

func notFoundOr(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, resource+" not found")
	}
	return appErrors.Internal(err, "failed to load "+resource)
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validation.Message(err))
}

func validationError(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

func forbidden(message string) error {
	return appErrors.Clone(appErrors.ErrForbidden, message)
}

// passThrough keeps typed errors produced inside a transaction and wraps anything else.
func passThrough(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, message)
}
