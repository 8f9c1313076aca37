// Package apperr defines the error taxonomy shared by the bidding and
// settlement services. Callers branch on the category, not the message:
// validation and conflict errors are final, transient errors are retryable,
// invariant violations are final and audited.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Validation struct{ Msg string }

func (e *Validation) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &Validation{Msg: fmt.Sprintf(format, args...)}
}

type Conflict struct{ Msg string }

func (e *Conflict) Error() string { return e.Msg }

func Conflictf(format string, args ...any) error {
	return &Conflict{Msg: fmt.Sprintf(format, args...)}
}

// Transient wraps storage/gateway failures that are safe to retry.
type Transient struct {
	Msg string
	Err error
}

func (e *Transient) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Transient) Unwrap() error { return e.Err }

func Transientf(err error, format string, args ...any) error {
	return &Transient{Msg: fmt.Sprintf(format, args...), Err: err}
}

// Invariant marks a request that would break a ledger invariant
// (e.g. refunds exceeding the captured amount). Never clamped.
type Invariant struct{ Msg string }

func (e *Invariant) Error() string { return e.Msg }

func Invariantf(format string, args ...any) error {
	return &Invariant{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool { var t *Validation; return errors.As(err, &t) }
func IsConflict(err error) bool   { var t *Conflict; return errors.As(err, &t) }
func IsTransient(err error) bool  { var t *Transient; return errors.As(err, &t) }
func IsInvariant(err error) bool  { var t *Invariant; return errors.As(err, &t) }

// HTTPStatus maps an error to the status code the HTTP surfaces respond with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsConflict(err):
		return http.StatusConflict
	case IsInvariant(err):
		return http.StatusUnprocessableEntity
	case IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
