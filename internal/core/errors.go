package core

import (
	"errors"
	"fmt"

	"gwi.com/knsystem/internal/store"
	"gwi.com/knsystem/internal/utils"
)

// Error kinds. Handlers map each kind to an HTTP status with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrUnavailable     = errors.New("service unavailable")
)

// Error is a failure whose Message is safe to show to the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validation(format string, args ...interface{}) *Error {
	return newError(ErrValidation, format, args...)
}

// translate maps store sentinels to caller-facing errors and passes
// anything else through for a 500.
func translate(err error, notFoundMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return newError(ErrNotFound, "%s", notFoundMsg)
	case errors.Is(err, store.ErrConflict):
		return newError(ErrConflict, "%s", "Record already exists")
	default:
		return err
	}
}

// PageResult is one page of a list plus the size of the whole filtered set.
type PageResult[T any] struct {
	Items []T
	Total int
	Page  utils.Page
}

func (r PageResult[T]) TotalPages() int {
	return utils.TotalPages(r.Total, r.Page.Limit)
}
