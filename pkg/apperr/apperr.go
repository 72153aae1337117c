// Package apperr carries the error taxonomy shared by every domain: a small
// closed set of kinds that the HTTP layer maps onto status codes and
// machine-readable body codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	NotFound
	InvalidState
	Forbidden
	Conflict
	Validation
)

type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

// New builds a classified error with a user-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error while keeping it unwrappable.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

// KindOf extracts the kind of err, or Internal when it is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Code returns the stable machine-readable code for the error.
func Code(err error) string {
	switch KindOf(err) {
	case NotFound:
		return "not_found"
	case InvalidState:
		return "invalid_state"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	case Validation:
		return "validation_error"
	default:
		return "internal"
	}
}

// HTTPStatus maps the error kind to the HTTP status the API boundary reports.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case NotFound:
		return http.StatusNotFound
	case InvalidState:
		return http.StatusUnprocessableEntity
	case Forbidden:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	case Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
