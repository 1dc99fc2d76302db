package apperrors

import (
	"errors"
	"net/http"
)

// Sentinel kinds. Every *Error unwraps to exactly one of them.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("permission denied")
	ErrInternal     = errors.New("internal error")
)

// Error is an application error carrying a kind, a client-safe message and
// an optional cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

// Error implements error.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation reports missing or malformed input.
func Validation(message string) error { return newError(ErrValidation, message) }

// NotFound reports a referenced entity that does not exist.
func NotFound(message string) error { return newError(ErrNotFound, message) }

// Conflict reports a uniqueness violation.
func Conflict(message string) error { return newError(ErrConflict, message) }

// Unauthorized reports missing or invalid credentials.
func Unauthorized(message string) error { return newError(ErrUnauthorized, message) }

// Forbidden reports an authenticated caller acting outside its rights.
func Forbidden(message string) error { return newError(ErrForbidden, message) }

// Internal wraps a persistence or infrastructure failure.
func Internal(message string, cause error) error {
	return &Error{Kind: ErrInternal, Message: message, Cause: cause}
}

// Status maps an error to its HTTP status code. Unknown errors are 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the text that may be shown to a client. Causes and
// unclassified errors are never exposed.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if Status(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
