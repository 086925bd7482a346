// Package apperr defines the typed errors domain services return. Every kind
// corresponds to one HTTP status, so handlers never pick status codes
// themselves.
package apperr

import "net/http"

// Kind categorizes an error for transport mapping.
type Kind int

const (
	// KindUnknown is the zero kind for errors that carry no category.
	KindUnknown Kind = iota
	// KindNotFound marks a missing resource.
	KindNotFound
	// KindValidation marks input that failed a domain rule.
	KindValidation
	// KindConflict marks a clash with current state (duplicate, lost race,
	// forbidden transition).
	KindConflict
	// KindForbidden marks an action the caller is not allowed to take.
	KindForbidden
	// KindUnauthorized marks a caller who has not identified themselves.
	KindUnauthorized
	// KindInternal marks an unexpected failure the caller cannot fix.
	KindInternal
)

// Error is a kinded domain error.
type Error struct {
	Kind    Kind
	Message string
	Err     error // wrapped cause, optional
	Details any   // payload for the error response, optional
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the kind to its response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails attaches a response payload to the error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// NotFound reports a missing resource.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation reports input that failed a domain rule.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Conflict reports a clash with current state.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Forbidden reports a disallowed action.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Unauthorized reports an unidentified caller.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// Internal reports an unexpected failure.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind returns the kind of err, or KindUnknown for untyped errors.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is a typed error of the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
