// Package errs defines the platform error taxonomy. Components raise typed
// errors; the HTTP boundary maps each kind to a status code and the uniform
// response envelope.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error independent of transport.
type Kind int

const (
	Validation Kind = iota + 1
	Unauthorized
	Forbidden
	NotFound
	Conflict
	BusinessRule
	Transient
	Internal
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case BusinessRule:
		return "business_rule"
	case Transient:
		return "transient"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the typed platform error.
type Error struct {
	Kind     Kind
	Msg      string
	Reason   string   // machine-readable reason surfaced in the envelope
	Required []string // required permissions, set on authorization denials
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a typed error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a typed error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, cause: err}
}

// WithReason sets the machine-readable reason.
func (e *Error) WithReason(reason string) *Error {
	e.Reason = reason
	return e
}

// WithRequired sets the permissions the caller was missing.
func (e *Error) WithRequired(perms ...string) *Error {
	e.Required = perms
	return e
}

// KindOf extracts the kind of an error; unknown errors are Internal.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return Internal
}

// AsError extracts the typed error, or wraps err as Internal.
func AsError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Kind: Internal, Msg: "internal error", cause: err}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Common constructors.

func NotFoundf(format string, args ...interface{}) *Error {
	return Newf(NotFound, format, args...)
}

func Validationf(format string, args ...interface{}) *Error {
	return Newf(Validation, format, args...)
}

func Conflictf(format string, args ...interface{}) *Error {
	return Newf(Conflict, format, args...)
}

func BusinessRulef(format string, args ...interface{}) *Error {
	return Newf(BusinessRule, format, args...)
}

func Unauthorizedf(format string, args ...interface{}) *Error {
	return Newf(Unauthorized, format, args...)
}

func Forbiddenf(format string, args ...interface{}) *Error {
	return Newf(Forbidden, format, args...)
}

func Transientf(format string, args ...interface{}) *Error {
	return Newf(Transient, format, args...)
}

func Internalf(format string, args ...interface{}) *Error {
	return Newf(Internal, format, args...)
}
