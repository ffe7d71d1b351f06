// Package domainerrors provides coded errors for the service domain.
//
// Domain errors carry a stable machine-readable code alongside a
// human-readable message. Services create them at the point where an
// infrastructure fact (a sentinel error, a failed parse) becomes a
// business-level outcome; the HTTP layer maps codes to status codes in
// exactly one place. Always import with the dErrors alias.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain error. Codes are part of the API
// contract: they appear verbatim in error response bodies.
type Code string

const (
	CodeBadRequest        Code = "bad_request"
	CodeValidation        Code = "validation_error"
	CodeUnauthorized      Code = "unauthorized"
	CodeForbidden         Code = "forbidden"
	CodeNotFound          Code = "not_found"
	CodeConflict          Code = "conflict"
	CodeUnsupportedFormat Code = "unsupported_format"
	CodeContractViolation Code = "contract_violation"
	CodeTimeout           Code = "timeout"
	CodeUnavailable       Code = "unavailable"
	CodeInternal          Code = "internal_error"
)

// Error is a coded domain error. The zero value is not useful; construct
// with New or Wrap.
type Error struct {
	code   Code
	msg    string
	fields []string
	err    error
}

// New creates a domain error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

// NewWithFields creates a domain error that names the request fields it
// concerns. Used by request validation so callers see every offending
// field at once rather than one per round trip.
func NewWithFields(code Code, msg string, fields []string) *Error {
	return &Error{code: code, msg: msg, fields: fields}
}

// Wrap attaches a code and message to an underlying error, preserving it
// for errors.Is/As inspection.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{code: code, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

// Unwrap exposes the wrapped error to the errors package.
func (e *Error) Unwrap() error { return e.err }

// Is matches another domain error with the same code and message, letting
// tests assert outcomes with errors.Is against a freshly constructed value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code && e.msg == t.msg
}

// Code returns the machine-readable error code.
func (e *Error) Code() Code { return e.code }

// Message returns the human-readable description.
func (e *Error) Message() string { return e.msg }

// Fields returns the request fields this error concerns, if any.
func (e *Error) Fields() []string { return e.fields }

// HasCode reports whether err or any error in its chain carries the code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if errors.As(err, &de) {
			if de.code == code {
				return true
			}
			err = de.err
			continue
		}
		return false
	}
	return false
}

// Is is a convenience alias for HasCode, reading naturally in tests.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost domain code in err's chain, or
// CodeInternal when err carries none. Useful at boundaries that must
// classify arbitrary errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}
