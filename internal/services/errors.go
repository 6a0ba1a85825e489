package services

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them to HTTP statuses with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")

	// ErrStorage marks a failure to persist uploaded files. It is a server
	// error whose message is still shown to the client.
	ErrStorage = errors.New("storage failure")
)

// Error is a failure with a client-facing message and any extra response
// fields. Cause, when set, is the underlying error kept for logs.
type Error struct {
	Kind    error
	Message string
	Fields  map[string]interface{}
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// with attaches an extra response field
func (e *Error) with(key string, value interface{}) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

func invalid(format string, args ...interface{}) *Error {
	return newError(ErrInvalidInput, format, args...)
}

func notFound(format string, args ...interface{}) *Error {
	return newError(ErrNotFound, format, args...)
}

func conflict(format string, args ...interface{}) *Error {
	return newError(ErrConflict, format, args...)
}

func storageFailure(message string, cause error) *Error {
	return &Error{Kind: ErrStorage, Message: message, Cause: cause}
}

func unauthorized(format string, args ...interface{}) *Error {
	return newError(ErrUnauthorized, format, args...)
}
