// Package apperrors defines the failure kinds surfaced by the loan service
// and the HTTP status each kind maps to.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindPersistence
	KindDispatch
)

// DefaultMessage is returned to clients for errors that carry no message.
const DefaultMessage = "Something went wrong, server error"

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence"
	case KindDispatch:
		return "dispatch"
	default:
		return "internal"
	}
}

// Status returns the default HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure with a client-facing message and an
// optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	status  int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status for this error, honouring any override.
func (e *Error) Status() int {
	if e.status != 0 {
		return e.status
	}
	return e.Kind.Status()
}

// WithStatus returns a copy of e that renders with the given status code.
func (e *Error) WithStatus(code int) *Error {
	cp := *e
	cp.status = code
	return &cp
}

// Is matches another *Error of the same kind and message, so sentinel
// values declared with New can be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message, nil) }

func Auth(message string) *Error { return New(KindAuth, message, nil) }

func NotFound(message string) *Error { return New(KindNotFound, message, nil) }

func Persistence(message string, err error) *Error { return New(KindPersistence, message, err) }

func Dispatch(message string, err error) *Error { return New(KindDispatch, message, err) }

func Internal(message string, err error) *Error { return New(KindInternal, message, err) }

// As extracts the *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// StatusOf reports the HTTP status to use for err.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.Status()
	}
	return http.StatusInternalServerError
}

// MessageOf reports the client-facing message for err. Unclassified errors
// never leak their text.
func MessageOf(err error) string {
	if e, ok := As(err); ok && e.Message != "" {
		return e.Message
	}
	return DefaultMessage
}
