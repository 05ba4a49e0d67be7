package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Kind classifies an error for boundary mapping
type Kind int

const (
	// Unauthenticated means no valid session was presented (client should re-login)
	Unauthenticated Kind = iota
	// Forbidden means a valid session failed a capability check
	Forbidden
	// Validation means malformed input to an otherwise reachable operation
	Validation
	// NotFound means the referenced entity does not exist or is not visible to the caller
	NotFound
	// Conflict means a uniqueness violation on write
	Conflict
	// Internal means an unexpected, unclassified failure
	Internal
)

// Error is a typed application error carrying its classification
type Error struct {
	Kind          Kind
	Message       string
	CorrelationID string // set for Internal errors only
	cause         error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a typed error with a caller-visible message
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a typed error with a formatted caller-visible message
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a typed error while keeping the message safe for clients
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Wrapf is Wrap with a formatted message
func Wrapf(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Classify returns the typed error if err is one; otherwise it wraps err as an
// Internal error tagged with a fresh correlation id so logs and the client
// response can be matched without leaking internals.
func Classify(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{
		Kind:          Internal,
		Message:       "internal server error",
		CorrelationID: uuid.NewString(),
		cause:         err,
	}
}

// KindOf reports the Kind of err, defaulting to Internal for untyped errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// IsKind reports whether err carries the given classification
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a Kind to its HTTP status code
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
