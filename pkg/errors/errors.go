package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed data-access or domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones and wraps of a
// sentinel still match errors.Is(err, ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// WrapAs wraps err with the code and status of the given sentinel.
func WrapAs(sentinel *Error, err error, message string) *Error {
	if message == "" {
		message = sentinel.Message
	}
	return Wrap(err, sentinel.Code, sentinel.Status, message)
}

// Predefined errors forming the stable taxonomy callers map from.
var (
	ErrValidation  = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotFound    = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConstraint  = New("CONSTRAINT_VIOLATION", http.StatusConflict, "constraint violation")
	ErrConnection  = New("CONNECTION_ERROR", http.StatusServiceUnavailable, "database unavailable")
	ErrUnsupported = New("UNSUPPORTED_OPERATION", http.StatusNotImplemented, "operation not supported by backend")
	ErrQuerySyntax = New("QUERY_SYNTAX_ERROR", http.StatusInternalServerError, "malformed statement")
	ErrInternal    = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss   = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
