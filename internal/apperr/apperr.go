// Package apperr defines the error taxonomy shared by every route handler.
// Each error carries a stable machine-readable code alongside the
// human-readable message, so clients can branch without parsing free text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes. These are part of the API contract.
const (
	CodeBadRequest      = "bad_request"
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeRateLimited     = "rate_limited"
	CodeUpstreamFailure = "upstream_failure"
	CodeInternal        = "internal"
)

// Error is an API error with an HTTP status, a stable code and a message
// safe to show to callers. The wrapped cause, if any, stays server-side.
type Error struct {
	Status  int
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches a server-side cause for logging. The cause is never
// serialized to the client.
func (e *Error) WithCause(err error) *Error {
	return &Error{Status: e.Status, Code: e.Code, Message: e.Message, cause: err}
}

func BadRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

// Conflict reports a duplicate where the route contract expects 400 (for
// example signup on an existing email). Use ConflictStatus for routes that
// return 409.
func Conflict(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeConflict, Message: message}
}

// ConflictStatus is Conflict with a 409 status (reset-password reusing the
// current password).
func ConflictStatus(message string) *Error {
	return &Error{Status: http.StatusConflict, Code: CodeConflict, Message: message}
}

func RateLimited(message string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Code: CodeRateLimited, Message: message}
}

// Upstream reports a third-party failure (object storage, OCR, embedding,
// generation, payment gateway).
func Upstream(message string, cause error) *Error {
	return &Error{Status: http.StatusBadGateway, Code: CodeUpstreamFailure, Message: message, cause: cause}
}

func Internal(message string, cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: message, cause: cause}
}

// From converts any error to an *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}
