// Package apperr carries the error taxonomy shared by the insight pipeline
// and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError
type Kind string

const (
	KindValidation    Kind = "validation"
	KindRateLimit     Kind = "rate_limit"
	KindConfiguration Kind = "configuration"
	KindUpstream      Kind = "upstream"
	KindPersistence   Kind = "persistence"
	KindInternal      Kind = "internal"
)

// GenericFailureMessage is the only text a client sees for 5xx responses.
const GenericFailureMessage = "Something went wrong generating your insight. Please try again."

// AppError wraps an underlying error with a kind and a client-safe message
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation reports a user-correctable request problem (400).
func Validation(format string, args ...any) *AppError {
	return newError(KindValidation, nil, format, args...)
}

// RateLimited reports that the caller exceeded its request window (429).
func RateLimited(err error, format string, args ...any) *AppError {
	return newError(KindRateLimit, err, format, args...)
}

// Configuration reports an operator-fixable problem such as missing credentials.
func Configuration(err error, format string, args ...any) *AppError {
	return newError(KindConfiguration, err, format, args...)
}

// Upstream reports a failed, timed out or malformed completion call.
func Upstream(err error, format string, args ...any) *AppError {
	return newError(KindUpstream, err, format, args...)
}

// Persistence reports a memory store failure. The pipeline logs and swallows these.
func Persistence(err error, format string, args ...any) *AppError {
	return newError(KindPersistence, err, format, args...)
}

// Internal reports an unexpected failure. Its message is never shown to clients.
func Internal(err error, format string, args ...any) *AppError {
	return newError(KindInternal, err, format, args...)
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries an AppError of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// StatusCode maps err to an HTTP status
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to send to a client. Wrapped detail of
// server-side failures never leaves the process.
func PublicMessage(err error) string {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return GenericFailureMessage
	}
	switch appErr.Kind {
	case KindValidation, KindRateLimit:
		return appErr.Message
	default:
		return GenericFailureMessage
	}
}
