// Package apierr defines the single sentinel-carrying error type used across
// the gateway and ingest worker, in the register of the teacher's
// internal/rag/service/errors.go.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP status mapping.
type Kind string

const (
	BadRequest        Kind = "bad_request"
	NotFound          Kind = "not_found"
	TransientUpstream Kind = "transient_upstream"
	PermanentUpstream Kind = "permanent_upstream"
	Internal          Kind = "internal"
)

// Error is the gateway's single error type. Kind drives HTTP status mapping
// (the ingest worker retries a failed job by attempt count, whatever its
// Kind); Cause carries the underlying error for logging and errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, apierr.NotFound) style checks against a bare Kind
// wrapped as an error via New(kind, "", nil).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Wrap(kind Kind, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, defaulting
// to Internal for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// IsTransient reports whether err is, or wraps, a TransientUpstream error.
func IsTransient(err error) bool {
	return KindOf(err) == TransientUpstream
}

// HTTPStatus maps a Kind to the response status the chat/document/job HTTP
// surface should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case BadRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case TransientUpstream:
		return http.StatusBadGateway
	case PermanentUpstream:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
