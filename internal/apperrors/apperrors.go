// Package apperrors provides the unified error taxonomy for the API access
// layer. Every failure that crosses a layer boundary — transport, decoding,
// HTTP status, cancellation — is normalized into an *AppError with a fixed
// Kind, a developer-facing debug message, and a pre-approved user message.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of a fixed set of categories.
type Kind string

const (
	KindNetwork           Kind = "network"
	KindTimeout           Kind = "timeout"
	KindTLSFailure        Kind = "tls_failure"
	KindCancelled         Kind = "cancelled"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindValidation        Kind = "validation"
	KindRateLimited       Kind = "rate_limited"
	KindServer            Kind = "server"
	KindMalformedResponse Kind = "malformed_response"
	KindUnknown           Kind = "unknown"
)

// Kinds returns every valid Kind value.
func Kinds() []Kind {
	return []Kind{
		KindNetwork, KindTimeout, KindTLSFailure, KindCancelled,
		KindUnauthorized, KindForbidden, KindNotFound, KindConflict,
		KindValidation, KindRateLimited, KindServer,
		KindMalformedResponse, KindUnknown,
	}
}

// AppError is the single error type visible above the transport boundary.
// It is created once, at the mapping boundary, and never mutated afterwards;
// With* helpers return copies.
type AppError struct {
	Kind         Kind
	DebugMessage string
	UserMessage  string
	// StatusCode is set only for HTTP-origin errors.
	StatusCode int
	// Details carries a structured payload from a server error body, if any.
	Details map[string]any
	// Cause is the wrapped original failure, kept for logging.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s:%d] %s", e.Kind, e.StatusCode, e.DebugMessage)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.DebugMessage)
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithUserMessage returns a copy with the user message replaced.
func (e *AppError) WithUserMessage(msg string) *AppError {
	clone := *e
	clone.UserMessage = msg
	return &clone
}

// WithDebugMessage returns a copy with the debug message replaced.
func (e *AppError) WithDebugMessage(msg string) *AppError {
	clone := *e
	clone.DebugMessage = msg
	return &clone
}

// New creates an AppError of the given kind. The user message defaults to
// the kind's standard copy.
func New(kind Kind, debugMessage string) *AppError {
	return &AppError{
		Kind:         kind,
		DebugMessage: debugMessage,
		UserMessage:  defaultUserMessage(kind),
	}
}

// Wrap creates an AppError of the given kind around a cause.
func Wrap(kind Kind, debugMessage string, cause error) *AppError {
	e := New(kind, debugMessage)
	e.Cause = cause
	return e
}

// Kind checking helpers.

func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

func IsNetwork(err error) bool      { return IsKind(err, KindNetwork) }
func IsTimeout(err error) bool      { return IsKind(err, KindTimeout) }
func IsCancelled(err error) bool    { return IsKind(err, KindCancelled) }
func IsUnauthorized(err error) bool { return IsKind(err, KindUnauthorized) }
func IsValidation(err error) bool   { return IsKind(err, KindValidation) }

// defaultUserMessage returns the pre-approved copy for a kind. Never empty.
func defaultUserMessage(kind Kind) string {
	switch kind {
	case KindNetwork:
		return "No connection. Check your network and try again."
	case KindTimeout:
		return "The request took too long. Please try again."
	case KindTLSFailure:
		return "A secure connection could not be established."
	case KindCancelled:
		return "The request was cancelled."
	case KindUnauthorized:
		return "Please log in again."
	case KindForbidden:
		return "You do not have access to this resource."
	case KindNotFound:
		return "Not found."
	case KindConflict:
		return "This item changed elsewhere. Please try again."
	case KindValidation:
		return "Request could not be processed."
	case KindRateLimited:
		return "Too many requests. Please wait a moment."
	case KindServer:
		return "Service unavailable. Please try again later."
	case KindMalformedResponse:
		return "We received an unexpected response. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
