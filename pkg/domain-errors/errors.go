// Package domainerrors defines the code-carrying error type used at service
// and transport boundaries. Stores return sentinel errors
// (pkg/platform/sentinel); services translate them into these domain errors so
// handlers can map them to HTTP responses without inspecting store internals.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. Every code maps to a distinct, non-silent
// signal for the orchestration layer; there is no best-guess fallback.
type Code string

const (
	// CodeNotFound: unknown session or scheme id. Never silently substituted.
	CodeNotFound Code = "not_found"
	// CodeValidation: malformed scheme write (missing name, no criteria and
	// not open-to-all).
	CodeValidation Code = "validation_error"
	// CodeInvalidTransition: disallowed scheme status change.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeVersionConflict: concurrent write race on one scheme id; the caller
	// should re-read and retry.
	CodeVersionConflict Code = "version_conflict"
	// CodeRequiresConfirmation: sensitive attribute write without explicit
	// confirmation. Not a failure, a required second step.
	CodeRequiresConfirmation Code = "requires_confirmation"
	// CodeCatalogueUnavailable: the scheme catalogue could not be read;
	// assessment aborts rather than degrading silently.
	CodeCatalogueUnavailable Code = "catalogue_unavailable"

	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal_error"
)

// Error is a domain error with a machine-readable code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New constructs a domain error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs a domain error that preserves the underlying cause for
// errors.Is/As chains and logging.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// Is is a readability alias for HasCode, matching call sites like
// dErrors.Is(err, dErrors.CodeNotFound).
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeInvalidTransition, CodeVersionConflict:
		return http.StatusConflict
	case CodeRequiresConfirmation:
		return http.StatusPreconditionRequired
	case CodeCatalogueUnavailable:
		return http.StatusServiceUnavailable
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
