// Package domainerrors defines the coded error type returned by services.
//
// Services return *Error values carrying a stable Code. Transport layers map the
// code to a status and a wire error string; they never inspect messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is the stable, client-visible error identifier.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvalidRequest     Code = "invalid_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTooManyRequests    Code = "too_many_requests"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "service_unavailable"
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"

	// Attendance outcomes.
	CodeSessionClosed       Code = "session_closed"
	CodeAlreadyClosed       Code = "already_closed"
	CodeInvalidToken        Code = "invalid_token"
	CodeNotEnrolled         Code = "not_enrolled"
	CodeBiometricMismatch   Code = "biometric_mismatch"
	CodeAlreadyMarked       Code = "already_marked"
	CodeVerificationTimeout Code = "verification_timeout"
)

// Error is a domain error with a stable code and a human readable message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a domain error without an underlying cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
// Returns nil if err is nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is an alias for HasCode kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost domain code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost domain message in err's chain.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// IsRetryable reports whether the caller may retry the same request.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeVerificationTimeout, CodeTimeout, CodeUnavailable:
		return true
	default:
		return false
	}
}
