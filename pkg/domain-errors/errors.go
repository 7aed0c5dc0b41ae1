// Package domainerrors provides coded errors for the service boundary.
//
// Infrastructure layers return sentinel errors (pkg/platform/sentinel) for
// factual states; services translate those into coded errors here so that
// transport can map codes to HTTP statuses without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers.
type Code string

const (
	// CodeUnauthorized: the caller identity does not match the required role
	// or party (not an admin, not the seller, not the named buyer, ...).
	CodeUnauthorized Code = "unauthorized"
	// CodeConflict: a deterministic address is already occupied (duplicate id
	// number claim, registrar, listing, agreement, escrow, deposit).
	CodeConflict Code = "conflict"
	// CodeFailedPrecondition: the operation's preconditions do not hold
	// (wrong escrow state, unsigned agreement, amount mismatch, missing search).
	CodeFailedPrecondition Code = "failed_precondition"
	// CodeNotFound: a referenced record does not exist or was reclaimed.
	CodeNotFound Code = "not_found"
	// CodeArithmetic: overflow or underflow during a value transfer.
	CodeArithmetic Code = "arithmetic_error"
	// CodeInvalidInput: malformed or missing request fields.
	CodeInvalidInput Code = "invalid_input"
	// CodeInternal: unexpected infrastructure failure.
	CodeInternal Code = "internal_error"
)

// Error is a coded error with an optional wrapped cause.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Internal wraps err as CodeInternal unless it already carries a code, so
// services can bubble their own coded failures through transaction closures
// untouched.
func Internal(err error, message string) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Code: CodeInternal, Message: message, Err: err}
}

// MessageOf extracts the message from err, or "" when err carries none.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
