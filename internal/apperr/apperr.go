// Package apperr defines the coded errors that cross the ledger's public
// boundary. Every failure a caller can observe maps to exactly one Code.
package apperr

import (
	"errors"
	"fmt"
)

// Code categorizes a failure.
type Code string

const (
	// CodeInvalidArgument is a missing or malformed payload field.
	CodeInvalidArgument Code = "invalid_argument"

	// CodePermissionDenied means the caller may not touch the group.
	CodePermissionDenied Code = "permission_denied"

	// CodeNotFound means the referenced record does not exist in the group.
	CodeNotFound Code = "not_found"

	// CodeStorage is a failed read or write against the persisted store.
	CodeStorage Code = "storage_failure"

	// CodeMalformedRule is a recurring rule that cannot be evaluated.
	CodeMalformedRule Code = "malformed_rule"

	// CodeUnknownAction is an action name with no matching request variant.
	CodeUnknownAction Code = "unknown_action"

	// CodeInternal covers anything else, including recovered panics.
	CodeInternal Code = "internal"
)

// Error is a failure with a Code and a caller-facing message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func InvalidArgument(format string, args ...any) *Error {
	return New(CodeInvalidArgument, format, args...)
}

func PermissionDenied(format string, args ...any) *Error {
	return New(CodePermissionDenied, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(CodeNotFound, format, args...)
}

// Storage wraps a store failure.
func Storage(err error, message string) *Error {
	return Wrap(CodeStorage, err, message)
}

// CodeOf returns the code carried by err, CodeInternal for uncoded errors and
// "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
