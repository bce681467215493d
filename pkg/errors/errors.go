// Package errors provides structured error types for the export pipeline.
//
// Errors carry a machine-readable [Code] so that the CLI, the HTTP API and the
// pipeline runner can decide how to react without string matching:
//   - INVALID_*: input or configuration validation failures
//   - SURFACE_UNAVAILABLE, COMPOSE_FAILED, ASSEMBLE_FAILED: fatal export failures
//   - ASSET_UNAVAILABLE: degraded, the export continues without the asset
//   - NETWORK_*, TIMEOUT: remote asset fetch failures
//   - INTERNAL_*: broken invariants
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfig, "margin must be positive, got %v", m)
//	if errors.Is(err, errors.ErrCodeInvalidConfig) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeSurface, origErr, "allocate %dx%d surface", w, h)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidDocument Code = "INVALID_DOCUMENT"
	ErrCodeInvalidPath     Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Export failures. Surface, compose and assemble failures abort the export.
	ErrCodeSurface  Code = "SURFACE_UNAVAILABLE"
	ErrCodeCompose  Code = "COMPOSE_FAILED"
	ErrCodeAssemble Code = "ASSEMBLE_FAILED"
	ErrCodeAsset    Code = "ASSET_UNAVAILABLE"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// fatalCodes lists the codes that abort an export without producing output.
var fatalCodes = map[Code]bool{
	ErrCodeSurface:  true,
	ErrCodeCompose:  true,
	ErrCodeAssemble: true,
	ErrCodeInternal: true,
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
// The outermost *Error wins, so a wrapped cause keeps its own code hidden.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsFatal reports whether err carries a code that aborts the whole export.
func IsFatal(err error) bool {
	return fatalCodes[GetCode(err)]
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
