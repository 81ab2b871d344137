// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Malformed signals, bad configuration, illegal transitions
//   - Session errors (200-299): Trading window violations and clock parsing
//   - Risk errors (300-399): Risk rejections, kill switch, reconciliation halts
//   - Connectivity errors (400-499): Broker transport failures and broker rejections
//   - Storage errors (500-599): Journal and data source failures
//   - System errors (600-699): Internal failures
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeMissingStop, "signal has no stop price")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeUnknownInstrument, "no contract spec for %s", symbol)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeConnectivity, "failed to submit entry leg", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeConnectivity) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error or *RejectionError type.
// Returns ErrCodeUnknown otherwise.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// RejectionError is returned when the risk governor refuses a proposed order.
// Reason is the machine readable rejection reason (for example "daily_loss_limit").
type RejectionError struct {
	Code    ErrorCode
	Reason  string
	Message string
	OrderID string
}

// NewRejectionError creates a new RejectionError for the given order.
func NewRejectionError(code ErrorCode, orderID, reason, message string) *RejectionError {
	return &RejectionError{
		Code:    code,
		Reason:  reason,
		Message: message,
		OrderID: orderID,
	}
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("[%d] order rejected: %s", e.Code, e.Reason)
	}

	return fmt.Sprintf("[%d] order rejected: %s: %s", e.Code, e.Reason, e.Message)
}

// IsRejection reports whether err is a RejectionError and returns it.
func IsRejection(err error) (*RejectionError, bool) {
	var rejection *RejectionError
	if errors.As(err, &rejection) {
		return rejection, true
	}

	return nil, false
}

// RejectionReason returns the rejection reason carried by err, or an empty string.
func RejectionReason(err error) string {
	if rejection, ok := IsRejection(err); ok {
		return rejection.Reason
	}

	return ""
}
