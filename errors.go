package diskdrv

import (
	"errors"
	"fmt"

	"github.com/ehrlich-b/go-diskdrv/internal/constants"
	"github.com/ehrlich-b/go-diskdrv/internal/dispatch"
	"github.com/ehrlich-b/go-diskdrv/internal/geometry"
	"github.com/ehrlich-b/go-diskdrv/internal/mailbox"
	"github.com/ehrlich-b/go-diskdrv/internal/queue"
)

// Error represents a structured driver error with context
type Error struct {
	Op      string    // Operation that failed (e.g., "SUBMIT", "CYCLE")
	Drive   int       // Drive ID (0 if not applicable)
	Request int       // Request ID (0 if not applicable)
	Code    ErrorCode // High-level error category
	Msg     string    // Human-readable message
	Inner   error     // Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	if e.Drive != 0 {
		parts = append(parts, fmt.Sprintf("drive=%d", e.Drive))
	}

	if e.Request != 0 {
		parts = append(parts, fmt.Sprintf("request=%d", e.Request))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("diskdrv: %s (%s)", msg, parts[0])
	}

	return fmt.Sprintf("diskdrv: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support for DriverError compatibility
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if de, ok := target.(DriverError); ok {
		return e.Code == ErrorCode(de)
	}

	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}

	return false
}

// ErrorCode represents high-level error categories
type ErrorCode string

const (
	ErrCodeInvalidParameters ErrorCode = "invalid parameters"
	ErrCodeQueueExhausted    ErrorCode = "queue exhausted"
	ErrCodeInboxFull         ErrorCode = "inbox full"
	ErrCodeInvalidMessage    ErrorCode = "invalid message"
	ErrCodeDriverStopped     ErrorCode = "driver stopped"
	ErrCodeHardware          ErrorCode = "hardware"
)

// DriverError is the plain sentinel form of an ErrorCode
type DriverError string

func (e DriverError) Error() string {
	return string(e)
}

const (
	ErrInvalidParameters DriverError = "invalid parameters"
	ErrQueueExhausted    DriverError = "queue exhausted"
	ErrInboxFull         DriverError = "inbox full"
	ErrInvalidMessage    DriverError = "invalid message"
	ErrDriverStopped     DriverError = "driver stopped"
	ErrHardware          DriverError = "hardware"
)

// NewError creates a new structured error
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		Code: code,
		Msg:  msg,
	}
}

// NewDriveError creates a new drive-specific error
func NewDriveError(op string, drive int, code ErrorCode, msg string) *Error {
	return &Error{
		Op:    op,
		Drive: drive,
		Code:  code,
		Msg:   msg,
	}
}

// NewRequestError creates a new request-specific error
func NewRequestError(op string, drive, request int, code ErrorCode, msg string) *Error {
	return &Error{
		Op:      op,
		Drive:   drive,
		Request: request,
		Code:    code,
		Msg:     msg,
	}
}

// WrapError wraps an existing error with driver context
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	var de *Error
	if errors.As(inner, &de) {
		return &Error{
			Op:      op,
			Drive:   de.Drive,
			Request: de.Request,
			Code:    de.Code,
			Msg:     de.Msg,
			Inner:   de.Inner,
		}
	}

	return &Error{
		Op:    op,
		Code:  mapErrorToCode(inner),
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// mapErrorToCode maps internal sentinel errors to error codes
func mapErrorToCode(err error) ErrorCode {
	switch {
	case errors.Is(err, queue.ErrExhausted):
		return ErrCodeQueueExhausted
	case errors.Is(err, mailbox.ErrInboxFull):
		return ErrCodeInboxFull
	case errors.Is(err, mailbox.ErrInvalidMessage):
		return ErrCodeInvalidMessage
	case errors.Is(err, geometry.ErrInvalidGeometry), errors.Is(err, dispatch.ErrNotConfigured):
		return ErrCodeInvalidParameters
	default:
		return ErrCodeHardware
	}
}

// IsCode checks if an error matches a specific error code
func IsCode(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ExitCode returns the process exit status for err: 0 for nil, the
// allocation-site code for queue exhaustion, and ExitFailure for anything
// else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsCode(err, ErrCodeQueueExhausted), errors.Is(err, queue.ErrExhausted):
		return constants.ExitRequestAlloc
	default:
		return constants.ExitFailure
	}
}
