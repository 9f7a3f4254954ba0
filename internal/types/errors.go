package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a typed string for categorizing pipeline errors.
type ErrorCode string

// Complete error code constants.
// All components MUST use these constants instead of hardcoded strings.
const (
	// Configuration (fatal, pre-run)
	ErrCodeConfigInvalid ErrorCode = "config_invalid"

	// Transfer (unit-terminal, recoverable at the run level)
	ErrCodeTransferFailed      ErrorCode = "transfer_failed"
	ErrCodeTransferCircuitOpen ErrorCode = "transfer_circuit_open"

	// Decode (isolated to one unit or one variable)
	ErrCodeDecodeOpen    ErrorCode = "decode_open_failed"
	ErrCodeDecodeFailed  ErrorCode = "decode_failed"
	ErrCodeFieldNotFound ErrorCode = "field_not_found"

	// Extraction (isolated to one variable)
	ErrCodeInvalidSlot    ErrorCode = "invalid_variable_slot"
	ErrCodeNoDataInBounds ErrorCode = "no_data_in_bounds"
	ErrCodeArtifactWrite  ErrorCode = "artifact_write_failed"

	// Lifecycle
	ErrCodeCleanupFailed ErrorCode = "cleanup_failed"

	// Sinks (logged, never affect pipeline control flow)
	ErrCodeInternalDB   ErrorCode = "internal_database_error"
	ErrCodeQueuePublish ErrorCode = "queue_publish_failed"
	ErrCodeMetricsEmit  ErrorCode = "metrics_emit_failed"
)

// AppError is the standard application error type used throughout the pipeline.
// All domain errors should be expressed as AppError to enable consistent error
// formatting, categorization, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error with the provided details merged in.
// This is useful for adding context without mutating the original error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf extracts the ErrorCode from an error chain. Returns an empty code if
// the chain contains no AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether the error chain contains an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
