// Package errors provides coded application errors shared across the
// store, sync engine and API layers.
package errors

import "fmt"

// ErrorCode identifies a class of failure that callers can match on.
type ErrorCode string

const (
	// General errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	ErrInvalid  ErrorCode = "INVALID_INPUT"
	ErrNotFound ErrorCode = "NOT_FOUND"

	// Local store errors
	ErrStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrNotInitialized     ErrorCode = "NOT_INITIALIZED"
	ErrDuplicateReference ErrorCode = "DUPLICATE_REFERENCE"

	// Sync errors
	ErrOffline              ErrorCode = "OFFLINE"
	ErrInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
	ErrSyncInProgress       ErrorCode = "SYNC_IN_PROGRESS"
	ErrSyncFailed           ErrorCode = "SYNC_FAILED"

	// Artifact errors
	ErrExportFailed ErrorCode = "EXPORT_FAILED"
	ErrRenderFailed ErrorCode = "RENDER_FAILED"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error carries a specific code. Wrapped AppErrors are
// matched on the outermost code only.
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the error's code, or ErrInternal for plain errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrInternal
}
