package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"

	// Demo request submission outcomes as seen by the form controller.
	ErrCodeValidationBlocked ErrorCode = "VALIDATION_BLOCKED"
	ErrCodeServerDeclined    ErrorCode = "SERVER_DECLINED"
	ErrCodeTransportFailure  ErrorCode = "TRANSPORT_FAILURE"
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or
// ErrCodeInternalError when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
	}
	return false
}

// IsValidationBlocked checks if a submission never left the client because
// required fields were empty.
func IsValidationBlocked(err error) bool {
	return Is(err, ErrCodeValidationBlocked)
}

// IsServerDeclined checks if the endpoint answered with a negative acknowledgement
func IsServerDeclined(err error) bool {
	return Is(err, ErrCodeServerDeclined)
}

// IsTransportFailure checks if the endpoint could not be reached or answered
// with something other than an acknowledgement
func IsTransportFailure(err error) bool {
	return Is(err, ErrCodeTransportFailure)
}
