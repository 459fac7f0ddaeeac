package services

import (
	"errors"

	goa "goa.design/goa/v3/pkg"
)

// Service error names. The HTTP layer maps them to status codes.
const (
	ErrNameBadRequest   = "bad_request"
	ErrNameUnauthorized = "unauthorized"
	ErrNameForbidden    = "forbidden"
	ErrNameNotFound     = "not_found"
	ErrNameInternal     = "internal_error"
)

// BadRequest creates a properly formatted bad request error
func BadRequest(err error) *goa.ServiceError {
	return goa.NewServiceError(err, ErrNameBadRequest, false, false, false)
}

// Unauthorized creates a properly formatted unauthorized error
func Unauthorized(message string) *goa.ServiceError {
	return goa.NewServiceError(errors.New(message), ErrNameUnauthorized, false, false, false)
}

// Forbidden creates a properly formatted forbidden error
func Forbidden(message string) *goa.ServiceError {
	return goa.NewServiceError(errors.New(message), ErrNameForbidden, false, false, false)
}

// NotFound creates a properly formatted not found error
func NotFound(message string) *goa.ServiceError {
	return goa.NewServiceError(errors.New(message), ErrNameNotFound, false, false, false)
}

// Internal creates a fault carrying a message that is safe to show callers.
// The underlying cause is logged by the service, never returned.
func Internal(message string) *goa.ServiceError {
	return goa.NewServiceError(errors.New(message), ErrNameInternal, false, false, true)
}

// ErrorName returns the goa error name of err, or ErrNameInternal when err
// is not a service error.
func ErrorName(err error) string {
	var svcErr *goa.ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Name {
		case ErrNameBadRequest, ErrNameUnauthorized, ErrNameForbidden, ErrNameNotFound, ErrNameInternal:
			return svcErr.Name
		default:
			// Validation helpers such as goa.MissingFieldError use their own names.
			return ErrNameBadRequest
		}
	}
	return ErrNameInternal
}
