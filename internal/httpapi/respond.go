package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
	goahttp "goa.design/goa/v3/http"
	goa "goa.design/goa/v3/pkg"

	"beanhealth/internal/services"
)

// errorEnvelope is the failure body shared by every JSON endpoint
type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// encode writes v with the encoder negotiated from the request Accept header
func encode(ctx context.Context, w http.ResponseWriter, status int, v any, logger *zap.Logger) {
	enc := goahttp.ResponseEncoder(ctx, w)
	w.WriteHeader(status)
	if err := enc.Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	encode(ctx, w, status, errorEnvelope{Success: false, Error: message}, logger)
}

// writeServiceError maps a service error name to its HTTP status
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error, logger *zap.Logger) {
	message := err.Error()
	var svcErr *goa.ServiceError
	if !errors.As(err, &svcErr) {
		logger.Error("unexpected error", zap.Error(err))
		message = "internal server error"
	}
	writeError(ctx, w, StatusFor(err), message, logger)
}

// StatusFor returns the HTTP status code for a service error
func StatusFor(err error) int {
	switch services.ErrorName(err) {
	case services.ErrNameBadRequest:
		return http.StatusBadRequest
	case services.ErrNameUnauthorized:
		return http.StatusUnauthorized
	case services.ErrNameForbidden:
		return http.StatusForbidden
	case services.ErrNameNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
