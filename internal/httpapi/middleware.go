package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	goamiddleware "goa.design/goa/v3/middleware"

	"beanhealth/internal/config"
	"beanhealth/internal/domain"
	"beanhealth/internal/services"
)

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext returns the authenticated staff user, if any
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	return user, ok
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

			// HSTS (only in production with HTTPS)
			if !cfg.App.Debug && r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORS validates the Origin against ALLOWED_HOSTS and answers preflight
// requests. A "*" entry allows every origin.
func CORS(cfg *config.Config) func(http.Handler) http.Handler {
	allowAll := len(cfg.CORS.AllowedOrigins) == 0 || slices.Contains(cfg.CORS.AllowedOrigins, "*")
	methods := strings.Join(cfg.CORS.AllowedMethods, ", ")
	headers := strings.Join(cfg.CORS.AllowedHeaders, ", ")
	maxAge := fmt.Sprintf("%d", cfg.CORS.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && !allowAll && !slices.Contains(cfg.CORS.AllowedOrigins, origin) {
				w.WriteHeader(http.StatusForbidden)
				return
			}

			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)
			w.Header().Set("Access-Control-Expose-Headers", "Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", maxAge)

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestLogging logs every request except health checks and echoes the
// request id set by goa's RequestID middleware.
func RequestLogging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID, _ := r.Context().Value(goamiddleware.RequestIDKey).(string)
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Skip logging for health checks to reduce noise
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", requestID),
			}
			if wrapped.statusCode >= http.StatusInternalServerError {
				logger.Error("request failed", fields...)
				return
			}
			logger.Info("request", fields...)
		})
	}
}

// RequireStaff rejects requests without a bearer token belonging to an
// active staff or admin user.
func RequireStaff(auth Authenticator, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(ctx, w, http.StatusUnauthorized, "authorization header required", logger)
				return
			}

			user, err := auth.Authenticate(ctx, strings.TrimSpace(token))
			if err != nil {
				writeServiceError(ctx, w, err, logger)
				return
			}
			if !user.CanReviewDemoRequests() {
				writeServiceError(ctx, w, services.Forbidden("insufficient permissions"), logger)
				return
			}

			next(w, r.WithContext(context.WithValue(ctx, userContextKey, user)))
		}
	}
}

// ClientIP returns the caller address used as the rate limit key. With
// trustProxy the first X-Forwarded-For hop, then X-Real-Ip, win over the
// connection address; without it those client-supplied headers are ignored.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		return proxiedClientIP(r)
	}
	return remoteHost(r)
}

func proxiedClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xri != "" {
		return xri
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
