package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/http/middleware"

	"beanhealth/internal/config"
	"beanhealth/internal/domain"
	"beanhealth/internal/metrics"
	"beanhealth/internal/ratelimit"
	"beanhealth/internal/services"
)

// maxBodyBytes bounds request bodies; the largest legal submission is well
// under this.
const maxBodyBytes = 64 << 10

// DemoRequests stores and lists demo requests
type DemoRequests interface {
	Submit(ctx context.Context, draft domain.DemoRequestDraft) (*domain.DemoRequest, error)
	List(ctx context.Context, skip, limit int) ([]domain.DemoRequest, error)
	Get(ctx context.Context, id string) (*domain.DemoRequest, error)
}

// Authenticator issues and checks staff tokens
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// HealthChecker reports service health
type HealthChecker interface {
	Check(ctx context.Context) *services.HealthResult
}

// Server serves the JSON API
type Server struct {
	demo    DemoRequests
	auth    Authenticator
	health  HealthChecker
	limiter ratelimit.Limiter
	logger  *zap.Logger

	trustProxy bool
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithTrustedProxy makes the rate limiter key on X-Forwarded-For and
// X-Real-Ip. Only enable it behind a proxy that overwrites those headers.
func WithTrustedProxy(trust bool) ServerOption {
	return func(s *Server) {
		s.trustProxy = trust
	}
}

// NewServer creates the API server. A nil limiter disables rate limiting.
func NewServer(demo DemoRequests, auth Authenticator, health HealthChecker, limiter ratelimit.Limiter, logger *zap.Logger, opts ...ServerOption) *Server {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		demo:    demo,
		auth:    auth,
		health:  health,
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount registers the API routes on mux
func (s *Server) Mount(mux goahttp.Muxer) {
	mux.Handle(http.MethodPost, "/api/demo-request", s.submitDemoRequest)
	mux.Handle(http.MethodGet, "/api/demo-requests", RequireStaff(s.auth, s.logger)(s.listDemoRequests))
	mux.Handle(http.MethodGet, "/api/demo-requests/{id}", RequireStaff(s.auth, s.logger)(s.getDemoRequest(mux)))
	mux.Handle(http.MethodPost, "/api/auth/login", s.login)
	mux.Handle(http.MethodGet, "/health", s.healthCheck)
	mux.Handle(http.MethodGet, "/metrics", promhttp.Handler().ServeHTTP)
}

// NewHandler wraps mux with the middleware chain:
// RequestID -> Context -> Security -> CORS -> Logging -> Prometheus -> mux
func NewHandler(mux http.Handler, cfg *config.Config, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	var handler http.Handler = mux
	handler = metrics.PrometheusMiddleware(handler)
	handler = RequestLogging(logger)(handler)
	handler = CORS(cfg)(handler)
	handler = SecurityHeaders(cfg)(handler)
	handler = middleware.PopulateRequestContext()(handler)
	handler = middleware.RequestID()(handler)
	return handler
}

// Allow applies the submission rate limit to r. Limiter errors let the
// request through.
func (s *Server) Allow(r *http.Request) bool {
	ok, err := s.limiter.Allow(r.Context(), ClientIP(r, s.trustProxy))
	if err != nil {
		s.logger.Warn("rate limiter unavailable", zap.Error(err))
		return true
	}
	if !ok {
		metrics.RecordDemoRequestRejected("rate_limited")
	}
	return ok
}

func (s *Server) submitDemoRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !s.Allow(r) {
		w.Header().Set("Retry-After", "60")
		writeError(ctx, w, http.StatusTooManyRequests, "too many requests, please try again later", s.logger)
		return
	}

	var draft domain.DemoRequestDraft
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := goahttp.RequestDecoder(r).Decode(&draft); err != nil {
		s.logger.Info("invalid demo request body", zap.Error(err))
		metrics.RecordDemoRequestRejected("validation")
		writeError(ctx, w, http.StatusBadRequest, decodeErrorMessage(err), s.logger)
		return
	}

	record, err := s.demo.Submit(ctx, draft)
	if err != nil {
		writeServiceError(ctx, w, err, s.logger)
		return
	}

	encode(ctx, w, http.StatusCreated, domain.DemoRequestResponse{Success: true, Data: record}, s.logger)
}

func (s *Server) listDemoRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	skip, err := intParam(query.Get("skip"), 0)
	if err != nil || skip < 0 {
		writeError(ctx, w, http.StatusBadRequest, "skip must be a non-negative integer", s.logger)
		return
	}
	limit, err := intParam(query.Get("limit"), services.DefaultListLimit)
	if err != nil || limit < 1 || limit > services.MaxListLimit {
		writeError(ctx, w, http.StatusBadRequest, "limit must be between 1 and 100", s.logger)
		return
	}

	if user, ok := UserFromContext(ctx); ok {
		s.logger.Info("demo requests listed", zap.String("reviewer", user.Username), zap.Int("skip", skip), zap.Int("limit", limit))
	}

	requests, err := s.demo.List(ctx, skip, limit)
	if err != nil {
		writeServiceError(ctx, w, err, s.logger)
		return
	}

	encode(ctx, w, http.StatusOK, domain.DemoRequestListResponse{
		Success: true,
		Data:    requests,
		Count:   len(requests),
	}, s.logger)
}

func (s *Server) getDemoRequest(mux goahttp.Muxer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := mux.Vars(r)["id"]

		record, err := s.demo.Get(ctx, id)
		if err != nil {
			writeServiceError(ctx, w, err, s.logger)
			return
		}

		if user, ok := UserFromContext(ctx); ok {
			s.logger.Info("demo request viewed", zap.String("reviewer", user.Username), zap.String("id", id))
		}
		encode(ctx, w, http.StatusOK, domain.DemoRequestResponse{Success: true, Data: record}, s.logger)
	}
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var p loginPayload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			writeError(ctx, w, http.StatusBadRequest, "invalid form body", s.logger)
			return
		}
		p.Username, p.Password = r.PostForm.Get("username"), r.PostForm.Get("password")
	} else if err := goahttp.RequestDecoder(r).Decode(&p); err != nil {
		writeError(ctx, w, http.StatusBadRequest, decodeErrorMessage(err), s.logger)
		return
	}

	result, err := s.auth.Login(ctx, p.Username, p.Password)
	if err != nil {
		writeServiceError(ctx, w, err, s.logger)
		return
	}

	encode(ctx, w, http.StatusOK, result, s.logger)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result := s.health.Check(ctx)

	status := http.StatusOK
	if result.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	encode(ctx, w, status, result, s.logger)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func decodeErrorMessage(err error) string {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return "request body is required"
	case errors.As(err, &maxErr):
		return "request body too large"
	default:
		return "invalid request body"
	}
}
