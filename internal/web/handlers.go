package web

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	goahttp "goa.design/goa/v3/http"
	g "maragu.dev/gomponents"

	"beanhealth/internal/domain"
	"beanhealth/internal/form"
	"beanhealth/internal/httpapi"
	"beanhealth/internal/metrics"
	"beanhealth/internal/ratelimit"
)

const maxFormBytes = 64 << 10

var rateLimitedNotification = form.Notification{
	Kind:        form.NotificationError,
	Title:       "Too many requests",
	Description: "Please wait a minute and try again.",
}

var blockedNotification = form.Notification{
	Kind:        form.NotificationError,
	Title:       "Please fill in all fields",
	Description: "Name, email and what you are looking for are required.",
}

// Handler serves the landing page demo section for browsers without
// JavaScript. Each POST drives a fresh form controller in-process.
type Handler struct {
	submitter     form.Submitter
	limiter       ratelimit.Limiter
	successWindow time.Duration
	logger        *zap.Logger
	trustProxy    bool
}

// Option configures a Handler
type Option func(*Handler)

// WithTrustedProxy keys the rate limiter on proxy supplied client headers
func WithTrustedProxy(trust bool) Option {
	return func(h *Handler) {
		h.trustProxy = trust
	}
}

// New creates the page handler. A nil limiter disables rate limiting and a
// non-positive window uses form.DefaultSuccessWindow.
func New(submitter form.Submitter, limiter ratelimit.Limiter, successWindow time.Duration, logger *zap.Logger, opts ...Option) *Handler {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if successWindow <= 0 {
		successWindow = form.DefaultSuccessWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		submitter:     submitter,
		limiter:       limiter,
		successWindow: successWindow,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mount registers the page routes on mux
func (h *Handler) Mount(mux goahttp.Muxer) {
	mux.Handle(http.MethodGet, "/", h.LandingPage)
	mux.Handle(http.MethodPost, "/demo", h.SubmitDemo)
}

// LandingPage renders the empty demo request form
func (h *Handler) LandingPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, Layout(PageConfig{}, DemoForm(domain.DemoRequestDraft{}, nil)))
}

// SubmitDemo handles the form post
func (h *Handler) SubmitDemo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.logger.Info("invalid demo form body", zap.Error(err))
		h.render(w, http.StatusBadRequest, Layout(PageConfig{}, DemoForm(domain.DemoRequestDraft{}, &blockedNotification)))
		return
	}

	draft := domain.DemoRequestDraft{
		Name:       r.PostFormValue("name"),
		Email:      r.PostFormValue("email"),
		LookingFor: r.PostFormValue("lookingFor"),
	}

	ok, err := h.limiter.Allow(r.Context(), httpapi.ClientIP(r, h.trustProxy))
	if err != nil {
		h.logger.Warn("rate limiter unavailable", zap.Error(err))
		ok = true
	}
	if !ok {
		metrics.RecordDemoRequestRejected("rate_limited")
		w.Header().Set("Retry-After", "60")
		h.render(w, http.StatusTooManyRequests, Layout(PageConfig{}, DemoForm(draft, &rateLimitedNotification)))
		return
	}

	var toast *form.Notification
	ctrl := form.New(h.submitter,
		form.WithSuccessWindow(h.successWindow),
		form.WithLogger(h.logger),
		form.WithObserver(func(e form.Event) {
			if n, ok := e.(form.EventNotification); ok {
				toast = &n.Notification
			}
		}),
	)
	// The page refresh replaces the controller's revert timer.
	defer ctrl.Close()

	for _, f := range form.Fields {
		_ = ctrl.UpdateField(f, form.FieldValue(draft, f))
	}

	result := ctrl.Submit(r.Context())
	switch result.Outcome {
	case form.OutcomeSucceeded:
		seconds := int(h.successWindow / time.Second)
		h.render(w, http.StatusOK, Layout(
			PageConfig{Refresh: seconds, RefreshURL: "/"},
			Confirmation(result.Record, seconds),
		))
	case form.OutcomeBlocked:
		h.render(w, http.StatusUnprocessableEntity, Layout(PageConfig{}, DemoForm(draft, &blockedNotification)))
	default:
		// Failed: the controller kept the draft for a retry.
		h.render(w, http.StatusOK, Layout(PageConfig{}, DemoForm(ctrl.Draft(), toast)))
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, page g.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(w); err != nil {
		h.logger.Error("failed to render page", zap.Error(err))
	}
}
