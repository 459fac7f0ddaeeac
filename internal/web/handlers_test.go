package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goahttp "goa.design/goa/v3/http"

	"beanhealth/internal/domain"
	apperrors "beanhealth/pkg/errors"
)

type stubSubmitter struct {
	calls int
	got   domain.DemoRequestDraft
	err   error
}

func (s *stubSubmitter) SubmitDemoRequest(ctx context.Context, d domain.DemoRequestDraft) (*domain.DemoRequest, error) {
	s.calls++
	s.got = d
	if s.err != nil {
		return nil, s.err
	}
	return &domain.DemoRequest{
		ID:         "6f1c2a9e-0000-4000-8000-000000000001",
		Name:       d.Name,
		Email:      d.Email,
		LookingFor: d.LookingFor,
		CreatedAt:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

func newMux(h *Handler) goahttp.Muxer {
	mux := goahttp.NewMuxer()
	h.Mount(mux)
	return mux
}

func postForm(t *testing.T, mux http.Handler, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/demo", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func validForm() url.Values {
	return url.Values{
		"name":       {"Dr. John Doe"},
		"email":      {"john@hospital.com"},
		"lookingFor": {"Need a demo for nephrology dept"},
	}
}

func TestLandingPage(t *testing.T) {
	mux := newMux(New(&stubSubmitter{}, nil, 0, nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
	assert.Contains(t, body, `action="/demo"`)
	assert.Contains(t, body, `name="lookingFor"`)
	assert.NotContains(t, body, "http-equiv")
}

func TestSubmitDemoSuccess(t *testing.T) {
	sub := &stubSubmitter{}
	mux := newMux(New(sub, nil, 0, nil))

	rec := postForm(t, mux, validForm())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sub.calls)
	assert.Equal(t, "Dr. John Doe", sub.got.Name)

	body := rec.Body.String()
	assert.Contains(t, body, "Demo Request Submitted!")
	assert.Contains(t, body, "Our team will contact you within 24 hours.")
	assert.Contains(t, body, `content="8;url=/"`)
	assert.Contains(t, body, "6f1c2a9e-0000-4000-8000-000000000001")
	assert.Contains(t, body, "March 14, 2026 09:30 UTC")
}

func TestSubmitDemoCustomWindow(t *testing.T) {
	mux := newMux(New(&stubSubmitter{}, nil, 3*time.Second, nil))

	rec := postForm(t, mux, validForm())

	assert.Contains(t, rec.Body.String(), `content="3;url=/"`)
}

func TestSubmitDemoBlocked(t *testing.T) {
	sub := &stubSubmitter{}
	mux := newMux(New(sub, nil, 0, nil))

	values := validForm()
	values.Set("email", "   ")
	rec := postForm(t, mux, values)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, sub.calls)
	body := rec.Body.String()
	assert.Contains(t, body, "Please fill in all fields")
	assert.Contains(t, body, `value="Dr. John Doe"`)
}

func TestSubmitDemoFailureKeepsDraft(t *testing.T) {
	sub := &stubSubmitter{err: apperrors.Wrap(apperrors.ErrCodeServerDeclined, "submit", errors.New("database is locked"))}
	mux := newMux(New(sub, nil, 0, nil))

	values := validForm()
	values.Set("lookingFor", "Pricing for <3 clinics")
	rec := postForm(t, mux, values)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Failed to submit demo request. Please try again.")
	assert.Contains(t, body, `value="Dr. John Doe"`)
	assert.Contains(t, body, `value="john@hospital.com"`)
	assert.Contains(t, body, "Pricing for &lt;3 clinics")
	assert.NotContains(t, body, "database is locked")
	assert.NotContains(t, body, "http-equiv")
}

func TestSubmitDemoRateLimited(t *testing.T) {
	sub := &stubSubmitter{}
	mux := newMux(New(sub, denyAll{}, 0, nil))

	rec := postForm(t, mux, validForm())

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Zero(t, sub.calls)
	assert.Contains(t, rec.Body.String(), "Too many requests")
}

type recordingLimiter struct {
	keys []string
}

func (l *recordingLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return true, nil
}

func TestSubmitDemoRateLimitKey(t *testing.T) {
	post := func(h *Handler) {
		req := httptest.NewRequest(http.MethodPost, "/demo", strings.NewReader(validForm().Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		newMux(h).ServeHTTP(httptest.NewRecorder(), req)
	}

	direct := &recordingLimiter{}
	post(New(&stubSubmitter{}, direct, 0, nil))
	assert.Equal(t, []string{"192.0.2.1"}, direct.keys)

	proxied := &recordingLimiter{}
	post(New(&stubSubmitter{}, proxied, 0, nil, WithTrustedProxy(true)))
	assert.Equal(t, []string{"203.0.113.7"}, proxied.keys)
}
