package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"beanhealth/internal/domain"
	apperrors "beanhealth/pkg/errors"
)

// DemoRequestPath is the submission endpoint, relative to the backend base URL.
const DemoRequestPath = "/api/demo-request"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client submits demo requests to the BeanHealth API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests bounded only by
// the caller's context and the transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitDemoRequest posts draft and returns the record created by the
// server. Network faults, non-2xx statuses and unreadable bodies are
// TRANSPORT_FAILURE errors; a negative acknowledgement is SERVER_DECLINED.
func (c *Client) SubmitDemoRequest(ctx context.Context, draft domain.DemoRequestDraft) (*domain.DemoRequest, error) {
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeTransportFailure, "encode demo request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+DemoRequestPath, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeTransportFailure, "build demo request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("demo request transport failure", zap.Error(err))
		return nil, apperrors.Wrap(apperrors.ErrCodeTransportFailure, "send demo request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Warn("demo request response unreadable", zap.Error(err))
		return nil, apperrors.Wrap(apperrors.ErrCodeTransportFailure, "read demo request response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("demo request failed", zap.Int("status", resp.StatusCode), zap.String("body", truncate(body, 200)))
		return nil, apperrors.New(apperrors.ErrCodeTransportFailure, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var ack domain.DemoRequestResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		c.logger.Warn("demo request response malformed", zap.Error(err))
		return nil, apperrors.Wrap(apperrors.ErrCodeTransportFailure, "decode demo request response", err)
	}

	if !ack.Success {
		c.logger.Warn("demo request declined", zap.String("reason", ack.Error))
		msg := "demo request declined"
		if ack.Error != "" {
			msg = ack.Error
		}
		return nil, apperrors.New(apperrors.ErrCodeServerDeclined, msg)
	}

	if ack.Data == nil {
		// The acknowledgement may omit the created record.
		normalized := draft.Normalized()
		return &domain.DemoRequest{
			Name:       normalized.Name,
			Email:      normalized.Email,
			LookingFor: normalized.LookingFor,
		}, nil
	}
	return ack.Data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
