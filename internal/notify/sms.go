package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"beanhealth/internal/config"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// SMSSender sends a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, phoneNumber, message string) error
}

// TwilioSender sends SMS through the Twilio Messages REST API
type TwilioSender struct {
	cfg     config.SMSConfig
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewSMSSender returns the sender for cfg.Provider, or nil when SMS is disabled.
func NewSMSSender(cfg config.SMSConfig, logger *zap.Logger) (SMSSender, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Provider) {
	case "twilio":
		if cfg.TwilioSID == "" || cfg.TwilioAuth == "" || cfg.TwilioFrom == "" {
			return nil, fmt.Errorf("notify: twilio not properly configured")
		}
		return NewTwilioSender(cfg, logger), nil
	case "console", "dev", "development":
		return consoleSMS{logger: logger}, nil
	default:
		return nil, fmt.Errorf("notify: unsupported SMS provider %q", cfg.Provider)
	}
}

// NewTwilioSender creates a Twilio sender with a 10 second HTTP timeout.
func NewTwilioSender(cfg config.SMSConfig, logger *zap.Logger) *TwilioSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TwilioSender{
		cfg:     cfg,
		baseURL: twilioBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// SendSMS posts a single message. Numbers without a country code are
// treated as Indian mobile numbers.
func (s *TwilioSender) SendSMS(ctx context.Context, phoneNumber, message string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.cfg.TwilioSID)

	form := url.Values{}
	form.Set("From", s.cfg.TwilioFrom)
	form.Set("To", normalizePhone(phoneNumber))
	form.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("notify: failed to create request: %w", err)
	}
	req.SetBasicAuth(s.cfg.TwilioSID, s.cfg.TwilioAuth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: failed to send SMS request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errorResp)
		return fmt.Errorf("notify: twilio API error (status %d): %s", resp.StatusCode, errorResp.Message)
	}

	s.logger.Info("sms sent via twilio", zap.String("to", phoneNumber))
	return nil
}

func normalizePhone(phone string) string {
	phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	if len(phone) == 12 && strings.HasPrefix(phone, "91") {
		return "+" + phone
	}
	return "+91" + strings.TrimPrefix(phone, "0")
}

type consoleSMS struct {
	logger *zap.Logger
}

func (c consoleSMS) SendSMS(ctx context.Context, phoneNumber, message string) error {
	c.logger.Info("sms disabled, would send", zap.String("to", phoneNumber), zap.String("body", message))
	return nil
}
