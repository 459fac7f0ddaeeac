package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"

	"beanhealth/internal/config"
)

const mailgunSendTimeout = 30 * time.Second

// MailgunSender sends emails via the Mailgun API.
type MailgunSender struct {
	client *mailgun.MailgunImpl
	from   string
	logger *zap.Logger
}

// NewMailgunSender returns nil if Mailgun is not configured.
func NewMailgunSender(cfg config.EmailConfig, logger *zap.Logger) *MailgunSender {
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailgunSender{
		client: mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey),
		from:   formatAddress(cfg.FromName, cfg.FromEmail),
		logger: logger,
	}
}

// Send sends an email via Mailgun.
func (s *MailgunSender) Send(ctx context.Context, msg EmailMessage) error {
	message := s.client.NewMessage(s.from, msg.Subject, msg.Body, formatAddress(msg.ToName, msg.To))
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}

	sendCtx, cancel := context.WithTimeout(ctx, mailgunSendTimeout)
	defer cancel()

	_, messageID, err := s.client.Send(sendCtx, message)
	if err != nil {
		s.logger.Error("mailgun send failed", zap.String("to", msg.To), zap.Error(err))
		return fmt.Errorf("notify: mailgun send failed: %w", err)
	}

	s.logger.Info("email sent via mailgun", zap.String("to", msg.To), zap.String("message_id", messageID))
	return nil
}
