package notify

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"go.uber.org/zap"

	"beanhealth/internal/config"
)

// EmailSender sends a single e-mail. SMTP, SendGrid, SES and Mailgun
// implementations are selected by EMAIL_PROVIDER.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string // Plain text body
	HTML    string // Optional HTML body
}

// NewEmailSender builds the sender for cfg.Provider. A disabled configuration
// or the "console" provider yields a StubSender.
func NewEmailSender(ctx context.Context, cfg config.EmailConfig, logger *zap.Logger) (EmailSender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		return NewStubSender(logger), nil
	}

	switch strings.ToLower(cfg.Provider) {
	case "", "smtp":
		return NewSMTPSender(cfg, logger), nil
	case "sendgrid":
		sender := NewSendGridSender(cfg, logger)
		if sender == nil {
			return nil, fmt.Errorf("notify: SENDGRID_API_KEY is required for the sendgrid provider")
		}
		return sender, nil
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("notify: failed to load AWS config: %w", err)
		}
		return NewSESSender(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
	case "mailgun":
		sender := NewMailgunSender(cfg, logger)
		if sender == nil {
			return nil, fmt.Errorf("notify: MAILGUN_DOMAIN and MAILGUN_API_KEY are required for the mailgun provider")
		}
		return sender, nil
	case "console", "dev", "development":
		return NewStubSender(logger), nil
	default:
		return nil, fmt.Errorf("notify: unsupported email provider %q", cfg.Provider)
	}
}

// StubSender is a no-op sender for development or when email is disabled.
type StubSender struct {
	logger *zap.Logger
}

// NewStubSender creates a stub email sender that logs but doesn't send.
func NewStubSender(logger *zap.Logger) *StubSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubSender{logger: logger}
}

// Send logs the email but doesn't actually send it.
func (s *StubSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("email disabled, would send", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func formatAddress(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}
