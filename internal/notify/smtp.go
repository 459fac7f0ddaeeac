package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/smtp"
	"net/textproto"

	"go.uber.org/zap"

	"beanhealth/internal/config"
)

// sendMailFunc matches smtp.SendMail so tests can capture outgoing messages.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends multipart e-mail through an SMTP relay with STARTTLS.
type SMTPSender struct {
	cfg      config.EmailConfig
	logger   *zap.Logger
	sendMail sendMailFunc
}

// NewSMTPSender creates an SMTP sender
func NewSMTPSender(cfg config.EmailConfig, logger *zap.Logger) *SMTPSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPSender{
		cfg:      cfg,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

// Send sends an HTML email with plain text fallback
func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.cfg.SMTPHost == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("notify: smtp not properly configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	raw, err := s.buildMessage(msg)
	if err != nil {
		return fmt.Errorf("notify: build smtp message: %w", err)
	}

	if err := s.sendMail(addr, auth, s.cfg.FromEmail, []string{msg.To}, raw); err != nil {
		s.logger.Error("smtp send failed", zap.String("to", msg.To), zap.Error(err))
		return fmt.Errorf("notify: smtp send failed: %w", err)
	}

	s.logger.Info("email sent via smtp", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *SMTPSender) buildMessage(msg EmailMessage) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := writePart(mw, "text/plain; charset=UTF-8", msg.Body); err != nil {
		return nil, err
	}
	if msg.HTML != "" {
		if err := writePart(mw, "text/html; charset=UTF-8", msg.HTML); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", formatAddress(s.cfg.FromName, s.cfg.FromEmail))
	fmt.Fprintf(&b, "To: %s\r\n", formatAddress(msg.ToName, msg.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	b.Write(body.Bytes())
	return b.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, content string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(content)); err != nil {
		return err
	}
	return qp.Close()
}
