package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beanhealth/internal/config"
	"beanhealth/internal/domain"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

type recordingSMS struct {
	to, body string
	err      error
}

func (r *recordingSMS) SendSMS(ctx context.Context, phoneNumber, message string) error {
	r.to, r.body = phoneNumber, message
	return r.err
}

func sampleRequest() *domain.DemoRequest {
	return &domain.DemoRequest{
		ID:         "3f1c9a2e-0000-4000-8000-000000000001",
		Name:       "Dr. John Doe",
		Email:      "john@hospital.com",
		LookingFor: "Need a demo for <nephrology> dept",
		CreatedAt:  time.Date(2025, 3, 1, 4, 30, 0, 0, time.UTC),
	}
}

func TestBuildDemoRequestEmail(t *testing.T) {
	msg, err := BuildDemoRequestEmail(sampleRequest(), "sales@beanhealth.in")
	require.NoError(t, err)

	assert.Equal(t, "sales@beanhealth.in", msg.To)
	assert.Equal(t, DemoRequestSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "Need a demo for &lt;nephrology&gt; dept")
	assert.NotContains(t, msg.HTML, "<nephrology>")
	assert.Contains(t, msg.HTML, "March 01, 2025 at 10:00 AM IST")
	assert.Contains(t, msg.Body, "Looking For: Need a demo for <nephrology> dept")
	assert.Contains(t, msg.Body, "Please respond to the prospect within 24 hours.")
}

func TestNotifyDemoRequestSendsBothChannels(t *testing.T) {
	email := &recordingSender{}
	sms := &recordingSMS{}
	n := NewNotifier(email, sms, "sales@beanhealth.in", "+919800000000", nil)

	require.NoError(t, n.NotifyDemoRequest(context.Background(), sampleRequest()))

	require.Len(t, email.msgs, 1)
	assert.Equal(t, "sales@beanhealth.in", email.msgs[0].To)
	assert.Equal(t, "+919800000000", sms.to)
	assert.Contains(t, sms.body, "Dr. John Doe")
}

func TestNotifyDemoRequestJoinsErrors(t *testing.T) {
	email := &recordingSender{err: errors.New("smtp down")}
	sms := &recordingSMS{err: errors.New("twilio down")}
	n := NewNotifier(email, sms, "sales@beanhealth.in", "+919800000000", nil)

	err := n.NotifyDemoRequest(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Contains(t, err.Error(), "twilio down")
}

func TestNotifyDemoRequestSkipsUnconfiguredChannels(t *testing.T) {
	email := &recordingSender{}
	n := NewNotifier(email, nil, "", "", nil)

	require.NoError(t, n.NotifyDemoRequest(context.Background(), sampleRequest()))
	assert.Empty(t, email.msgs)
	assert.Error(t, n.NotifyDemoRequest(context.Background(), nil))
}

func TestSMTPSenderBuildsMultipartMessage(t *testing.T) {
	cfg := config.EmailConfig{
		SMTPHost:  "smtp.example.com",
		SMTPPort:  587,
		Username:  "user",
		Password:  "pass",
		FromEmail: "noreply@beanhealth.in",
		FromName:  "BeanHealth",
	}
	s := NewSMTPSender(cfg, nil)

	var gotAddr string
	var gotTo []string
	var gotBody string
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotBody = addr, to, string(msg)
		return nil
	}

	msg, err := BuildDemoRequestEmail(sampleRequest(), "sales@beanhealth.in")
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), msg))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"sales@beanhealth.in"}, gotTo)
	assert.Contains(t, gotBody, "From: BeanHealth <noreply@beanhealth.in>\r\n")
	assert.Contains(t, gotBody, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, gotBody, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, gotBody, "Subject: =?utf-8?q?")
}

func TestSMTPSenderBoundaryIsNotVisitorControlled(t *testing.T) {
	s := NewSMTPSender(config.EmailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		Username: "user",
		Password: "pass",
	}, nil)

	var raw []byte
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		raw = msg
		return nil
	}

	req := sampleRequest()
	req.LookingFor = "before\r\n------=_BeanHealthPart_8f3c2a\r\nContent-Type: text/html\r\n\r\n<b>injected</b>"
	msg, err := BuildDemoRequestEmail(req, "sales@beanhealth.in")
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), msg))

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	var parts []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(p)
		require.NoError(t, err)
		parts = append(parts, string(content))
	}

	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "------=_BeanHealthPart_8f3c2a")
	assert.Contains(t, parts[1], "&lt;b&gt;injected&lt;/b&gt;")
}

func TestSMTPSenderRequiresCredentials(t *testing.T) {
	s := NewSMTPSender(config.EmailConfig{SMTPHost: "smtp.example.com"}, nil)
	require.Error(t, s.Send(context.Background(), EmailMessage{To: "a@b.com"}))
}

type fakeSES struct {
	input *sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESSender(t *testing.T) {
	api := &fakeSES{}
	s := NewSESSender(api, config.EmailConfig{FromEmail: "noreply@beanhealth.in", FromName: "BeanHealth"}, nil)

	require.NoError(t, s.Send(context.Background(), EmailMessage{To: "sales@beanhealth.in", Subject: "hi", Body: "text", HTML: "<p>html</p>"}))

	require.NotNil(t, api.input)
	assert.Equal(t, "BeanHealth <noreply@beanhealth.in>", aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"sales@beanhealth.in"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "<p>html</p>", aws.ToString(api.input.Content.Simple.Body.Html.Data))
}

func TestTwilioSender(t *testing.T) {
	var form url.Values
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, _ = r.BasicAuth()
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewTwilioSender(config.SMSConfig{TwilioSID: "AC123", TwilioAuth: "tok", TwilioFrom: "+15005550006"}, nil)
	s.baseURL = srv.URL

	require.NoError(t, s.SendSMS(context.Background(), "98000 00000", "hello"))
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "tok", pass)
	assert.Equal(t, "+919800000000", form.Get("To"))
	assert.Equal(t, "hello", form.Get("Body"))
}

func TestTwilioSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":21211,"message":"invalid To number"}`)
	}))
	defer srv.Close()

	s := NewTwilioSender(config.SMSConfig{TwilioSID: "AC123", TwilioAuth: "tok", TwilioFrom: "+1"}, nil)
	s.baseURL = srv.URL

	err := s.SendSMS(context.Background(), "+15551234567", "hello")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid To number"))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+15551234567", normalizePhone("+1 555-123-4567"))
	assert.Equal(t, "+919800000000", normalizePhone("919800000000"))
	assert.Equal(t, "+919800000000", normalizePhone("09800000000"))
}

func TestNewEmailSender(t *testing.T) {
	ctx := context.Background()

	sender, err := NewEmailSender(ctx, config.EmailConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &StubSender{}, sender)

	sender, err = NewEmailSender(ctx, config.EmailConfig{Enabled: true, Provider: "smtp"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, sender)

	_, err = NewEmailSender(ctx, config.EmailConfig{Enabled: true, Provider: "sendgrid"}, nil)
	require.Error(t, err)

	sender, err = NewEmailSender(ctx, config.EmailConfig{Enabled: true, Provider: "sendgrid", SendGridAPIKey: "SG.key"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SendGridSender{}, sender)

	sender, err = NewEmailSender(ctx, config.EmailConfig{Enabled: true, Provider: "mailgun", MailgunDomain: "mg.beanhealth.in", MailgunAPIKey: "key"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MailgunSender{}, sender)

	_, err = NewEmailSender(ctx, config.EmailConfig{Enabled: true, Provider: "pigeon"}, nil)
	require.Error(t, err)
}

func TestNewSMSSender(t *testing.T) {
	sender, err := NewSMSSender(config.SMSConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, sender)

	_, err = NewSMSSender(config.SMSConfig{Enabled: true, Provider: "twilio"}, nil)
	require.Error(t, err)

	sender, err = NewSMSSender(config.SMSConfig{Enabled: true, Provider: "console"}, nil)
	require.NoError(t, err)
	require.NoError(t, sender.SendSMS(context.Background(), "+1", "hi"))
}
