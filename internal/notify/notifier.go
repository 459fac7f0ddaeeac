package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	g "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"beanhealth/internal/domain"
	"beanhealth/internal/metrics"
)

// DemoRequestSubject is the subject line of the sales alert.
const DemoRequestSubject = "🔔 New Demo Request - BeanHealth"

const followUpNote = "Please respond to the prospect within 24 hours."

// Submission times are rendered in India Standard Time.
var ist = time.FixedZone("IST", 5*60*60+30*60)

const emailStyles = `
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background: linear-gradient(to right, #1B4332, #2D6A4F); color: white; padding: 20px; border-radius: 8px 8px 0 0; }
.content { background: #f9f9f9; padding: 20px; border: 1px solid #ddd; border-top: none; border-radius: 0 0 8px 8px; }
.label { font-weight: bold; color: #1B4332; }
.value { margin: 5px 0 15px; padding: 10px; background: white; border-left: 3px solid #1B4332; white-space: pre-wrap; }
.footer { margin-top: 20px; padding-top: 20px; border-top: 1px solid #ddd; color: #666; font-size: 12px; }
`

type demoRequestView struct {
	Name        string
	Email       string
	LookingFor  string
	SubmittedAt string
	FollowUp    string
}

func demoRequestHTML(v demoRequestView) g.Node {
	return HTML(
		Head(StyleEl(g.Raw(emailStyles))),
		Body(
			Div(Class("container"),
				Div(Class("header"), H2(Style("margin: 0;"), g.Text("New Demo Request Received"))),
				Div(Class("content"),
					field("Name", v.Name),
					field("Email", v.Email),
					field("Looking For", v.LookingFor),
					field("Submitted At", v.SubmittedAt),
					Div(Class("footer"),
						P(g.Text("This is an automated notification from your BeanHealth landing page.")),
						P(Strong(g.Text("Action Required:")), g.Text(" "+v.FollowUp)),
					),
				),
			),
		),
	)
}

func field(label, value string) g.Node {
	return g.Group([]g.Node{
		Div(Class("label"), g.Text(label+":")),
		Div(Class("value"), g.Text(value)),
	})
}

// Notifier alerts the sales team about new demo requests.
type Notifier struct {
	email   EmailSender
	sms     SMSSender
	toEmail string
	toPhone string
	logger  *zap.Logger
}

// NewNotifier creates a notifier. A nil sms sender or empty recipient
// disables that channel.
func NewNotifier(email EmailSender, sms SMSSender, toEmail, toPhone string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		email:   email,
		sms:     sms,
		toEmail: toEmail,
		toPhone: toPhone,
		logger:  logger,
	}
}

// NotifyDemoRequest sends the e-mail alert and, when configured, an SMS
// summary. Both channels are attempted; their errors are joined.
func (n *Notifier) NotifyDemoRequest(ctx context.Context, req *domain.DemoRequest) error {
	if req == nil {
		return errors.New("notify: nil demo request")
	}

	var errs []error

	if n.email != nil && n.toEmail != "" {
		msg, err := BuildDemoRequestEmail(req, n.toEmail)
		if err == nil {
			err = n.email.Send(ctx, msg)
		}
		metrics.RecordNotification("email", err)
		if err != nil {
			n.logger.Error("demo request email failed", zap.String("id", req.ID), zap.Error(err))
			errs = append(errs, err)
		}
	}

	if n.sms != nil && n.toPhone != "" {
		err := n.sms.SendSMS(ctx, n.toPhone, smsSummary(req))
		metrics.RecordNotification("sms", err)
		if err != nil {
			n.logger.Error("demo request sms failed", zap.String("id", req.ID), zap.Error(err))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// BuildDemoRequestEmail renders the alert for req. Field values are
// HTML-escaped in the HTML body.
func BuildDemoRequestEmail(req *domain.DemoRequest, to string) (EmailMessage, error) {
	submitted := req.CreatedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}

	view := demoRequestView{
		Name:        req.Name,
		Email:       req.Email,
		LookingFor:  req.LookingFor,
		SubmittedAt: submitted.In(ist).Format("January 02, 2006 at 03:04 PM IST"),
		FollowUp:    followUpNote,
	}

	var html strings.Builder
	if err := demoRequestHTML(view).Render(&html); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render demo request email: %w", err)
	}

	text := fmt.Sprintf("New Demo Request - BeanHealth\n\nName: %s\nEmail: %s\nLooking For: %s\nSubmitted At: %s\n\n%s\n",
		view.Name, view.Email, view.LookingFor, view.SubmittedAt, followUpNote)

	return EmailMessage{
		To:      to,
		Subject: DemoRequestSubject,
		Body:    text,
		HTML:    html.String(),
	}, nil
}

func smsSummary(req *domain.DemoRequest) string {
	return fmt.Sprintf("BeanHealth: new demo request from %s (%s). %s", req.Name, req.Email, followUpNote)
}
