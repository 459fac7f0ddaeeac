package web

import (
	"fmt"
	"strconv"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"beanhealth/internal/domain"
	"beanhealth/internal/form"
)

const pageStyles = `
body{font-family:system-ui,sans-serif;background:#f6faf8;color:#1b1b1b;margin:0}
.container{max-width:640px;margin:0 auto;padding:48px 24px}
h1{color:#2D6A4F}
label{display:block;font-weight:600;margin-top:16px}
input,textarea{width:100%;padding:10px;border:1px solid #cfd8d3;border-radius:8px;font:inherit;box-sizing:border-box}
button{margin-top:20px;background:#2D6A4F;color:#fff;border:0;border-radius:8px;padding:12px 20px;font:inherit;cursor:pointer}
.toast{margin-top:20px;padding:12px 16px;border-radius:8px}
.toast-error{background:#fdecee;border:1px solid #E63946}
.toast-success{background:#e8f5ee;border:1px solid #52B788}
.confirmation{text-align:center;padding:32px;border:1px solid #52B788;border-radius:12px;background:#fff}
.muted{color:#6c757d}
`

// PageConfig holds the document metadata
type PageConfig struct {
	Title       string
	Description string
	// Refresh, when positive, reloads URL after that many seconds.
	Refresh    int
	RefreshURL string
}

// Layout wraps content in the HTML document
func Layout(config PageConfig, content ...g.Node) g.Node {
	if config.Title == "" {
		config.Title = "BeanHealth - Request a Demo"
	}
	if config.Description == "" {
		config.Description = "See how BeanHealth fits your practice. Our team will contact you within 24 hours."
	}
	if config.RefreshURL == "" {
		config.RefreshURL = "/"
	}

	return g.Group([]g.Node{
		g.Raw("<!DOCTYPE html>"),
		h.HTML(
			h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1.0")),
				h.TitleEl(g.Text(config.Title)),
				h.Meta(h.Name("description"), h.Content(config.Description)),
				g.If(config.Refresh > 0,
					h.Meta(g.Attr("http-equiv", "refresh"), h.Content(fmt.Sprintf("%d;url=%s", config.Refresh, config.RefreshURL))),
				),
				h.StyleEl(g.Raw(pageStyles)),
			),
			h.Body(
				h.Main(h.Class("container"), g.Group(content)),
			),
		),
	})
}

// DemoForm renders the editing view. draft pre-fills the inputs and toast,
// when set, is shown below the form.
func DemoForm(draft domain.DemoRequestDraft, toast *form.Notification) g.Node {
	return h.Section(
		h.ID("demo"),
		h.H1(g.Text("Request a Demo")),
		h.P(h.Class("muted"), g.Text("See how BeanHealth fits your practice. We'll reach out within 24 hours.")),
		h.Form(
			h.Method("post"),
			h.Action("/demo"),
			h.Label(h.For("name"), g.Text("Name")),
			h.Input(h.Type("text"), h.ID("name"), h.Name("name"), h.Value(draft.Name),
				h.Placeholder("Dr. Jane Doe"), g.Attr("maxlength", "100"), h.Required()),
			h.Label(h.For("email"), g.Text("Email")),
			h.Input(h.Type("email"), h.ID("email"), h.Name("email"), h.Value(draft.Email),
				h.Placeholder("jane@hospital.com"), g.Attr("maxlength", "254"), h.Required()),
			h.Label(h.For("lookingFor"), g.Text("What are you looking for?")),
			h.Textarea(h.ID("lookingFor"), h.Name("lookingFor"), g.Attr("rows", "4"),
				h.Placeholder("Tell us what you are looking for..."), h.Required(), g.Text(draft.LookingFor)),
			h.Button(h.Type("submit"), g.Text("Request Demo")),
		),
		toastNode(toast),
	)
}

func toastNode(n *form.Notification) g.Node {
	if n == nil {
		return nil
	}
	return Toast(*n)
}

// Toast renders a notification
func Toast(n form.Notification) g.Node {
	class := "toast toast-success"
	if n.Kind == form.NotificationError {
		class = "toast toast-error"
	}
	return h.Div(
		h.Class(class),
		g.Attr("role", "status"),
		h.Strong(g.Text(n.Title)),
		g.If(n.Description != "", h.P(g.Text(n.Description))),
	)
}

// Confirmation renders the success view shown until the page refreshes
func Confirmation(record *domain.DemoRequest, seconds int) g.Node {
	return h.Section(
		h.ID("demo"),
		h.Div(
			h.Class("confirmation"),
			h.H1(g.Text("✓ Demo Request Submitted!")),
			h.P(g.Text("Our team will contact you within 24 hours.")),
			reference(record),
			h.P(h.Class("muted"), g.Text("Returning to the form in "+strconv.Itoa(seconds)+" seconds.")),
			h.A(h.Href("/"), g.Text("Submit another request")),
		),
	)
}

func reference(record *domain.DemoRequest) g.Node {
	if record == nil || record.ID == "" {
		return nil
	}
	return h.P(h.Class("muted"),
		g.Text("Reference: "+record.ID),
		h.Br(),
		g.Text("Received "+record.CreatedAt.UTC().Format("January 02, 2006 15:04 UTC")),
	)
}
