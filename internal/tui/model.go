package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"beanhealth/internal/domain"
	"beanhealth/internal/form"
)

// DefaultToastDuration is how long a notification stays on screen.
const DefaultToastDuration = 5 * time.Second

const (
	focusName = iota
	focusEmail
	focusLookingFor
	focusCount
)

type eventMsg struct {
	event form.Event
}

type submitDoneMsg struct {
	result form.Result
}

type toastExpiredMsg struct {
	seq int
}

// ChannelObserver returns a controller observer that forwards events to
// the returned channel for the model to consume.
func ChannelObserver(buffer int) (form.Observer, <-chan form.Event) {
	ch := make(chan form.Event, buffer)
	return func(e form.Event) { ch <- e }, ch
}

// Model is the bubbletea model for the demo request form.
type Model struct {
	ctrl   *form.Controller
	events <-chan form.Event

	name       textinput.Model
	email      textinput.Model
	lookingFor textarea.Model
	focus      int

	spinner spinner.Model
	help    help.Model
	keys    keyMap

	state    form.State
	record   *domain.DemoRequest
	toast    *form.Notification
	toastSeq int
	toastTTL time.Duration

	Width  int
	Height int
}

// NewModel creates the form model. events must receive every event of
// ctrl, see ChannelObserver.
func NewModel(ctrl *form.Controller, events <-chan form.Event, toastTTL time.Duration) Model {
	if toastTTL <= 0 {
		toastTTL = DefaultToastDuration
	}

	name := textinput.New()
	name.Placeholder = "Dr. Jane Doe"
	name.CharLimit = 100
	name.Focus()

	email := textinput.New()
	email.Placeholder = "jane@hospital.com"
	email.CharLimit = 254

	lookingFor := textarea.New()
	lookingFor.Placeholder = "Tell us what you are looking for..."
	lookingFor.CharLimit = 5000
	lookingFor.ShowLineNumbers = false
	lookingFor.SetHeight(4)
	// Enter submits from the last field; ctrl+j inserts a newline.
	lookingFor.KeyMap.InsertNewline.SetKeys("ctrl+j")

	return Model{
		ctrl:       ctrl,
		events:     events,
		name:       name,
		email:      email,
		lookingFor: lookingFor,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle)),
		help:       help.New(),
		keys:       defaultKeyMap(),
		state:      ctrl.State(),
		toastTTL:   toastTTL,
	}
}

// Init starts listening for controller events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

func waitForEvent(ch <-chan form.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{event: e}
	}
}

// Update handles key presses, controller events and timers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.lookingFor.SetWidth(max(20, min(msg.Width-8, 80)))
		return m, nil

	case eventMsg:
		cmd := m.handleEvent(msg.event)
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case submitDoneMsg:
		return m.handleResult(msg.result)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != form.StateSubmitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.ctrl.Close()
			return m, tea.Quit
		}
		// Input is blocked outside the editing view.
		if m.state != form.StateEditing {
			return m, nil
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.Next):
		return m, m.setFocus((m.focus + 1) % focusCount)
	case key.Matches(msg, m.keys.Prev):
		return m, m.setFocus((m.focus + focusCount - 1) % focusCount)
	case key.Matches(msg, m.keys.Enter):
		if m.focus == focusLookingFor {
			return m.submit()
		}
		return m, m.setFocus(m.focus + 1)
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusName:
		m.name, cmd = m.name.Update(msg)
		_ = m.ctrl.UpdateField(form.FieldName, m.name.Value())
	case focusEmail:
		m.email, cmd = m.email.Update(msg)
		_ = m.ctrl.UpdateField(form.FieldEmail, m.email.Value())
	case focusLookingFor:
		m.lookingFor, cmd = m.lookingFor.Update(msg)
		_ = m.ctrl.UpdateField(form.FieldLookingFor, m.lookingFor.Value())
	}
	return m, cmd
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.focus = i
	m.name.Blur()
	m.email.Blur()
	m.lookingFor.Blur()
	switch i {
	case focusName:
		return m.name.Focus()
	case focusEmail:
		return m.email.Focus()
	default:
		return m.lookingFor.Focus()
	}
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	ctrl := m.ctrl
	return m, func() tea.Msg {
		return submitDoneMsg{result: ctrl.Submit(context.Background())}
	}
}

func (m *Model) handleEvent(e form.Event) tea.Cmd {
	switch e := e.(type) {
	case form.EventStateChanged:
		m.state = e.State
		switch e.State {
		case form.StateSubmitting:
			return m.spinner.Tick
		case form.StateSuccess:
			m.syncInputs(m.ctrl.Draft())
			return m.setFocus(focusName)
		case form.StateEditing:
			m.record = nil
		}
	case form.EventNotification:
		n := e.Notification
		return m.showToast(&n)
	}
	return nil
}

func (m Model) handleResult(r form.Result) (tea.Model, tea.Cmd) {
	switch r.Outcome {
	case form.OutcomeSucceeded:
		m.record = r.Record
	case form.OutcomeBlocked:
		names := make([]string, len(r.Missing))
		for i, f := range r.Missing {
			names[i] = fieldLabel(f)
		}
		return m, m.showToast(&form.Notification{
			Kind:        form.NotificationError,
			Title:       "Please fill in all fields",
			Description: "Missing: " + strings.Join(names, ", "),
		})
	}
	return m, nil
}

func (m *Model) showToast(n *form.Notification) tea.Cmd {
	m.toast = n
	m.toastSeq++
	seq := m.toastSeq
	return tea.Tick(m.toastTTL, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

func (m *Model) syncInputs(d domain.DemoRequestDraft) {
	m.name.SetValue(d.Name)
	m.email.SetValue(d.Email)
	m.lookingFor.SetValue(d.LookingFor)
}

// View renders the confirmation screen or the form.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(AppName))
	b.WriteString("\n")

	if m.state == form.StateSuccess {
		b.WriteString(m.confirmationView())
	} else {
		b.WriteString(m.formView())
	}

	if m.toast != nil && m.state != form.StateSuccess {
		b.WriteString("\n")
		b.WriteString(renderToast(*m.toast))
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) formView() string {
	rows := []string{
		SubtitleStyle.Render("See how BeanHealth fits your practice. We'll reach out within 24 hours."),
		"",
		m.label(focusName, "Name"),
		m.name.View(),
		"",
		m.label(focusEmail, "Email"),
		m.email.View(),
		"",
		m.label(focusLookingFor, "What are you looking for?"),
		m.lookingFor.View(),
		"",
	}
	if m.state == form.StateSubmitting {
		rows = append(rows, m.spinner.View()+" Submitting...")
	} else {
		rows = append(rows, SubtitleStyle.Render("Press enter on the last field or ctrl+s to request a demo"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) label(i int, text string) string {
	if m.focus == i {
		return FocusedLabelStyle.Render("› " + text)
	}
	return LabelStyle.Render("  " + text)
}

func (m Model) confirmationView() string {
	lines := []string{
		ConfirmationTitleStyle.Render("✓ Demo Request Submitted!"),
		"",
		"Our team will contact you within 24 hours.",
	}
	if m.record != nil && m.record.ID != "" {
		lines = append(lines, "", SubtitleStyle.Render(fmt.Sprintf("Reference: %s", m.record.ID)))
	}
	return ConfirmationStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderToast(n form.Notification) string {
	text := n.Title
	if n.Description != "" {
		text += "\n" + n.Description
	}
	if n.Kind == form.NotificationError {
		return ErrorToastStyle.Render("✗ " + text)
	}
	return SuccessToastStyle.Render("✓ " + text)
}

func fieldLabel(f form.Field) string {
	switch f {
	case form.FieldName:
		return "name"
	case form.FieldEmail:
		return "email"
	case form.FieldLookingFor:
		return "what you are looking for"
	default:
		return string(f)
	}
}
