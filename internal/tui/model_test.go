package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beanhealth/internal/domain"
	"beanhealth/internal/form"
	apperrors "beanhealth/pkg/errors"
)

type stubSubmitter struct {
	calls int
	err   error
}

func (s *stubSubmitter) SubmitDemoRequest(ctx context.Context, d domain.DemoRequestDraft) (*domain.DemoRequest, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.DemoRequest{ID: "req-42", Name: d.Name, Email: d.Email, LookingFor: d.LookingFor}, nil
}

type manualTimer struct{ f func() }

func (t *manualTimer) Stop() bool { return true }

type manualScheduler struct{ last *manualTimer }

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) form.Timer {
	s.last = &manualTimer{f: f}
	return s.last
}

type harness struct {
	t      *testing.T
	model  Model
	ctrl   *form.Controller
	events <-chan form.Event
	sched  *manualScheduler
	sub    *stubSubmitter
}

func newHarness(t *testing.T, sub *stubSubmitter) *harness {
	observer, events := ChannelObserver(32)
	sched := &manualScheduler{}
	ctrl := form.New(sub, form.WithScheduler(sched), form.WithObserver(observer))
	return &harness{
		t:      t,
		model:  NewModel(ctrl, events, time.Second),
		ctrl:   ctrl,
		events: events,
		sched:  sched,
		sub:    sub,
	}
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) fill(d domain.DemoRequestDraft) {
	h.typeText(d.Name)
	h.send(tea.KeyMsg{Type: tea.KeyTab})
	h.typeText(d.Email)
	h.send(tea.KeyMsg{Type: tea.KeyTab})
	h.typeText(d.LookingFor)
}

// submit presses ctrl+s, runs the submission command and delivers every
// controller event to the model.
func (h *harness) submit() {
	cmd := h.send(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(h.t, cmd)
	done := cmd()
	h.drain()
	h.send(done)
}

func (h *harness) drain() {
	for {
		select {
		case e := <-h.events:
			h.send(eventMsg{event: e})
		default:
			return
		}
	}
}

var johnDoe = domain.DemoRequestDraft{
	Name:       "Dr. John Doe",
	Email:      "john@hospital.com",
	LookingFor: "Need a demo for nephrology dept",
}

func TestTypingUpdatesDraft(t *testing.T) {
	h := newHarness(t, &stubSubmitter{})
	h.fill(johnDoe)

	assert.Equal(t, johnDoe, h.ctrl.Draft())
}

func TestSubmitBlockedShowsToast(t *testing.T) {
	h := newHarness(t, &stubSubmitter{})
	h.typeText("Dr. John Doe")

	h.submit()

	assert.Zero(t, h.sub.calls)
	assert.Equal(t, form.StateEditing, h.model.state)
	view := h.model.View()
	assert.Contains(t, view, "Please fill in all fields")
	assert.Contains(t, view, "email")
}

func TestSubmitSuccessShowsConfirmationThenForm(t *testing.T) {
	h := newHarness(t, &stubSubmitter{})
	h.fill(johnDoe)

	h.submit()

	assert.Equal(t, 1, h.sub.calls)
	assert.Equal(t, form.StateSuccess, h.model.state)
	assert.Contains(t, h.model.View(), "Demo Request Submitted!")
	assert.Contains(t, h.model.View(), "req-42")
	assert.Empty(t, h.model.name.Value())
	assert.Empty(t, h.model.email.Value())
	assert.Empty(t, h.model.lookingFor.Value())

	// Keys are ignored while the confirmation is shown.
	h.typeText("x")
	assert.Empty(t, h.ctrl.Draft().Name)

	h.sched.last.f()
	h.drain()

	assert.Equal(t, form.StateEditing, h.model.state)
	assert.NotContains(t, h.model.View(), "Reference:")
	h.typeText("J")
	assert.Equal(t, "J", h.ctrl.Draft().Name)
}

func TestSubmitFailureKeepsInputs(t *testing.T) {
	sub := &stubSubmitter{err: apperrors.Wrap(apperrors.ErrCodeTransportFailure, "send demo request", errors.New("connection refused"))}
	h := newHarness(t, sub)
	h.fill(johnDoe)

	h.submit()

	assert.Equal(t, form.StateEditing, h.model.state)
	assert.Equal(t, johnDoe.Name, h.model.name.Value())
	assert.Equal(t, johnDoe.Email, h.model.email.Value())
	assert.Equal(t, johnDoe.LookingFor, h.model.lookingFor.Value())
	assert.Contains(t, h.model.View(), "Failed to submit demo request")

	h.send(toastExpiredMsg{seq: h.model.toastSeq})
	assert.NotContains(t, h.model.View(), "Failed to submit demo request")
}

func TestStaleToastExpiryIgnored(t *testing.T) {
	h := newHarness(t, &stubSubmitter{})
	h.submit()
	h.submit()

	require.NotNil(t, h.model.toast)
	h.send(toastExpiredMsg{seq: h.model.toastSeq - 1})
	assert.NotNil(t, h.model.toast)
}

func TestEnterAdvancesFocusAndSubmitsFromLastField(t *testing.T) {
	h := newHarness(t, &stubSubmitter{})
	h.typeText(johnDoe.Name)
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, focusEmail, h.model.focus)
	h.typeText(johnDoe.Email)
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, focusLookingFor, h.model.focus)
	h.typeText(johnDoe.LookingFor)

	cmd := h.send(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(submitDoneMsg)
	require.True(t, ok)
	assert.Equal(t, form.OutcomeSucceeded, msg.result.Outcome)
}

func TestQuitClosesController(t *testing.T) {
	h := newHarness(t, &stubSubmitter{})
	cmd := h.send(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}
