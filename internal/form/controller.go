package form

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"beanhealth/internal/domain"
	apperrors "beanhealth/pkg/errors"
)

// DefaultSuccessWindow is how long the confirmation view stays up.
const DefaultSuccessWindow = 8 * time.Second

// Submitter sends a draft to the demo request endpoint.
type Submitter interface {
	SubmitDemoRequest(ctx context.Context, draft domain.DemoRequestDraft) (*domain.DemoRequest, error)
}

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Outcome classifies the result of Submit.
type Outcome int

const (
	// OutcomeIgnored: the controller was not editing; nothing happened.
	OutcomeIgnored Outcome = iota
	// OutcomeBlocked: a required field is empty; no network call was made.
	OutcomeBlocked
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports what Submit did.
type Result struct {
	Outcome Outcome
	Record  *domain.DemoRequest
	Missing []Field
	Err     error
}

// Option configures a Controller.
type Option func(*Controller)

// WithSuccessWindow sets how long Success is shown before reverting.
func WithSuccessWindow(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithScheduler replaces the timer source.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller owns the demo request draft and drives the
// Editing -> Submitting -> Success/Failed -> Editing cycle.
type Controller struct {
	submitter Submitter
	window    time.Duration
	scheduler Scheduler
	observers []Observer
	logger    *zap.Logger

	mu    sync.Mutex
	state State
	draft domain.DemoRequestDraft
	timer Timer
	// generation invalidates success timers that fire after Close or a
	// later success.
	generation uint64
}

// New creates a controller in the Editing state with an empty draft.
func New(submitter Submitter, opts ...Option) *Controller {
	c := &Controller{
		submitter: submitter,
		window:    DefaultSuccessWindow,
		scheduler: realScheduler{},
		logger:    zap.NewNop(),
		state:     StateEditing,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draft returns a copy of the current draft.
func (c *Controller) Draft() domain.DemoRequestDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// UpdateField overwrites one draft field. It fails with ErrNotEditing
// outside the Editing state.
func (c *Controller) UpdateField(field Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateEditing {
		return ErrNotEditing
	}
	return setField(&c.draft, field, value)
}

// Submit sends the draft if the controller is editing and every field is
// filled in. It blocks for the duration of the network call; concurrent
// calls made meanwhile return OutcomeIgnored.
func (c *Controller) Submit(ctx context.Context) Result {
	c.mu.Lock()
	if c.state != StateEditing {
		c.mu.Unlock()
		return Result{Outcome: OutcomeIgnored}
	}
	if missing := MissingFields(c.draft); len(missing) > 0 {
		c.mu.Unlock()
		c.logger.Info("demo request blocked",
			zap.String("class", string(apperrors.ErrCodeValidationBlocked)),
			zap.String("missing", joinFields(missing)))
		return Result{
			Outcome: OutcomeBlocked,
			Missing: missing,
			Err:     apperrors.New(apperrors.ErrCodeValidationBlocked, "required fields missing: "+joinFields(missing)),
		}
	}
	snapshot := c.draft
	c.state = StateSubmitting
	c.mu.Unlock()

	c.emit(EventStateChanged{State: StateSubmitting})

	record, err := c.submitter.SubmitDemoRequest(ctx, snapshot)
	if err != nil {
		return c.fail(err)
	}
	return c.succeed(record)
}

func (c *Controller) succeed(record *domain.DemoRequest) Result {
	c.mu.Lock()
	c.draft = domain.DemoRequestDraft{}
	c.state = StateSuccess
	c.generation++
	gen := c.generation
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.scheduler.AfterFunc(c.window, func() { c.revert(gen) })
	c.mu.Unlock()

	c.emit(EventStateChanged{State: StateSuccess})
	c.emit(EventNotification{Notification: successNotification})

	return Result{Outcome: OutcomeSucceeded, Record: record}
}

func (c *Controller) fail(err error) Result {
	c.logger.Warn("demo request submission failed",
		zap.String("class", string(apperrors.CodeOf(err))),
		zap.Error(err))

	c.mu.Lock()
	c.state = StateEditing
	c.mu.Unlock()

	c.emit(EventStateChanged{State: StateFailed})
	c.emit(EventNotification{Notification: errorNotification})
	c.emit(EventStateChanged{State: StateEditing})

	return Result{Outcome: OutcomeFailed, Err: err}
}

func (c *Controller) revert(gen uint64) {
	c.mu.Lock()
	if c.generation != gen || c.state != StateSuccess {
		c.mu.Unlock()
		return
	}
	c.state = StateEditing
	c.timer = nil
	c.mu.Unlock()

	c.emit(EventStateChanged{State: StateEditing})
}

// Close stops a pending success timer. The controller stays in its
// current state.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) emit(e Event) {
	for _, o := range c.observers {
		o(e)
	}
}

func joinFields(fields []Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
