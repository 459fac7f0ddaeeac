package form

// NotificationKind distinguishes confirmation from error notifications.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a transient, auto-dismissing message for the visitor.
type Notification struct {
	Kind        NotificationKind
	Title       string
	Description string
}

var (
	successNotification = Notification{
		Kind:        NotificationSuccess,
		Title:       "Demo Request Submitted!",
		Description: "Our team will contact you within 24 hours.",
	}
	errorNotification = Notification{
		Kind:        NotificationError,
		Title:       "Error",
		Description: "Failed to submit demo request. Please try again.",
	}
)

// Event is delivered to observers after every visible change.
type Event interface {
	event()
}

// EventStateChanged reports a state transition.
type EventStateChanged struct {
	State State
}

// EventNotification carries a notification to show.
type EventNotification struct {
	Notification Notification
}

func (EventStateChanged) event() {}
func (EventNotification) event() {}

// Observer receives controller events. It runs on the goroutine that
// caused the change and must not block.
type Observer func(Event)
