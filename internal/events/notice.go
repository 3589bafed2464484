package events

import "time"

// NoticeLevel is the severity of a user-visible notice.
type NoticeLevel string

// Notice levels.
const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// NoticeEvent is a transient, user-visible notification (a toast).
type NoticeEvent struct {
	Level     NoticeLevel
	Component string
	SessionID string // Empty when the notice is not about one session
	Message   string
	Err       error
	Timestamp time.Time
}

// NewErrorNotice reports a failed operation.
func NewErrorNotice(component, sessionID, message string, err error) NoticeEvent {
	return NoticeEvent{
		Level:     NoticeError,
		Component: component,
		SessionID: sessionID,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// NewInfoNotice reports a completed operation worth surfacing.
func NewInfoNotice(component, message string) NoticeEvent {
	return NoticeEvent{
		Level:     NoticeInfo,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// String renders the notice for plain-text output.
func (n NoticeEvent) String() string {
	if n.Err == nil {
		return n.Message
	}
	return n.Message + ": " + n.Err.Error()
}
