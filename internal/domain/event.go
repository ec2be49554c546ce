package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags a TaskEvent on the wire. Unknown values are still consumed;
// Title falls back to a generic heading.
type EventType string

const (
	EventTaskAssigned  EventType = "TaskAssigned"
	EventTaskUpdated   EventType = "TaskUpdated"
	EventTaskCompleted EventType = "TaskCompleted"
)

// Title maps the event type to the notification heading shown to the user.
func (t EventType) Title() string {
	switch t {
	case EventTaskAssigned:
		return "New Task Assigned"
	case EventTaskUpdated:
		return "Updated Task"
	case EventTaskCompleted:
		return "Task Completed"
	default:
		return "New Notification"
	}
}

// TaskEvent is the message published to the broker after a task mutation.
// MessageID is regenerated on every publish attempt and is for tracing only;
// it must not be used for deduplication (a producer-side retry produces a
// distinct MessageID for the same logical event).
type TaskEvent struct {
	MessageID        uuid.UUID  `json:"messageId"`
	TaskItemID       uuid.UUID  `json:"taskItemId"`
	AssignedToUserID uuid.UUID  `json:"assignedToUserId"`
	UpdatedByUserID  *uuid.UUID `json:"updatedByUserId,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
	MessageType      EventType  `json:"messageType"`
	Description      string     `json:"description"`
}

// IsZero reports whether the event carries no usable content, which happens
// when the broker delivers an empty or null JSON body. Such deliveries are
// acknowledged and dropped rather than requeued.
func (e TaskEvent) IsZero() bool {
	return e.MessageType == "" && e.TaskItemID == uuid.Nil && e.AssignedToUserID == uuid.Nil
}
