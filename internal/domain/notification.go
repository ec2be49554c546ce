package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the durable record derived from a consumed TaskEvent.
// Its ID is generated at consumption time and is unrelated to the event's
// MessageID. Only the mark-read operations mutate it; rows are never deleted.
type Notification struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	TaskItemID       uuid.UUID `json:"task_item_id"`
	NotificationType string    `json:"notification_type"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
}

// NotificationFromEvent builds the durable record for a consumed event.
// The recipient is always the event's target user.
func NotificationFromEvent(e TaskEvent) *Notification {
	return &Notification{
		ID:               uuid.New(),
		UserID:           e.AssignedToUserID,
		Title:            e.MessageType.Title(),
		Message:          e.Description,
		TaskItemID:       e.TaskItemID,
		NotificationType: string(e.MessageType),
		IsRead:           false,
		CreatedAt:        time.Now().UTC(),
	}
}
