package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskhub/task-management/internal/domain"
)

// NotificationRepository defines all persistence operations for notifications.
// The pgx implementation is in pg_notification_repo.go.
// Tests use a hand-written mock (mock_notification_repo.go).
type NotificationRepository interface {
	// Create inserts the notification. A redelivered event whose derived row
	// collides with the unread-dedup index returns domain.ErrDuplicateNotification.
	Create(ctx context.Context, n *domain.Notification) error

	// ListForUser returns the user's most recent notifications, newest first,
	// capped at 50. A user with none gets an empty slice, not an error.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)

	// MarkRead sets is_read on the notification if it belongs to the user.
	// No matching row (wrong user or unknown id) is a silent no-op.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error

	// MarkAllRead sets is_read on every unread notification of the user
	// in a single statement.
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}
