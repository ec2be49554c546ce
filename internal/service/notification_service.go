package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhub/task-management/internal/domain"
	"github.com/taskhub/task-management/internal/repository"
)

// Pusher delivers a notification to a user's live connections.
// The hub implements it; tests use a recording fake.
type Pusher interface {
	PushToUser(userID uuid.UUID, n *domain.Notification)
}

// NotificationService owns the durable notification store and its live
// fan-out. The broker consumer and the HTTP handlers both depend on this
// service, not on each other.
type NotificationService struct {
	repo   repository.NotificationRepository
	pusher Pusher
	logger *zap.Logger
}

func NewNotificationService(
	repo repository.NotificationRepository,
	pusher Pusher,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher, logger: logger}
}

// HandleNotification processes one consumed task event: derive the durable
// record, persist it, then push it to the user's live connections, always in
// that order, so a client that queries immediately after receiving the push
// finds the row already committed.
//
// The method tolerates repeated invocations for the same logical event:
// a redelivered event collides with the unread-dedup index and is treated as
// already processed (no error, no second push).
func (s *NotificationService) HandleNotification(ctx context.Context, event domain.TaskEvent) error {
	n := domain.NotificationFromEvent(event)

	if err := s.repo.Create(ctx, n); err != nil {
		if errors.Is(err, domain.ErrDuplicateNotification) {
			s.logger.Debug("duplicate event suppressed",
				zap.String("task_item_id", event.TaskItemID.String()),
				zap.String("message_type", string(event.MessageType)),
			)
			return nil
		}
		return fmt.Errorf("persist notification: %w", err)
	}

	s.pusher.PushToUser(n.UserID, n)
	return nil
}

// ListForUser returns the user's most recent notifications, newest first,
// capped at 50.
func (s *NotificationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	return s.repo.ListForUser(ctx, userID)
}

// MarkRead flags one notification as read. Unknown ids and notifications
// owned by another user are silent no-ops; re-marking a read notification
// succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// MarkAllRead flags every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}
