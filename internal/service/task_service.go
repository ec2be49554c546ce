package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhub/task-management/internal/domain"
	"github.com/taskhub/task-management/internal/repository"
)

// EventPublisher publishes task events to the broker after a committed
// mutation. The broker producer implements it.
type EventPublisher interface {
	PublishTaskAssigned(ctx context.Context, taskID, assignedToID uuid.UUID) error
	PublishTaskUpdated(ctx context.Context, taskID, assignedToID, updatedByID uuid.UUID, kind domain.EventType) error
}

// TaskService coordinates task persistence and event publication.
//
// Publication happens strictly after the database commit. A publish failure
// at that point is logged and swallowed: the primary write already succeeded
// and notification delivery is best-effort relative to it. The database
// commit and the publish are two independent operations. A crash between
// them loses the notification, which clients recover from by fetching.
type TaskService struct {
	repo      repository.TaskRepository
	publisher EventPublisher
	logger    *zap.Logger
}

func NewTaskService(
	repo repository.TaskRepository,
	publisher EventPublisher,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{repo: repo, publisher: publisher, logger: logger}
}

// Create validates, persists, and announces a new task assignment.
func (s *TaskService) Create(ctx context.Context, req domain.CreateTaskRequest, createdBy uuid.UUID) (*domain.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &domain.Task{
		ID:           uuid.New(),
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		Status:       domain.TaskStatusPending,
		AssignedToID: req.AssignedToID,
		CreatedByID:  createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("persist task: %w", err)
	}

	if err := s.publisher.PublishTaskAssigned(ctx, t.ID, t.AssignedToID); err != nil {
		s.logger.Error("publish task assigned",
			zap.String("task_id", t.ID.String()), zap.Error(err))
	}

	return t, nil
}

func (s *TaskService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TaskService) List(ctx context.Context, assignedTo *uuid.UUID) ([]*domain.Task, error) {
	return s.repo.List(ctx, assignedTo)
}

// Update applies the full update and publishes the matching event:
// a changed assignee announces a targeted TaskAssigned, a transition into
// completed broadcasts TaskCompleted, anything else broadcasts TaskUpdated.
func (s *TaskService) Update(ctx context.Context, id uuid.UUID, req domain.UpdateTaskRequest, updatedBy uuid.UUID) (*domain.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	reassigned := existing.AssignedToID != req.AssignedToID
	completed := existing.Status != domain.TaskStatusCompleted && req.Status == domain.TaskStatusCompleted

	updated := *existing
	updated.Title = req.Title
	updated.Description = req.Description
	updated.DueDate = req.DueDate
	updated.Status = req.Status
	updated.AssignedToID = req.AssignedToID
	updated.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("persist task update: %w", err)
	}

	s.publishUpdateEvent(ctx, &updated, updatedBy, reassigned, completed)
	return &updated, nil
}

func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Reorder rewrites the secondary sort keys within one status column.
// No event is published; ordering is cosmetic and not notification-worthy.
func (s *TaskService) Reorder(ctx context.Context, req domain.ReorderRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.repo.Reorder(ctx, req.Status, req.TaskIDs)
}

func (s *TaskService) publishUpdateEvent(ctx context.Context, t *domain.Task, updatedBy uuid.UUID, reassigned, completed bool) {
	var err error
	switch {
	case reassigned:
		err = s.publisher.PublishTaskAssigned(ctx, t.ID, t.AssignedToID)
	case completed:
		err = s.publisher.PublishTaskUpdated(ctx, t.ID, t.AssignedToID, updatedBy, domain.EventTaskCompleted)
	default:
		err = s.publisher.PublishTaskUpdated(ctx, t.ID, t.AssignedToID, updatedBy, domain.EventTaskUpdated)
	}
	if err != nil {
		s.logger.Error("publish task update",
			zap.String("task_id", t.ID.String()), zap.Error(err))
	}
}
