package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskhub/task-management/internal/domain"
)

// TaskRepository defines all persistence operations for tasks.
type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns tasks ordered by (status, sort_order). A non-nil assignedTo
	// restricts the result to one user's tasks.
	List(ctx context.Context, assignedTo *uuid.UUID) ([]*domain.Task, error)

	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Reorder rewrites sort_order for the given tasks within one status column,
	// assigning positions in slice order. Runs in a single transaction.
	Reorder(ctx context.Context, status domain.TaskStatus, ids []uuid.UUID) error
}
