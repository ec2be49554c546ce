package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskhub/task-management/internal/domain"
)

// UserRepository defines all persistence operations for user accounts.
type UserRepository interface {
	// Create inserts the user; a duplicate email returns domain.ErrEmailTaken.
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}
