package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhub/task-management/internal/auth"
	"github.com/taskhub/task-management/internal/domain"
	"github.com/taskhub/task-management/internal/repository"
)

// AuthService handles account registration and credential exchange.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *zap.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// Register creates an account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(req.Email),
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Permissions:  domain.DefaultPermissions(),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login exchanges valid credentials for a bearer token. Unknown emails and
// wrong passwords both map to ErrInvalidCredentials so callers cannot probe
// which addresses exist.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (string, *domain.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Email, u.Permissions)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, u, nil
}

// Users lists all accounts, for assignment pickers.
func (s *AuthService) Users(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}
