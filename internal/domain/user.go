package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task permissions stamped into bearer tokens and enforced per route.
const (
	PermCreateTask = "CanCreateTask"
	PermUpdateTask = "CanUpdateTask"
	PermDeleteTask = "CanDeleteTask"
)

// DefaultPermissions is the grant every new account starts with.
func DefaultPermissions() []string {
	return []string{PermCreateTask, PermUpdateTask, PermDeleteTask}
}

// User is an account that can own and be assigned tasks.
// PasswordHash is never serialized.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest is the inbound payload for account creation.
type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	if !strings.Contains(r.Email, "@") {
		return ErrInvalidEmail
	}
	if r.DisplayName == "" {
		return ErrInvalidDisplayName
	}
	if len(r.Password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// LoginRequest is the inbound payload for authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
