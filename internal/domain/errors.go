package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidTitle          = errors.New("title must be between 1 and 200 characters")
	ErrInvalidStatus         = errors.New("invalid status: must be pending, in_progress, or completed")
	ErrInvalidAssignee       = errors.New("assigned_to_id must be a valid user id")
	ErrEmptyReorder          = errors.New("reorder requires at least one task id")
	ErrInvalidEmail          = errors.New("email address is not valid")
	ErrInvalidDisplayName    = errors.New("display name must not be empty")
	ErrWeakPassword          = errors.New("password must be at least 8 characters")
	ErrEmailTaken            = errors.New("email address is already registered")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrDuplicateNotification = errors.New("notification already recorded for this event")
)
