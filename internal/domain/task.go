package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus tracks the lifecycle of a task on the board.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Task is a board item assigned to a single user.
// SortOrder is a secondary key used only for ordering within a status column.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Status       TaskStatus `json:"status"`
	SortOrder    int        `json:"sort_order"`
	AssignedToID uuid.UUID  `json:"assigned_to_id"`
	CreatedByID  uuid.UUID  `json:"created_by_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateTaskRequest is the inbound payload for task creation.
type CreateTaskRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	AssignedToID uuid.UUID  `json:"assigned_to_id"`
}

func (r *CreateTaskRequest) Validate() error {
	if r.Title == "" || len(r.Title) > 200 {
		return ErrInvalidTitle
	}
	if r.AssignedToID == uuid.Nil {
		return ErrInvalidAssignee
	}
	return nil
}

// UpdateTaskRequest carries a full task update. Assignment and status changes
// are detected by the service against the stored row, not flagged by the client.
type UpdateTaskRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Status       TaskStatus `json:"status"`
	AssignedToID uuid.UUID  `json:"assigned_to_id"`
}

func (r *UpdateTaskRequest) Validate() error {
	if r.Title == "" || len(r.Title) > 200 {
		return ErrInvalidTitle
	}
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	if r.AssignedToID == uuid.Nil {
		return ErrInvalidAssignee
	}
	return nil
}

// ReorderRequest rewrites the sort order of every task in one status column.
// TaskIDs is the complete desired ordering, first item on top.
type ReorderRequest struct {
	Status  TaskStatus  `json:"status"`
	TaskIDs []uuid.UUID `json:"task_ids"`
}

func (r *ReorderRequest) Validate() error {
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	if len(r.TaskIDs) == 0 {
		return ErrEmptyReorder
	}
	return nil
}
