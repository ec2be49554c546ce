package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/task-management/internal/domain"
)

func TestEventTypeTitle(t *testing.T) {
	tests := []struct {
		eventType domain.EventType
		want      string
	}{
		{domain.EventTaskAssigned, "New Task Assigned"},
		{domain.EventTaskUpdated, "Updated Task"},
		{domain.EventTaskCompleted, "Task Completed"},
		{domain.EventType("SomethingElse"), "New Notification"},
		{domain.EventType(""), "New Notification"},
	}

	for _, tc := range tests {
		if got := tc.eventType.Title(); got != tc.want {
			t.Errorf("Title(%q) = %q, want %q", tc.eventType, got, tc.want)
		}
	}
}

func TestTaskEventIsZero(t *testing.T) {
	var e domain.TaskEvent
	if err := json.Unmarshal([]byte(`null`), &e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.IsZero() {
		t.Fatal("expected null payload to deserialize to a zero event")
	}

	full := domain.TaskEvent{
		MessageID:        uuid.New(),
		TaskItemID:       uuid.New(),
		AssignedToUserID: uuid.New(),
		MessageType:      domain.EventTaskAssigned,
	}
	if full.IsZero() {
		t.Fatal("expected populated event not to be zero")
	}
}

func TestNotificationFromEvent(t *testing.T) {
	e := domain.TaskEvent{
		MessageID:        uuid.New(),
		TaskItemID:       uuid.New(),
		AssignedToUserID: uuid.New(),
		MessageType:      domain.EventTaskAssigned,
		Description:      "You have been assigned a new task",
	}

	n := domain.NotificationFromEvent(e)

	if n.ID == uuid.Nil {
		t.Fatal("expected a generated notification id")
	}
	if n.ID == e.MessageID {
		t.Fatal("notification id must not reuse the wire message id")
	}
	if n.UserID != e.AssignedToUserID {
		t.Fatalf("expected user_id=%s, got %s", e.AssignedToUserID, n.UserID)
	}
	if n.TaskItemID != e.TaskItemID {
		t.Fatalf("expected task_item_id=%s, got %s", e.TaskItemID, n.TaskItemID)
	}
	if n.Title != "New Task Assigned" {
		t.Fatalf("unexpected title %q", n.Title)
	}
	if n.IsRead {
		t.Fatal("new notifications must start unread")
	}
	// The record timestamp is assigned here, at consumption time; the schema
	// has no default, so a zero value would be an insert bug.
	if n.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set at consumption time")
	}
	if n.CreatedAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %s", n.CreatedAt.Location())
	}
}

func TestCreateTaskRequestValidate(t *testing.T) {
	valid := domain.CreateTaskRequest{Title: "Ship it", AssignedToID: uuid.New()}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noTitle := valid
	noTitle.Title = ""
	if err := noTitle.Validate(); err != domain.ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}

	noAssignee := valid
	noAssignee.AssignedToID = uuid.Nil
	if err := noAssignee.Validate(); err != domain.ErrInvalidAssignee {
		t.Fatalf("expected ErrInvalidAssignee, got %v", err)
	}
}

func TestUpdateTaskRequestValidate(t *testing.T) {
	valid := domain.UpdateTaskRequest{Title: "Ship it", Status: domain.TaskStatusInProgress, AssignedToID: uuid.New()}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	badStatus := valid
	badStatus.Status = "archived"
	if err := badStatus.Validate(); err != domain.ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
