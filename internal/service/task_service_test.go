package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhub/task-management/internal/domain"
	"github.com/taskhub/task-management/internal/repository"
	"github.com/taskhub/task-management/internal/service"
)

type publishedEvent struct {
	kind         domain.EventType
	taskID       uuid.UUID
	assignedToID uuid.UUID
	updatedByID  uuid.UUID
}

// fakePublisher records publishes and optionally fails them all.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishTaskAssigned(_ context.Context, taskID, assignedToID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{
		kind:         domain.EventTaskAssigned,
		taskID:       taskID,
		assignedToID: assignedToID,
	})
	return nil
}

func (p *fakePublisher) PublishTaskUpdated(_ context.Context, taskID, assignedToID, updatedByID uuid.UUID, kind domain.EventType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{
		kind:         kind,
		taskID:       taskID,
		assignedToID: assignedToID,
		updatedByID:  updatedByID,
	})
	return nil
}

func (p *fakePublisher) last(t *testing.T) publishedEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		t.Fatal("expected a published event")
	}
	return p.events[len(p.events)-1]
}

func newTaskService() (*service.TaskService, *repository.MockTaskRepository, *fakePublisher) {
	repo := repository.NewMockTaskRepository()
	pub := &fakePublisher{}
	svc := service.NewTaskService(repo, pub, zap.NewNop())
	return svc, repo, pub
}

func updateFrom(t *domain.Task) domain.UpdateTaskRequest {
	return domain.UpdateTaskRequest{
		Title:        t.Title,
		Description:  t.Description,
		DueDate:      t.DueDate,
		Status:       t.Status,
		AssignedToID: t.AssignedToID,
	}
}

func TestCreate_PublishesTaskAssigned(t *testing.T) {
	svc, repo, pub := newTaskService()
	assignee := uuid.New()
	creator := uuid.New()

	task, err := svc.Create(context.Background(), domain.CreateTaskRequest{
		Title:        "Write release notes",
		AssignedToID: assignee,
	}, creator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != domain.TaskStatusPending {
		t.Fatalf("expected new task pending, got %s", task.Status)
	}

	if _, err := repo.GetByID(context.Background(), task.ID); err != nil {
		t.Fatalf("expected task persisted: %v", err)
	}

	ev := pub.last(t)
	if ev.kind != domain.EventTaskAssigned {
		t.Fatalf("expected TaskAssigned, got %s", ev.kind)
	}
	if ev.taskID != task.ID || ev.assignedToID != assignee {
		t.Fatalf("event does not match task: %+v", ev)
	}
}

func TestCreate_InvalidRequestPublishesNothing(t *testing.T) {
	svc, _, pub := newTaskService()

	_, err := svc.Create(context.Background(), domain.CreateTaskRequest{Title: ""}, uuid.New())
	if !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatal("no event may be published for a rejected request")
	}
}

func TestCreate_PublishFailureDoesNotFailMutation(t *testing.T) {
	svc, repo, pub := newTaskService()
	pub.err = errors.New("broker unavailable")

	task, err := svc.Create(context.Background(), domain.CreateTaskRequest{
		Title:        "Rotate credentials",
		AssignedToID: uuid.New(),
	}, uuid.New())
	if err != nil {
		t.Fatalf("mutation must succeed even if publish fails, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), task.ID); err != nil {
		t.Fatalf("expected task persisted: %v", err)
	}
}

func TestUpdate_ReassignPublishesTaskAssigned(t *testing.T) {
	svc, _, pub := newTaskService()
	task, err := svc.Create(context.Background(), domain.CreateTaskRequest{
		Title:        "Triage flaky tests",
		AssignedToID: uuid.New(),
	}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newAssignee := uuid.New()
	req := updateFrom(task)
	req.AssignedToID = newAssignee
	updated, err := svc.Update(context.Background(), task.ID, req, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.AssignedToID != newAssignee {
		t.Fatalf("expected reassignment persisted, got %s", updated.AssignedToID)
	}

	ev := pub.last(t)
	if ev.kind != domain.EventTaskAssigned {
		t.Fatalf("expected TaskAssigned on reassignment, got %s", ev.kind)
	}
	if ev.assignedToID != newAssignee {
		t.Fatalf("event must target the new assignee, got %s", ev.assignedToID)
	}
}

func TestUpdate_CompletionPublishesTaskCompleted(t *testing.T) {
	svc, _, pub := newTaskService()
	assignee := uuid.New()
	updater := uuid.New()
	task, err := svc.Create(context.Background(), domain.CreateTaskRequest{
		Title:        "Ship the migration",
		AssignedToID: assignee,
	}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := updateFrom(task)
	req.Status = domain.TaskStatusCompleted
	if _, err := svc.Update(context.Background(), task.ID, req, updater); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := pub.last(t)
	if ev.kind != domain.EventTaskCompleted {
		t.Fatalf("expected TaskCompleted, got %s", ev.kind)
	}
	if ev.assignedToID != assignee || ev.updatedByID != updater {
		t.Fatalf("event participants wrong: %+v", ev)
	}
}

func TestUpdate_PlainEditPublishesTaskUpdated(t *testing.T) {
	svc, _, pub := newTaskService()
	task, err := svc.Create(context.Background(), domain.CreateTaskRequest{
		Title:        "Draft the postmortem",
		AssignedToID: uuid.New(),
	}, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := updateFrom(task)
	req.Description = "include the timeline"
	if _, err := svc.Update(context.Background(), task.ID, req, uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ev := pub.last(t); ev.kind != domain.EventTaskUpdated {
		t.Fatalf("expected TaskUpdated, got %s", ev.kind)
	}
}

func TestUpdate_UnknownTaskReturnsNotFound(t *testing.T) {
	svc, _, _ := newTaskService()
	_, err := svc.Update(context.Background(), uuid.New(), domain.UpdateTaskRequest{
		Title:        "ghost",
		Status:       domain.TaskStatusPending,
		AssignedToID: uuid.New(),
	}, uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReorder_NoEventPublished(t *testing.T) {
	svc, repo, pub := newTaskService()
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		task, err := svc.Create(context.Background(), domain.CreateTaskRequest{
			Title:        "Task",
			AssignedToID: uuid.New(),
		}, uuid.New())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids = append(ids, task.ID)
	}
	published := len(pub.events)

	// Reverse order within the pending column.
	reordered := []uuid.UUID{ids[2], ids[1], ids[0]}
	if err := svc.Reorder(context.Background(), domain.ReorderRequest{
		Status:  domain.TaskStatusPending,
		TaskIDs: reordered,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pub.events) != published {
		t.Fatal("reordering must not publish events")
	}

	list, err := repo.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for pos, id := range reordered {
		if list[pos].ID != id {
			t.Fatalf("position %d: expected %s, got %s", pos, id, list[pos].ID)
		}
	}
}

func TestReorder_EmptyListRejected(t *testing.T) {
	svc, _, _ := newTaskService()
	err := svc.Reorder(context.Background(), domain.ReorderRequest{
		Status: domain.TaskStatusPending,
	})
	if !errors.Is(err, domain.ErrEmptyReorder) {
		t.Fatalf("expected ErrEmptyReorder, got %v", err)
	}
}
