package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/taskhub/task-management/internal/domain"
)

// MockTaskRepository is a hand-written, in-memory implementation of
// TaskRepository used in unit tests.
type MockTaskRepository struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.Task

	CreateErr  error
	GetByIDErr error
	UpdateErr  error
}

func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (m *MockTaskRepository) Create(_ context.Context, t *domain.Task) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *t
	m.tasks[t.ID] = &clone
	return nil
}

func (m *MockTaskRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *MockTaskRepository) List(_ context.Context, assignedTo *uuid.UUID) ([]*domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*domain.Task{}
	for _, t := range m.tasks {
		if assignedTo != nil && t.AssignedToID != *assignedTo {
			continue
		}
		clone := *t
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Status != result[j].Status {
			return result[i].Status < result[j].Status
		}
		return result[i].SortOrder < result[j].SortOrder
	})
	return result, nil
}

func (m *MockTaskRepository) Update(_ context.Context, t *domain.Task) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *t
	m.tasks[t.ID] = &clone
	return nil
}

func (m *MockTaskRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *MockTaskRepository) Reorder(_ context.Context, status domain.TaskStatus, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for position, id := range ids {
		if t, ok := m.tasks[id]; ok && t.Status == status {
			t.SortOrder = position
		}
	}
	return nil
}
