package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/taskhub/task-management/internal/domain"
)

// MockNotificationRepository is a hand-written, in-memory implementation of
// NotificationRepository used in unit tests. No mock-generation library needed.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]*domain.Notification

	// Optional error overrides, set in tests to simulate failure paths.
	CreateErr      error
	ListForUserErr error
	MarkReadErr    error
	MarkAllReadErr error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[uuid.UUID]*domain.Notification),
	}
}

func (m *MockNotificationRepository) Create(_ context.Context, n *domain.Notification) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.notifications {
		if !existing.IsRead &&
			existing.TaskItemID == n.TaskItemID &&
			existing.NotificationType == n.NotificationType &&
			existing.UserID == n.UserID {
			return domain.ErrDuplicateNotification
		}
	}
	clone := *n
	m.notifications[n.ID] = &clone
	return nil
}

func (m *MockNotificationRepository) ListForUser(_ context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	if m.ListForUserErr != nil {
		return nil, m.ListForUserErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*domain.Notification{}
	for _, n := range m.notifications {
		if n.UserID == userID {
			clone := *n
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > 50 {
		result = result[:50]
	}
	return result, nil
}

func (m *MockNotificationRepository) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	if m.MarkReadErr != nil {
		return m.MarkReadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok && n.UserID == userID {
		n.IsRead = true
	}
	return nil
}

func (m *MockNotificationRepository) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	if m.MarkAllReadErr != nil {
		return m.MarkAllReadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

// Get returns the stored notification by id, for test assertions.
func (m *MockNotificationRepository) Get(id uuid.UUID) (*domain.Notification, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, false
	}
	clone := *n
	return &clone, true
}

// Len reports the number of stored notifications, for test assertions.
func (m *MockNotificationRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifications)
}
