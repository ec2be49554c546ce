package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhub/task-management/internal/domain"
)

type stubMarker struct {
	mu     sync.Mutex
	calls  []uuid.UUID
	userID uuid.UUID
	err    error
}

func (s *stubMarker) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	s.userID = userID
	return s.err
}

func newTestClient(h *Hub, userID uuid.UUID, marker ReadMarker) *Client {
	return NewClient(h, nil, userID, marker, 10, zap.NewNop())
}

func receiveEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case data := <-c.send:
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("frame did not unmarshal: %v", err)
		}
		return env
	default:
		t.Fatal("expected a queued frame")
		return Envelope{}
	}
}

func TestHubPushToUser_AllConnectionsReceive(t *testing.T) {
	h := New(zap.NewNop(), HubHooks{})
	userID := uuid.New()

	first := newTestClient(h, userID, nil)
	second := newTestClient(h, userID, nil)
	other := newTestClient(h, uuid.New(), nil)
	h.Register(first)
	h.Register(second)
	h.Register(other)

	n := &domain.Notification{
		ID:         uuid.New(),
		UserID:     userID,
		TaskItemID: uuid.New(),
		Title:      "New Task Assigned",
	}
	h.PushToUser(userID, n)

	for _, c := range []*Client{first, second} {
		env := receiveEnvelope(t, c)
		if env.Type != MsgReceiveNotification {
			t.Fatalf("expected %s, got %s", MsgReceiveNotification, env.Type)
		}
		payload, err := json.Marshal(env.Payload)
		if err != nil {
			t.Fatalf("re-marshal payload: %v", err)
		}
		var got domain.Notification
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("payload did not unmarshal: %v", err)
		}
		if got.TaskItemID != n.TaskItemID {
			t.Fatalf("expected task_item_id=%s, got %s", n.TaskItemID, got.TaskItemID)
		}
	}

	select {
	case <-other.send:
		t.Fatal("other user's connection must not receive the push")
	default:
	}
}

func TestHubPushToUser_OfflineUserIsSilentDrop(t *testing.T) {
	dropped := 0
	h := New(zap.NewNop(), HubHooks{OnDropped: func() { dropped++ }})

	// Must not panic or error with zero connections.
	h.PushToUser(uuid.New(), &domain.Notification{ID: uuid.New()})

	if dropped != 1 {
		t.Fatalf("expected 1 dropped push, got %d", dropped)
	}
}

func TestHubUnregister_RemovesConnection(t *testing.T) {
	h := New(zap.NewNop(), HubHooks{})
	userID := uuid.New()
	c := newTestClient(h, userID, nil)
	h.Register(c)

	if got := h.Connections(userID); got != 1 {
		t.Fatalf("expected 1 connection, got %d", got)
	}

	h.Unregister(c)
	if got := h.Connections(userID); got != 0 {
		t.Fatalf("expected 0 connections, got %d", got)
	}

	// A push racing with the disconnect must not panic on the closed channel.
	h.PushToUser(userID, &domain.Notification{ID: uuid.New()})

	// Double unregister is a no-op.
	h.Unregister(c)
}

func TestClientHandleRPC_MarkAsRead(t *testing.T) {
	h := New(zap.NewNop(), HubHooks{})
	userID := uuid.New()
	marker := &stubMarker{}
	c := newTestClient(h, userID, marker)
	h.Register(c)

	notificationID := uuid.New()
	c.handleRPC(rpcMessage{Type: "MarkAsRead", NotificationID: notificationID})

	if len(marker.calls) != 1 || marker.calls[0] != notificationID {
		t.Fatalf("expected durable mark-read for %s, got %v", notificationID, marker.calls)
	}
	if marker.userID != userID {
		t.Fatal("mark-read must be scoped to the connection's user")
	}

	env := receiveEnvelope(t, c)
	if env.Type != MsgNotificationMarkedAsRead {
		t.Fatalf("expected %s echo, got %s", MsgNotificationMarkedAsRead, env.Type)
	}
}

func TestClientHandleRPC_MarkAsReadFailureSkipsEcho(t *testing.T) {
	h := New(zap.NewNop(), HubHooks{})
	marker := &stubMarker{err: context.DeadlineExceeded}
	c := newTestClient(h, uuid.New(), marker)
	h.Register(c)

	c.handleRPC(rpcMessage{Type: "MarkAsRead", NotificationID: uuid.New()})

	select {
	case <-c.send:
		t.Fatal("no echo expected when the durable mutation fails")
	default:
	}
}
