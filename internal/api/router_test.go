package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/taskhub/task-management/internal/api"
	"github.com/taskhub/task-management/internal/auth"
	"github.com/taskhub/task-management/internal/domain"
	"github.com/taskhub/task-management/internal/hub"
	"github.com/taskhub/task-management/internal/repository"
	"github.com/taskhub/task-management/internal/service"
)

type noopPublisher struct{}

func (noopPublisher) PublishTaskAssigned(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (noopPublisher) PublishTaskUpdated(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, domain.EventType) error {
	return nil
}

type routerFixture struct {
	router        http.Handler
	tokens        *auth.TokenService
	hub           *hub.Hub
	notifications *service.NotificationService
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	logger := zap.NewNop()
	tokens := auth.NewTokenService("test-secret", time.Hour)

	liveHub := hub.New(logger, hub.HubHooks{})
	notificationSvc := service.NewNotificationService(
		repository.NewMockNotificationRepository(), liveHub, logger)
	authSvc := service.NewAuthService(repository.NewMockUserRepository(), tokens, logger)
	taskSvc := service.NewTaskService(repository.NewMockTaskRepository(), noopPublisher{}, logger)
	socket := hub.NewHandler(liveHub, tokens, notificationSvc, nil, 10, logger)

	router := api.NewRouter(api.Deps{
		Auth:          authSvc,
		Tasks:         taskSvc,
		Notifications: notificationSvc,
		Tokens:        tokens,
		Socket:        socket,
		Registry:      prometheus.NewRegistry(),
		ObserveHTTP:   func(string, string, int, float64) {},
		Logger:        logger,
	})

	return &routerFixture{
		router:        router,
		tokens:        tokens,
		hub:           liveHub,
		notifications: notificationSvc,
	}
}

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications"
	if token != "" {
		u += "?access_token=" + token
	}
	return u
}

// The upgrade must succeed through the full middleware stack: a wrapping
// response writer that hides http.Hijacker would fail the handshake with a
// 500 before the socket handler ever runs.
func TestRouter_WebSocketUpgradeAndPush(t *testing.T) {
	f := newRouterFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	userID := uuid.New()
	token, err := f.tokens.Issue(userID, "live@example.com", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatalf("websocket dial through the router failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.hub.Connections(userID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection was never registered with the hub")
		}
		time.Sleep(10 * time.Millisecond)
	}

	event := domain.TaskEvent{
		MessageID:        uuid.New(),
		TaskItemID:       uuid.New(),
		AssignedToUserID: userID,
		Timestamp:        time.Now().UTC(),
		MessageType:      domain.EventTaskAssigned,
		Description:      "You have been assigned a new task",
	}
	if err := f.notifications.HandleNotification(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected a pushed frame, got %v", err)
	}

	var env struct {
		Type    string              `json:"type"`
		Payload domain.Notification `json:"payload"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Type != hub.MsgReceiveNotification {
		t.Fatalf("expected %s frame, got %s", hub.MsgReceiveNotification, env.Type)
	}
	if env.Payload.TaskItemID != event.TaskItemID {
		t.Fatalf("expected task_item_id=%s, got %s", event.TaskItemID, env.Payload.TaskItemID)
	}
}

func TestRouter_WebSocketRejectsMissingToken(t *testing.T) {
	f := newRouterFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err == nil {
		conn.Close()
		t.Fatal("expected the handshake to be rejected without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func createTaskRequest(t *testing.T, srv *httptest.Server, token string) *http.Response {
	t.Helper()
	body, err := json.Marshal(domain.CreateTaskRequest{
		Title:        "Write release notes",
		AssignedToID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/tasks", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func TestRouter_TaskCreatePermission(t *testing.T) {
	f := newRouterFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	granted, err := f.tokens.Issue(uuid.New(), "granted@example.com", domain.DefaultPermissions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ungranted, err := f.tokens.Issue(uuid.New(), "viewer@example.com", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := createTaskRequest(t, srv, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", resp.StatusCode)
	}

	resp = createTaskRequest(t, srv, ungranted)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("token without permission: expected 403, got %d", resp.StatusCode)
	}

	resp = createTaskRequest(t, srv, granted)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("token with permission: expected 201, got %d", resp.StatusCode)
	}
	var created domain.Task
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected the created task in the response")
	}
}
