package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhub/task-management/internal/domain"
)

// Server→client message types.
const (
	MsgReceiveNotification      = "ReceiveNotification"
	MsgNotificationMarkedAsRead = "NotificationMarkedAsRead"
)

// Envelope is the JSON frame sent to connected clients.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// HubHooks carries metric callbacks injected by main (nil = no-op).
type HubHooks struct {
	OnConnect    func()
	OnDisconnect func()
	OnDelivered  func()
	OnDropped    func()
}

func (h *HubHooks) fill() {
	if h.OnConnect == nil {
		h.OnConnect = func() {}
	}
	if h.OnDisconnect == nil {
		h.OnDisconnect = func() {}
	}
	if h.OnDelivered == nil {
		h.OnDelivered = func() {}
	}
	if h.OnDropped == nil {
		h.OnDropped = func() {}
	}
}

// Hub is the per-user fan-out registry: userID → set of live connections.
// Membership is ephemeral; nothing is persisted and a push to a user with no
// connections is silently dropped. Clients recover missed pushes by
// re-fetching the notification list.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
	logger  *zap.Logger
	hooks   HubHooks
}

func New(logger *zap.Logger, hooks HubHooks) *Hub {
	hooks.fill()
	return &Hub{
		clients: make(map[uuid.UUID]map[*Client]struct{}),
		logger:  logger,
		hooks:   hooks,
	}
}

// Register adds the client to its user's connection set.
// Only called after the connection's token was validated, so every registered
// client has a resolved user and Unregister is always symmetric.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.mu.Unlock()

	h.hooks.OnConnect()
	h.logger.Info("live client connected",
		zap.String("user_id", c.userID.String()),
		zap.String("connection_id", c.id.String()),
	)
}

// Unregister removes the client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	conns, ok := h.clients[c.userID]
	if ok {
		if _, member := conns[c]; member {
			delete(conns, c)
			c.markClosed()
			close(c.send)
			if len(conns) == 0 {
				delete(h.clients, c.userID)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()

	if ok {
		h.hooks.OnDisconnect()
		h.logger.Info("live client disconnected",
			zap.String("user_id", c.userID.String()),
			zap.String("connection_id", c.id.String()),
		)
	}
}

// PushToUser delivers the notification to every live connection of the user.
// An offline user (empty set) is not an error; the durable store already
// holds the record and a later fetch is authoritative.
func (h *Hub) PushToUser(userID uuid.UUID, n *domain.Notification) {
	data, err := json.Marshal(Envelope{Type: MsgReceiveNotification, Payload: n})
	if err != nil {
		h.logger.Error("marshal push payload", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		h.hooks.OnDropped()
		return
	}

	for _, c := range targets {
		c.enqueue(data)
	}
	h.hooks.OnDelivered()
}

// Connections reports how many live connections the user currently has.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
