package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// writeWait is the maximum time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// pongWait is the maximum time to wait for a pong reply from the peer.
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize is the maximum inbound message size in bytes.
	maxMessageSize = 1024
	// sendBuffer is the per-connection outbound queue length.
	sendBuffer = 64
)

// ReadMarker performs the durable mark-read mutation requested over the
// socket. The notification service implements it.
type ReadMarker interface {
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

// rpcMessage is the JSON envelope sent by the frontend over the socket.
type rpcMessage struct {
	Type           string    `json:"type"` // "MarkAsRead"
	NotificationID uuid.UUID `json:"notification_id"`
}

// Client represents a single authenticated WebSocket connection.
type Client struct {
	id      uuid.UUID
	userID  uuid.UUID
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	marker  ReadMarker
	limiter *rate.Limiter
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewClient creates a Client for an authenticated connection. rpcRate bounds
// the inbound RPCs accepted per second; excess messages are discarded.
func NewClient(h *Hub, conn *websocket.Conn, userID uuid.UUID, marker ReadMarker, rpcRate int, logger *zap.Logger) *Client {
	return &Client{
		id:      uuid.New(),
		userID:  userID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		hub:     h,
		marker:  marker,
		limiter: rate.NewLimiter(rate.Limit(rpcRate), rpcRate),
		logger:  logger,
	}
}

// enqueue queues a frame for the write pump. A full buffer drops the frame:
// a client that cannot keep up recovers through the notification list.
func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, frame dropped",
			zap.String("connection_id", c.id.String()))
	}
}

// markClosed flags the client so late pushes are discarded instead of
// writing to a closed channel. Called by the hub during Unregister.
func (c *Client) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// ReadPump pumps inbound frames from the connection, servicing MarkAsRead
// RPCs. It runs in its own goroutine per client and tears the client down
// when the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("read error",
					zap.String("connection_id", c.id.String()), zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.logger.Warn("rpc rate exceeded, message discarded",
				zap.String("connection_id", c.id.String()))
			continue
		}

		var rpc rpcMessage
		if err := json.Unmarshal(msg, &rpc); err != nil {
			c.logger.Warn("invalid rpc message",
				zap.String("connection_id", c.id.String()), zap.Error(err))
			continue
		}
		c.handleRPC(rpc)
	}
}

// handleRPC services one client-initiated call. MarkAsRead performs the
// durable mutation first, then echoes the confirmation, so the socket path
// and the REST path agree on what is read.
func (c *Client) handleRPC(rpc rpcMessage) {
	switch rpc.Type {
	case "MarkAsRead":
		if rpc.NotificationID == uuid.Nil {
			return
		}
		if err := c.marker.MarkRead(context.Background(), rpc.NotificationID, c.userID); err != nil {
			c.logger.Error("mark read over socket",
				zap.String("notification_id", rpc.NotificationID.String()), zap.Error(err))
			return
		}
		data, err := json.Marshal(Envelope{Type: MsgNotificationMarkedAsRead, Payload: rpc.NotificationID})
		if err != nil {
			return
		}
		c.enqueue(data)
	default:
		c.logger.Warn("unknown rpc type",
			zap.String("connection_id", c.id.String()), zap.String("type", rpc.Type))
	}
}

// WritePump pumps frames from the send channel to the connection and keeps
// it alive with pings. It runs in its own goroutine per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
