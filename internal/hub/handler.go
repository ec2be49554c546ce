package hub

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/taskhub/task-management/internal/auth"
)

// Handler upgrades HTTP connections to WebSocket and spawns the read/write
// pumps for the new client.
type Handler struct {
	hub      *Hub
	tokens   *auth.TokenService
	marker   ReadMarker
	rpcRate  int
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandler(h *Hub, tokens *auth.TokenService, marker ReadMarker, allowedOrigins []string, rpcRate int, logger *zap.Logger) *Handler {
	return &Handler{
		hub:     h,
		tokens:  tokens,
		marker:  marker,
		rpcRate: rpcRate,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// ServeWS upgrades GET /ws/notifications to a WebSocket connection.
//
// The bearer token is read from the `access_token` query parameter, since
// some WebSocket clients cannot set request headers, with the Authorization
// header accepted as a fallback. Reconnecting clients simply rejoin their
// group; missed pushes are recovered through the notification list, never
// replayed here.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("access_token")
	if token == "" {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		}
	}

	if token == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := h.tokens.Validate(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader already wrote the error response.
		return
	}

	client := NewClient(h.hub, conn, claims.UserID, h.marker, h.rpcRate, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// originChecker validates the Origin header against the configured allowlist.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser client
		}
		for _, a := range allowed {
			if strings.EqualFold(origin, a) {
				return true
			}
		}
		return false
	}
}
