package realtime

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"khidma/internal/presence"
	"khidma/internal/shared/jwt"
	"khidma/internal/shared/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DriverStore persists the authoritative is_available flag alongside the
// ephemeral presence entry.
type DriverStore interface {
	SetAvailability(ctx context.Context, driverUserID string, available bool) error
}

// Hub owns every websocket connection. It authenticates the socket, feeds
// presence updates into the registry and tears the entry down on disconnect.
type Hub struct {
	registry *presence.Registry
	tokens   *jwt.Manager
	drivers  DriverStore
	logger   *util.Logger
}

func NewHub(registry *presence.Registry, tokens *jwt.Manager, drivers DriverStore, logger *util.Logger) *Hub {
	return &Hub{registry: registry, tokens: tokens, drivers: drivers, logger: logger}
}

// wsConn wraps a gorilla connection so concurrent fan-out writes are
// serialized.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) Send(event interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(event)
}

// HandleWS upgrades /ws/users/{id} and runs the connection until it drops.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	instance := "Hub.HandleWS"

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[1] != "users" {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	userID := parts[2]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(instance, fmt.Sprintf("upgrade failed: %v", err))
		return
	}
	defer conn.Close()

	role, ok := h.authenticate(conn, userID)
	if !ok {
		h.logger.Warn(instance, fmt.Sprintf("user %s authentication failed or timed out", userID))
		return
	}

	handle := util.NewID()
	sender := &wsConn{conn: conn}
	h.registry.Connect(userID, role, handle, sender)
	defer h.registry.Disconnect(handle)

	h.logger.OK(instance, fmt.Sprintf("user %s connected (role=%s)", userID, role))

	stopPing := make(chan struct{})
	defer close(stopPing)
	go h.pingLoop(conn, sender, stopPing)

	h.readLoop(r.Context(), conn, sender, userID)
	h.logger.Info(instance, fmt.Sprintf("user %s disconnected", userID))
}

// authenticate waits up to 5 seconds for an auth frame carrying a Bearer
// token whose subject matches the path user id.
func (h *Hub) authenticate(conn *websocket.Conn, userID string) (string, bool) {
	authTimer := time.NewTimer(5 * time.Second)
	defer authTimer.Stop()

	authChan := make(chan AuthMessage, 1)

	go func() {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		parsed, err := ParseInbound(raw)
		if err != nil {
			return
		}
		if msg, ok := parsed.(AuthMessage); ok {
			authChan <- msg
		}
	}()

	select {
	case msg := <-authChan:
		claims, ok := h.verifyToken(msg.Token, userID)
		if !ok {
			_ = conn.WriteJSON(ErrorMessage{Type: EventError, Message: "invalid token or user id"})
			return "", false
		}
		_ = conn.WriteJSON(AckMessage{Type: EventAuthSuccess, Message: "authenticated"})
		return claims.Role, true
	case <-authTimer.C:
		_ = conn.WriteJSON(ErrorMessage{Type: EventError, Message: "authentication timeout"})
		return "", false
	}
}

func (h *Hub) verifyToken(headerToken, userID string) (*jwt.Claims, bool) {
	parts := strings.Split(headerToken, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, ok := h.tokens.Verify(parts[1])
	if !ok {
		return nil, false
	}
	if claims.UserID != userID {
		return nil, false
	}
	return claims, true
}

func (h *Hub) pingLoop(conn *websocket.Conn, sender *wsConn, stop chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	for {
		select {
		case <-ticker.C:
			sender.mu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, []byte{})
			sender.mu.Unlock()
			if err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, conn *websocket.Conn, sender *wsConn, userID string) {
	instance := "Hub.readLoop"

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn(instance, fmt.Sprintf("read error for %s: %v", userID, err))
			}
			return
		}

		parsed, err := ParseInbound(raw)
		if err != nil {
			_ = sender.Send(ErrorMessage{Type: EventError, Message: err.Error()})
			continue
		}

		switch msg := parsed.(type) {
		case DriverAvailableMessage:
			h.registry.SetAvailability(userID, msg.IsAvailable, msg.Coords)
			if h.drivers != nil {
				if err := h.drivers.SetAvailability(ctx, userID, msg.IsAvailable); err != nil {
					h.logger.Warn(instance, fmt.Sprintf("persist availability for %s failed: %v", userID, err))
				}
			}
		case UpdateLocationMessage:
			h.registry.UpdateLocation(userID, msg.Coords)
		case AuthMessage:
			// already authenticated, ignore
		}
	}
}
