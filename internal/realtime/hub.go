// Package realtime delivers chat messages to connected users over
// WebSockets. The hub is a per-user connection registry; delivery is
// best-effort and never blocks the send path.
package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/arif/codepulse/internal/model"
)

// Conn is the subset of *websocket.Conn the hub needs; the indirection
// lets tests register fake connections.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Event is the payload pushed to clients.
type Event struct {
	Type    string             `json:"type"`
	Message *model.ChatMessage `json:"message,omitempty"`
}

// client pairs a connection with a write lock. Gorilla connections
// allow only one concurrent writer, and deliveries run on their own
// goroutines, so all writes to one connection serialize on writeMu.
type client struct {
	conn    Conn
	writeMu sync.Mutex
}

func (c *client) write(event Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(event)
}

// Hub tracks one connection per user. Registering a second connection
// for the same user closes the first; a stale tab cannot hold the slot.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *slog.Logger
}

// NewHub creates a Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

// Register attaches a user's connection.
func (h *Hub) Register(userID string, conn Conn) {
	h.mu.Lock()
	old, had := h.clients[userID]
	h.clients[userID] = &client{conn: conn}
	h.mu.Unlock()

	if had {
		_ = old.conn.Close()
	}
	h.logger.Debug("websocket connected", slog.String("userId", userID))
}

// Unregister detaches a user's connection. It is a no-op when conn is
// not the registered one, so a reconnect is not torn down by the old
// connection's deferred cleanup.
func (h *Hub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	if c, ok := h.clients[userID]; ok && c.conn == conn {
		delete(h.clients, userID)
	}
	h.mu.Unlock()

	h.logger.Debug("websocket disconnected", slog.String("userId", userID))
}

// Connected reports whether the user has a live connection.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// NotifyMessage implements service.MessageNotifier: the recipient gets
// the message if connected, and the sender's other session gets an echo
// so multiple devices stay in sync. Writes run on their own goroutine.
func (h *Hub) NotifyMessage(msg model.ChatMessage) {
	h.send(msg.ToUserID, Event{Type: "message", Message: &msg})
	h.send(msg.FromUserID, Event{Type: "message_sent", Message: &msg})
}

func (h *Hub) send(userID string, event Event) {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	go func() {
		if err := c.write(event); err != nil {
			h.logger.Debug("websocket write failed",
				slog.String("userId", userID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// CloseAll closes every connection, used during shutdown. Waits briefly
// so in-flight writes can finish.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
	if len(clients) > 0 {
		time.Sleep(50 * time.Millisecond)
	}
}
