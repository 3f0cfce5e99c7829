package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/arif/codepulse/internal/auth"
	"github.com/arif/codepulse/internal/realtime"
)

// WSHandler upgrades authenticated requests to WebSocket connections
// and registers them with the realtime hub.
type WSHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a WSHandler. checkOrigin follows the server's
// CORS allowlist; nil allows same-origin only.
func NewWSHandler(hub *realtime.Hub, checkOrigin func(*http.Request) bool, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// HandleConnect upgrades the connection and keeps it registered until
// the client disconnects. Clients only receive events; incoming frames
// are drained to detect the close.
//
// GET /api/ws
func (h *WSHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			slog.String("userId", userID),
			slog.String("error", err.Error()),
		)
		return
	}

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)
	defer conn.Close()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
