package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arif/codepulse/internal/auth"
	"github.com/arif/codepulse/internal/service"
)

// ChatHandler serves direct-message history and sending.
type ChatHandler struct {
	chat   *service.ChatService
	logger *slog.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(chat *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// HandleSend stores a message to a friend.
//
// POST /api/chat/{userId}
func (h *ChatHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.chat.Send(r.Context(), userID, chi.URLParam(r, "userId"), req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// HandleConversation returns message history with a friend, newest
// first. ?before pages backward through older messages.
//
// GET /api/chat/{userId}?limit=50&before=2025-06-15T14:00:00Z
func (h *ChatHandler) HandleConversation(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "before must be an RFC 3339 timestamp",
				Field:   "before",
			})
			return
		}
		before = &t
	}

	msgs, err := h.chat.Conversation(r.Context(), userID, chi.URLParam(r, "userId"), queryInt(r, "limit"), before)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// HandleMarkRead stamps every unread message from the given friend.
//
// POST /api/chat/{userId}/read
func (h *ChatHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	n, err := h.chat.MarkRead(r.Context(), userID, chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked": n})
}

// HandleUnreadCount returns the caller's total unread messages.
//
// GET /api/chat/unread
func (h *ChatHandler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	count, err := h.chat.UnreadCount(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread": count})
}
