package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arif/codepulse/internal/auth"
	"github.com/arif/codepulse/internal/service"
)

// FriendHandler serves the friendship graph and the activity feed.
type FriendHandler struct {
	friends *service.FriendService
	logger  *slog.Logger
}

// NewFriendHandler creates a FriendHandler.
func NewFriendHandler(friends *service.FriendService, logger *slog.Logger) *FriendHandler {
	return &FriendHandler{friends: friends, logger: logger}
}

// HandleSendRequest sends a friend request to a username or user ID.
//
// POST /api/friends/requests
func (h *FriendHandler) HandleSendRequest(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req struct {
		Target string `json:"target"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.friends.SendRequest(r.Context(), userID, req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandlePending lists pending requests addressed to the caller.
//
// GET /api/friends/requests
func (h *FriendHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	reqs, err := h.friends.PendingRequests(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// HandleAccept accepts a pending request.
//
// POST /api/friends/requests/{id}/accept
func (h *FriendHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.friends.AcceptRequest(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// HandleReject rejects a pending request.
//
// POST /api/friends/requests/{id}/reject
func (h *FriendHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.friends.RejectRequest(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// HandleRemove removes a friendship in both directions.
//
// DELETE /api/friends/{id}
func (h *FriendHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.friends.RemoveFriend(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSearch finds users by username fragment.
//
// GET /api/users/search?q=ali
func (h *FriendHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	users, err := h.friends.SearchUsers(r.Context(), r.URL.Query().Get("q"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleFeed returns the presence-sorted friends activity feed.
//
// GET /api/friends/activity
func (h *FriendHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	views, err := h.friends.FriendActivity(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
