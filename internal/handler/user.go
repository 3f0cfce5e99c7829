package handler

import (
	"log/slog"
	"net/http"

	"github.com/arif/codepulse/internal/auth"
	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/service"
)

// UserHandler serves account settings and avatar updates.
type UserHandler struct {
	accounts *service.AuthService
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(accounts *service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

// HandleUpdateSettings replaces the user's sharing preferences.
//
// PUT /api/me/settings
func (h *UserHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var settings model.Settings
	if err := decodeJSON(r, &settings); err != nil {
		writeError(w, err)
		return
	}

	if err := h.accounts.UpdateSettings(r.Context(), userID, settings); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// HandleUpdateAvatar stores a new avatar selection.
//
// PUT /api/me/avatar
func (h *UserHandler) HandleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req struct {
		Avatar string `json:"avatar"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.accounts.UpdateAvatar(r.Context(), userID, req.Avatar); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatar": req.Avatar})
}
