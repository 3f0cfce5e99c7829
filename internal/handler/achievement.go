package handler

import (
	"log/slog"
	"net/http"

	"github.com/arif/codepulse/internal/auth"
	"github.com/arif/codepulse/internal/service"
)

// AchievementHandler serves the catalog and the user's unlock records.
type AchievementHandler struct {
	achievements *service.AchievementService
	logger       *slog.Logger
}

// NewAchievementHandler creates an AchievementHandler.
func NewAchievementHandler(achievements *service.AchievementService, logger *slog.Logger) *AchievementHandler {
	return &AchievementHandler{achievements: achievements, logger: logger}
}

// HandleCatalog returns every defined achievement.
//
// GET /api/achievements
func (h *AchievementHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.achievements.CatalogEntries())
}

// HandleUnlocked returns the caller's unlock records.
//
// GET /api/me/achievements
func (h *AchievementHandler) HandleUnlocked(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	recs, err := h.achievements.Unlocked(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}
