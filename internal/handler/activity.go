package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/arif/codepulse/internal/auth"
	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/service"
)

// ActivityHandler serves the plugin sync endpoint and the activity
// rollups behind the dashboard.
type ActivityHandler struct {
	activity     *service.ActivityService
	achievements *service.AchievementService
	logger       *slog.Logger
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(activity *service.ActivityService, achievements *service.AchievementService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activity:     activity,
		achievements: achievements,
		logger:       logger,
	}
}

type syncRequest struct {
	Seconds   int64            `json:"seconds"`
	Projects  map[string]int64 `json:"projects"`
	Languages map[string]int64 `json:"languages"`
}

type syncResponse struct {
	Merged   bool                 `json:"merged"`
	Unlocked []model.UnlockRecord `json:"unlocked,omitempty"`

	// AchievementsError tells the client an empty unlocked list means
	// "evaluation failed", not "nothing new". The activity itself is
	// already saved.
	AchievementsError bool `json:"achievementsError,omitempty"`
}

// HandleSync folds an editor plugin's incremental report into today's
// aggregates, then evaluates achievements. An evaluation failure never
// fails the sync: the activity is already durable at that point.
//
// POST /plugin/sync  (API-key auth)
func (h *ActivityHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	delta := model.ActivityDelta{
		Seconds:   req.Seconds,
		Projects:  req.Projects,
		Languages: req.Languages,
	}
	if err := h.activity.Merge(r.Context(), userID, delta); err != nil {
		writeError(w, err)
		return
	}

	resp := syncResponse{Merged: true}
	unlocked, err := h.achievements.EvaluateAndUnlock(r.Context(), userID)
	if err != nil {
		h.logger.Error("achievement evaluation failed after sync",
			slog.String("userId", userID),
			slog.String("error", err.Error()),
		)
		resp.AchievementsError = true
	} else {
		resp.Unlocked = unlocked
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleToday returns today's aggregate, or an empty one if the user
// has no activity yet.
//
// GET /api/activity/today
func (h *ActivityHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	agg, err := h.activity.TodayAggregate(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if agg == nil {
		writeJSON(w, http.StatusOK, map[string]any{"totalSeconds": 0})
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

// HandleWeek returns the summed seconds over the last 7 days.
//
// GET /api/activity/week
func (h *ActivityHandler) HandleWeek(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	total, err := h.activity.WeekTotal(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"totalSeconds": total})
}

// HandleHourly returns hourly buckets over the last ?days days.
//
// GET /api/activity/hourly?days=7
func (h *ActivityHandler) HandleHourly(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	aggs, err := h.activity.HourlyActivity(r.Context(), userID, queryInt(r, "days"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, aggs)
}

// HandleDaily returns daily aggregates over the last ?days days.
//
// GET /api/activity/daily?days=30
func (h *ActivityHandler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	aggs, err := h.activity.DailyHistory(r.Context(), userID, queryInt(r, "days"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, aggs)
}

// HandleLanguages returns per-language totals over the last ?days days.
//
// GET /api/activity/languages?days=30
func (h *ActivityHandler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	totals, err := h.activity.LanguageDistribution(r.Context(), userID, queryInt(r, "days"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// queryInt parses an integer query parameter, returning 0 when absent
// or malformed; services apply their own defaults and clamps.
func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}
