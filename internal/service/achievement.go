package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/repository"
)

// AchievementService evaluates the static catalog against a user's
// aggregate history and friendship graph and unlocks newly crossed
// thresholds. Evaluation is idempotent: already-unlocked achievements
// are skipped up front and the store's unique key backstops races.
type AchievementService struct {
	aggregates   repository.AggregateRepository
	friends      repository.FriendRepository
	achievements repository.AchievementRepository
	catalog      []model.Achievement
	logger       *slog.Logger
	now          func() time.Time
}

// NewAchievementService creates an AchievementService over the package
// catalog.
func NewAchievementService(
	aggregates repository.AggregateRepository,
	friends repository.FriendRepository,
	achievements repository.AchievementRepository,
	logger *slog.Logger,
) *AchievementService {
	return &AchievementService{
		aggregates:   aggregates,
		friends:      friends,
		achievements: achievements,
		catalog:      Catalog,
		logger:       logger,
		now:          time.Now,
	}
}

// CatalogEntries returns the full achievement catalog.
func (s *AchievementService) CatalogEntries() []model.Achievement {
	return s.catalog
}

// Unlocked returns the user's unlock records.
func (s *AchievementService) Unlocked(ctx context.Context, userID string) ([]model.UnlockRecord, error) {
	recs, err := s.achievements.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing unlocks: %w", err)
	}
	return recs, nil
}

// EvaluateAndUnlock measures every not-yet-unlocked achievement and
// writes unlock records for thresholds that are now met, returning only
// the records created by this call. Calling it again with no new
// activity returns an empty list.
func (s *AchievementService) EvaluateAndUnlock(ctx context.Context, userID string) ([]model.UnlockRecord, error) {
	existing, err := s.achievements.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading existing unlocks: %w", err)
	}
	unlocked := make(map[string]bool, len(existing))
	for _, rec := range existing {
		unlocked[rec.AchievementID] = true
	}

	m := &measures{svc: s, userID: userID}

	var newRecs []model.UnlockRecord
	for _, ach := range s.catalog {
		if unlocked[ach.ID] {
			continue
		}

		met, err := m.meets(ctx, ach)
		if err != nil {
			return newRecs, fmt.Errorf("measuring %s: %w", ach.ID, err)
		}
		if !met {
			continue
		}

		rec := &model.UnlockRecord{
			UserID:        userID,
			AchievementID: ach.ID,
			UnlockedAt:    s.now().UTC(),
		}
		inserted, err := s.achievements.InsertUnlock(ctx, rec)
		if err != nil {
			return newRecs, fmt.Errorf("unlocking %s: %w", ach.ID, err)
		}
		if !inserted {
			// Lost a race with a concurrent evaluation; the record
			// exists, so it is not "newly unlocked" here.
			continue
		}

		s.logger.Info("achievement unlocked",
			slog.String("userId", userID),
			slog.String("achievement", ach.ID),
		)
		newRecs = append(newRecs, *rec)
	}

	return newRecs, nil
}

// measures lazily computes and memoizes the per-user inputs so that one
// evaluation pass hits the store at most once per measure, no matter how
// many catalog entries share a threshold type.
type measures struct {
	svc    *AchievementService
	userID string

	totalSeconds *int64
	maxDaily     *int64
	activeDays   map[string]bool
	langCount    *int
	friendCount  *int
}

func (m *measures) meets(ctx context.Context, ach model.Achievement) (bool, error) {
	switch ach.Type {
	case model.ThresholdTotalHours:
		total, err := m.total(ctx)
		if err != nil {
			return false, err
		}
		return total >= ach.Value*3600, nil

	case model.ThresholdStreakDays:
		days, err := m.days(ctx)
		if err != nil {
			return false, err
		}
		return int64(streakEndingAt(days, m.svc.now().UTC())) >= ach.Value, nil

	case model.ThresholdLanguageCount:
		if m.langCount == nil {
			n, err := m.svc.aggregates.DistinctLanguageCount(ctx, m.userID)
			if err != nil {
				return false, err
			}
			m.langCount = &n
		}
		return int64(*m.langCount) >= ach.Value, nil

	case model.ThresholdFriendCount:
		if m.friendCount == nil {
			n, err := m.svc.friends.CountFriends(ctx, m.userID)
			if err != nil {
				return false, err
			}
			m.friendCount = &n
		}
		return int64(*m.friendCount) >= ach.Value, nil

	case model.ThresholdNightCoding:
		return m.svc.aggregates.HasActiveHourBetween(ctx, m.userID, 0, 5)

	case model.ThresholdEarlyCoding:
		return m.svc.aggregates.HasActiveHourBetween(ctx, m.userID, 5, 7)

	case model.ThresholdSingleDayHours:
		if m.maxDaily == nil {
			max, err := m.svc.aggregates.MaxDailySeconds(ctx, m.userID)
			if err != nil {
				return false, err
			}
			m.maxDaily = &max
		}
		return *m.maxDaily >= ach.Value*3600, nil

	case model.ThresholdWeekendCoding:
		days, err := m.days(ctx)
		if err != nil {
			return false, err
		}
		return hasWeekendPresence(days), nil

	default:
		return false, fmt.Errorf("unknown threshold type %q", ach.Type)
	}
}

func (m *measures) total(ctx context.Context) (int64, error) {
	if m.totalSeconds == nil {
		total, err := m.svc.aggregates.TotalSeconds(ctx, m.userID)
		if err != nil {
			return 0, err
		}
		m.totalSeconds = &total
	}
	return *m.totalSeconds, nil
}

func (m *measures) days(ctx context.Context) (map[string]bool, error) {
	if m.activeDays == nil {
		days, err := m.svc.aggregates.ActiveDays(ctx, m.userID)
		if err != nil {
			return nil, err
		}
		m.activeDays = make(map[string]bool, len(days))
		for _, day := range days {
			m.activeDays[day] = true
		}
	}
	return m.activeDays, nil
}

// streakEndingAt counts consecutive active days ending today, walking
// backward one calendar day at a time and stopping at the first gap.
func streakEndingAt(activeDays map[string]bool, now time.Time) int {
	streak := 0
	day := now
	for activeDays[day.Format(model.DayFormat)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// hasWeekendPresence reports whether the user was active on at least one
// Saturday and at least one Sunday; they need not belong to the same
// weekend.
func hasWeekendPresence(activeDays map[string]bool) bool {
	var sat, sun bool
	for day := range activeDays {
		t, err := time.Parse(model.DayFormat, day)
		if err != nil {
			continue
		}
		switch t.Weekday() {
		case time.Saturday:
			sat = true
		case time.Sunday:
			sun = true
		}
		if sat && sun {
			return true
		}
	}
	return false
}
