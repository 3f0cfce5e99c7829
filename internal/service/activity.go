package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arif/codepulse/internal/apperror"
	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/repository"
)

// Lookback caps for the read rollups.
const (
	MaxHourlyLookbackDays = 30
	MaxDailyLookbackDays  = 365
)

// ActivityService is the only write path for aggregates and serves the
// read rollups over them.
type ActivityService struct {
	aggregates repository.AggregateRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewActivityService creates an ActivityService.
func NewActivityService(aggregates repository.AggregateRepository, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		aggregates: aggregates,
		logger:     logger,
		now:        time.Now,
	}
}

// Merge folds one incremental report into today's daily aggregate and the
// current hour's hourly aggregate. "Today" and the hour bucket are
// resolved from wall-clock UTC at call time, never from timestamps inside
// the report. The merge is additive for the total and for every
// project/language key.
func (s *ActivityService) Merge(ctx context.Context, userID string, delta model.ActivityDelta) error {
	if userID == "" {
		return apperror.ValidationFailed("userId", "user ID is required")
	}
	if delta.Seconds < 0 {
		return apperror.ValidationFailed("seconds", "seconds must not be negative")
	}
	for project, secs := range delta.Projects {
		if secs < 0 {
			return apperror.ValidationFailed("projects",
				fmt.Sprintf("project %q has negative seconds", project))
		}
	}
	for language, secs := range delta.Languages {
		if secs < 0 {
			return apperror.ValidationFailed("languages",
				fmt.Sprintf("language %q has negative seconds", language))
		}
	}

	now := s.now().UTC()
	day := now.Format(model.DayFormat)

	if err := s.aggregates.Merge(ctx, userID, day, now.Hour(), delta, now); err != nil {
		s.logger.Error("failed to merge activity",
			slog.String("userId", userID),
			slog.String("day", day),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("merging activity: %w", err)
	}

	s.logger.Debug("activity merged",
		slog.String("userId", userID),
		slog.String("day", day),
		slog.Int64("seconds", delta.Seconds),
	)
	return nil
}

// TodayAggregate returns today's aggregate, or nil if the user has no
// activity yet today.
func (s *ActivityService) TodayAggregate(ctx context.Context, userID string) (*model.DailyAggregate, error) {
	day := s.now().UTC().Format(model.DayFormat)
	agg, err := s.aggregates.GetDaily(ctx, userID, day)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting today's aggregate: %w", err)
	}
	return agg, nil
}

// WeekTotal returns the summed seconds over the last 7 calendar days
// including today.
func (s *ActivityService) WeekTotal(ctx context.Context, userID string) (int64, error) {
	now := s.now().UTC()
	from := now.AddDate(0, 0, -6).Format(model.DayFormat)
	to := now.Format(model.DayFormat)

	total, err := s.aggregates.SumRange(ctx, userID, from, to)
	if err != nil {
		return 0, fmt.Errorf("summing week total: %w", err)
	}
	return total, nil
}

// HourlyActivity returns hourly totals over the last `days` days,
// clamped to 1..MaxHourlyLookbackDays.
func (s *ActivityService) HourlyActivity(ctx context.Context, userID string, days int) ([]model.HourlyAggregate, error) {
	days = clampDays(days, MaxHourlyLookbackDays)
	now := s.now().UTC()
	from := now.AddDate(0, 0, -(days - 1)).Format(model.DayFormat)
	to := now.Format(model.DayFormat)

	aggs, err := s.aggregates.ListHourlyRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing hourly activity: %w", err)
	}
	return aggs, nil
}

// DailyHistory returns daily aggregates over the last `days` days,
// clamped to 1..MaxDailyLookbackDays.
func (s *ActivityService) DailyHistory(ctx context.Context, userID string, days int) ([]model.DailyAggregate, error) {
	days = clampDays(days, MaxDailyLookbackDays)
	now := s.now().UTC()
	from := now.AddDate(0, 0, -(days - 1)).Format(model.DayFormat)
	to := now.Format(model.DayFormat)

	aggs, err := s.aggregates.ListDailyRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing daily history: %w", err)
	}
	return aggs, nil
}

// LanguageDistribution returns per-language seconds accumulated over the
// last `days` days, clamped to 1..MaxDailyLookbackDays.
func (s *ActivityService) LanguageDistribution(ctx context.Context, userID string, days int) (map[string]int64, error) {
	days = clampDays(days, MaxDailyLookbackDays)
	now := s.now().UTC()
	from := now.AddDate(0, 0, -(days - 1)).Format(model.DayFormat)
	to := now.Format(model.DayFormat)

	totals, err := s.aggregates.LanguageTotals(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing language distribution: %w", err)
	}
	return totals, nil
}

func clampDays(days, max int) int {
	if days <= 0 {
		days = 7
	}
	if days > max {
		days = max
	}
	return days
}
