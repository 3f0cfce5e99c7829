package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arif/codepulse/internal/apperror"
	"github.com/arif/codepulse/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newActivityService(aggs *mockAggregateRepo, now time.Time) *ActivityService {
	svc := NewActivityService(aggs, testLogger())
	svc.now = func() time.Time { return now }
	return svc
}

func TestActivityMergeAccumulates(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	aggs := newMockAggregateRepo()
	svc := newActivityService(aggs, now)
	ctx := context.Background()

	err := svc.Merge(ctx, "user-1", model.ActivityDelta{
		Seconds:   3600,
		Projects:  map[string]int64{"api": 3600},
		Languages: map[string]int64{"go": 3600},
	})
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}
	err = svc.Merge(ctx, "user-1", model.ActivityDelta{
		Seconds:   1800,
		Projects:  map[string]int64{"api": 1800},
		Languages: map[string]int64{"rust": 1800},
	})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}

	agg, err := svc.TodayAggregate(ctx, "user-1")
	if err != nil {
		t.Fatalf("TodayAggregate: %v", err)
	}
	if agg == nil {
		t.Fatal("TodayAggregate returned nil after merges")
	}
	if agg.TotalSeconds != 5400 {
		t.Errorf("TotalSeconds = %d, want 5400", agg.TotalSeconds)
	}
	if agg.Languages["go"] != 3600 || agg.Languages["rust"] != 1800 {
		t.Errorf("Languages = %v, want go:3600 rust:1800", agg.Languages)
	}
	if agg.Projects["api"] != 5400 {
		t.Errorf("Projects[api] = %d, want 5400", agg.Projects["api"])
	}
	if !agg.LastUpdate.Equal(now) {
		t.Errorf("LastUpdate = %v, want %v", agg.LastUpdate, now)
	}
}

func TestActivityMergeBucketsByUTCHour(t *testing.T) {
	now := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)
	aggs := newMockAggregateRepo()
	svc := newActivityService(aggs, now)

	if err := svc.Merge(context.Background(), "user-1", model.ActivityDelta{Seconds: 60}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	h, ok := aggs.hourly[hourlyKey("user-1", "2025-06-15", 23)]
	if !ok {
		t.Fatal("no hourly aggregate in the 23:00 bucket")
	}
	if h.TotalSeconds != 60 {
		t.Errorf("hourly TotalSeconds = %d, want 60", h.TotalSeconds)
	}
}

func TestActivityMergeValidation(t *testing.T) {
	svc := newActivityService(newMockAggregateRepo(), time.Now())
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		delta  model.ActivityDelta
	}{
		{"missing user", "", model.ActivityDelta{Seconds: 10}},
		{"negative seconds", "user-1", model.ActivityDelta{Seconds: -1}},
		{"negative project", "user-1", model.ActivityDelta{Seconds: 10, Projects: map[string]int64{"api": -5}}},
		{"negative language", "user-1", model.ActivityDelta{Seconds: 10, Languages: map[string]int64{"go": -5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Merge(ctx, tt.userID, tt.delta)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Merge() error = %v, want validation error", err)
			}
		})
	}
}

func TestActivityMergeZeroSecondsAllowed(t *testing.T) {
	// Heartbeat-style reports with no accumulated time still refresh
	// lastUpdate, which drives presence.
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	aggs := newMockAggregateRepo()
	svc := newActivityService(aggs, now)

	if err := svc.Merge(context.Background(), "user-1", model.ActivityDelta{Seconds: 0}); err != nil {
		t.Fatalf("merge with zero seconds: %v", err)
	}
	d := aggs.daily[dailyKey("user-1", "2025-06-15")]
	if d == nil || !d.LastUpdate.Equal(now) {
		t.Errorf("zero-second merge did not refresh lastUpdate: %+v", d)
	}
}

func TestActivityTodayAggregateEmpty(t *testing.T) {
	svc := newActivityService(newMockAggregateRepo(), time.Now())

	agg, err := svc.TodayAggregate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("TodayAggregate: %v", err)
	}
	if agg != nil {
		t.Errorf("TodayAggregate = %+v, want nil for inactive user", agg)
	}
}

func TestActivityWeekTotal(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	aggs := newMockAggregateRepo()
	svc := newActivityService(aggs, now)
	ctx := context.Background()

	// Inside the 7-day window: today and six days back.
	seed := func(day string, secs int64) {
		aggs.daily[dailyKey("user-1", day)] = &model.DailyAggregate{
			UserID: "user-1", Day: day, TotalSeconds: secs,
			Projects: map[string]int64{}, Languages: map[string]int64{},
		}
	}
	seed("2025-06-15", 100)
	seed("2025-06-09", 200)
	// Outside the window.
	seed("2025-06-08", 999)

	total, err := svc.WeekTotal(ctx, "user-1")
	if err != nil {
		t.Fatalf("WeekTotal: %v", err)
	}
	if total != 300 {
		t.Errorf("WeekTotal = %d, want 300", total)
	}
}

func TestActivityLookbackClamping(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	aggs := newMockAggregateRepo()
	svc := newActivityService(aggs, now)
	ctx := context.Background()

	aggs.daily[dailyKey("user-1", "2025-06-15")] = &model.DailyAggregate{
		UserID: "user-1", Day: "2025-06-15", TotalSeconds: 50,
		Projects: map[string]int64{}, Languages: map[string]int64{},
	}

	// Zero days falls back to the 7-day default; absurd values clamp to
	// the cap rather than erroring.
	if _, err := svc.DailyHistory(ctx, "user-1", 0); err != nil {
		t.Errorf("DailyHistory(0): %v", err)
	}
	if _, err := svc.DailyHistory(ctx, "user-1", 100000); err != nil {
		t.Errorf("DailyHistory(100000): %v", err)
	}
	if _, err := svc.HourlyActivity(ctx, "user-1", 100000); err != nil {
		t.Errorf("HourlyActivity(100000): %v", err)
	}
}

func TestActivityLanguageDistribution(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	aggs := newMockAggregateRepo()
	svc := newActivityService(aggs, now)

	aggs.daily[dailyKey("user-1", "2025-06-14")] = &model.DailyAggregate{
		UserID: "user-1", Day: "2025-06-14", TotalSeconds: 300,
		Projects:  map[string]int64{},
		Languages: map[string]int64{"go": 200, "rust": 100},
	}
	aggs.daily[dailyKey("user-1", "2025-06-15")] = &model.DailyAggregate{
		UserID: "user-1", Day: "2025-06-15", TotalSeconds: 100,
		Projects:  map[string]int64{},
		Languages: map[string]int64{"go": 100},
	}

	dist, err := svc.LanguageDistribution(context.Background(), "user-1", 7)
	if err != nil {
		t.Fatalf("LanguageDistribution: %v", err)
	}
	if dist["go"] != 300 || dist["rust"] != 100 {
		t.Errorf("distribution = %v, want go:300 rust:100", dist)
	}
}
