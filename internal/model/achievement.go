package model

import "time"

// ThresholdType says which measure an achievement is checked against.
type ThresholdType string

const (
	// ThresholdTotalHours: lifetime active time, in hours.
	ThresholdTotalHours ThresholdType = "total-hours"
	// ThresholdStreakDays: consecutive active days ending today.
	ThresholdStreakDays ThresholdType = "streak-days"
	// ThresholdLanguageCount: distinct languages ever recorded.
	ThresholdLanguageCount ThresholdType = "distinct-language-count"
	// ThresholdFriendCount: number of accepted friendships.
	ThresholdFriendCount ThresholdType = "friend-count"
	// ThresholdNightCoding: any activity in hours [0,5).
	ThresholdNightCoding ThresholdType = "night-coding-presence"
	// ThresholdEarlyCoding: any activity in hours [5,7).
	ThresholdEarlyCoding ThresholdType = "early-coding-presence"
	// ThresholdSingleDayHours: one day with at least N hours.
	ThresholdSingleDayHours ThresholdType = "single-day-hours"
	// ThresholdWeekendCoding: activity on both a Saturday and a Sunday.
	ThresholdWeekendCoding ThresholdType = "weekend-coding-presence"
)

// Achievement is one entry of the static catalog.
type Achievement struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Type        ThresholdType `json:"type"`
	Value       int64         `json:"value"`
}

// UnlockRecord marks that a user crossed an achievement's threshold.
// (userID, achievementID) is unique: evaluation is idempotent and a
// record is written at most once.
type UnlockRecord struct {
	UserID        string    `json:"userId"`
	AchievementID string    `json:"achievementId"`
	UnlockedAt    time.Time `json:"unlockedAt"`
}
