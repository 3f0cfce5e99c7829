// Package repository declares the storage interfaces consumed by the
// service layer. The sqlite subpackage provides the only production
// implementation; tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/arif/codepulse/internal/model"
)

// UserRepository persists accounts and sharing preferences.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByUsername matches case-insensitively.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*model.User, error)
	// Search returns users whose username contains query
	// (case-insensitive), excluding excludeID, at most limit rows.
	Search(ctx context.Context, query, excludeID string, limit int) ([]model.User, error)
	UpdateSettings(ctx context.Context, userID string, settings model.Settings) error
	UpdateAvatar(ctx context.Context, userID, avatar string) error
	UpdateAPIKey(ctx context.Context, userID, apiKey string) error
}

// AggregateRepository persists per-day and per-hour activity totals.
//
// Merge is the only write path. It must apply the delta additively and
// atomically: concurrent merges for the same key never lose an update,
// and the daily and hourly rows move together or not at all.
type AggregateRepository interface {
	Merge(ctx context.Context, userID, day string, hour int, delta model.ActivityDelta, now time.Time) error

	GetDaily(ctx context.Context, userID, day string) (*model.DailyAggregate, error)
	// ListDailyRange returns aggregates for days in [fromDay, toDay],
	// breakdowns included, ordered by day ascending.
	ListDailyRange(ctx context.Context, userID, fromDay, toDay string) ([]model.DailyAggregate, error)
	// SumRange returns the sum of daily totals for days in [fromDay, toDay].
	SumRange(ctx context.Context, userID, fromDay, toDay string) (int64, error)
	// ListHourlyRange returns hourly totals (no breakdowns) for days in
	// [fromDay, toDay], ordered by day then hour.
	ListHourlyRange(ctx context.Context, userID, fromDay, toDay string) ([]model.HourlyAggregate, error)
	// LanguageTotals returns accumulated seconds per language over
	// [fromDay, toDay].
	LanguageTotals(ctx context.Context, userID, fromDay, toDay string) (map[string]int64, error)

	// Measures used by achievement evaluation.
	TotalSeconds(ctx context.Context, userID string) (int64, error)
	MaxDailySeconds(ctx context.Context, userID string) (int64, error)
	// ActiveDays returns every day with a total greater than zero.
	ActiveDays(ctx context.Context, userID string) ([]string, error)
	DistinctLanguageCount(ctx context.Context, userID string) (int, error)
	// HasActiveHourBetween reports whether any hourly aggregate with
	// hour in [fromHour, toHour) has a total greater than zero.
	HasActiveHourBetween(ctx context.Context, userID string, fromHour, toHour int) (bool, error)
}

// FriendRepository maintains the request table and the symmetric edge set.
type FriendRepository interface {
	// CreateRequest inserts a pending request. A duplicate pending
	// request for the same unordered pair fails with a conflict.
	CreateRequest(ctx context.Context, req *model.FriendRequest) error
	GetRequest(ctx context.Context, id string) (*model.FriendRequest, error)
	// ListPendingFor returns pending requests addressed to userID.
	ListPendingFor(ctx context.Context, userID string) ([]model.FriendRequest, error)
	HasPendingBetween(ctx context.Context, userA, userB string) (bool, error)

	// Accept flips a pending request to accepted and inserts both
	// directed edges in one transaction. Returns a conflict if the
	// request is no longer pending.
	Accept(ctx context.Context, requestID string, respondedAt time.Time) error
	// Reject flips a pending request to rejected. Returns a conflict if
	// the request is no longer pending.
	Reject(ctx context.Context, requestID string, respondedAt time.Time) error

	EdgeExists(ctx context.Context, userID, friendID string) (bool, error)
	// DeleteEdges removes both directions; removing absent edges is not
	// an error.
	DeleteEdges(ctx context.Context, userID, friendID string) error
	ListFriendIDs(ctx context.Context, userID string) ([]string, error)
	CountFriends(ctx context.Context, userID string) (int, error)
}

// AchievementRepository persists unlock records.
type AchievementRepository interface {
	// ListUnlocked returns every unlock record for the user.
	ListUnlocked(ctx context.Context, userID string) ([]model.UnlockRecord, error)
	// InsertUnlock writes a record if none exists yet; inserted reports
	// whether this call created it.
	InsertUnlock(ctx context.Context, rec *model.UnlockRecord) (inserted bool, err error)
}

// ChatRepository persists direct messages.
type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *model.ChatMessage) error
	// ListConversation returns messages between the pair, newest first,
	// at most limit rows, optionally only those created before `before`.
	ListConversation(ctx context.Context, userA, userB string, limit int, before *time.Time) ([]model.ChatMessage, error)
	// MarkRead sets readAt=now on every unread message sent from
	// otherID to userID and returns how many rows changed.
	MarkRead(ctx context.Context, userID, otherID string, now time.Time) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
}
