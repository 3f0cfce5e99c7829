package service

import "github.com/arif/codepulse/internal/model"

// Catalog is the static achievement catalog. IDs are stable; unlock
// records reference them, so entries are only ever added, never renamed.
var Catalog = []model.Achievement{
	{ID: "first-hour", Name: "First Hour", Description: "Log your first hour of coding", Type: model.ThresholdTotalHours, Value: 1},
	{ID: "ten-hours", Name: "Getting Serious", Description: "Log 10 total hours", Type: model.ThresholdTotalHours, Value: 10},
	{ID: "hundred-hours", Name: "Century", Description: "Log 100 total hours", Type: model.ThresholdTotalHours, Value: 100},
	{ID: "thousand-hours", Name: "Master of the Craft", Description: "Log 1,000 total hours", Type: model.ThresholdTotalHours, Value: 1000},
	{ID: "streak-3", Name: "Warming Up", Description: "Code 3 days in a row", Type: model.ThresholdStreakDays, Value: 3},
	{ID: "streak-7", Name: "Full Week", Description: "Code 7 days in a row", Type: model.ThresholdStreakDays, Value: 7},
	{ID: "streak-30", Name: "Unstoppable", Description: "Code 30 days in a row", Type: model.ThresholdStreakDays, Value: 30},
	{ID: "polyglot-3", Name: "Polyglot", Description: "Use 3 different languages", Type: model.ThresholdLanguageCount, Value: 3},
	{ID: "polyglot-10", Name: "Hyperpolyglot", Description: "Use 10 different languages", Type: model.ThresholdLanguageCount, Value: 10},
	{ID: "first-friend", Name: "Not Alone", Description: "Make your first friend", Type: model.ThresholdFriendCount, Value: 1},
	{ID: "social-circle", Name: "Social Circle", Description: "Have 10 friends", Type: model.ThresholdFriendCount, Value: 10},
	{ID: "night-owl", Name: "Night Owl", Description: "Code between midnight and 5 AM", Type: model.ThresholdNightCoding, Value: 1},
	{ID: "early-bird", Name: "Early Bird", Description: "Code between 5 and 7 AM", Type: model.ThresholdEarlyCoding, Value: 1},
	{ID: "marathon-8", Name: "Marathon", Description: "Code 8 hours in a single day", Type: model.ThresholdSingleDayHours, Value: 8},
	{ID: "marathon-12", Name: "Ultramarathon", Description: "Code 12 hours in a single day", Type: model.ThresholdSingleDayHours, Value: 12},
	{ID: "weekend-warrior", Name: "Weekend Warrior", Description: "Code on a Saturday and a Sunday", Type: model.ThresholdWeekendCoding, Value: 1},
}
