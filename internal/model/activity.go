package model

import "time"

// DayFormat is the canonical key format for calendar dates, always UTC.
const DayFormat = "2006-01-02"

// ActivityDelta is one incremental report from an editor plugin.
// Seconds is the total active time in the report; the breakdown maps may
// cover less than Seconds (a report can omit breakdowns entirely).
type ActivityDelta struct {
	Seconds   int64            `json:"seconds"`
	Projects  map[string]int64 `json:"projects"`
	Languages map[string]int64 `json:"languages"`
}

// DailyAggregate is the rolling total for one (user, UTC calendar day).
// TotalSeconds only ever grows within a day; the breakdown maps accumulate
// per key. LastUpdate is the wall-clock time of the most recent merge and
// drives presence classification.
type DailyAggregate struct {
	UserID       string           `json:"userId"`
	Day          string           `json:"day"` // YYYY-MM-DD, UTC
	TotalSeconds int64            `json:"totalSeconds"`
	Projects     map[string]int64 `json:"projects"`
	Languages    map[string]int64 `json:"languages"`
	LastUpdate   time.Time        `json:"lastUpdate"`
}

// HourlyAggregate is the same shape keyed by (user, day, hour 0-23).
// The hour is the UTC wall-clock hour at merge time, not anything carried
// inside the client report.
type HourlyAggregate struct {
	UserID       string           `json:"userId"`
	Day          string           `json:"day"`
	Hour         int              `json:"hour"`
	TotalSeconds int64            `json:"totalSeconds"`
	Projects     map[string]int64 `json:"projects"`
	Languages    map[string]int64 `json:"languages"`
	LastUpdate   time.Time        `json:"lastUpdate"`
}

// TopProject returns the project with the highest accumulated seconds.
// Ties are broken by map iteration order, which is arbitrary but stable
// for a given snapshot; callers treat the choice as unspecified.
func (a *DailyAggregate) TopProject() string {
	return topKey(a.Projects)
}

// TopLanguage returns the language with the highest accumulated seconds.
func (a *DailyAggregate) TopLanguage() string {
	return topKey(a.Languages)
}

func topKey(m map[string]int64) string {
	var best string
	var bestSeconds int64 = -1
	for k, v := range m {
		if v > bestSeconds {
			best = k
			bestSeconds = v
		}
	}
	return best
}
