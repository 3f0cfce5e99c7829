package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arif/codepulse/internal/apperror"
	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/repository"
)

// compile-time check that *DB implements repository.AggregateRepository
var _ repository.AggregateRepository = (*DB)(nil)

// Merge applies one activity delta to the daily and hourly aggregates for
// (userID, day, hour) in a single transaction.
//
// Every statement is an additive upsert: ON CONFLICT adds the incoming
// seconds to the stored value instead of replacing it. Combined with
// SQLite's single-writer transactions this makes concurrent merges
// commutative — after N merges of d1..dN the total is exactly the sum,
// regardless of interleaving. There is deliberately no read-then-write
// anywhere on this path.
func (db *DB) Merge(ctx context.Context, userID, day string, hour int, delta model.ActivityDelta, now time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning merge tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO daily_activity (user_id, day, total_seconds, last_update)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, day) DO UPDATE SET
		   total_seconds = total_seconds + excluded.total_seconds,
		   last_update   = excluded.last_update`,
		userID, day, delta.Seconds, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: merging daily total: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO hourly_activity (user_id, day, hour, total_seconds, last_update)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, day, hour) DO UPDATE SET
		   total_seconds = total_seconds + excluded.total_seconds,
		   last_update   = excluded.last_update`,
		userID, day, hour, delta.Seconds, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: merging hourly total: %w", err)
	}

	for project, seconds := range delta.Projects {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO daily_projects (user_id, day, project, seconds)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id, day, project) DO UPDATE SET
			   seconds = seconds + excluded.seconds`,
			userID, day, project, seconds,
		)
		if err != nil {
			return fmt.Errorf("sqlite: merging daily project %q: %w", project, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO hourly_projects (user_id, day, hour, project, seconds)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(user_id, day, hour, project) DO UPDATE SET
			   seconds = seconds + excluded.seconds`,
			userID, day, hour, project, seconds,
		)
		if err != nil {
			return fmt.Errorf("sqlite: merging hourly project %q: %w", project, err)
		}
	}

	for language, seconds := range delta.Languages {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO daily_languages (user_id, day, language, seconds)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(user_id, day, language) DO UPDATE SET
			   seconds = seconds + excluded.seconds`,
			userID, day, language, seconds,
		)
		if err != nil {
			return fmt.Errorf("sqlite: merging daily language %q: %w", language, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO hourly_languages (user_id, day, hour, language, seconds)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(user_id, day, hour, language) DO UPDATE SET
			   seconds = seconds + excluded.seconds`,
			userID, day, hour, language, seconds,
		)
		if err != nil {
			return fmt.Errorf("sqlite: merging hourly language %q: %w", language, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing merge: %w", err)
	}
	return nil
}

// GetDaily returns the aggregate for one (user, day) with its breakdown
// maps populated. Absent day maps to apperror.NotFound.
func (db *DB) GetDaily(ctx context.Context, userID, day string) (*model.DailyAggregate, error) {
	agg := model.DailyAggregate{
		UserID:    userID,
		Day:       day,
		Projects:  make(map[string]int64),
		Languages: make(map[string]int64),
	}

	err := db.conn.QueryRowContext(ctx,
		`SELECT total_seconds, last_update FROM daily_activity
		 WHERE user_id = ? AND day = ?`,
		userID, day,
	).Scan(&agg.TotalSeconds, &agg.LastUpdate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("daily aggregate", userID+"/"+day)
		}
		return nil, fmt.Errorf("sqlite: getting daily aggregate: %w", err)
	}

	if err := db.fillBreakdown(ctx, agg.Projects,
		`SELECT project, seconds FROM daily_projects WHERE user_id = ? AND day = ?`,
		userID, day); err != nil {
		return nil, err
	}
	if err := db.fillBreakdown(ctx, agg.Languages,
		`SELECT language, seconds FROM daily_languages WHERE user_id = ? AND day = ?`,
		userID, day); err != nil {
		return nil, err
	}

	return &agg, nil
}

func (db *DB) fillBreakdown(ctx context.Context, dest map[string]int64, query string, args ...any) error {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: querying breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var seconds int64
		if err := rows.Scan(&key, &seconds); err != nil {
			return fmt.Errorf("sqlite: scanning breakdown row: %w", err)
		}
		dest[key] = seconds
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating breakdown: %w", err)
	}
	return nil
}

// ListDailyRange returns aggregates for days in [fromDay, toDay] with
// breakdowns, ordered by day ascending. Days with no activity are absent.
func (db *DB) ListDailyRange(ctx context.Context, userID, fromDay, toDay string) ([]model.DailyAggregate, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT day, total_seconds, last_update FROM daily_activity
		 WHERE user_id = ? AND day BETWEEN ? AND ?
		 ORDER BY day`,
		userID, fromDay, toDay,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing daily range: %w", err)
	}
	defer rows.Close()

	var aggs []model.DailyAggregate
	for rows.Next() {
		agg := model.DailyAggregate{
			UserID:    userID,
			Projects:  make(map[string]int64),
			Languages: make(map[string]int64),
		}
		if err := rows.Scan(&agg.Day, &agg.TotalSeconds, &agg.LastUpdate); err != nil {
			return nil, fmt.Errorf("sqlite: scanning daily row: %w", err)
		}
		aggs = append(aggs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating daily range: %w", err)
	}

	for i := range aggs {
		if err := db.fillBreakdown(ctx, aggs[i].Projects,
			`SELECT project, seconds FROM daily_projects WHERE user_id = ? AND day = ?`,
			userID, aggs[i].Day); err != nil {
			return nil, err
		}
		if err := db.fillBreakdown(ctx, aggs[i].Languages,
			`SELECT language, seconds FROM daily_languages WHERE user_id = ? AND day = ?`,
			userID, aggs[i].Day); err != nil {
			return nil, err
		}
	}

	return aggs, nil
}

// SumRange returns the sum of daily totals for days in [fromDay, toDay].
func (db *DB) SumRange(ctx context.Context, userID, fromDay, toDay string) (int64, error) {
	var total int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_seconds), 0) FROM daily_activity
		 WHERE user_id = ? AND day BETWEEN ? AND ?`,
		userID, fromDay, toDay,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sqlite: summing daily range: %w", err)
	}
	return total, nil
}

// ListHourlyRange returns hourly totals for days in [fromDay, toDay],
// ordered by day then hour. Breakdown maps are left nil; hourly callers
// only consume totals.
func (db *DB) ListHourlyRange(ctx context.Context, userID, fromDay, toDay string) ([]model.HourlyAggregate, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT day, hour, total_seconds, last_update FROM hourly_activity
		 WHERE user_id = ? AND day BETWEEN ? AND ?
		 ORDER BY day, hour`,
		userID, fromDay, toDay,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing hourly range: %w", err)
	}
	defer rows.Close()

	var aggs []model.HourlyAggregate
	for rows.Next() {
		agg := model.HourlyAggregate{UserID: userID}
		if err := rows.Scan(&agg.Day, &agg.Hour, &agg.TotalSeconds, &agg.LastUpdate); err != nil {
			return nil, fmt.Errorf("sqlite: scanning hourly row: %w", err)
		}
		aggs = append(aggs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating hourly range: %w", err)
	}
	return aggs, nil
}

// LanguageTotals returns accumulated seconds per language over
// [fromDay, toDay].
func (db *DB) LanguageTotals(ctx context.Context, userID, fromDay, toDay string) (map[string]int64, error) {
	totals := make(map[string]int64)
	err := db.fillBreakdown(ctx, totals,
		`SELECT language, SUM(seconds) FROM daily_languages
		 WHERE user_id = ? AND day BETWEEN ? AND ?
		 GROUP BY language`,
		userID, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	return totals, nil
}

// TotalSeconds returns the lifetime sum of daily totals.
func (db *DB) TotalSeconds(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_seconds), 0) FROM daily_activity WHERE user_id = ?`,
		userID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sqlite: summing total seconds: %w", err)
	}
	return total, nil
}

// MaxDailySeconds returns the largest single-day total.
func (db *DB) MaxDailySeconds(ctx context.Context, userID string) (int64, error) {
	var max int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(total_seconds), 0) FROM daily_activity WHERE user_id = ?`,
		userID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("sqlite: finding max daily seconds: %w", err)
	}
	return max, nil
}

// ActiveDays returns every day with a total greater than zero, unordered.
func (db *DB) ActiveDays(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT day FROM daily_activity WHERE user_id = ? AND total_seconds > 0`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing active days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("sqlite: scanning active day: %w", err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating active days: %w", err)
	}
	return days, nil
}

// DistinctLanguageCount returns how many different languages the user has
// ever recorded time against.
func (db *DB) DistinctLanguageCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT language) FROM daily_languages
		 WHERE user_id = ? AND seconds > 0`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting distinct languages: %w", err)
	}
	return count, nil
}

// HasActiveHourBetween reports whether any hourly aggregate with hour in
// [fromHour, toHour) has a total greater than zero.
func (db *DB) HasActiveHourBetween(ctx context.Context, userID string, fromHour, toHour int) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM hourly_activity
			WHERE user_id = ? AND hour >= ? AND hour < ? AND total_seconds > 0
		 )`,
		userID, fromHour, toHour,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking hourly presence: %w", err)
	}
	return exists, nil
}
