package sqlite

import (
	"context"
	"fmt"

	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/repository"
)

// compile-time check that *DB implements repository.AchievementRepository
var _ repository.AchievementRepository = (*DB)(nil)

// ListUnlocked returns every unlock record for the user, oldest first.
func (db *DB) ListUnlocked(ctx context.Context, userID string) ([]model.UnlockRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, achievement_id, unlocked_at
		 FROM unlock_records
		 WHERE user_id = ?
		 ORDER BY unlocked_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing unlocks: %w", err)
	}
	defer rows.Close()

	var recs []model.UnlockRecord
	for rows.Next() {
		var rec model.UnlockRecord
		if err := rows.Scan(&rec.UserID, &rec.AchievementID, &rec.UnlockedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning unlock record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating unlocks: %w", err)
	}
	return recs, nil
}

// InsertUnlock writes an unlock record at most once per
// (user, achievement). INSERT OR IGNORE plus the primary key makes
// repeated evaluation idempotent; inserted tells the caller whether this
// call actually created the record.
func (db *DB) InsertUnlock(ctx context.Context, rec *model.UnlockRecord) (bool, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO unlock_records (user_id, achievement_id, unlocked_at)
		 VALUES (?, ?, ?)`,
		rec.UserID, rec.AchievementID, rec.UnlockedAt,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting unlock record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n > 0, nil
}
