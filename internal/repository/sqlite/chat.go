package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/repository"
)

// compile-time check that *DB implements repository.ChatRepository
var _ repository.ChatRepository = (*DB)(nil)

// CreateMessage inserts a direct message, generating its ID and timestamp.
func (db *DB) CreateMessage(ctx context.Context, msg *model.ChatMessage) error {
	msg.ID = xid.New().String()
	msg.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO chat_messages (id, from_user_id, to_user_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.FromUserID, msg.ToUserID, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting chat message: %w", err)
	}
	return nil
}

// ListConversation returns messages between the pair, newest first. If
// before is non-nil only messages created strictly earlier are returned,
// which is how clients page backwards through history.
func (db *DB) ListConversation(ctx context.Context, userA, userB string, limit int, before *time.Time) ([]model.ChatMessage, error) {
	query := `SELECT id, from_user_id, to_user_id, content, created_at, read_at
		 FROM chat_messages
		 WHERE ((from_user_id = ? AND to_user_id = ?)
		     OR (from_user_id = ? AND to_user_id = ?))`
	args := []any{userA, userB, userB, userA}

	if before != nil {
		query += ` AND created_at < ?`
		args = append(args, *before)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing conversation: %w", err)
	}
	defer rows.Close()

	msgs := make([]model.ChatMessage, 0, limit)
	for rows.Next() {
		var msg model.ChatMessage
		var readAt sql.NullTime
		if err := rows.Scan(&msg.ID, &msg.FromUserID, &msg.ToUserID, &msg.Content, &msg.CreatedAt, &readAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning chat message: %w", err)
		}
		if readAt.Valid {
			msg.ReadAt = &readAt.Time
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating conversation: %w", err)
	}
	return msgs, nil
}

// MarkRead stamps readAt on every unread message from otherID to userID.
// The read_at IS NULL guard means a second call changes nothing, so a
// readAt never moves once set.
func (db *DB) MarkRead(ctx context.Context, userID, otherID string, now time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE chat_messages
		 SET read_at = ?
		 WHERE to_user_id = ? AND from_user_id = ? AND read_at IS NULL`,
		now, userID, otherID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: marking messages read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

// CountUnread returns the number of unread messages addressed to userID.
func (db *DB) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE to_user_id = ? AND read_at IS NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting unread messages: %w", err)
	}
	return count, nil
}
