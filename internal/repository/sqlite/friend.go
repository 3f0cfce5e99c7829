package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/arif/codepulse/internal/apperror"
	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/repository"
)

// compile-time check that *DB implements repository.FriendRepository
var _ repository.FriendRepository = (*DB)(nil)

// CreateRequest inserts a pending request. The partial unique index on
// the unordered pair (see sqlite.go migrations) rejects a concurrent
// duplicate from either direction; that surfaces here as Conflict.
func (db *DB) CreateRequest(ctx context.Context, req *model.FriendRequest) error {
	req.ID = xid.New().String()
	req.Status = model.RequestPending
	req.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO friend_requests (id, from_user_id, to_user_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		req.ID, req.FromUserID, req.ToUserID, req.Status, req.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("friend request", "a pending request already exists")
		}
		return fmt.Errorf("sqlite: inserting friend request: %w", err)
	}

	return nil
}

// GetRequest retrieves a request by ID.
func (db *DB) GetRequest(ctx context.Context, id string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	var respondedAt sql.NullTime
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, from_user_id, to_user_id, status, created_at, responded_at
		 FROM friend_requests WHERE id = ?`,
		id,
	).Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Status, &req.CreatedAt, &respondedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("friend request", id)
		}
		return nil, fmt.Errorf("sqlite: getting friend request %s: %w", id, err)
	}
	if respondedAt.Valid {
		req.RespondedAt = &respondedAt.Time
	}
	return &req, nil
}

// ListPendingFor returns pending requests addressed to userID, oldest
// first.
func (db *DB) ListPendingFor(ctx context.Context, userID string) ([]model.FriendRequest, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, from_user_id, to_user_id, status, created_at
		 FROM friend_requests
		 WHERE to_user_id = ? AND status = ?
		 ORDER BY created_at`,
		userID, model.RequestPending,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing pending requests: %w", err)
	}
	defer rows.Close()

	var reqs []model.FriendRequest
	for rows.Next() {
		var req model.FriendRequest
		if err := rows.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Status, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning friend request: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating pending requests: %w", err)
	}
	return reqs, nil
}

// HasPendingBetween reports whether a pending request exists between the
// pair, in either direction.
func (db *DB) HasPendingBetween(ctx context.Context, userA, userB string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE status = ?
			  AND ((from_user_id = ? AND to_user_id = ?)
			    OR (from_user_id = ? AND to_user_id = ?))
		 )`,
		model.RequestPending, userA, userB, userB, userA,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking pending request: %w", err)
	}
	return exists, nil
}

// Accept flips a pending request to accepted and inserts both directed
// edges, all inside one transaction. The UPDATE carries a status guard:
// if another call already responded, zero rows change and we return
// Conflict without touching the edge table. No observer can ever see an
// accepted request without its edges or edges with a still-pending
// request.
func (db *DB) Accept(ctx context.Context, requestID string, respondedAt time.Time) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning accept tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE friend_requests
		 SET status = ?, responded_at = ?
		 WHERE id = ? AND status = ?`,
		model.RequestAccepted, respondedAt, requestID, model.RequestPending,
	)
	if err != nil {
		return fmt.Errorf("sqlite: accepting request %s: %w", requestID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.Conflict("friend request", "request already responded to")
	}

	var fromID, toID string
	err = tx.QueryRowContext(ctx,
		`SELECT from_user_id, to_user_id FROM friend_requests WHERE id = ?`,
		requestID,
	).Scan(&fromID, &toID)
	if err != nil {
		return fmt.Errorf("sqlite: reading accepted request %s: %w", requestID, err)
	}

	// Both directions in the same transaction keeps the edge set
	// symmetric. INSERT OR IGNORE tolerates a pre-existing edge.
	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO friend_edges (user_id, friend_id, created_at)
		 VALUES (?, ?, ?), (?, ?, ?)`,
		fromID, toID, respondedAt,
		toID, fromID, respondedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting friend edges: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing accept: %w", err)
	}
	return nil
}

// Reject flips a pending request to rejected. Same status guard as
// Accept; no edges are created.
func (db *DB) Reject(ctx context.Context, requestID string, respondedAt time.Time) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE friend_requests
		 SET status = ?, responded_at = ?
		 WHERE id = ? AND status = ?`,
		model.RequestRejected, respondedAt, requestID, model.RequestPending,
	)
	if err != nil {
		return fmt.Errorf("sqlite: rejecting request %s: %w", requestID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.Conflict("friend request", "request already responded to")
	}
	return nil
}

// EdgeExists reports whether a directed edge exists. Because edges are
// always written in symmetric pairs, one direction suffices.
func (db *DB) EdgeExists(ctx context.Context, userID, friendID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM friend_edges WHERE user_id = ? AND friend_id = ?)`,
		userID, friendID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking friend edge: %w", err)
	}
	return exists, nil
}

// DeleteEdges removes both directions. Idempotent: deleting edges that
// do not exist is not an error.
func (db *DB) DeleteEdges(ctx context.Context, userID, friendID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM friend_edges
		 WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)`,
		userID, friendID, friendID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting friend edges: %w", err)
	}
	return nil
}

// ListFriendIDs returns the IDs of everyone the user has an edge to.
func (db *DB) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT friend_id FROM friend_edges WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing friends: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning friend id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating friends: %w", err)
	}
	return ids, nil
}

// CountFriends returns the number of edges owned by the user.
func (db *DB) CountFriends(ctx context.Context, userID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM friend_edges WHERE user_id = ?`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting friends: %w", err)
	}
	return count, nil
}
