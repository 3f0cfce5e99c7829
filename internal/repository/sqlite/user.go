package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/arif/codepulse/internal/apperror"
	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, password_hash, api_key, avatar,
	share_activity, share_project, share_language, auto_post, post_threshold,
	created_at`

// Create inserts a new user. The ID and CreatedAt are generated here; the
// caller provides username, password hash, API key and settings. A taken
// username (case-insensitive) or API key maps to apperror.Conflict.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.APIKey,
		user.Avatar,
		user.Settings.ShareActivity,
		user.Settings.ShareProjectName,
		user.Settings.ShareLanguage,
		user.Settings.AutoPost,
		user.Settings.PostThreshold,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "username already taken")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUserWhere(ctx, "id = ?", id)
}

// GetByUsername retrieves a user by username, case-insensitively (the
// username column is COLLATE NOCASE).
func (db *DB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUserWhere(ctx, "username = ?", username)
}

// GetByAPIKey retrieves a user by their opaque API credential.
func (db *DB) GetByAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	return db.getUserWhere(ctx, "api_key = ?", apiKey)
}

func (db *DB) getUserWhere(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg,
	).Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.APIKey,
		&u.Avatar,
		&u.Settings.ShareActivity,
		&u.Settings.ShareProjectName,
		&u.Settings.ShareLanguage,
		&u.Settings.AutoPost,
		&u.Settings.PostThreshold,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}
	return &u, nil
}

// likeEscaper neutralizes LIKE metacharacters so the query matches a
// literal substring.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns users whose username contains query, case-insensitively,
// excluding excludeID. Ordered by username for stable results.
func (db *DB) Search(ctx context.Context, query, excludeID string, limit int) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE username LIKE '%' || ? || '%' ESCAPE '\' AND id != ?
		 ORDER BY username
		 LIMIT ?`,
		likeEscaper.Replace(query), excludeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.ID,
			&u.Username,
			&u.PasswordHash,
			&u.APIKey,
			&u.Avatar,
			&u.Settings.ShareActivity,
			&u.Settings.ShareProjectName,
			&u.Settings.ShareLanguage,
			&u.Settings.AutoPost,
			&u.Settings.PostThreshold,
			&u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// UpdateSettings replaces the user's sharing preferences.
func (db *DB) UpdateSettings(ctx context.Context, userID string, settings model.Settings) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET share_activity = ?, share_project = ?, share_language = ?,
		     auto_post = ?, post_threshold = ?
		 WHERE id = ?`,
		settings.ShareActivity,
		settings.ShareProjectName,
		settings.ShareLanguage,
		settings.AutoPost,
		settings.PostThreshold,
		userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating settings for %s: %w", userID, err)
	}
	return requireRowAffected(result, "user", userID)
}

// UpdateAvatar sets the user's avatar selection.
func (db *DB) UpdateAvatar(ctx context.Context, userID, avatar string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET avatar = ? WHERE id = ?`, avatar, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating avatar for %s: %w", userID, err)
	}
	return requireRowAffected(result, "user", userID)
}

// UpdateAPIKey rotates the user's API credential.
func (db *DB) UpdateAPIKey(ctx context.Context, userID, apiKey string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET api_key = ? WHERE id = ?`, apiKey, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating api key for %s: %w", userID, err)
	}
	return requireRowAffected(result, "user", userID)
}

// requireRowAffected translates a zero-row UPDATE/DELETE into NotFound.
func requireRowAffected(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
