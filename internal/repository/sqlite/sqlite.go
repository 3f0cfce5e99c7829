// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// We use modernc.org/sqlite (pure Go, no CGo) registered with database/sql
// under the driver name "sqlite". The database runs in WAL mode so reads
// proceed concurrently with writes; SQLite itself serializes writers, which
// together with the additive upserts in aggregate.go gives the
// lost-update-free merge semantics the service layer relies on.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface (one file per entity in this package).
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath (":memory:" for tests) and runs
// migrations. Ping forces an immediate connection so a bad path surfaces
// here rather than on the first query.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pool connection to ":memory:" would otherwise open its own
	// empty database; pin the pool to one connection so tests see a
	// single store.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	// Serialize busy writers instead of failing immediately. Concurrent
	// merges for the same user hit the same rows; a short busy timeout
	// lets them queue rather than error.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it safe to
// run on every start.
func (db *DB) migrate() error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id             TEXT PRIMARY KEY,
				username       TEXT NOT NULL UNIQUE COLLATE NOCASE,
				password_hash  TEXT NOT NULL,
				api_key        TEXT NOT NULL UNIQUE,
				avatar         TEXT NOT NULL DEFAULT '',
				share_activity INTEGER NOT NULL DEFAULT 1,
				share_project  INTEGER NOT NULL DEFAULT 1,
				share_language INTEGER NOT NULL DEFAULT 1,
				auto_post      INTEGER NOT NULL DEFAULT 0,
				post_threshold INTEGER NOT NULL DEFAULT 4,
				created_at     DATETIME NOT NULL
			);
		`},
		{"daily_activity", `
			CREATE TABLE IF NOT EXISTS daily_activity (
				user_id       TEXT NOT NULL REFERENCES users(id),
				day           TEXT NOT NULL,
				total_seconds INTEGER NOT NULL DEFAULT 0,
				last_update   DATETIME NOT NULL,
				PRIMARY KEY (user_id, day)
			);
		`},
		{"daily_projects", `
			CREATE TABLE IF NOT EXISTS daily_projects (
				user_id TEXT NOT NULL,
				day     TEXT NOT NULL,
				project TEXT NOT NULL,
				seconds INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, day, project)
			);
		`},
		{"daily_languages", `
			CREATE TABLE IF NOT EXISTS daily_languages (
				user_id  TEXT NOT NULL,
				day      TEXT NOT NULL,
				language TEXT NOT NULL,
				seconds  INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, day, language)
			);
		`},
		{"hourly_activity", `
			CREATE TABLE IF NOT EXISTS hourly_activity (
				user_id       TEXT NOT NULL,
				day           TEXT NOT NULL,
				hour          INTEGER NOT NULL,
				total_seconds INTEGER NOT NULL DEFAULT 0,
				last_update   DATETIME NOT NULL,
				PRIMARY KEY (user_id, day, hour)
			);
		`},
		{"hourly_projects", `
			CREATE TABLE IF NOT EXISTS hourly_projects (
				user_id TEXT NOT NULL,
				day     TEXT NOT NULL,
				hour    INTEGER NOT NULL,
				project TEXT NOT NULL,
				seconds INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, day, hour, project)
			);
		`},
		{"hourly_languages", `
			CREATE TABLE IF NOT EXISTS hourly_languages (
				user_id  TEXT NOT NULL,
				day      TEXT NOT NULL,
				hour     INTEGER NOT NULL,
				language TEXT NOT NULL,
				seconds  INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, day, hour, language)
			);
		`},
		{"friend_requests", `
			CREATE TABLE IF NOT EXISTS friend_requests (
				id           TEXT PRIMARY KEY,
				from_user_id TEXT NOT NULL REFERENCES users(id),
				to_user_id   TEXT NOT NULL REFERENCES users(id),
				status       TEXT NOT NULL DEFAULT 'pending',
				created_at   DATETIME NOT NULL,
				responded_at DATETIME
			);
			-- At most one pending request per unordered pair, regardless of
			-- direction. Closes the concurrent-duplicate window at the store.
			CREATE UNIQUE INDEX IF NOT EXISTS idx_friend_requests_pending_pair
				ON friend_requests (min(from_user_id, to_user_id), max(from_user_id, to_user_id))
				WHERE status = 'pending';
		`},
		{"friend_edges", `
			CREATE TABLE IF NOT EXISTS friend_edges (
				user_id    TEXT NOT NULL REFERENCES users(id),
				friend_id  TEXT NOT NULL REFERENCES users(id),
				created_at DATETIME NOT NULL,
				PRIMARY KEY (user_id, friend_id)
			);
		`},
		{"unlock_records", `
			CREATE TABLE IF NOT EXISTS unlock_records (
				user_id        TEXT NOT NULL REFERENCES users(id),
				achievement_id TEXT NOT NULL,
				unlocked_at    DATETIME NOT NULL,
				PRIMARY KEY (user_id, achievement_id)
			);
		`},
		{"chat_messages", `
			CREATE TABLE IF NOT EXISTS chat_messages (
				id           TEXT PRIMARY KEY,
				from_user_id TEXT NOT NULL REFERENCES users(id),
				to_user_id   TEXT NOT NULL REFERENCES users(id),
				content      TEXT NOT NULL,
				created_at   DATETIME NOT NULL,
				read_at      DATETIME
			);
			CREATE INDEX IF NOT EXISTS idx_chat_messages_pair
				ON chat_messages(from_user_id, to_user_id, created_at);
		`},
	}

	for _, s := range stmts {
		if _, err := db.conn.Exec(s.sql); err != nil {
			return fmt.Errorf("creating %s: %w", s.name, err)
		}
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure. modernc.org/sqlite exposes these only through the error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
