// Package storage persists browser sessions in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"kern/internal/auth"
)

// SQLiteSessionStore implements auth.SessionStore on a SQLite file.
type SQLiteSessionStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteSessionStore opens (creating if needed) the database at dbPath
// and applies pending migrations.
func NewSQLiteSessionStore(dbPath string) (*SQLiteSessionStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := migrateSessions(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteSessionStore{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *SQLiteSessionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteSessionStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const selectSession = `
SELECT key, access_token, refresh_token, token_type, expires_at, user_id, email
FROM sessions WHERE key = ?`

// Get loads the session stored under key.
func (s *SQLiteSessionStore) Get(ctx context.Context, key string) (*auth.Session, error) {
	var (
		sess      auth.Session
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, selectSession, key).Scan(
		&sess.Key,
		&sess.AccessToken,
		&sess.RefreshToken,
		&sess.TokenType,
		&expiresAt,
		&sess.User.ID,
		&sess.User.Email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	if expiresAt > 0 {
		sess.ExpiresAt = time.Unix(expiresAt, 0)
	}
	return &sess, nil
}

const upsertSession = `
INSERT INTO sessions (key, access_token, refresh_token, token_type, expires_at, user_id, email, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    access_token  = excluded.access_token,
    refresh_token = excluded.refresh_token,
    token_type    = excluded.token_type,
    expires_at    = excluded.expires_at,
    user_id       = excluded.user_id,
    email         = excluded.email,
    updated_at    = excluded.updated_at`

// Put inserts or replaces a session.
func (s *SQLiteSessionStore) Put(ctx context.Context, sess *auth.Session) error {
	var expiresAt int64
	if !sess.ExpiresAt.IsZero() {
		expiresAt = sess.ExpiresAt.Unix()
	}
	now := s.now().Unix()

	_, err := s.db.ExecContext(ctx, upsertSession,
		sess.Key,
		sess.AccessToken,
		sess.RefreshToken,
		sess.TokenType,
		expiresAt,
		sess.User.ID,
		sess.User.Email,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Delete removes the session stored under key. Deleting a missing key
// is not an error.
func (s *SQLiteSessionStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Count returns the number of stored sessions.
func (s *SQLiteSessionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
