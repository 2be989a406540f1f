package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/scene-dev/storymap/internal/apperror"
	"github.com/scene-dev/storymap/internal/model"
	"github.com/scene-dev/storymap/internal/repository"
)

// SessionStore implements repository.SessionRepository over the shared
// pool. Sessions live in the database rather than in process memory so
// logins survive a server restart and logout is a durable revocation.
type SessionStore struct {
	conn *sql.DB
}

var _ repository.SessionRepository = (*SessionStore)(nil)

// Create inserts a session row. The caller supplies ID, UserID and
// ExpiresAt (the ID must match the token's jti claim).
func (s *SessionStore) Create(ctx context.Context, session *model.Session) error {
	session.CreatedAt = time.Now()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at)
		 VALUES (?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting session for user %s: %w", session.UserID, err)
	}
	return nil
}

// Get returns the session row. A session that was revoked, or whose
// expires_at has passed, comes back as apperror.ErrNotFound — expired
// rows are deleted on the way out so the table doesn't accumulate them.
func (s *SessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}

	if sess.Expired(time.Now()) {
		// Lazy reaping: an expired session behaves exactly like a
		// revoked one.
		_ = s.Delete(ctx, id)
		return nil, apperror.NotFound("session", id)
	}

	return &sess, nil
}

// Delete revokes a session. Deleting an already-gone session is not an
// error — logout must be idempotent.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}
	return nil
}

// DeleteExpired reaps every session past the given instant.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now); err != nil {
		return fmt.Errorf("sqlite: deleting expired sessions: %w", err)
	}
	return nil
}
