package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/scene-dev/storymap/internal/apperror"
	"github.com/scene-dev/storymap/internal/model"
	"github.com/scene-dev/storymap/internal/repository"
)

// UserStore implements repository.UserRepository over the shared pool.
type UserStore struct {
	conn *sql.DB
}

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

const userColumns = `id, external_id, password_hash, nickname,
	profile_image, background_image, intro_text, created_at, updated_at`

// Create inserts a new user. The caller supplies ExternalID, PasswordHash
// and Nickname; ID and timestamps are filled in here (pointer receiver —
// the caller's struct ends up with the generated values).
//
// A duplicate external_id trips the UNIQUE constraint and comes back as
// apperror.ErrConflict, which is the contract the registration flow
// relies on: no pre-check SELECT, the constraint is the authority.
func (db *UserStore) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, external_id, password_hash, nickname,
			profile_image, background_image, intro_text, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.ExternalID,
		user.PasswordHash,
		user.Nickname,
		user.ProfileImage,
		user.BackgroundImage,
		user.IntroText,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		// modernc.org/sqlite reports constraint violations in the error
		// text; there is no exported errno to match against.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("user", user.ExternalID)
		}
		return fmt.Errorf("sqlite: inserting user (externalID=%s): %w", user.ExternalID, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no such user exists.
func (db *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByExternalID retrieves a user by login name or OAuth key.
func (db *UserStore) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID)
}

func (db *UserStore) getUser(ctx context.Context, query, key string) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx, query, key).Scan(
		&u.ID,
		&u.ExternalID,
		&u.PasswordHash,
		&u.Nickname,
		&u.ProfileImage,
		&u.BackgroundImage,
		&u.IntroText,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", key, err)
	}
	return &u, nil
}

// UpdateIntro replaces the user's bio text.
func (db *UserStore) UpdateIntro(ctx context.Context, id, intro string) error {
	return db.updateUserField(ctx, id, "intro_text", intro)
}

// UpdateProfileImage records the stored path of a new profile picture.
func (db *UserStore) UpdateProfileImage(ctx context.Context, id, path string) error {
	return db.updateUserField(ctx, id, "profile_image", path)
}

// UpdateBackgroundImage records the stored path of a new background picture.
func (db *UserStore) UpdateBackgroundImage(ctx context.Context, id, path string) error {
	return db.updateUserField(ctx, id, "background_image", path)
}

// updateUserField sets one column on one user row. The column name comes
// from a fixed set of call sites above, never from user input.
func (db *UserStore) updateUserField(ctx context.Context, id, column, value string) error {
	res, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = ?, updated_at = ? WHERE id = ?`, column),
		value, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s %s: %w", id, column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of user %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// Delete removes the user row. The ON DELETE CASCADE constraint removes
// the user's feeds and sessions in the same statement.
func (db *UserStore) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete of user %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
