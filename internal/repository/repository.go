// Package repository declares the storage interfaces consumed by the
// service layer. The sqlite subpackage provides the implementation; tests
// use in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/scene-dev/storymap/internal/model"
)

// Viewport is a closed bounding box for the map query: a row matches when
// MinLat <= lat <= MaxLat and MinLng <= lng <= MaxLng.
type Viewport struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

type UserRepository interface {
	// Create inserts a new user, filling in ID and timestamps.
	// Returns apperror.ErrConflict when external_id is already taken.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByExternalID looks a user up by login name or OAuth key.
	GetByExternalID(ctx context.Context, externalID string) (*model.User, error)
	UpdateIntro(ctx context.Context, id, intro string) error
	UpdateProfileImage(ctx context.Context, id, path string) error
	UpdateBackgroundImage(ctx context.Context, id, path string) error
	// Delete removes the user row; owned feeds cascade.
	Delete(ctx context.Context, id string) error
}

type FeedRepository interface {
	Create(ctx context.Context, feed *model.Feed) error
	GetByID(ctx context.Context, id string) (*model.Feed, error)
	// GetByCoords returns the first-inserted feed at exactly (lat, lng).
	// Later feeds at the same coordinates are not reachable this way.
	GetByCoords(ctx context.Context, lat, lng float64) (*model.Feed, error)
	List(ctx context.Context) ([]model.Feed, error)
	ListInViewport(ctx context.Context, box Viewport) ([]model.Feed, error)
	UpdateIntroduction(ctx context.Context, id, introduction string) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	// Get returns the session row, or apperror.ErrNotFound when the
	// session was revoked or has expired (expired rows are reaped here).
	Get(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired reaps every session past the given instant.
	DeleteExpired(ctx context.Context, now time.Time) error
}
