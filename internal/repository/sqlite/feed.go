package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scene-dev/storymap/internal/apperror"
	"github.com/scene-dev/storymap/internal/model"
	"github.com/scene-dev/storymap/internal/repository"
)

// FeedStore implements repository.FeedRepository over the shared pool.
type FeedStore struct {
	conn *sql.DB
}

// compile-time check that *FeedStore implements repository.FeedRepository
var _ repository.FeedRepository = (*FeedStore)(nil)

const feedColumns = `id, user_id, latitude, longitude, introduction,
	image_folder, created_at, updated_at`

// Create inserts a new feed row. The feed ID is a UUID — the image
// folder on disk is named after it, so the service allocates it before
// the insert when it creates the folder; an empty ID gets one here.
//
// A user_id that doesn't reference an existing user fails the foreign-key
// constraint; that surfaces as a validation error because it means the
// session pointed at a deleted account.
func (db *FeedStore) Create(ctx context.Context, feed *model.Feed) error {
	if feed.ID == "" {
		feed.ID = uuid.NewString()
	}
	now := time.Now()
	feed.CreatedAt = now
	feed.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO feeds (id, user_id, latitude, longitude, introduction,
			image_folder, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		feed.ID,
		feed.UserID,
		feed.Latitude,
		feed.Longitude,
		feed.Introduction,
		feed.ImageFolder,
		feed.CreatedAt,
		feed.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return apperror.ValidationFailed("user_id",
				fmt.Sprintf("no such user %s", feed.UserID))
		}
		return fmt.Errorf("sqlite: inserting feed %s: %w", feed.ID, err)
	}

	return nil
}

// GetByID retrieves a feed by ID.
// Returns apperror.ErrNotFound if no feed exists with that ID.
func (db *FeedStore) GetByID(ctx context.Context, id string) (*model.Feed, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id)
	feed, err := scanFeed(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("feed", id)
		}
		return nil, fmt.Errorf("sqlite: getting feed %s: %w", id, err)
	}
	return feed, nil
}

// GetByCoords returns the first-inserted feed at exactly (lat, lng).
// When several feeds share a coordinate only the oldest is reachable
// here — a known limitation of the exact-match lookup the map popup
// uses. Ordering is by created_at with id as tiebreaker so the result
// is stable.
func (db *FeedStore) GetByCoords(ctx context.Context, lat, lng float64) (*model.Feed, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+feedColumns+` FROM feeds
		 WHERE latitude = ? AND longitude = ?
		 ORDER BY created_at, id
		 LIMIT 1`,
		lat, lng)
	feed, err := scanFeed(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("feed", fmt.Sprintf("(%v, %v)", lat, lng))
		}
		return nil, fmt.Errorf("sqlite: getting feed at (%v, %v): %w", lat, lng, err)
	}
	return feed, nil
}

// List returns every feed, oldest first.
func (db *FeedStore) List(ctx context.Context) ([]model.Feed, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+feedColumns+` FROM feeds ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing feeds: %w", err)
	}
	defer rows.Close()
	return collectFeeds(rows)
}

// ListInViewport returns the feeds inside the closed bounding box.
// BETWEEN in SQLite is inclusive on both ends, which matches the
// closed-interval contract of the viewport query.
func (db *FeedStore) ListInViewport(ctx context.Context, box repository.Viewport) ([]model.Feed, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+feedColumns+` FROM feeds
		 WHERE latitude BETWEEN ? AND ?
		   AND longitude BETWEEN ? AND ?
		 ORDER BY created_at, id`,
		box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying feeds in viewport: %w", err)
	}
	defer rows.Close()
	return collectFeeds(rows)
}

// UpdateIntroduction replaces the feed's text.
func (db *FeedStore) UpdateIntroduction(ctx context.Context, id, introduction string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE feeds SET introduction = ?, updated_at = ? WHERE id = ?`,
		introduction, time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating feed %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of feed %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("feed", id)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFeed(s scanner) (*model.Feed, error) {
	var f model.Feed
	err := s.Scan(
		&f.ID,
		&f.UserID,
		&f.Latitude,
		&f.Longitude,
		&f.Introduction,
		&f.ImageFolder,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func collectFeeds(rows *sql.Rows) ([]model.Feed, error) {
	feeds := []model.Feed{}
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning feed row: %w", err)
		}
		feeds = append(feeds, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating feed rows: %w", err)
	}
	return feeds, nil
}
