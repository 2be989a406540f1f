package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/google/uuid"
	"github.com/scene-dev/storymap/internal/apperror"
	"github.com/scene-dev/storymap/internal/media"
	"github.com/scene-dev/storymap/internal/model"
	"github.com/scene-dev/storymap/internal/repository"
)

// feedImageDir is the media-store subdirectory that holds one folder of
// photos per feed, named by the feed ID.
const feedImageDir = "feed_folders"

// clusterRadius maps a map zoom level to the half-width, in degrees, of
// the bounding box queried for that level. The values are part of the
// client contract and must not be retuned: the frontend picks pin sizes
// assuming exactly these boxes. Degrees, not meters, so boxes stretch
// near the poles.
var clusterRadius = map[int]float64{
	14: 0.5,
	13: 1,
	12: 2,
	11: 3,
	10: 5,
	9:  7,
	8:  10,
	7:  20,
	6:  30,
	5:  40,
	4:  50,
	3:  60,
	2:  80,
	1:  100,
}

// ImageUpload is one uploaded photo, decoupled from multipart parsing so
// the service can be driven from tests with plain readers.
type ImageUpload struct {
	Filename string
	Data     io.Reader
}

// FeedService owns geotagged posts: creation with photo folders, text
// updates, point lookups, and the zoom-bounded map query.
type FeedService struct {
	feeds  repository.FeedRepository
	media  *media.Store
	logger *slog.Logger
}

func NewFeedService(feeds repository.FeedRepository, media *media.Store, logger *slog.Logger) *FeedService {
	return &FeedService{feeds: feeds, media: media, logger: logger}
}

func validateCoords(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return apperror.ValidationFailed("lat", "latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return apperror.ValidationFailed("lng", "longitude must be between -180 and 180")
	}
	return nil
}

// Create persists a new feed and its photo folder. The folder exists
// even for a photoless feed so later updates have somewhere to append.
func (s *FeedService) Create(ctx context.Context, ownerID string, lat, lng float64, text string, images []ImageUpload) (*model.Feed, error) {
	if err := validateCoords(lat, lng); err != nil {
		return nil, err
	}

	feed := &model.Feed{
		ID:           uuid.NewString(),
		UserID:       ownerID,
		Latitude:     lat,
		Longitude:    lng,
		Introduction: text,
	}
	subdir := path.Join(feedImageDir, feed.ID)

	folder, err := s.media.EnsureDir(subdir)
	if err != nil {
		return nil, fmt.Errorf("service/feed: creating image folder for feed %s: %w", feed.ID, err)
	}
	feed.ImageFolder = folder

	if err := s.feeds.Create(ctx, feed); err != nil {
		return nil, err
	}

	for _, img := range images {
		if _, err := s.media.Save(subdir, img.Filename, img.Data); err != nil {
			s.logger.Warn("feed image not saved",
				slog.String("feedID", feed.ID),
				slog.String("filename", img.Filename),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("feed created",
		slog.String("feedID", feed.ID),
		slog.String("userID", ownerID),
		slog.Float64("lat", lat),
		slog.Float64("lng", lng),
	)

	return feed, nil
}

// Update replaces the feed's text and appends any new photos to its
// folder. The text change lands first and sticks even when a photo
// fails to save; failed photos are logged and skipped. Returns the
// stored paths of the photos that did save.
func (s *FeedService) Update(ctx context.Context, feedID, text string, images []ImageUpload) ([]string, error) {
	feed, err := s.feeds.GetByID(ctx, feedID)
	if err != nil {
		return nil, err
	}

	if err := s.feeds.UpdateIntroduction(ctx, feedID, text); err != nil {
		return nil, err
	}

	// Folder naming is deterministic by feed ID, so the save target does
	// not depend on the stored ImageFolder string.
	subdir := path.Join(feedImageDir, feed.ID)

	saved := make([]string, 0, len(images))
	for _, img := range images {
		p, err := s.media.Save(subdir, img.Filename, img.Data)
		if err != nil {
			s.logger.Warn("feed image not saved",
				slog.String("feedID", feedID),
				slog.String("filename", img.Filename),
				slog.String("error", err.Error()),
			)
			continue
		}
		saved = append(saved, p)
	}

	return saved, nil
}

func (s *FeedService) Get(ctx context.Context, feedID string) (*model.Feed, error) {
	return s.feeds.GetByID(ctx, feedID)
}

// GetByCoords returns the first-inserted feed pinned at exactly
// (lat, lng). The map frontend sends back the coordinates of a clicked
// pin verbatim, so exact float equality is the intended match.
func (s *FeedService) GetByCoords(ctx context.Context, lat, lng float64) (*model.Feed, error) {
	return s.feeds.GetByCoords(ctx, lat, lng)
}

func (s *FeedService) ListAll(ctx context.Context) ([]model.Feed, error) {
	return s.feeds.List(ctx)
}

// QueryViewport returns every feed inside the closed box
// [center±radius] on both axes, where radius comes from clusterRadius
// for the given zoom level. A zoom outside 1..14 is a validation error.
func (s *FeedService) QueryViewport(ctx context.Context, centerLat, centerLng float64, zoom int) ([]model.Feed, error) {
	radius, ok := clusterRadius[zoom]
	if !ok {
		return nil, apperror.ValidationFailed("zoom",
			fmt.Sprintf("zoom level %d is out of range (1-14)", zoom))
	}
	if err := validateCoords(centerLat, centerLng); err != nil {
		return nil, err
	}

	box := repository.Viewport{
		MinLat: centerLat - radius,
		MaxLat: centerLat + radius,
		MinLng: centerLng - radius,
		MaxLng: centerLng + radius,
	}
	return s.feeds.ListInViewport(ctx, box)
}
