package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/scene-dev/storymap/internal/apperror"
	"github.com/scene-dev/storymap/internal/model"
)

// PlaceLookup is implemented by internal/place.Client. An interface here
// keeps the scraper and geocoder out of service tests.
type PlaceLookup interface {
	Search(ctx context.Context, query string) ([]model.Place, error)
	Geocode(ctx context.Context, placeName string) (lat, lng float64, ok bool, err error)
}

// PlaceService answers the search box: scrape candidate places for a
// query, then geocode each name so results can be dropped on the map.
type PlaceService struct {
	lookup PlaceLookup
	logger *slog.Logger
}

func NewPlaceService(lookup PlaceLookup, logger *slog.Logger) *PlaceService {
	return &PlaceService{lookup: lookup, logger: logger}
}

// Search returns scraped places for query, each with coordinates when
// the geocoder recognizes the name. Geocoding failures leave the
// coordinates null rather than dropping the place: an address without a
// pin still helps the user.
func (s *PlaceService) Search(ctx context.Context, query string) ([]model.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("query", "search query is required")
	}

	places, err := s.lookup.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	for i := range places {
		lat, lng, ok, err := s.lookup.Geocode(ctx, places[i].Name)
		if err != nil {
			s.logger.Warn("geocoding failed",
				slog.String("place", places[i].Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			continue
		}
		la, ln := lat, lng
		places[i].Lat = &la
		places[i].Lng = &ln
	}

	return places, nil
}
