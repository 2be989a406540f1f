// Package place looks up places by scraping the Naver map search page
// and geocoding the results through the Google Maps geocoding API.
//
// The scraper is best-effort by design: it depends on undocumented
// markup, so a non-200 response or a markup change yields an empty
// result list rather than an error. The only hard failures are transport
// problems building or sending the request.
package place

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/scene-dev/storymap/internal/model"
)

const (
	defaultSearchBaseURL = "https://map.naver.com/v5/search/"
	defaultGeocodeURL    = "https://maps.googleapis.com/maps/api/geocode/json"

	// The search page serves a bot-detection stub without a browser UA.
	browserUserAgent = "Mozilla/5.0"
)

// Client performs place search and geocoding with bounded timeouts.
type Client struct {
	httpClient *http.Client
	apiKey     string

	searchBaseURL string
	geocodeURL    string
}

// NewClient creates a Client. apiKey is the Google Maps geocoding key.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		apiKey:        apiKey,
		searchBaseURL: defaultSearchBaseURL,
		geocodeURL:    defaultGeocodeURL,
	}
}

// Search scrapes the map search page for places matching query.
// Returns an empty slice (not an error) when the page responds non-200
// or the expected markup is missing.
func (c *Client) Search(ctx context.Context, query string) ([]model.Place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.searchBaseURL+url.PathEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("place: building search request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("place: fetching search page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []model.Place{}, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("place: parsing search page: %w", err)
	}

	places := []model.Place{}
	doc.Find(".search_result_item").Each(func(_ int, item *goquery.Selection) {
		name := strings.TrimSpace(item.Find(".place_name").Text())
		address := strings.TrimSpace(item.Find(".place_address").Text())
		if name == "" {
			return
		}
		places = append(places, model.Place{Name: name, Address: address})
	})

	return places, nil
}

// geocodeResponse is the slice of the Google geocoding payload we read.
type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves a place name to coordinates. ok is false when the API
// reports anything but status "OK" or returns no results — callers leave
// the place's coordinates null in that case.
func (c *Client) Geocode(ctx context.Context, placeName string) (lat, lng float64, ok bool, err error) {
	q := url.Values{}
	q.Set("address", placeName)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.geocodeURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, false, fmt.Errorf("place: building geocode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, false, fmt.Errorf("place: calling geocode API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, false, nil
	}

	var payload geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, false, fmt.Errorf("place: decoding geocode response: %w", err)
	}

	if payload.Status != "OK" || len(payload.Results) == 0 {
		return 0, 0, false, nil
	}

	loc := payload.Results[0].Geometry.Location
	return loc.Lat, loc.Lng, true, nil
}
