package place

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const searchPage = `<html><body>
  <div class="search_result_item">
    <span class="place_name">남산서울타워</span>
    <span class="place_address">서울 용산구 남산공원길 105</span>
  </div>
  <div class="search_result_item">
    <span class="place_name">남산도서관</span>
    <span class="place_address">서울 용산구 소월로 109</span>
  </div>
</body></html>`

func newTestClient(t *testing.T, searchStatus int, searchBody string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != browserUserAgent {
			t.Errorf("search request User-Agent = %q", got)
		}
		w.WriteHeader(searchStatus)
		fmt.Fprint(w, searchBody)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key")
	c.searchBaseURL = srv.URL + "/v5/search/"
	return c
}

func TestSearch_ParsesResults(t *testing.T) {
	c := newTestClient(t, http.StatusOK, searchPage)

	places, err := c.Search(context.Background(), "남산")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(places) != 2 {
		t.Fatalf("Search() returned %d places, want 2", len(places))
	}
	if places[0].Name != "남산서울타워" {
		t.Errorf("Name = %q, want %q", places[0].Name, "남산서울타워")
	}
	if places[0].Address != "서울 용산구 남산공원길 105" {
		t.Errorf("Address = %q", places[0].Address)
	}
}

func TestSearch_Non200ReturnsEmpty(t *testing.T) {
	c := newTestClient(t, http.StatusForbidden, "blocked")

	places, err := c.Search(context.Background(), "남산")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(places) != 0 {
		t.Errorf("Search() returned %d places on a non-200 response, want 0", len(places))
	}
}

func TestSearch_UnexpectedMarkupReturnsEmpty(t *testing.T) {
	c := newTestClient(t, http.StatusOK, `<html><body><p>redesigned page</p></body></html>`)

	places, err := c.Search(context.Background(), "남산")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(places) != 0 {
		t.Errorf("Search() returned %d places from unrecognized markup, want 0", len(places))
	}
}

func newTestGeocoder(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("geocode request key = %q", got)
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key")
	c.geocodeURL = srv.URL
	return c
}

func TestGeocode_OK(t *testing.T) {
	c := newTestGeocoder(t, http.StatusOK,
		`{"status":"OK","results":[{"geometry":{"location":{"lat":37.5512,"lng":126.9882}}}]}`)

	lat, lng, ok, err := c.Geocode(context.Background(), "남산서울타워")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if !ok {
		t.Fatal("Geocode() ok = false, want true")
	}
	if lat != 37.5512 || lng != 126.9882 {
		t.Errorf("Geocode() = (%v, %v), want (37.5512, 126.9882)", lat, lng)
	}
}

func TestGeocode_ZeroResults(t *testing.T) {
	c := newTestGeocoder(t, http.StatusOK, `{"status":"ZERO_RESULTS","results":[]}`)

	_, _, ok, err := c.Geocode(context.Background(), "nowhere")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if ok {
		t.Error("Geocode() ok = true for ZERO_RESULTS, want false")
	}
}

func TestGeocode_HTTPError(t *testing.T) {
	c := newTestGeocoder(t, http.StatusBadGateway, "")

	_, _, ok, err := c.Geocode(context.Background(), "남산")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if ok {
		t.Error("Geocode() ok = true on a non-200 response, want false")
	}
}
