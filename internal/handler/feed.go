package handler

import (
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/scene-dev/storymap/internal/apperror"
	"github.com/scene-dev/storymap/internal/auth"
	"github.com/scene-dev/storymap/internal/service"
)

// FeedHandler covers feed creation, updates, point lookups, and the map
// viewport query.
type FeedHandler struct {
	feeds  *service.FeedService
	logger *slog.Logger
}

func NewFeedHandler(feeds *service.FeedService, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{feeds: feeds, logger: logger}
}

// addFeedRequest is the JSON body of POST /add_feed.
type addFeedRequest struct {
	Latitude     *float64 `json:"lat"`
	Longitude    *float64 `json:"lng"`
	Introduction string   `json:"feed_introduction"`
}

// HandleAddFeed creates a photoless feed from a JSON body.
//
// HTTP: POST /add_feed.
func (h *FeedHandler) HandleAddFeed(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req addFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, apperror.ValidationFailed("lat", "lat and lng are required"))
		return
	}

	feed, err := h.feeds.Create(r.Context(), userID, *req.Latitude, *req.Longitude, req.Introduction, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"feed_id": feed.ID,
	})
}

// HandleAddFeedFull creates a feed with photos from a multipart form.
//
// HTTP: POST /add_feed_full, fields latitude, longitude,
// feed_introduction, and any number of "images" files.
func (h *FeedHandler) HandleAddFeedFull(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperror.ValidationFailed("form", "could not parse upload"))
		return
	}

	lat, err := parseCoordField(r, "latitude")
	if err != nil {
		writeError(w, err)
		return
	}
	lng, err := parseCoordField(r, "longitude")
	if err != nil {
		writeError(w, err)
		return
	}

	images, closeAll, err := openImageFiles(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer closeAll()

	feed, err := h.feeds.Create(r.Context(), userID, lat, lng, r.PostFormValue("feed_introduction"), images)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"feed_id": feed.ID,
	})
}

// HandleUpdateFeedFull replaces a feed's text and appends photos.
//
// HTTP: POST /update_feed_full, fields feed_id, feed_introduction,
// "images" files.
func (h *FeedHandler) HandleUpdateFeedFull(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperror.ValidationFailed("form", "could not parse upload"))
		return
	}

	feedID := r.PostFormValue("feed_id")
	if feedID == "" {
		writeError(w, apperror.ValidationFailed("feed_id", "feed_id is required"))
		return
	}

	images, closeAll, err := openImageFiles(r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer closeAll()

	saved, err := h.feeds.Update(r.Context(), feedID, r.PostFormValue("feed_introduction"), images)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"images":  saved,
	})
}

// HandleGetFeeds returns every feed, for the initial map render.
//
// HTTP: GET /get_feeds.
func (h *FeedHandler) HandleGetFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.feeds.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feeds)
}

// HandleQueryFeeds returns the feeds inside the zoom-bounded box around
// the viewport center.
//
// HTTP: GET /feeds?latitude=&longitude=&zoom=.
func (h *FeedHandler) HandleQueryFeeds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := parseCoordParam(q.Get("latitude"), "latitude")
	if err != nil {
		writeError(w, err)
		return
	}
	lng, err := parseCoordParam(q.Get("longitude"), "longitude")
	if err != nil {
		writeError(w, err)
		return
	}
	zoom, err := strconv.Atoi(q.Get("zoom"))
	if err != nil {
		writeError(w, apperror.ValidationFailed("zoom", "zoom must be an integer"))
		return
	}

	feeds, err := h.feeds.QueryViewport(r.Context(), lat, lng, zoom)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feeds)
}

// HandleGetFeedData returns one feed by ID.
//
// HTTP: GET /get_feed_data?feed_id=.
func (h *FeedHandler) HandleGetFeedData(w http.ResponseWriter, r *http.Request) {
	feedID := r.URL.Query().Get("feed_id")
	if feedID == "" {
		writeError(w, apperror.ValidationFailed("feed_id", "feed_id is required"))
		return
	}

	feed, err := h.feeds.Get(r.Context(), feedID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// HandleGetFeedDataByCoords returns the first-inserted feed at exactly
// the given coordinates, the way a clicked pin reports them.
//
// HTTP: GET /get_feed_data_by_coords?lat=&lng=.
func (h *FeedHandler) HandleGetFeedDataByCoords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := parseCoordParam(q.Get("lat"), "lat")
	if err != nil {
		writeError(w, err)
		return
	}
	lng, err := parseCoordParam(q.Get("lng"), "lng")
	if err != nil {
		writeError(w, err)
		return
	}

	feed, err := h.feeds.GetByCoords(r.Context(), lat, lng)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

func parseCoordField(r *http.Request, field string) (float64, error) {
	return parseCoordParam(r.PostFormValue(field), field)
}

func parseCoordParam(raw, field string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperror.ValidationFailed(field, field+" must be a number")
	}
	return v, nil
}

// openImageFiles opens every "images" part of an already-parsed
// multipart form. The returned closer releases all of them; call it
// after the service has consumed the readers.
func openImageFiles(r *http.Request) ([]service.ImageUpload, func(), error) {
	if r.MultipartForm == nil {
		return nil, func() {}, nil
	}

	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	headers := r.MultipartForm.File["images"]
	uploads := make([]service.ImageUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperror.ValidationFailed("images", "could not read uploaded file")
		}
		opened = append(opened, f)
		uploads = append(uploads, service.ImageUpload{Filename: fh.Filename, Data: f})
	}
	return uploads, closeAll, nil
}
