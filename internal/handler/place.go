package handler

import (
	"log/slog"
	"net/http"

	"github.com/scene-dev/storymap/internal/service"
)

// PlaceHandler serves the map search box.
type PlaceHandler struct {
	places *service.PlaceService
	logger *slog.Logger
}

func NewPlaceHandler(places *service.PlaceService, logger *slog.Logger) *PlaceHandler {
	return &PlaceHandler{places: places, logger: logger}
}

// HandleSearch returns scraped places for the query, geocoded where
// possible.
//
// HTTP: GET /search?query=.
func (h *PlaceHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	places, err := h.places.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, places)
}
