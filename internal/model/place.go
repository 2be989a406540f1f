package model

// Place is a search result from the external place lookup. Name and
// Address come from the scraped search page; Lat/Lng are filled in by a
// follow-up geocoding call and stay nil when geocoding fails.
type Place struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}
