package model

import "time"

// Feed is a geotagged post: a blurb of text pinned to a map coordinate,
// with zero or more photos stored in a per-feed folder on disk.
//
// ImageFolder holds the folder path relative to the upload root
// (e.g. "feed_folders/<feed id>"). The folder is created when
// the feed is, and later uploads for the same feed are appended to it.
type Feed struct {
	ID           string    `json:"feed_id"`
	UserID       string    `json:"user_id,omitempty"`
	Latitude     float64   `json:"lat"`
	Longitude    float64   `json:"lng"`
	Introduction string    `json:"feed_introduction"`
	ImageFolder  string    `json:"image_folder,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
