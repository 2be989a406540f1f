// Package model defines the data structures shared across the application.
package model

import "time"

// User represents a registered account.
//
// Accounts come from two places: local registration (user_id + password
// form) and Naver OAuth login. Both are keyed by ExternalID — for local
// accounts it is the login name the user picked, for Naver accounts it is
// "naver:<naver user id>". The UNIQUE constraint on external_id in the DB
// makes duplicate registration a Conflict.
//
// PasswordHash is empty for OAuth-only accounts; those users can never log
// in through the password form (bcrypt comparison against "" always fails).
//
// ProfileImage, BackgroundImage and IntroText are mutated by the profile
// endpoints after account creation. Image fields hold paths relative to
// the upload root, e.g. "profile_pics/<uuid>.jpg", which the /static/
// file server resolves.
type User struct {
	ID              string    `json:"id"`
	ExternalID      string    `json:"externalId"`
	PasswordHash    string    `json:"-"` // never serialized
	Nickname        string    `json:"nickname"`
	ProfileImage    string    `json:"profileImage"`
	BackgroundImage string    `json:"backgroundImage"`
	IntroText       string    `json:"introText"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
