package model

import "time"

// Session is a server-side login session.
//
// The ID doubles as the "jti" claim of the signed session token the
// browser carries in its cookie. Validating a request therefore means:
// verify the token signature, then confirm this row still exists and has
// not passed ExpiresAt. Logout deletes the row, which revokes the token
// even though its signature remains valid until expiry.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session has passed its TTL.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
