package auth

import (
	"context"
	"net/http"

	"github.com/scene-dev/storymap/internal/repository"
)

// SessionCookie is the name of the HttpOnly cookie carrying the signed
// session token.
const SessionCookie = "session"

// contextKey is unexported so only this package can put identity values
// into a request context — no other package can collide with or shadow
// them.
type contextKey string

const (
	userIDKey    contextKey = "userID"
	sessionIDKey contextKey = "sessionID"
)

// RequireAuth enforces a valid session on protected routes.
//
// It reads the session cookie, verifies the token signature, then checks
// that the session row still exists (logout and account deletion both
// remove it). On success the user and session IDs are stashed in the
// request context; otherwise the chain stops with 401.
func RequireAuth(tokens *TokenService, sessions repository.SessionRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, tokens, sessions)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid login session required"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the user identity when a valid session is
// present but never blocks the request. Anonymous viewers can still load
// the map and its feeds.
func OptionalAuth(tokens *TokenService, sessions repository.SessionRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ctx, err := authenticate(r, tokens, sessions); err == nil {
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns the authenticated user's ID, or ("", false)
// for anonymous requests.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// SessionIDFromContext returns the current session's ID. Logout uses it
// to revoke exactly the session that made the request.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

func authenticate(r *http.Request, tokens *TokenService, sessions repository.SessionRepository) (context.Context, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, err
	}

	userID, sessionID, err := tokens.Validate(cookie.Value)
	if err != nil {
		return nil, err
	}

	// Signature checks out — now confirm the session wasn't revoked.
	if _, err := sessions.Get(r.Context(), sessionID); err != nil {
		return nil, err
	}

	ctx := context.WithValue(r.Context(), userIDKey, userID)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return ctx, nil
}
