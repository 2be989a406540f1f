package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/scene-dev/storymap/internal/apperror"
	"github.com/scene-dev/storymap/internal/auth"
	"github.com/scene-dev/storymap/internal/service"
)

// stateCookie carries the OAuth anti-forgery state between the redirect
// to Naver and the callback.
const stateCookie = "oauth_state"

// NaverAuthenticator is the slice of auth.NaverProvider the handler
// needs; tests substitute a fake so no callback test talks to Naver.
type NaverAuthenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.NaverUser, error)
}

// AuthHandler covers registration, local login, the Naver OAuth flow,
// and logout.
type AuthHandler struct {
	auths  *service.AuthService
	naver  NaverAuthenticator
	logger *slog.Logger
}

func NewAuthHandler(auths *service.AuthService, naver NaverAuthenticator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auths: auths, naver: naver, logger: logger}
}

// HandleRegister creates a local account.
//
// HTTP: POST /register, form fields user_id, password, nickname.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, apperror.ValidationFailed("form", "could not parse form data"))
		return
	}

	user, err := h.auths.Register(r.Context(),
		r.PostFormValue("user_id"),
		r.PostFormValue("password"),
		r.PostFormValue("nickname"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user_id": user.ExternalID,
	})
}

// HandleLogin authenticates a local account and sets the session cookie.
//
// HTTP: POST /login, form fields user_id, password.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, apperror.ValidationFailed("form", "could not parse form data"))
		return
	}

	result, err := h.auths.Login(r.Context(),
		r.PostFormValue("user_id"),
		r.PostFormValue("password"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"user_id":  result.User.ExternalID,
		"nickname": result.User.Nickname,
	})
}

// HandleLogout revokes the session server-side and clears the cookie.
//
// HTTP: GET /logout.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := auth.SessionIDFromContext(r.Context()); ok {
		if err := h.auths.Logout(r.Context(), sessionID); err != nil {
			h.logger.Error("logout failed", slog.String("error", err.Error()))
		}
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// HandleNaverLogin starts the OAuth flow: park a random state value in a
// short-lived cookie and bounce the browser to Naver.
//
// HTTP: GET /auth/naver/login.
func (h *AuthHandler) HandleNaverLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.naver.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleNaverCallback finishes the OAuth flow.
//
// HTTP: GET /naver_callback?code=&state=.
//
// The state check runs before anything touches the code: a mismatch
// means the callback was not initiated here, and no token exchange
// happens.
func (h *AuthHandler) HandleNaverCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("naver callback: missing state cookie")
		writeError(w, apperror.ValidationFailed("state", "invalid oauth state"))
		return
	}
	if got := r.URL.Query().Get("state"); got != cookie.Value {
		h.logger.Warn("naver callback: state mismatch",
			slog.String("expected", cookie.Value),
			slog.String("got", got),
		)
		writeError(w, apperror.ValidationFailed("state", "invalid oauth state"))
		return
	}

	// State is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "authorization code is missing"))
		return
	}

	naverUser, err := h.naver.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("naver exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthorized("naver login failed"))
		return
	}

	result, err := h.auths.LoginNaver(r.Context(), naverUser)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, result.Token)
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
