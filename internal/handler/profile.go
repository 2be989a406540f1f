package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/scene-dev/storymap/internal/apperror"
	"github.com/scene-dev/storymap/internal/auth"
	"github.com/scene-dev/storymap/internal/service"
)

// maxUploadBytes caps a single multipart upload. Phone photos run a few
// megabytes; 16 MiB leaves headroom without inviting abuse.
const maxUploadBytes = 16 << 20

// ProfileHandler serves the signed-in user's profile and its mutations.
// Every route here sits behind auth.RequireAuth, so the user ID is
// always in the context.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleGetProfile returns the current user's profile.
//
// HTTP: GET /profile.
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateIntro replaces the profile bio.
//
// HTTP: POST /update_intro, form field intro_text.
func (h *ProfileHandler) HandleUpdateIntro(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		writeError(w, apperror.ValidationFailed("form", "could not parse form data"))
		return
	}

	if err := h.profiles.UpdateIntro(r.Context(), userID, r.PostFormValue("intro_text")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// HandleUploadProfilePic stores a new profile picture.
//
// HTTP: POST /upload_profile_pic, multipart field "file".
func (h *ProfileHandler) HandleUploadProfilePic(w http.ResponseWriter, r *http.Request) {
	h.handleImageUpload(w, r, h.profiles.UpdateProfileImage)
}

// HandleUploadBackground stores a new background picture.
//
// HTTP: POST /upload_background, multipart field "file".
func (h *ProfileHandler) HandleUploadBackground(w http.ResponseWriter, r *http.Request) {
	h.handleImageUpload(w, r, h.profiles.UpdateBackgroundImage)
}

// handleImageUpload is the shared multipart plumbing for the two picture
// endpoints; update is the corresponding ProfileService method.
func (h *ProfileHandler) handleImageUpload(
	w http.ResponseWriter,
	r *http.Request,
	update func(ctx context.Context, userID, filename string, data io.Reader) (string, error),
) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperror.ValidationFailed("file", "could not parse upload"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "no file selected"))
		return
	}
	defer file.Close()

	path, err := update(r.Context(), userID, header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"path":    path,
	})
}

// HandleDeleteAccount removes the account, its feeds, and its sessions,
// then clears the cookie.
//
// HTTP: POST /delete_account.
func (h *ProfileHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.profiles.DeleteAccount(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	// The session row is already gone via cascade; just drop the cookie.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
