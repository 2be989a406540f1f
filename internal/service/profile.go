package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/scene-dev/storymap/internal/apperror"
	"github.com/scene-dev/storymap/internal/media"
	"github.com/scene-dev/storymap/internal/model"
	"github.com/scene-dev/storymap/internal/repository"
)

const (
	MaxIntroLength = 500

	profileImageDir    = "profile_pics"
	backgroundImageDir = "background_pics"
)

// ProfileService reads and mutates the signed-in user's profile.
type ProfileService struct {
	users  repository.UserRepository
	media  *media.Store
	logger *slog.Logger
}

func NewProfileService(users repository.UserRepository, media *media.Store, logger *slog.Logger) *ProfileService {
	return &ProfileService{users: users, media: media, logger: logger}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *ProfileService) UpdateIntro(ctx context.Context, userID, intro string) error {
	intro = strings.TrimSpace(intro)
	if len(intro) > MaxIntroLength {
		return apperror.ValidationFailed("intro_text",
			fmt.Sprintf("intro must be %d characters or less", MaxIntroLength))
	}
	return s.users.UpdateIntro(ctx, userID, intro)
}

// UpdateProfileImage stores the uploaded file and points the user's
// profile_image column at it. The previous image file is left in place:
// stored paths may already be cached by clients.
func (s *ProfileService) UpdateProfileImage(ctx context.Context, userID, filename string, data io.Reader) (string, error) {
	path, err := s.media.Save(profileImageDir, filename, data)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateProfileImage(ctx, userID, path); err != nil {
		return "", err
	}
	s.logger.Info("profile image updated",
		slog.String("userID", userID),
		slog.String("path", path),
	)
	return path, nil
}

func (s *ProfileService) UpdateBackgroundImage(ctx context.Context, userID, filename string, data io.Reader) (string, error) {
	path, err := s.media.Save(backgroundImageDir, filename, data)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateBackgroundImage(ctx, userID, path); err != nil {
		return "", err
	}
	s.logger.Info("background image updated",
		slog.String("userID", userID),
		slog.String("path", path),
	)
	return path, nil
}

// DeleteAccount removes the user row. Owned feeds and open sessions go
// with it via the schema's ON DELETE CASCADE, so a deleted account
// leaves no orphaned pins on the map.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("account deleted", slog.String("userID", userID))
	return nil
}
