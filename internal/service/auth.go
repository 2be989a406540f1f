// Package service contains the business logic layer.
//
// Handlers parse HTTP and write responses; services validate, enforce
// rules, and orchestrate; repositories talk to the database. Services
// accept plain values and return domain errors from internal/apperror —
// the HTTP mapping happens in one place in the handler package.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/scene-dev/storymap/internal/apperror"
	"github.com/scene-dev/storymap/internal/auth"
	"github.com/scene-dev/storymap/internal/model"
	"github.com/scene-dev/storymap/internal/repository"
)

const (
	MaxExternalIDLength = 64
	MaxNicknameLength   = 50
	MinPasswordLength   = 4

	// naverIDPrefix namespaces OAuth identities in the external_id
	// column so a Naver user id can never collide with a locally chosen
	// login name.
	naverIDPrefix = "naver:"

	// defaultNaverNickname is used when the Naver profile hides the
	// nickname.
	defaultNaverNickname = "네이버사용자"
)

// AuthService owns registration, login (local and Naver), and logout.
type AuthService struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles what a successful login produces: the user record,
// the signed session token for the cookie, and the session row ID.
type AuthResult struct {
	User      *model.User
	Token     string
	SessionID string
}

// Register creates a local account. The second registration of the same
// externalID fails with Conflict (the UNIQUE constraint is the
// authority — no check-then-insert race). The plaintext password exists
// only long enough to be hashed.
func (s *AuthService) Register(ctx context.Context, externalID, password, nickname string) (*model.User, error) {
	externalID = strings.TrimSpace(externalID)
	nickname = strings.TrimSpace(nickname)

	if externalID == "" {
		return nil, apperror.ValidationFailed("user_id", "user id is required")
	}
	if len(externalID) > MaxExternalIDLength {
		return nil, apperror.ValidationFailed("user_id",
			fmt.Sprintf("user id must be %d characters or less", MaxExternalIDLength))
	}
	if strings.HasPrefix(externalID, naverIDPrefix) {
		// Reserved namespace for OAuth accounts.
		return nil, apperror.ValidationFailed("user_id", "user id may not start with \"naver:\"")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if nickname == "" {
		return nil, apperror.ValidationFailed("nickname", "nickname is required")
	}
	if len(nickname) > MaxNicknameLength {
		return nil, apperror.ValidationFailed("nickname",
			fmt.Sprintf("nickname must be %d characters or less", MaxNicknameLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		ExternalID:   externalID,
		PasswordHash: hash,
		Nickname:     nickname,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err // Conflict or a wrapped storage error
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("externalID", user.ExternalID),
	)

	return user, nil
}

// Login authenticates a local account and opens a session.
//
// Unknown id → NotFound; wrong password → Unauthorized. The two cases
// are deliberately distinguishable, matching the original frontend's
// separate "no such id" and "wrong password" messages.
func (s *AuthService) Login(ctx context.Context, externalID, password string) (*AuthResult, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, apperror.ValidationFailed("user_id", "user id is required")
	}

	user, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err // NotFound propagates
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		s.logger.Warn("login failed", slog.String("externalID", externalID))
		return nil, apperror.Unauthorized("invalid password")
	}

	return s.startSession(ctx, user)
}

// LoginNaver completes an OAuth login with an already-verified Naver
// profile: find the local account keyed by the Naver user id, creating
// it on first login, then open a session.
//
// The handler has already checked the anti-forgery state and exchanged
// the code — this method never sees raw OAuth material.
func (s *AuthService) LoginNaver(ctx context.Context, naverUser *auth.NaverUser) (*AuthResult, error) {
	if naverUser == nil || naverUser.ID == "" {
		return nil, fmt.Errorf("service/auth: naver user must not be empty")
	}

	externalID := naverIDPrefix + naverUser.ID

	user, err := s.users.GetByExternalID(ctx, externalID)
	switch {
	case err == nil:
		// Returning user.
	case errors.Is(err, apperror.ErrNotFound):
		nickname := strings.TrimSpace(naverUser.Nickname)
		if nickname == "" {
			nickname = defaultNaverNickname
		}
		user = &model.User{
			ExternalID: externalID,
			Nickname:   nickname,
			// PasswordHash stays empty: OAuth-only accounts cannot use
			// the password form.
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating naver user: %w", err)
		}
		s.logger.Info("user registered via naver", slog.String("userID", user.ID))
	default:
		return nil, err
	}

	return s.startSession(ctx, user)
}

// Logout revokes the session server-side. The token in the browser
// remains signed but dies at the session check on its next use.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("service/auth: revoking session %s: %w", sessionID, err)
	}
	s.logger.Info("session revoked", slog.String("sessionID", sessionID))
	return nil
}

func (s *AuthService) startSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	session := &model.Session{
		ID:        xid.New().String(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(auth.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("service/auth: creating session for user %s: %w", user.ID, err)
	}

	token, err := s.tokens.Generate(user.ID, session.ID, auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("service/auth: signing session token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("sessionID", session.ID),
	)

	return &AuthResult{User: user, Token: token, SessionID: session.ID}, nil
}
