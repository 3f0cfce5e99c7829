// Package service — account and authentication business logic.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/arif/codepulse/internal/apperror"
	"github.com/arif/codepulse/internal/auth"
	"github.com/arif/codepulse/internal/model"
	"github.com/arif/codepulse/internal/repository"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// AuthService handles registration, login, API credentials and account
// settings. JWT issuance lives in the HTTP layer (auth.TokenService);
// this service only deals in users and password hashes.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates an account with default sharing preferences and a
// fresh API key. Usernames are unique case-insensitively; a taken name
// surfaces as Conflict from the store.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d-%d characters", MinUsernameLength, MaxUsernameLength))
	}
	if !usernamePattern.MatchString(username) {
		return nil, apperror.ValidationFailed("username",
			"username may only contain letters, digits, '-' and '_'")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generating api key: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		APIKey:       apiKey,
		Settings:     model.DefaultSettings(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("username", username))
	return user, nil
}

// Login verifies the credentials and returns the user. Wrong username
// and wrong password both surface as the same Forbidden error so the
// response does not reveal which usernames exist.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Forbidden("invalid username or password")
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Forbidden("invalid username or password")
	}

	s.logger.Info("user logged in", slog.String("userId", user.ID))
	return user, nil
}

// UserByAPIKey resolves the opaque API credential sent by editor plugins.
func (s *AuthService) UserByAPIKey(ctx context.Context, apiKey string) (*model.User, error) {
	if apiKey == "" {
		return nil, apperror.ValidationFailed("apiKey", "API key is required")
	}
	return s.users.GetByAPIKey(ctx, apiKey)
}

// UserByID fetches an account.
func (s *AuthService) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// RotateAPIKey replaces the user's API credential and returns the new
// value. The old key stops working immediately.
func (s *AuthService) RotateAPIKey(ctx context.Context, userID string) (string, error) {
	apiKey, err := generateAPIKey()
	if err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	if err := s.users.UpdateAPIKey(ctx, userID, apiKey); err != nil {
		return "", err
	}
	s.logger.Info("api key rotated", slog.String("userId", userID))
	return apiKey, nil
}

// UpdateSettings validates and stores new sharing preferences.
// PostThreshold is hours and must stay within [1,24].
func (s *AuthService) UpdateSettings(ctx context.Context, userID string, settings model.Settings) error {
	if settings.PostThreshold < 1 || settings.PostThreshold > 24 {
		return apperror.ValidationFailed("postThreshold", "postThreshold must be between 1 and 24")
	}
	if err := s.users.UpdateSettings(ctx, userID, settings); err != nil {
		return err
	}
	s.logger.Info("settings updated", slog.String("userId", userID))
	return nil
}

// UpdateAvatar stores a new avatar selection.
func (s *AuthService) UpdateAvatar(ctx context.Context, userID, avatar string) error {
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		return apperror.ValidationFailed("avatar", "avatar is required")
	}
	return s.users.UpdateAvatar(ctx, userID, avatar)
}

// generateAPIKey returns 32 bytes of randomness, hex-encoded.
func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
