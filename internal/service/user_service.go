package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"movie-recommendation-backend/internal/auth"
	"movie-recommendation-backend/internal/cache"
	"movie-recommendation-backend/internal/config"
	"movie-recommendation-backend/internal/models"
	"movie-recommendation-backend/internal/repository"
	"movie-recommendation-backend/internal/validation"
)

// UserService handles accounts, tokens and preferences.
type UserService struct {
	repo   UserStore
	tokens *auth.TokenManager
	cache  cache.Store
	cfg    *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(repo UserStore, tokens *auth.TokenManager, store cache.Store, cfg *config.Config) *UserService {
	return &UserService{repo: repo, tokens: tokens, cache: store, cfg: cfg}
}

func preferenceKey(userID int64) string {
	return cache.Key("user:pref", userID)
}

func recommendationsKey(userID int64) string {
	return cache.Key("recommendations:user", userID)
}

// Register creates an account and signs the user in.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(req.Password, s.cfg.Auth.MinPasswordLength); err != nil {
		return nil, validation.NewError("password", err.Error())
	}

	emailTaken, usernameTaken, err := s.repo.Taken(ctx, req.Email, req.Username)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if emailTaken {
		return nil, fmt.Errorf("%w: a user with that email already exists", ErrAlreadyExists)
	}
	if usernameTaken {
		return nil, fmt.Errorf("%w: a user with that username already exists", ErrAlreadyExists)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:       req.Username,
		Email:          req.Email,
		PasswordHash:   hash,
		Bio:            req.Bio,
		BirthDate:      req.BirthDate,
		FavoriteGenres: req.FavoriteGenres,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: user already exists", ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return s.authResponse(user, "User registered successfully")
}

// Login checks credentials and returns a fresh token pair.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.authResponse(user, "Login successful")
}

func (s *UserService) authResponse(user *models.User, message string) (*models.AuthResponse, error) {
	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		User:    user,
		Access:  pair.Access,
		Refresh: pair.Refresh,
		Message: message,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	revoked, err := s.repo.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return "", fmt.Errorf("%w: token has been revoked", auth.ErrInvalidToken)
	}
	userID, _ := claims.UserID()
	return s.tokens.IssueAccess(userID)
}

// Logout revokes the user's refresh token.
func (s *UserService) Logout(ctx context.Context, userID int64, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return err
	}
	if owner, _ := claims.UserID(); owner != userID {
		return fmt.Errorf("%w: token belongs to another user", ErrForbidden)
	}
	if err := s.repo.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	slog.Info("user logged out", "user_id", userID)
	return nil
}

// Profile returns the user with their preferences.
func (s *UserService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	pref, err := s.Preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Preferences = pref
	return user, nil
}

// UpdateProfile applies the non-nil fields of req.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.User, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if name != user.Username {
			_, taken, err := s.repo.Taken(ctx, "", name)
			if err != nil {
				return nil, fmt.Errorf("check username: %w", err)
			}
			if taken {
				return nil, fmt.Errorf("%w: a user with that username already exists", ErrAlreadyExists)
			}
			user.Username = name
		}
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.BirthDate != nil {
		user.BirthDate = *req.BirthDate
	}
	if req.FavoriteGenres != nil {
		user.FavoriteGenres = *req.FavoriteGenres
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: a user with that username already exists", ErrAlreadyExists)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest) error {
	if err := validation.ValidateStruct(req); err != nil {
		return err
	}
	if err := auth.ValidatePassword(req.NewPassword, s.cfg.Auth.MinPasswordLength); err != nil {
		return validation.NewError("new_password", err.Error())
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, req.OldPassword) {
		return validation.NewError("old_password", "Old password is not correct")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	slog.Info("password changed", "user_id", userID)
	return nil
}

func (s *UserService) getUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Preferences retrieves user preferences with caching.
func (s *UserService) Preferences(ctx context.Context, userID int64) (*models.UserPreference, error) {
	key := preferenceKey(userID)

	var pref models.UserPreference
	if hit, err := s.cache.Get(ctx, key, &pref); hit {
		pref.UserID = userID
		return &pref, nil
	} else if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
	}

	stored, err := s.repo.GetPreference(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	if err := s.cache.Set(ctx, key, stored, s.cfg.Cache.PreferencesTTL); err != nil {
		slog.Warn("failed to cache preferences", "user_id", userID, "error", err)
	}
	return stored, nil
}

// UpdatePreferences replaces the user's preferences and drops the cached
// preferences and recommendations.
func (s *UserService) UpdatePreferences(ctx context.Context, userID int64, req models.PreferenceRequest) (*models.UserPreference, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}

	pref := &models.UserPreference{
		UserID:             userID,
		PreferredGenres:    dedupeInt64(req.PreferredGenres),
		PreferredLanguages: normalizeLanguages(req.PreferredLanguages),
		MinRating:          req.MinRating,
	}
	if err := s.repo.UpsertPreference(ctx, pref); err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}

	if err := s.cache.Delete(ctx, preferenceKey(userID), recommendationsKey(userID)); err != nil {
		slog.Warn("failed to invalidate preference cache", "user_id", userID, "error", err)
	}
	slog.Info("preferences updated", "user_id", userID)
	return pref, nil
}

func dedupeInt64(in []int64) []int64 {
	seen := make(map[int64]bool, len(in))
	out := make([]int64, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func normalizeLanguages(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
