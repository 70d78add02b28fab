package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"movie-recommendation-backend/internal/auth"
	"movie-recommendation-backend/internal/middleware"
	"movie-recommendation-backend/internal/models"
)

// UserService is the account side of the API.
type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, userID int64, refreshToken string) error
	Profile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest) error
	Preferences(ctx context.Context, userID int64) (*models.UserPreference, error)
	UpdatePreferences(ctx context.Context, userID int64, req models.PreferenceRequest) (*models.UserPreference, error)
}

// UserHandler handles HTTP requests for accounts and preferences.
type UserHandler struct {
	svc UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Register creates an account.
// @Summary Register
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.RegisterRequest true "Account"
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func (h *UserHandler) Register(c fiber.Ctx) error {
	var req models.RegisterRequest
	if err := bindBody(c, &req); err != nil {
		return writeError(c, err, "")
	}
	resp, err := h.svc.Register(c.Context(), req)
	if err != nil {
		return writeError(c, err, "Failed to register user")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login exchanges credentials for a token pair.
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "Credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (h *UserHandler) Login(c fiber.Ctx) error {
	var req models.LoginRequest
	if err := bindBody(c, &req); err != nil {
		return writeError(c, err, "")
	}
	resp, err := h.svc.Login(c.Context(), req)
	if err != nil {
		return writeError(c, err, "Failed to log in")
	}
	return c.JSON(resp)
}

// Refresh issues a new access token.
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body models.RefreshRequest true "Refresh token"
// @Success 200 {object} map[string]string
// @Failure 401 {object} ErrorResponse
// @Router /auth/token/refresh [post]
func (h *UserHandler) Refresh(c fiber.Ctx) error {
	var req models.RefreshRequest
	if err := bindBody(c, &req); err != nil {
		return writeError(c, err, "")
	}
	if req.Refresh == "" {
		return badRequest(c, "refresh token is required")
	}
	access, err := h.svc.Refresh(c.Context(), req.Refresh)
	if err != nil {
		return writeError(c, err, "Failed to refresh token")
	}
	return c.JSON(fiber.Map{"access": access})
}

// Logout revokes the caller's refresh token.
// @Summary Logout
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.RefreshRequest true "Refresh token"
// @Success 205 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/logout [post]
func (h *UserHandler) Logout(c fiber.Ctx) error {
	var req models.RefreshRequest
	if err := bindBody(c, &req); err != nil {
		return writeError(c, err, "")
	}
	if req.Refresh == "" {
		return badRequest(c, "refresh token is required")
	}

	err := h.svc.Logout(c.Context(), middleware.UserID(c), req.Refresh)
	if errors.Is(err, auth.ErrInvalidToken) {
		return badRequest(c, "Token is invalid or expired")
	}
	if err != nil {
		return writeError(c, err, "Failed to log out")
	}
	return c.Status(fiber.StatusResetContent).JSON(MessageResponse{Message: "Logout successful"})
}

// Profile returns the caller's profile.
// @Summary Get profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Router /auth/profile [get]
func (h *UserHandler) Profile(c fiber.Ctx) error {
	user, err := h.svc.Profile(c.Context(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err, "Failed to load profile")
	}
	return c.JSON(user)
}

// UpdateProfile edits the caller's profile.
// @Summary Update profile
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/profile [put]
func (h *UserHandler) UpdateProfile(c fiber.Ctx) error {
	var req models.UpdateProfileRequest
	if err := bindBody(c, &req); err != nil {
		return writeError(c, err, "")
	}
	user, err := h.svc.UpdateProfile(c.Context(), middleware.UserID(c), req)
	if err != nil {
		return writeError(c, err, "Failed to update profile")
	}
	return c.JSON(user)
}

// ChangePassword replaces the caller's password.
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.ChangePasswordRequest true "Passwords"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/change-password [post]
func (h *UserHandler) ChangePassword(c fiber.Ctx) error {
	var req models.ChangePasswordRequest
	if err := bindBody(c, &req); err != nil {
		return writeError(c, err, "")
	}
	if err := h.svc.ChangePassword(c.Context(), middleware.UserID(c), req); err != nil {
		return writeError(c, err, "Failed to change password")
	}
	return c.JSON(MessageResponse{Message: "Password changed successfully"})
}

// Preferences returns the caller's recommendation preferences.
// @Summary Get preferences
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserPreference
// @Router /auth/preferences [get]
func (h *UserHandler) Preferences(c fiber.Ctx) error {
	pref, err := h.svc.Preferences(c.Context(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err, "Failed to load preferences")
	}
	return c.JSON(pref)
}

// UpdatePreferences replaces the caller's recommendation preferences.
// @Summary Update preferences
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.PreferenceRequest true "Preferences"
// @Success 200 {object} models.UserPreference
// @Failure 400 {object} ErrorResponse
// @Router /auth/preferences [put]
func (h *UserHandler) UpdatePreferences(c fiber.Ctx) error {
	var req models.PreferenceRequest
	if err := bindBody(c, &req); err != nil {
		return writeError(c, err, "")
	}
	pref, err := h.svc.UpdatePreferences(c.Context(), middleware.UserID(c), req)
	if err != nil {
		return writeError(c, err, "Failed to update preferences")
	}
	return c.JSON(pref)
}
