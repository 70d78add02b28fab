package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"movie-recommendation-backend/internal/auth"
)

const userIDKey = "user_id"

// TokenParser validates access tokens.
type TokenParser interface {
	Parse(token, tokenType string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid Bearer access token and stores
// the caller's user id in locals.
func RequireAuth(tokens TokenParser) fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication credentials were not provided",
			})
		}

		userID, ok := authenticate(tokens, header)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}
		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// OptionalAuth stores the user id when a valid token is present and lets
// anonymous requests through unchanged.
func OptionalAuth(tokens TokenParser) fiber.Handler {
	return func(c fiber.Ctx) error {
		if userID, ok := authenticate(tokens, c.Get("Authorization")); ok {
			c.Locals(userIDKey, userID)
		}
		return c.Next()
	}
}

func authenticate(tokens TokenParser, header string) (int64, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return 0, false
	}

	claims, err := tokens.Parse(token, auth.TokenTypeAccess)
	if err != nil {
		return 0, false
	}
	userID, err := claims.UserID()
	if err != nil {
		return 0, false
	}
	return userID, true
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(c fiber.Ctx) int64 {
	id, _ := c.Locals(userIDKey).(int64)
	return id
}
