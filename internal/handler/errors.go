package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"movie-recommendation-backend/internal/auth"
	"movie-recommendation-backend/internal/models"
	"movie-recommendation-backend/internal/service"
	"movie-recommendation-backend/internal/tmdb"
	"movie-recommendation-backend/internal/validation"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// MessageResponse carries a human readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeError maps service errors to status codes. fallback is the message
// returned for unexpected errors, which are logged.
func writeError(c fiber.Ctx, err error, fallback string) error {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:  "validation failed",
			Fields: verr.Fields(),
		})
	case errors.Is(err, service.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: publicMessage(err)})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "Invalid credentials"})
	case errors.Is(err, auth.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid or expired token"})
	case errors.Is(err, service.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Error: publicMessage(err)})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: publicMessage(err)})
	case errors.Is(err, service.ErrAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: publicMessage(err)})
	case errors.Is(err, tmdb.ErrBadRequest):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "the movie catalog rejected the request parameters"})
	case errors.Is(err, tmdb.ErrCatalogUnavailable):
		slog.Warn("catalog unavailable", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: fallback})
	}

	slog.Error(fallback, "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: fallback})
}

// publicMessage strips the sentinel prefix ("not found: movie 3" -> "movie 3").
func publicMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{
		service.ErrInvalidInput, service.ErrForbidden, service.ErrNotFound, service.ErrAlreadyExists,
	} {
		if errors.Is(err, sentinel) {
			if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
				return rest
			}
			return msg
		}
	}
	return msg
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}

// parsePagination reads page and page_size. A page below 1 is rejected; the
// page size is clamped into range.
func parsePagination(c fiber.Ctx) (models.Pagination, error) {
	p := models.Pagination{Page: 1, PageSize: models.DefaultPageSize}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return p, validation.NewError("page", "page must be a positive integer")
		}
		if page > models.MaxPage {
			return p, validation.NewError("page", "page is too large")
		}
		p.Page = page
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return p, validation.NewError("page_size", "page_size must be an integer")
		}
		p.PageSize = size
	}

	p.Normalize()
	return p, nil
}

func parseID(c fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id < 1 {
		return 0, validation.NewError(name, name+" must be a positive integer")
	}
	return id, nil
}

func bindBody(c fiber.Ctx, dest any) error {
	if err := c.Bind().JSON(dest); err != nil {
		return validation.NewError("body", "request body must be valid JSON")
	}
	return nil
}

// ErrorHandler renders errors that escape handlers in the ErrorResponse shape.
func ErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		slog.Error("unhandled error", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(ErrorResponse{Error: msg})
}
