package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"movie-recommendation-backend/internal/middleware"
	"movie-recommendation-backend/internal/models"
)

// CollectionService is the favorites, watchlist and ratings side of the API.
type CollectionService interface {
	AddFavorite(ctx context.Context, userID int64, req models.CollectionRequest) (*models.CollectionItem, error)
	ListFavorites(ctx context.Context, userID int64, p models.Pagination) (*models.Page[models.CollectionItem], error)
	RemoveFavorite(ctx context.Context, userID, itemID int64) error
	AddToWatchlist(ctx context.Context, userID int64, req models.CollectionRequest) (*models.CollectionItem, error)
	ListWatchlist(ctx context.Context, userID int64, p models.Pagination) (*models.Page[models.CollectionItem], error)
	RemoveFromWatchlist(ctx context.Context, userID, itemID int64) error
	RateMovie(ctx context.Context, userID int64, req models.RatingRequest) (*models.UserRating, bool, error)
	ListRatings(ctx context.Context, userID int64, p models.Pagination) (*models.Page[models.UserRating], error)
	DeleteRating(ctx context.Context, userID, ratingID int64) error
}

// CollectionHandler handles the caller's movie collections.
type CollectionHandler struct {
	svc CollectionService
}

// NewCollectionHandler creates a new CollectionHandler.
func NewCollectionHandler(svc CollectionService) *CollectionHandler {
	return &CollectionHandler{svc: svc}
}

// ListFavorites godoc
// @Summary List favorites
// @Tags collections
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Page[models.CollectionItem]
// @Router /users/favorites [get]
func (h *CollectionHandler) ListFavorites(c fiber.Ctx) error {
	p, err := parsePagination(c)
	if err != nil {
		return writeError(c, err, "")
	}
	page, err := h.svc.ListFavorites(c.Context(), middleware.UserID(c), p)
	if err != nil {
		return writeError(c, err, "Failed to list favorites")
	}
	return c.JSON(page)
}

// AddFavorite godoc
// @Summary Add a favorite
// @Tags collections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.CollectionRequest true "Movie"
// @Success 201 {object} models.CollectionItem
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users/favorites [post]
func (h *CollectionHandler) AddFavorite(c fiber.Ctx) error {
	var req models.CollectionRequest
	if err := bindBody(c, &req); err != nil {
		return writeError(c, err, "")
	}
	item, err := h.svc.AddFavorite(c.Context(), middleware.UserID(c), req)
	if err != nil {
		return writeError(c, err, "Failed to add favorite")
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// RemoveFavorite godoc
// @Summary Remove a favorite
// @Tags collections
// @Security BearerAuth
// @Param id path int true "Favorite entry ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /users/favorites/{id} [delete]
func (h *CollectionHandler) RemoveFavorite(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err, "")
	}
	if err := h.svc.RemoveFavorite(c.Context(), middleware.UserID(c), id); err != nil {
		return writeError(c, err, "Failed to remove favorite")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListWatchlist godoc
// @Summary List watchlist
// @Tags collections
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Page[models.CollectionItem]
// @Router /users/watchlist [get]
func (h *CollectionHandler) ListWatchlist(c fiber.Ctx) error {
	p, err := parsePagination(c)
	if err != nil {
		return writeError(c, err, "")
	}
	page, err := h.svc.ListWatchlist(c.Context(), middleware.UserID(c), p)
	if err != nil {
		return writeError(c, err, "Failed to list watchlist")
	}
	return c.JSON(page)
}

// AddToWatchlist godoc
// @Summary Add to watchlist
// @Tags collections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.CollectionRequest true "Movie"
// @Success 201 {object} models.CollectionItem
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users/watchlist [post]
func (h *CollectionHandler) AddToWatchlist(c fiber.Ctx) error {
	var req models.CollectionRequest
	if err := bindBody(c, &req); err != nil {
		return writeError(c, err, "")
	}
	item, err := h.svc.AddToWatchlist(c.Context(), middleware.UserID(c), req)
	if err != nil {
		return writeError(c, err, "Failed to add to watchlist")
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// RemoveFromWatchlist godoc
// @Summary Remove from watchlist
// @Tags collections
// @Security BearerAuth
// @Param id path int true "Watchlist entry ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /users/watchlist/{id} [delete]
func (h *CollectionHandler) RemoveFromWatchlist(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err, "")
	}
	if err := h.svc.RemoveFromWatchlist(c.Context(), middleware.UserID(c), id); err != nil {
		return writeError(c, err, "Failed to remove from watchlist")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListRatings godoc
// @Summary List ratings
// @Tags collections
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Page[models.UserRating]
// @Router /users/ratings [get]
func (h *CollectionHandler) ListRatings(c fiber.Ctx) error {
	p, err := parsePagination(c)
	if err != nil {
		return writeError(c, err, "")
	}
	page, err := h.svc.ListRatings(c.Context(), middleware.UserID(c), p)
	if err != nil {
		return writeError(c, err, "Failed to list ratings")
	}
	return c.JSON(page)
}

// RateMovie godoc
// @Summary Rate a movie
// @Description Creates the rating (201) or replaces an existing one (200).
// @Tags collections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.RatingRequest true "Rating"
// @Success 200 {object} models.UserRating
// @Success 201 {object} models.UserRating
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/ratings [post]
func (h *CollectionHandler) RateMovie(c fiber.Ctx) error {
	var req models.RatingRequest
	if err := bindBody(c, &req); err != nil {
		return writeError(c, err, "")
	}
	rating, created, err := h.svc.RateMovie(c.Context(), middleware.UserID(c), req)
	if err != nil {
		return writeError(c, err, "Failed to rate movie")
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(rating)
}

// DeleteRating godoc
// @Summary Delete a rating
// @Tags collections
// @Security BearerAuth
// @Param id path int true "Rating ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /users/ratings/{id} [delete]
func (h *CollectionHandler) DeleteRating(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err, "")
	}
	if err := h.svc.DeleteRating(c.Context(), middleware.UserID(c), id); err != nil {
		return writeError(c, err, "Failed to delete rating")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
