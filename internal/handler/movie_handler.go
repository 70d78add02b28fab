package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"movie-recommendation-backend/internal/middleware"
	"movie-recommendation-backend/internal/models"
)

// MovieService is the catalog side of the API.
type MovieService interface {
	Trending(ctx context.Context, window string, p models.Pagination) (*models.Page[models.Movie], error)
	Popular(ctx context.Context, p models.Pagination) (*models.Page[models.Movie], error)
	TopRated(ctx context.Context, p models.Pagination) (*models.Page[models.Movie], error)
	Search(ctx context.Context, query string, p models.Pagination) (*models.Page[models.Movie], error)
	Similar(ctx context.Context, tmdbID int64, p models.Pagination) (*models.Page[models.Movie], error)
	Detail(ctx context.Context, tmdbID, userID int64) (*models.MovieDetail, error)
	Genres(ctx context.Context) ([]models.Genre, error)
}

// Recommender produces a user's recommendation page.
type Recommender interface {
	Recommend(ctx context.Context, userID int64, p models.Pagination) *models.RecommendationPage
}

// MovieHandler handles HTTP requests for movies.
type MovieHandler struct {
	svc  MovieService
	recs Recommender
}

// NewMovieHandler creates a new MovieHandler.
func NewMovieHandler(svc MovieService, recs Recommender) *MovieHandler {
	return &MovieHandler{svc: svc, recs: recs}
}

// Health returns service health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /movies/health [get]
func (h *MovieHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "movie-recommendation-backend",
		"version": "1.0.0",
	})
}

// Trending returns trending movies.
// @Summary Trending movies
// @Tags movies
// @Produce json
// @Param time_window query string false "Time window" Enums(day,week) default(week)
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page" default(20)
// @Success 200 {object} models.Page[models.Movie]
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /movies/trending [get]
func (h *MovieHandler) Trending(c fiber.Ctx) error {
	p, err := parsePagination(c)
	if err != nil {
		return writeError(c, err, "")
	}
	page, err := h.svc.Trending(c.Context(), c.Query("time_window", models.TimeWindowWeek), p)
	if err != nil {
		return writeError(c, err, "Failed to fetch trending movies")
	}
	return c.JSON(page)
}

// Popular returns popular movies.
// @Summary Popular movies
// @Tags movies
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page" default(20)
// @Success 200 {object} models.Page[models.Movie]
// @Failure 503 {object} ErrorResponse
// @Router /movies/popular [get]
func (h *MovieHandler) Popular(c fiber.Ctx) error {
	p, err := parsePagination(c)
	if err != nil {
		return writeError(c, err, "")
	}
	page, err := h.svc.Popular(c.Context(), p)
	if err != nil {
		return writeError(c, err, "Failed to fetch popular movies")
	}
	return c.JSON(page)
}

// TopRated returns the top rated movies.
// @Summary Top rated movies
// @Tags movies
// @Produce json
// @Success 200 {object} models.Page[models.Movie]
// @Failure 503 {object} ErrorResponse
// @Router /movies/top-rated [get]
func (h *MovieHandler) TopRated(c fiber.Ctx) error {
	p, err := parsePagination(c)
	if err != nil {
		return writeError(c, err, "")
	}
	page, err := h.svc.TopRated(c.Context(), p)
	if err != nil {
		return writeError(c, err, "Failed to fetch top rated movies")
	}
	return c.JSON(page)
}

// Search searches movies by title.
// @Summary Search movies
// @Tags movies
// @Produce json
// @Param query query string true "Search query"
// @Success 200 {object} models.Page[models.Movie]
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /movies/search [get]
func (h *MovieHandler) Search(c fiber.Ctx) error {
	p, err := parsePagination(c)
	if err != nil {
		return writeError(c, err, "")
	}
	page, err := h.svc.Search(c.Context(), c.Query("query"), p)
	if err != nil {
		return writeError(c, err, "Failed to search movies")
	}
	return c.JSON(page)
}

// Genres lists every movie genre.
// @Summary List genres
// @Tags movies
// @Produce json
// @Success 200 {array} models.Genre
// @Failure 503 {object} ErrorResponse
// @Router /movies/genres [get]
func (h *MovieHandler) Genres(c fiber.Ctx) error {
	genres, err := h.svc.Genres(c.Context())
	if err != nil {
		return writeError(c, err, "Failed to fetch genres")
	}
	return c.JSON(genres)
}

// Detail returns a single movie, annotated for the caller when authenticated.
// @Summary Get movie detail
// @Tags movies
// @Produce json
// @Param id path int true "TMDB movie ID"
// @Success 200 {object} models.MovieDetail
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /movies/{id} [get]
func (h *MovieHandler) Detail(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err, "")
	}
	detail, err := h.svc.Detail(c.Context(), id, middleware.UserID(c))
	if err != nil {
		return writeError(c, err, "Failed to fetch movie details")
	}
	return c.JSON(detail)
}

// Similar returns movies similar to the given one.
// @Summary Similar movies
// @Tags movies
// @Produce json
// @Param id path int true "TMDB movie ID"
// @Success 200 {object} models.Page[models.Movie]
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /movies/{id}/similar [get]
func (h *MovieHandler) Similar(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err, "")
	}
	p, err := parsePagination(c)
	if err != nil {
		return writeError(c, err, "")
	}
	page, err := h.svc.Similar(c.Context(), id, p)
	if err != nil {
		return writeError(c, err, "Failed to fetch similar movies")
	}
	return c.JSON(page)
}

// Recommended returns personalized recommendations for the caller.
// @Summary Recommended movies
// @Tags recommendations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.RecommendationPage
// @Failure 401 {object} ErrorResponse
// @Router /movies/recommended [get]
func (h *MovieHandler) Recommended(c fiber.Ctx) error {
	p, err := parsePagination(c)
	if err != nil {
		return writeError(c, err, "")
	}
	return c.JSON(h.recs.Recommend(c.Context(), middleware.UserID(c), p))
}
