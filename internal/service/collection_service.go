package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"movie-recommendation-backend/internal/cache"
	"movie-recommendation-backend/internal/models"
	"movie-recommendation-backend/internal/repository"
	"movie-recommendation-backend/internal/validation"
)

// CollectionService manages favorites, the watchlist and ratings.
type CollectionService struct {
	repo   CollectionStore
	movies MovieResolver
	cache  cache.Store
}

// NewCollectionService creates a new CollectionService.
func NewCollectionService(repo CollectionStore, movies MovieResolver, store cache.Store) *CollectionService {
	return &CollectionService{repo: repo, movies: movies, cache: store}
}

// AddFavorite adds a movie to the user's favorites.
func (s *CollectionService) AddFavorite(ctx context.Context, userID int64, req models.CollectionRequest) (*models.CollectionItem, error) {
	return s.add(ctx, models.CollectionFavorites, userID, req)
}

// ListFavorites lists the user's favorites, newest first.
func (s *CollectionService) ListFavorites(ctx context.Context, userID int64, p models.Pagination) (*models.Page[models.CollectionItem], error) {
	return s.list(ctx, models.CollectionFavorites, userID, p)
}

// RemoveFavorite deletes one of the user's favorite entries.
func (s *CollectionService) RemoveFavorite(ctx context.Context, userID, itemID int64) error {
	return s.remove(ctx, models.CollectionFavorites, userID, itemID)
}

// AddToWatchlist adds a movie to the user's watchlist.
func (s *CollectionService) AddToWatchlist(ctx context.Context, userID int64, req models.CollectionRequest) (*models.CollectionItem, error) {
	return s.add(ctx, models.CollectionWatchlist, userID, req)
}

// ListWatchlist lists the user's watchlist, newest first.
func (s *CollectionService) ListWatchlist(ctx context.Context, userID int64, p models.Pagination) (*models.Page[models.CollectionItem], error) {
	return s.list(ctx, models.CollectionWatchlist, userID, p)
}

// RemoveFromWatchlist deletes one of the user's watchlist entries.
func (s *CollectionService) RemoveFromWatchlist(ctx context.Context, userID, itemID int64) error {
	return s.remove(ctx, models.CollectionWatchlist, userID, itemID)
}

func (s *CollectionService) add(ctx context.Context, c models.Collection, userID int64, req models.CollectionRequest) (*models.CollectionItem, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, err
	}
	movie, err := s.movies.EnsureMovie(ctx, req.TMDBId)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.Add(ctx, c, userID, *movie)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("%w: movie already in %s", ErrAlreadyExists, c)
	}
	if err != nil {
		return nil, fmt.Errorf("add to %s: %w", c, err)
	}

	s.invalidate(ctx, userID)
	slog.Info("movie added to collection", "collection", c, "user_id", userID, "tmdb_id", req.TMDBId)
	return item, nil
}

func (s *CollectionService) list(ctx context.Context, c models.Collection, userID int64, p models.Pagination) (*models.Page[models.CollectionItem], error) {
	items, total, err := s.repo.List(ctx, c, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	return models.NewPage(items, total, p), nil
}

func (s *CollectionService) remove(ctx context.Context, c models.Collection, userID, itemID int64) error {
	err := s.repo.Remove(ctx, c, userID, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s entry %d", ErrNotFound, c, itemID)
	}
	if err != nil {
		return fmt.Errorf("remove from %s: %w", c, err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// RateMovie creates or replaces the user's rating of a movie. created reports
// whether a new rating was stored.
func (s *CollectionService) RateMovie(ctx context.Context, userID int64, req models.RatingRequest) (*models.UserRating, bool, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, false, err
	}
	movie, err := s.movies.EnsureMovie(ctx, req.TMDBId)
	if err != nil {
		return nil, false, err
	}

	rating, created, err := s.repo.UpsertRating(ctx, userID, *movie, req.Rating, req.Review)
	if err != nil {
		return nil, false, fmt.Errorf("rate movie: %w", err)
	}

	s.invalidate(ctx, userID)
	slog.Info("movie rated", "user_id", userID, "tmdb_id", req.TMDBId, "rating", req.Rating, "created", created)
	return rating, created, nil
}

// ListRatings lists the user's ratings, most recently updated first.
func (s *CollectionService) ListRatings(ctx context.Context, userID int64, p models.Pagination) (*models.Page[models.UserRating], error) {
	ratings, total, err := s.repo.ListRatings(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return models.NewPage(ratings, total, p), nil
}

// DeleteRating deletes one of the user's ratings.
func (s *CollectionService) DeleteRating(ctx context.Context, userID, ratingID int64) error {
	err := s.repo.DeleteRating(ctx, userID, ratingID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: rating %d", ErrNotFound, ratingID)
	}
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *CollectionService) invalidate(ctx context.Context, userID int64) {
	if err := s.cache.Delete(ctx, recommendationsKey(userID)); err != nil {
		slog.Warn("failed to invalidate recommendations", "user_id", userID, "error", err)
	}
}
