package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"movie-recommendation-backend/internal/cache"
	"movie-recommendation-backend/internal/config"
	"movie-recommendation-backend/internal/metrics"
	"movie-recommendation-backend/internal/models"
	"movie-recommendation-backend/internal/recommend"
)

const (
	poolKey         = "recommend:pool"
	lastGoodPoolKey = "recommend:pool:last"
)

// RecommendationService builds personalized recommendation lists.
type RecommendationService struct {
	collections CollectionStore
	movies      MovieStore
	prefs       PreferenceSource
	pool        PoolSource
	scorer      *recommend.Scorer
	cache       cache.Store
	cfg         *config.Config
	now         func() time.Time
}

// NewRecommendationService creates a new RecommendationService.
func NewRecommendationService(
	collections CollectionStore,
	movies MovieStore,
	prefs PreferenceSource,
	pool PoolSource,
	store cache.Store,
	cfg *config.Config,
) *RecommendationService {
	return &RecommendationService{
		collections: collections,
		movies:      movies,
		prefs:       prefs,
		pool:        pool,
		scorer:      recommend.NewScorer(cfg.Recommender),
		cache:       store,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Recommend returns a page of the user's recommendations. It never fails:
// when inputs are unavailable the list degrades to an unscored popular pool,
// and to an empty degraded list when no pool can be found at all.
func (s *RecommendationService) Recommend(ctx context.Context, userID int64, p models.Pagination) *models.RecommendationPage {
	key := recommendationsKey(userID)

	var list models.RecommendationList
	hit, err := s.cache.Get(ctx, key, &list)
	if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
	}
	if !hit {
		list = s.compute(ctx, userID)
		if list.Source == models.PoolSourceCatalog && !list.Degraded {
			if err := s.cache.Set(ctx, key, list, s.cfg.Cache.RecommendationsTTL); err != nil {
				slog.Warn("failed to cache recommendations", "user_id", userID, "error", err)
			}
		}
	}

	return &models.RecommendationPage{
		Page:         *models.Paginate(list.Results, p),
		Personalized: list.Personalized,
		Source:       list.Source,
		Degraded:     list.Degraded,
		GeneratedAt:  list.GeneratedAt,
	}
}

func (s *RecommendationService) compute(ctx context.Context, userID int64) models.RecommendationList {
	in, inputErr := s.loadInput(ctx, userID)
	if inputErr != nil {
		slog.Error("failed to load recommendation inputs, serving fallback", "user_id", userID, "error", inputErr)
	}

	pool, source := s.candidatePool(ctx)
	in.Pool = pool

	list := models.RecommendationList{
		Source:      source,
		Degraded:    inputErr != nil || source == models.PoolSourceNone,
		GeneratedAt: s.now().UTC(),
	}

	if inputErr == nil && s.scorer.HasSignal(in) {
		neighbors, err := s.neighbors(ctx, userID, in.Ratings)
		if err != nil {
			slog.Error("failed to load neighbour ratings", "user_id", userID, "error", err)
			list.Degraded = true
		}
		in.Neighbors = neighbors
		list.Results = s.scorer.Rank(in)
		list.Personalized = true
	} else {
		list.Results = s.scorer.Fallback(in)
	}

	metrics.Recommendations.WithLabelValues(string(source), strconv.FormatBool(list.Personalized)).Inc()
	slog.Info("recommendations generated",
		"user_id", userID,
		"source", source,
		"personalized", list.Personalized,
		"degraded", list.Degraded,
		"count", len(list.Results),
	)
	return list
}

// loadInput reads the user's signals. On error the returned input still holds
// whatever was loaded before the failure.
func (s *RecommendationService) loadInput(ctx context.Context, userID int64) (recommend.Input, error) {
	var in recommend.Input

	pref, err := s.prefs.Preferences(ctx, userID)
	if err != nil {
		return in, fmt.Errorf("preferences: %w", err)
	}
	in.Preference = pref

	if in.Excluded, err = s.collections.CollectionTMDBIds(ctx, userID); err != nil {
		return in, fmt.Errorf("collections: %w", err)
	}
	if in.Ratings, err = s.collections.RatingSignals(ctx, userID); err != nil {
		return in, fmt.Errorf("ratings: %w", err)
	}
	if in.FavoriteGenres, err = s.collections.FavoriteGenres(ctx, userID); err != nil {
		return in, fmt.Errorf("favorite genres: %w", err)
	}
	return in, nil
}

func (s *RecommendationService) neighbors(ctx context.Context, userID int64, ratings []models.RatingSignal) ([]models.NeighborRating, error) {
	if len(ratings) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(ratings))
	for i, r := range ratings {
		ids[i] = r.TMDBId
	}
	return s.collections.NeighborRatings(ctx, userID, ids, s.cfg.Recommender.MaxNeighborMovies)
}

// candidatePool resolves the pool in order: fresh pool (cached or fetched
// within PoolTimeout), last good pool, stored popular movies.
func (s *RecommendationService) candidatePool(ctx context.Context) ([]models.Movie, models.PoolSource) {
	var pool []models.Movie
	if hit, _ := s.cache.Get(ctx, poolKey, &pool); hit && len(pool) > 0 {
		return pool, models.PoolSourceCatalog
	}

	pool, err := s.fetchPool(ctx)
	if err == nil {
		return pool, models.PoolSourceCatalog
	}
	slog.Warn("catalog pool unavailable", "error", err)

	if hit, _ := s.cache.Get(ctx, lastGoodPoolKey, &pool); hit && len(pool) > 0 {
		return pool, models.PoolSourceCache
	}

	stored, err := s.movies.ListPopular(ctx, s.cfg.Recommender.PoolSize)
	if err != nil {
		slog.Error("failed to load stored popular movies", "error", err)
	}
	if len(stored) > 0 {
		for i := range stored {
			stored[i].SetImageURLs(s.cfg.TMDB.ImageBaseURL)
		}
		return stored, models.PoolSourceDatabase
	}
	return []models.Movie{}, models.PoolSourceNone
}

func (s *RecommendationService) fetchPool(ctx context.Context) ([]models.Movie, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Recommender.PoolTimeout)
	defer cancel()

	pool, err := s.pool.CandidatePool(ctx, s.cfg.Recommender.PoolSize)
	if err != nil {
		return nil, err
	}

	// cache writes must not share the fetch deadline
	bg := context.WithoutCancel(ctx)
	if err := s.cache.Set(bg, poolKey, pool, s.cfg.Cache.TrendingTTL); err != nil {
		slog.Warn("failed to cache candidate pool", "error", err)
	}
	if err := s.cache.Set(bg, lastGoodPoolKey, pool, s.cfg.Recommender.LastGoodPoolTTL); err != nil {
		slog.Warn("failed to cache last good pool", "error", err)
	}
	return pool, nil
}

// WarmPool drops the cached candidate pool and fetches a fresh one.
func (s *RecommendationService) WarmPool(ctx context.Context) error {
	if err := s.cache.Delete(ctx, poolKey); err != nil {
		slog.Warn("failed to drop candidate pool", "error", err)
	}
	pool, err := s.fetchPool(ctx)
	if err != nil {
		return fmt.Errorf("warm candidate pool: %w", err)
	}
	slog.Info("candidate pool warmed", "size", len(pool))
	return nil
}
