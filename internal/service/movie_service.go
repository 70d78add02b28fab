package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"movie-recommendation-backend/internal/cache"
	"movie-recommendation-backend/internal/config"
	"movie-recommendation-backend/internal/models"
	"movie-recommendation-backend/internal/repository"
	"movie-recommendation-backend/internal/tmdb"
)

// catalogPageSize is the fixed number of results per upstream catalog page.
const catalogPageSize = 20

// catalogPage is one upstream catalog list page as cached.
type catalogPage struct {
	Results      []models.Movie `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// pageFetcher fetches one upstream catalog page.
type pageFetcher func(ctx context.Context, page int) (*tmdb.MoviePage, error)

// MovieService handles business logic for movies.
type MovieService struct {
	repo         MovieStore
	collections  CollectionStore
	catalog      Catalog
	cache        cache.Store
	ttl          config.CacheConfig
	imageBaseURL string
}

// NewMovieService creates a new MovieService.
func NewMovieService(repo MovieStore, collections CollectionStore, catalog Catalog, store cache.Store, cfg *config.Config) *MovieService {
	return &MovieService{
		repo:         repo,
		collections:  collections,
		catalog:      catalog,
		cache:        store,
		ttl:          cfg.Cache,
		imageBaseURL: cfg.TMDB.ImageBaseURL,
	}
}

// ---- Catalog-backed lists ----

// Trending returns trending movies for the "day" or "week" window.
func (s *MovieService) Trending(ctx context.Context, window string, p models.Pagination) (*models.Page[models.Movie], error) {
	if window != models.TimeWindowDay && window != models.TimeWindowWeek {
		return nil, fmt.Errorf("%w: time_window must be day or week", ErrInvalidInput)
	}
	return s.catalogList(ctx, cache.Key("movies:trending", window), s.ttl.TrendingTTL, p,
		func(ctx context.Context, page int) (*tmdb.MoviePage, error) { return s.catalog.Trending(ctx, window, page) })
}

// Popular returns the catalog's popular list.
func (s *MovieService) Popular(ctx context.Context, p models.Pagination) (*models.Page[models.Movie], error) {
	return s.catalogList(ctx, "movies:popular", s.ttl.TrendingTTL, p, s.catalog.Popular)
}

// TopRated returns the catalog's top rated list.
func (s *MovieService) TopRated(ctx context.Context, p models.Pagination) (*models.Page[models.Movie], error) {
	return s.catalogList(ctx, "movies:top_rated", s.ttl.TrendingTTL, p, s.catalog.TopRated)
}

// Search searches the catalog by title.
func (s *MovieService) Search(ctx context.Context, query string, p models.Pagination) (*models.Page[models.Movie], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	return s.catalogList(ctx, cache.Key("movies:search", query), s.ttl.SearchTTL, p,
		func(ctx context.Context, page int) (*tmdb.MoviePage, error) { return s.catalog.Search(ctx, query, page) })
}

// Similar returns movies similar to the given one.
func (s *MovieService) Similar(ctx context.Context, tmdbID int64, p models.Pagination) (*models.Page[models.Movie], error) {
	page, err := s.catalogList(ctx, cache.Key("movies:similar", tmdbID), s.ttl.MovieDetailsTTL, p,
		func(ctx context.Context, page int) (*tmdb.MoviePage, error) { return s.catalog.Similar(ctx, tmdbID, page) })
	if errors.Is(err, tmdb.ErrNotFound) {
		return nil, fmt.Errorf("%w: movie %d", ErrNotFound, tmdbID)
	}
	return page, err
}

// catalogList serves the requested page_size window out of the catalog's
// fixed-size pages. Each upstream page is cached under keyPrefix:<page>.
func (s *MovieService) catalogList(
	ctx context.Context,
	keyPrefix string,
	ttl time.Duration,
	p models.Pagination,
	fetch pageFetcher,
) (*models.Page[models.Movie], error) {
	offset := p.Offset()
	upstream := offset/catalogPageSize + 1
	if upstream > tmdb.MaxPage {
		return nil, fmt.Errorf("%w: page is beyond the catalog's last page", ErrInvalidInput)
	}

	first, err := s.catalogPage(ctx, keyPrefix, upstream, ttl, fetch)
	if err != nil {
		return nil, err
	}

	results := make([]models.Movie, 0, p.PageSize)
	if skip := offset % catalogPageSize; skip < len(first.Results) {
		results = append(results, first.Results[skip:]...)
	}
	for next := upstream + 1; len(results) < p.PageSize && next <= min(first.TotalPages, tmdb.MaxPage); next++ {
		cp, err := s.catalogPage(ctx, keyPrefix, next, ttl, fetch)
		if err != nil {
			return nil, err
		}
		if len(cp.Results) == 0 {
			break
		}
		results = append(results, cp.Results...)
	}
	if len(results) > p.PageSize {
		results = results[:p.PageSize]
	}

	// the catalog reports more results than it will page through
	total := min(first.TotalResults, tmdb.MaxPage*catalogPageSize)
	return &models.Page[models.Movie]{
		Count:      total,
		Page:       p.Page,
		TotalPages: (total + p.PageSize - 1) / p.PageSize,
		Results:    results,
	}, nil
}

// catalogPage is cache-aside around one upstream page.
func (s *MovieService) catalogPage(
	ctx context.Context,
	keyPrefix string,
	page int,
	ttl time.Duration,
	fetch pageFetcher,
) (*catalogPage, error) {
	key := cache.Key(keyPrefix, page)

	var cp catalogPage
	hit, err := s.cache.Get(ctx, key, &cp)
	if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
	}
	if hit {
		return &cp, nil
	}

	result, err := fetch(ctx, page)
	if err != nil {
		return nil, err
	}
	cp = catalogPage{
		Results:      s.store(ctx, result.ToModels()),
		TotalPages:   result.TotalPages,
		TotalResults: result.TotalResults,
	}
	s.setCache(ctx, key, cp, ttl)
	return &cp, nil
}

// store upserts catalog movies and fills image URLs. A storage failure is
// logged; the catalog data is still returned.
func (s *MovieService) store(ctx context.Context, movies []models.Movie) []models.Movie {
	if err := s.repo.UpsertMovies(ctx, movies); err != nil {
		slog.Error("failed to upsert catalog movies", "count", len(movies), "error", err)
	}
	for i := range movies {
		movies[i].SetImageURLs(s.imageBaseURL)
	}
	return movies
}

// ---- Single movies ----

// Detail returns one movie. A non-zero userID annotates it with that user's collections.
func (s *MovieService) Detail(ctx context.Context, tmdbID, userID int64) (*models.MovieDetail, error) {
	key := cache.Key("movies:detail", tmdbID)

	var movie models.Movie
	hit, err := s.cache.Get(ctx, key, &movie)
	if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
	}
	if !hit {
		m, err := s.fetchDetail(ctx, tmdbID)
		if err != nil {
			return nil, err
		}
		movie = *m
		s.setCache(ctx, key, movie, s.ttl.MovieDetailsTTL)
	}

	detail := &models.MovieDetail{Movie: movie}
	if userID > 0 {
		state, err := s.collections.MovieState(ctx, userID, tmdbID)
		if err != nil {
			slog.Warn("failed to load movie state", "user_id", userID, "tmdb_id", tmdbID, "error", err)
		}
		detail.UserMovieState = state
	}
	return detail, nil
}

// fetchDetail loads details from the catalog, falling back to the stored
// record when the catalog is unavailable.
func (s *MovieService) fetchDetail(ctx context.Context, tmdbID int64) (*models.Movie, error) {
	d, err := s.catalog.Details(ctx, tmdbID)
	switch {
	case err == nil:
		m := d.ToModel()
		if err := s.repo.UpsertMovie(ctx, &m); err != nil {
			slog.Error("failed to upsert movie", "tmdb_id", tmdbID, "error", err)
		}
		m.SetImageURLs(s.imageBaseURL)
		return &m, nil
	case errors.Is(err, tmdb.ErrNotFound):
		return nil, fmt.Errorf("%w: movie %d", ErrNotFound, tmdbID)
	}

	stored, dbErr := s.repo.GetByTMDBId(ctx, tmdbID)
	if dbErr != nil {
		return nil, err
	}
	slog.Warn("catalog unavailable, serving stored movie", "tmdb_id", tmdbID, "error", err)
	stored.SetImageURLs(s.imageBaseURL)
	return stored, nil
}

// EnsureMovie returns the stored movie, fetching and storing it from the catalog first if needed.
func (s *MovieService) EnsureMovie(ctx context.Context, tmdbID int64) (*models.Movie, error) {
	m, err := s.repo.GetByTMDBId(ctx, tmdbID)
	if err == nil {
		m.SetImageURLs(s.imageBaseURL)
		return m, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	d, err := s.catalog.Details(ctx, tmdbID)
	if errors.Is(err, tmdb.ErrNotFound) {
		return nil, fmt.Errorf("%w: movie %d", ErrNotFound, tmdbID)
	}
	if err != nil {
		return nil, err
	}

	movie := d.ToModel()
	if err := s.repo.UpsertMovie(ctx, &movie); err != nil {
		return nil, err
	}
	movie.SetImageURLs(s.imageBaseURL)
	return &movie, nil
}

// ---- Genres ----

// Genres returns every genre. When the catalog is down the stored list is served.
func (s *MovieService) Genres(ctx context.Context) ([]models.Genre, error) {
	key := cache.Key("movies:genres")

	var genres []models.Genre
	if hit, err := s.cache.Get(ctx, key, &genres); hit {
		return genres, nil
	} else if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
	}

	if err := s.refreshGenres(ctx); err != nil {
		slog.Warn("failed to refresh genres from catalog", "error", err)
		stored, dbErr := s.repo.ListGenres(ctx)
		if dbErr != nil || len(stored) == 0 {
			return nil, err
		}
		return stored, nil
	}

	genres, err := s.repo.ListGenres(ctx)
	if err != nil {
		return nil, err
	}
	s.setCache(ctx, key, genres, s.ttl.GenresTTL)
	return genres, nil
}

func (s *MovieService) refreshGenres(ctx context.Context) error {
	result, err := s.catalog.Genres(ctx)
	if err != nil {
		return err
	}
	genres := make([]models.Genre, len(result))
	for i, g := range result {
		genres[i] = models.Genre{TMDBId: g.ID, Name: g.Name}
	}
	return s.repo.UpsertGenres(ctx, genres)
}

// ---- Recommendation candidates ----

// CandidatePool gathers up to size distinct movies from trending and popular
// lists, stores them and returns them in catalog order.
func (s *MovieService) CandidatePool(ctx context.Context, size int) ([]models.Movie, error) {
	seen := make(map[int64]bool, size)
	pool := make([]models.Movie, 0, size)
	add := func(page *tmdb.MoviePage) {
		for _, m := range page.ToModels() {
			if len(pool) >= size || seen[m.TMDBId] {
				continue
			}
			seen[m.TMDBId] = true
			pool = append(pool, m)
		}
	}

	var lastErr error
	if page, err := s.catalog.Trending(ctx, models.TimeWindowWeek, 1); err == nil {
		add(page)
	} else {
		lastErr = err
	}

	for p := 1; len(pool) < size; p++ {
		page, err := s.catalog.Popular(ctx, p)
		if err != nil {
			lastErr = err
			break
		}
		before := len(pool)
		add(page)
		if len(pool) == before || p >= page.TotalPages {
			break
		}
	}

	if len(pool) == 0 {
		if lastErr == nil {
			lastErr = errors.New("catalog returned no movies")
		}
		return nil, fmt.Errorf("build candidate pool: %w", lastErr)
	}
	return s.store(ctx, pool), nil
}

// RefreshCatalog re-syncs genres, a few discover pages and the weekly trending
// list into storage, and drops the cached list pages. It returns the number of
// movies stored.
func (s *MovieService) RefreshCatalog(ctx context.Context, pages int) (int, error) {
	slog.Info("starting catalog refresh", "pages", pages)

	if err := s.refreshGenres(ctx); err != nil {
		slog.Error("failed to refresh genres", "error", err)
	}

	total := 0
	var lastErr error
	for page := 1; page <= pages; page++ {
		result, err := s.catalog.Discover(ctx, tmdb.DiscoverParams{Page: page, MinVoteCount: 50})
		if err != nil {
			slog.Error("failed to fetch discover page", "page", page, "error", err)
			lastErr = err
			continue
		}
		movies := result.ToModels()
		if err := s.repo.UpsertMovies(ctx, movies); err != nil {
			return total, fmt.Errorf("store discover page %d: %w", page, err)
		}
		total += len(movies)
	}

	if result, err := s.catalog.Trending(ctx, models.TimeWindowWeek, 1); err == nil {
		movies := result.ToModels()
		if err := s.repo.UpsertMovies(ctx, movies); err != nil {
			return total, fmt.Errorf("store trending: %w", err)
		}
		total += len(movies)
	} else {
		lastErr = err
	}

	keys := []string{cache.Key("movies:genres")}
	for page := 1; page <= pages; page++ {
		keys = append(keys,
			cache.Key("movies:popular", page),
			cache.Key("movies:top_rated", page),
			cache.Key("movies:trending", models.TimeWindowDay, page),
			cache.Key("movies:trending", models.TimeWindowWeek, page),
		)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		slog.Warn("failed to invalidate list cache", "error", err)
	}

	if total == 0 && lastErr != nil {
		return 0, fmt.Errorf("catalog refresh: %w", lastErr)
	}
	slog.Info("catalog refresh completed", "movies", total)
	return total, nil
}

func (s *MovieService) setCache(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		slog.Error("failed to set cache", "key", key, "error", err)
	}
}
