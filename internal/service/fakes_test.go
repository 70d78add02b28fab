package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"movie-recommendation-backend/internal/cache"
	"movie-recommendation-backend/internal/config"
	"movie-recommendation-backend/internal/models"
	"movie-recommendation-backend/internal/repository"
	"movie-recommendation-backend/internal/tmdb"
)

func testConfig() *config.Config {
	return &config.Config{
		TMDB: config.TMDBConfig{ImageBaseURL: "https://img.test/t/p/"},
		Auth: config.AuthConfig{
			JWTSecret:         "service-test-secret",
			AccessTokenTTL:    time.Minute,
			RefreshTokenTTL:   time.Hour,
			MinPasswordLength: 8,
		},
		Cache: config.CacheConfig{
			TrendingTTL:        time.Hour,
			SearchTTL:          time.Hour,
			MovieDetailsTTL:    time.Hour,
			GenresTTL:          time.Hour,
			RecommendationsTTL: time.Hour,
			PreferencesTTL:     time.Hour,
		},
		Recommender: config.RecommenderConfig{
			ContentWeight:       0.6,
			CollaborativeWeight: 0.4,
			NeighborCount:       10,
			PositiveThreshold:   7,
			PoolSize:            10,
			PoolTimeout:         50 * time.Millisecond,
			LastGoodPoolTTL:     24 * time.Hour,
			MaxNeighborMovies:   100,
		},
	}
}

func newTestCache(t *testing.T) (cache.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewRedisStore(rdb), mr
}

func movie(tmdbID int64, popularity float64, genres ...int64) models.Movie {
	return models.Movie{
		TMDBId:           tmdbID,
		Title:            "Movie",
		Popularity:       popularity,
		VoteAverage:      7,
		GenreIDs:         genres,
		OriginalLanguage: "en",
		PosterPath:       "/p.jpg",
	}
}

func tmdbMovie(id int64, genres ...int64) tmdb.TMDBMovie {
	return tmdb.TMDBMovie{ID: id, Title: "Movie", Popularity: float64(100 - id), GenreIDs: genres, OriginalLanguage: "en"}
}

// ---- catalog ----

type fakeCatalog struct {
	mu    sync.Mutex
	calls map[string]int

	pages   map[string]*tmdb.MoviePage
	// numbered overrides pages for specific upstream page numbers
	numbered map[string]map[int]*tmdb.MoviePage
	details map[int64]*tmdb.TMDBMovieDetail
	genres  []tmdb.TMDBGenre
	err     error
	block   bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		calls:   make(map[string]int),
		pages:    make(map[string]*tmdb.MoviePage),
		numbered: make(map[string]map[int]*tmdb.MoviePage),
		details:  make(map[int64]*tmdb.TMDBMovieDetail),
	}
}

func (f *fakeCatalog) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeCatalog) page(ctx context.Context, name string, n int) (*tmdb.MoviePage, error) {
	f.mu.Lock()
	f.calls[name]++
	block, err := f.block, f.err
	p := f.pages[name]
	if np, ok := f.numbered[name][n]; ok {
		p = np
	}
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &tmdb.MoviePage{Page: 1, TotalPages: 1}, nil
	}
	return p, nil
}

func (f *fakeCatalog) Trending(ctx context.Context, window string, page int) (*tmdb.MoviePage, error) {
	return f.page(ctx, "trending", page)
}

func (f *fakeCatalog) Popular(ctx context.Context, page int) (*tmdb.MoviePage, error) {
	return f.page(ctx, "popular", page)
}

func (f *fakeCatalog) TopRated(ctx context.Context, page int) (*tmdb.MoviePage, error) {
	return f.page(ctx, "top_rated", page)
}

func (f *fakeCatalog) Search(ctx context.Context, query string, page int) (*tmdb.MoviePage, error) {
	return f.page(ctx, "search", page)
}

func (f *fakeCatalog) Similar(ctx context.Context, tmdbID int64, page int) (*tmdb.MoviePage, error) {
	return f.page(ctx, "similar", page)
}

func (f *fakeCatalog) Discover(ctx context.Context, p tmdb.DiscoverParams) (*tmdb.MoviePage, error) {
	return f.page(ctx, "discover", p.Page)
}

func (f *fakeCatalog) Details(ctx context.Context, tmdbID int64) (*tmdb.TMDBMovieDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["details"]++
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.details[tmdbID]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	return d, nil
}

func (f *fakeCatalog) Genres(ctx context.Context) ([]tmdb.TMDBGenre, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["genres"]++
	if f.err != nil {
		return nil, f.err
	}
	return f.genres, nil
}

// ---- movie store ----

type fakeMovieStore struct {
	mu      sync.Mutex
	movies  map[int64]models.Movie
	genres  []models.Genre
	nextID  int64
	upserts int
	err     error
}

func newFakeMovieStore(movies ...models.Movie) *fakeMovieStore {
	s := &fakeMovieStore{movies: make(map[int64]models.Movie)}
	for _, m := range movies {
		_ = s.UpsertMovie(context.Background(), &m)
	}
	return s
}

func (s *fakeMovieStore) UpsertMovie(ctx context.Context, m *models.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.upserts++
	if existing, ok := s.movies[m.TMDBId]; ok {
		m.ID = existing.ID
	} else {
		s.nextID++
		m.ID = s.nextID
	}
	s.movies[m.TMDBId] = *m
	return nil
}

func (s *fakeMovieStore) UpsertMovies(ctx context.Context, movies []models.Movie) error {
	for i := range movies {
		if err := s.UpsertMovie(ctx, &movies[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeMovieStore) GetByTMDBId(ctx context.Context, tmdbID int64) (*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.movies[tmdbID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (s *fakeMovieStore) ListPopular(ctx context.Context, limit int) ([]models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Popularity > out[j].Popularity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeMovieStore) UpsertGenres(ctx context.Context, genres []models.Genre) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.genres = genres
	return nil
}

func (s *fakeMovieStore) ListGenres(ctx context.Context) ([]models.Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.genres, nil
}

// ---- user store ----

type fakeUserStore struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	prefs   map[int64]*models.UserPreference
	revoked map[string]bool
	prefErr error
	reads   int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:   make(map[int64]*models.User),
		prefs:   make(map[int64]*models.UserPreference),
		revoked: make(map[string]bool),
	}
}

func (s *fakeUserStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = int64(len(s.users) + 1)
	copied := *u
	s.users[u.ID] = &copied
	s.prefs[u.ID] = &models.UserPreference{UserID: u.ID, PreferredGenres: []int64{}, PreferredLanguages: []string{}}
	return nil
}

func (s *fakeUserStore) Taken(ctx context.Context, email, username string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var emailTaken, usernameTaken bool
	for _, u := range s.users {
		if u.Email == email {
			emailTaken = true
		}
		if u.Username == username {
			usernameTaken = true
		}
	}
	return emailTaken, usernameTaken, nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) UpdateProfile(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *u
	s.users[u.ID] = &copied
	return nil
}

func (s *fakeUserStore) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *fakeUserStore) GetPreference(ctx context.Context, userID int64) (*models.UserPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.prefErr != nil {
		return nil, s.prefErr
	}
	if p, ok := s.prefs[userID]; ok {
		copied := *p
		return &copied, nil
	}
	return &models.UserPreference{UserID: userID, PreferredGenres: []int64{}, PreferredLanguages: []string{}}, nil
}

func (s *fakeUserStore) UpsertPreference(ctx context.Context, pref *models.UserPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *pref
	s.prefs[pref.UserID] = &copied
	return nil
}

func (s *fakeUserStore) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = true
	return nil
}

func (s *fakeUserStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[jti], nil
}

// ---- collections ----

type fakeCollectionStore struct {
	mu        sync.Mutex
	items     map[models.Collection][]models.CollectionItem
	ratings   []models.UserRating
	neighbors []models.NeighborRating
	nextID    int64
	err       error
}

func newFakeCollectionStore() *fakeCollectionStore {
	return &fakeCollectionStore{items: make(map[models.Collection][]models.CollectionItem)}
}

func (s *fakeCollectionStore) Add(ctx context.Context, c models.Collection, userID int64, m models.Movie) (*models.CollectionItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, it := range s.items[c] {
		if it.UserID == userID && it.Movie.TMDBId == m.TMDBId {
			return nil, repository.ErrDuplicate
		}
	}
	s.nextID++
	item := models.CollectionItem{ID: s.nextID, UserID: userID, Movie: m, CreatedAt: time.Now()}
	s.items[c] = append(s.items[c], item)
	return &item, nil
}

func (s *fakeCollectionStore) List(ctx context.Context, c models.Collection, userID int64, p models.Pagination) ([]models.CollectionItem, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, 0, s.err
	}
	var own []models.CollectionItem
	for _, it := range s.items[c] {
		if it.UserID == userID {
			own = append(own, it)
		}
	}
	page := models.Paginate(own, p)
	return page.Results, len(own), nil
}

func (s *fakeCollectionStore) Remove(ctx context.Context, c models.Collection, userID, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[c]
	for i, it := range items {
		if it.ID == itemID && it.UserID == userID {
			s.items[c] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *fakeCollectionStore) UpsertRating(ctx context.Context, userID int64, m models.Movie, rating int, review string) (*models.UserRating, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.ratings {
		if r.UserID == userID && r.Movie.TMDBId == m.TMDBId {
			s.ratings[i].Rating = rating
			s.ratings[i].Review = review
			updated := s.ratings[i]
			return &updated, false, nil
		}
	}
	s.nextID++
	r := models.UserRating{ID: s.nextID, UserID: userID, Movie: m, Rating: rating, Review: review}
	s.ratings = append(s.ratings, r)
	return &r, true, nil
}

func (s *fakeCollectionStore) ListRatings(ctx context.Context, userID int64, p models.Pagination) ([]models.UserRating, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var own []models.UserRating
	for _, r := range s.ratings {
		if r.UserID == userID {
			own = append(own, r)
		}
	}
	return models.Paginate(own, p).Results, len(own), nil
}

func (s *fakeCollectionStore) DeleteRating(ctx context.Context, userID, ratingID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.ratings {
		if r.ID == ratingID && r.UserID == userID {
			s.ratings = append(s.ratings[:i], s.ratings[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *fakeCollectionStore) RatingSignals(ctx context.Context, userID int64) ([]models.RatingSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.RatingSignal
	for _, r := range s.ratings {
		if r.UserID == userID {
			out = append(out, models.RatingSignal{TMDBId: r.Movie.TMDBId, Rating: r.Rating, GenreIDs: r.Movie.GenreIDs})
		}
	}
	return out, nil
}

func (s *fakeCollectionStore) FavoriteGenres(ctx context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []int64
	for _, it := range s.items[models.CollectionFavorites] {
		if it.UserID == userID {
			out = append(out, it.Movie.GenreIDs...)
		}
	}
	return out, nil
}

func (s *fakeCollectionStore) NeighborRatings(ctx context.Context, userID int64, tmdbIDs []int64, perUser int) ([]models.NeighborRating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.neighbors, nil
}

func (s *fakeCollectionStore) CollectionTMDBIds(ctx context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []int64
	for _, items := range s.items {
		for _, it := range items {
			if it.UserID == userID {
				out = append(out, it.Movie.TMDBId)
			}
		}
	}
	for _, r := range s.ratings {
		if r.UserID == userID {
			out = append(out, r.Movie.TMDBId)
		}
	}
	return out, nil
}

func (s *fakeCollectionStore) MovieState(ctx context.Context, userID, tmdbID int64) (models.UserMovieState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var state models.UserMovieState
	for c, items := range s.items {
		for _, it := range items {
			if it.UserID != userID || it.Movie.TMDBId != tmdbID {
				continue
			}
			switch c {
			case models.CollectionFavorites:
				state.IsFavorite = true
			case models.CollectionWatchlist:
				state.InWatchlist = true
			}
		}
	}
	for _, r := range s.ratings {
		if r.UserID == userID && r.Movie.TMDBId == tmdbID {
			state.UserRating = &models.RatingNote{Rating: r.Rating, Review: r.Review}
		}
	}
	return state, nil
}

// ---- pool and preferences ----

type fakePool struct {
	mu    sync.Mutex
	pool  []models.Movie
	err   error
	block bool
	calls int
}

func (p *fakePool) CandidatePool(ctx context.Context, size int) ([]models.Movie, error) {
	p.mu.Lock()
	p.calls++
	block, err, pool := p.block, p.err, p.pool
	p.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return pool, nil
}

type fakePrefs struct {
	pref *models.UserPreference
	err  error
}

func (f *fakePrefs) Preferences(ctx context.Context, userID int64) (*models.UserPreference, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.pref == nil {
		return &models.UserPreference{UserID: userID}, nil
	}
	return f.pref, nil
}

type fakeResolver struct {
	movies map[int64]models.Movie
}

func (r fakeResolver) EnsureMovie(ctx context.Context, tmdbID int64) (*models.Movie, error) {
	m, ok := r.movies[tmdbID]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}
