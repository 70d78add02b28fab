package service

import (
	"context"
	"time"

	"movie-recommendation-backend/internal/models"
	"movie-recommendation-backend/internal/tmdb"
)

// Catalog is the subset of the TMDB client the services use.
type Catalog interface {
	Trending(ctx context.Context, window string, page int) (*tmdb.MoviePage, error)
	Popular(ctx context.Context, page int) (*tmdb.MoviePage, error)
	TopRated(ctx context.Context, page int) (*tmdb.MoviePage, error)
	Search(ctx context.Context, query string, page int) (*tmdb.MoviePage, error)
	Details(ctx context.Context, tmdbID int64) (*tmdb.TMDBMovieDetail, error)
	Similar(ctx context.Context, tmdbID int64, page int) (*tmdb.MoviePage, error)
	Genres(ctx context.Context) ([]tmdb.TMDBGenre, error)
	Discover(ctx context.Context, p tmdb.DiscoverParams) (*tmdb.MoviePage, error)
}

// MovieStore persists catalog records.
type MovieStore interface {
	UpsertMovie(ctx context.Context, m *models.Movie) error
	UpsertMovies(ctx context.Context, movies []models.Movie) error
	GetByTMDBId(ctx context.Context, tmdbID int64) (*models.Movie, error)
	ListPopular(ctx context.Context, limit int) ([]models.Movie, error)
	UpsertGenres(ctx context.Context, genres []models.Genre) error
	ListGenres(ctx context.Context) ([]models.Genre, error)
}

// UserStore persists users, preferences and revoked refresh tokens.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	Taken(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	GetPreference(ctx context.Context, userID int64) (*models.UserPreference, error)
	UpsertPreference(ctx context.Context, pref *models.UserPreference) error
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// CollectionStore persists favorites, the watchlist and ratings, and reads the
// recommendation inputs derived from them.
type CollectionStore interface {
	Add(ctx context.Context, c models.Collection, userID int64, movie models.Movie) (*models.CollectionItem, error)
	List(ctx context.Context, c models.Collection, userID int64, p models.Pagination) ([]models.CollectionItem, int, error)
	Remove(ctx context.Context, c models.Collection, userID, itemID int64) error
	UpsertRating(ctx context.Context, userID int64, movie models.Movie, rating int, review string) (*models.UserRating, bool, error)
	ListRatings(ctx context.Context, userID int64, p models.Pagination) ([]models.UserRating, int, error)
	DeleteRating(ctx context.Context, userID, ratingID int64) error
	RatingSignals(ctx context.Context, userID int64) ([]models.RatingSignal, error)
	FavoriteGenres(ctx context.Context, userID int64) ([]int64, error)
	NeighborRatings(ctx context.Context, userID int64, tmdbIDs []int64, perUser int) ([]models.NeighborRating, error)
	CollectionTMDBIds(ctx context.Context, userID int64) ([]int64, error)
	MovieState(ctx context.Context, userID, tmdbID int64) (models.UserMovieState, error)
}

// MovieResolver returns the stored movie for a TMDB id, fetching it first if needed.
type MovieResolver interface {
	EnsureMovie(ctx context.Context, tmdbID int64) (*models.Movie, error)
}

// PoolSource supplies fresh recommendation candidates from the catalog.
type PoolSource interface {
	CandidatePool(ctx context.Context, size int) ([]models.Movie, error)
}

// PreferenceSource returns a user's preferences.
type PreferenceSource interface {
	Preferences(ctx context.Context, userID int64) (*models.UserPreference, error)
}
