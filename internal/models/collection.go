package models

import "time"

// Collection names the per-user movie lists that share the (user, movie) shape.
type Collection string

const (
	CollectionFavorites Collection = "favorites"
	CollectionWatchlist Collection = "watchlist"
)

// CollectionItem is a favorite or watchlist entry.
type CollectionItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Movie     Movie     `json:"movie"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRating is a user's rating of a movie.
type UserRating struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Movie     Movie     `json:"movie"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CollectionRequest is the request body for adding to favorites or the watchlist.
type CollectionRequest struct {
	TMDBId int64 `json:"tmdb_id" validate:"required,min=1"`
}

// RatingRequest is the request body for rating a movie.
type RatingRequest struct {
	TMDBId int64  `json:"tmdb_id" validate:"required,min=1"`
	Rating int    `json:"rating" validate:"min=1,max=10"`
	Review string `json:"review" validate:"max=5000"`
}

const (
	MinRatingValue = 1
	MaxRatingValue = 10
)

// RatingSignal is a rating reduced to what the recommender needs.
type RatingSignal struct {
	TMDBId   int64
	Rating   int
	GenreIDs []int64
}

// NeighborRating is another user's rating of a movie. RatedCount is how many
// movies that user has rated in total; zero means unknown.
type NeighborRating struct {
	UserID     int64
	TMDBId     int64
	Rating     int
	RatedCount int
}
