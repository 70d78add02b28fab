package models

import (
	"strings"
	"time"
)

// Movie represents a movie stored in our database. TMDBId is the join key with
// the external catalog.
type Movie struct {
	ID               int64     `json:"id"`
	TMDBId           int64     `json:"tmdb_id"`
	Title            string    `json:"title"`
	OriginalTitle    string    `json:"original_title"`
	Overview         string    `json:"overview"`
	PosterPath       string    `json:"poster_path"`
	PosterURL        string    `json:"poster_url"`
	BackdropPath     string    `json:"backdrop_path"`
	BackdropURL      string    `json:"backdrop_url"`
	ReleaseDate      string    `json:"release_date"`
	Runtime          int       `json:"runtime"`
	VoteAverage      float64   `json:"vote_average"`
	VoteCount        int       `json:"vote_count"`
	Popularity       float64   `json:"popularity"`
	GenreIDs         []int64   `json:"genre_ids"`
	OriginalLanguage string    `json:"original_language"`
	Adult            bool      `json:"adult"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Genre represents a movie genre.
type Genre struct {
	ID     int64  `json:"id"`
	TMDBId int64  `json:"tmdb_id"`
	Name   string `json:"name"`
}

// UserMovieState annotates a movie with the requesting user's collections.
type UserMovieState struct {
	IsFavorite  bool        `json:"is_favorite"`
	InWatchlist bool        `json:"in_watchlist"`
	UserRating  *RatingNote `json:"user_rating"`
}

// RatingNote is the short form of a user's rating embedded in movie responses.
type RatingNote struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// MovieDetail is the response shape for a single movie.
type MovieDetail struct {
	Movie
	UserMovieState
}

// TimeWindow values accepted by the trending endpoint.
const (
	TimeWindowDay  = "day"
	TimeWindowWeek = "week"
)

const (
	PosterSize   = "w500"
	BackdropSize = "w1280"
)

// SetImageURLs fills the absolute poster and backdrop URLs from their TMDB paths.
func (m *Movie) SetImageURLs(imageBaseURL string) {
	m.PosterURL = ImageURL(imageBaseURL, PosterSize, m.PosterPath)
	m.BackdropURL = ImageURL(imageBaseURL, BackdropSize, m.BackdropPath)
}

// ImageURL joins a TMDB image path onto the image base. Empty paths stay empty.
func ImageURL(imageBaseURL, size, path string) string {
	if path == "" {
		return ""
	}
	return strings.TrimRight(imageBaseURL, "/") + "/" + size + "/" + strings.TrimLeft(path, "/")
}
