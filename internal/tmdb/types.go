package tmdb

import "movie-recommendation-backend/internal/models"

// ---- TMDB Response Types ----

// MoviePage is a paginated TMDB movie list (trending, popular, search, discover...).
type MoviePage struct {
	Page         int         `json:"page"`
	Results      []TMDBMovie `json:"results"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

// TMDBMovie is a movie from TMDB list results.
type TMDBMovie struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	GenreIDs         []int64 `json:"genre_ids"`
	OriginalLanguage string  `json:"original_language"`
	Adult            bool    `json:"adult"`
}

// TMDBMovieDetail is the detailed movie info from TMDB.
type TMDBMovieDetail struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	OriginalTitle    string      `json:"original_title"`
	Overview         string      `json:"overview"`
	ReleaseDate      string      `json:"release_date"`
	Popularity       float64     `json:"popularity"`
	VoteAverage      float64     `json:"vote_average"`
	VoteCount        int         `json:"vote_count"`
	PosterPath       string      `json:"poster_path"`
	BackdropPath     string      `json:"backdrop_path"`
	Genres           []TMDBGenre `json:"genres"`
	OriginalLanguage string      `json:"original_language"`
	Adult            bool        `json:"adult"`
	Runtime          int         `json:"runtime"`
	Similar          *MoviePage  `json:"similar,omitempty"`
}

// TMDBGenre is a genre from TMDB.
type TMDBGenre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GenreListResponse is the TMDB genre/movie/list response.
type GenreListResponse struct {
	Genres []TMDBGenre `json:"genres"`
}

// DiscoverParams are the supported discover/movie filters.
type DiscoverParams struct {
	WithGenres   []int64
	SortBy       string
	MinVoteCount int
	Page         int
}

// ToModel converts a list result into a storable movie.
func (m TMDBMovie) ToModel() models.Movie {
	genres := m.GenreIDs
	if genres == nil {
		genres = []int64{}
	}
	return models.Movie{
		TMDBId:           m.ID,
		Title:            m.Title,
		OriginalTitle:    m.OriginalTitle,
		Overview:         m.Overview,
		PosterPath:       m.PosterPath,
		BackdropPath:     m.BackdropPath,
		ReleaseDate:      m.ReleaseDate,
		VoteAverage:      m.VoteAverage,
		VoteCount:        m.VoteCount,
		Popularity:       m.Popularity,
		GenreIDs:         genres,
		OriginalLanguage: m.OriginalLanguage,
		Adult:            m.Adult,
	}
}

// ToModel converts a detail response into a storable movie.
func (d TMDBMovieDetail) ToModel() models.Movie {
	genres := make([]int64, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, g.ID)
	}
	return models.Movie{
		TMDBId:           d.ID,
		Title:            d.Title,
		OriginalTitle:    d.OriginalTitle,
		Overview:         d.Overview,
		PosterPath:       d.PosterPath,
		BackdropPath:     d.BackdropPath,
		ReleaseDate:      d.ReleaseDate,
		Runtime:          d.Runtime,
		VoteAverage:      d.VoteAverage,
		VoteCount:        d.VoteCount,
		Popularity:       d.Popularity,
		GenreIDs:         genres,
		OriginalLanguage: d.OriginalLanguage,
		Adult:            d.Adult,
	}
}

// ToModels converts every result of a page.
func (p *MoviePage) ToModels() []models.Movie {
	if p == nil {
		return nil
	}
	out := make([]models.Movie, 0, len(p.Results))
	for _, m := range p.Results {
		out = append(out, m.ToModel())
	}
	return out
}
