package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"movie-recommendation-backend/internal/models"
)

// movieColumns must stay in step with scanMovie.
const movieColumns = `m.id, m.tmdb_id, m.title, COALESCE(m.original_title, ''), COALESCE(m.overview, ''),
	COALESCE(m.poster_path, ''), COALESCE(m.backdrop_path, ''),
	COALESCE(TO_CHAR(m.release_date, 'YYYY-MM-DD'), ''),
	COALESCE(m.runtime, 0), COALESCE(m.vote_average, 0), COALESCE(m.vote_count, 0),
	COALESCE(m.popularity, 0), COALESCE(m.genre_ids, '{}'), COALESCE(m.original_language, ''),
	COALESCE(m.adult, FALSE), m.created_at, m.updated_at`

func scanMovie(s scanner, m *models.Movie) error {
	var genres pq.Int64Array
	err := s.Scan(
		&m.ID, &m.TMDBId, &m.Title, &m.OriginalTitle, &m.Overview,
		&m.PosterPath, &m.BackdropPath, &m.ReleaseDate,
		&m.Runtime, &m.VoteAverage, &m.VoteCount,
		&m.Popularity, &genres, &m.OriginalLanguage,
		&m.Adult, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	m.GenreIDs = []int64(genres)
	if m.GenreIDs == nil {
		m.GenreIDs = []int64{}
	}
	return nil
}

// MovieRepository handles database operations for movies.
type MovieRepository struct {
	db *sql.DB
}

// NewMovieRepository creates a new MovieRepository.
func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

const upsertMovieSQL = `
	INSERT INTO movies (tmdb_id, title, original_title, overview, poster_path, backdrop_path,
		release_date, runtime, vote_average, vote_count, popularity, genre_ids,
		original_language, adult, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8, $9, $10, $11, $12, $13, $14, NOW())
	ON CONFLICT (tmdb_id) DO UPDATE SET
		title = EXCLUDED.title,
		original_title = EXCLUDED.original_title,
		overview = EXCLUDED.overview,
		poster_path = EXCLUDED.poster_path,
		backdrop_path = EXCLUDED.backdrop_path,
		release_date = EXCLUDED.release_date,
		runtime = CASE WHEN EXCLUDED.runtime > 0 THEN EXCLUDED.runtime ELSE movies.runtime END,
		vote_average = EXCLUDED.vote_average,
		vote_count = EXCLUDED.vote_count,
		popularity = EXCLUDED.popularity,
		genre_ids = EXCLUDED.genre_ids,
		original_language = EXCLUDED.original_language,
		adult = EXCLUDED.adult,
		updated_at = NOW()
	RETURNING id, runtime, created_at, updated_at`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func upsertMovie(ctx context.Context, q queryRower, m *models.Movie) error {
	genres := m.GenreIDs
	if genres == nil {
		genres = []int64{}
	}
	err := q.QueryRowContext(ctx, upsertMovieSQL,
		m.TMDBId, m.Title, m.OriginalTitle, m.Overview, m.PosterPath, m.BackdropPath,
		nullableDate(m.ReleaseDate), m.Runtime, m.VoteAverage, m.VoteCount, m.Popularity,
		pq.Array(genres), m.OriginalLanguage, m.Adult,
	).Scan(&m.ID, &m.Runtime, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert movie %d: %w", m.TMDBId, err)
	}
	return nil
}

// UpsertMovie inserts a movie or refreshes the mutable fields of an existing one,
// keyed by TMDB id. The stored id and timestamps are written back into m.
func (r *MovieRepository) UpsertMovie(ctx context.Context, m *models.Movie) error {
	return upsertMovie(ctx, r.db, m)
}

// UpsertMovies upserts a batch in one transaction.
func (r *MovieRepository) UpsertMovies(ctx context.Context, movies []models.Movie) error {
	if len(movies) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert movies: %w", err)
	}
	defer tx.Rollback()

	for i := range movies {
		if err := upsertMovie(ctx, tx, &movies[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert movies: %w", err)
	}
	return nil
}

// GetByTMDBId returns a movie by TMDB id.
func (r *MovieRepository) GetByTMDBId(ctx context.Context, tmdbID int64) (*models.Movie, error) {
	return r.getOne(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.tmdb_id = $1`, tmdbID)
}

func (r *MovieRepository) getOne(ctx context.Context, query string, arg int64) (*models.Movie, error) {
	var m models.Movie
	err := scanMovie(r.db.QueryRowContext(ctx, query, arg), &m)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get movie: %w", err)
	}
	return &m, nil
}

// ListPopular returns the most popular stored movies.
func (r *MovieRepository) ListPopular(ctx context.Context, limit int) ([]models.Movie, error) {
	return r.list(ctx, `
		SELECT `+movieColumns+`
		FROM movies m
		ORDER BY m.popularity DESC NULLS LAST, m.tmdb_id
		LIMIT $1
	`, limit)
}

func (r *MovieRepository) list(ctx context.Context, query string, args ...any) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	movies := make([]models.Movie, 0)
	for rows.Next() {
		var m models.Movie
		if err := scanMovie(rows, &m); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// UpsertGenres inserts or renames genres in one transaction.
func (r *MovieRepository) UpsertGenres(ctx context.Context, genres []models.Genre) error {
	if len(genres) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert genres: %w", err)
	}
	defer tx.Rollback()

	for _, g := range genres {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO genres (tmdb_id, name)
			VALUES ($1, $2)
			ON CONFLICT (tmdb_id) DO UPDATE SET name = EXCLUDED.name
		`, g.TMDBId, g.Name)
		if err != nil {
			return fmt.Errorf("upsert genre %d: %w", g.TMDBId, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert genres: %w", err)
	}
	return nil
}

// ListGenres returns all stored genres by name.
func (r *MovieRepository) ListGenres(ctx context.Context) ([]models.Genre, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, tmdb_id, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	genres := make([]models.Genre, 0)
	for rows.Next() {
		var g models.Genre
		if err := rows.Scan(&g.ID, &g.TMDBId, &g.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}
