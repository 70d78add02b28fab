package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"movie-recommendation-backend/internal/config"
)

// NewPostgres creates a new PostgreSQL connection and runs migrations.
func NewPostgres(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	slog.Info("connected to PostgreSQL", "db", cfg.DBName)

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id SERIAL PRIMARY KEY,
		tmdb_id INTEGER UNIQUE NOT NULL,
		title VARCHAR(255) NOT NULL,
		original_title VARCHAR(255) DEFAULT '',
		overview TEXT DEFAULT '',
		poster_path VARCHAR(255) DEFAULT '',
		backdrop_path VARCHAR(255) DEFAULT '',
		release_date DATE,
		runtime INTEGER DEFAULT 0,
		vote_average DOUBLE PRECISION DEFAULT 0,
		vote_count INTEGER DEFAULT 0,
		popularity DOUBLE PRECISION DEFAULT 0,
		genre_ids INTEGER[] DEFAULT '{}',
		original_language VARCHAR(10) DEFAULT '',
		adult BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT NOW(),
		updated_at TIMESTAMP DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS genres (
		id SERIAL PRIMARY KEY,
		tmdb_id INTEGER UNIQUE NOT NULL,
		name VARCHAR(100) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(150) UNIQUE NOT NULL,
		email VARCHAR(254) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		bio VARCHAR(500) DEFAULT '',
		birth_date DATE,
		favorite_genres TEXT[] DEFAULT '{}',
		created_at TIMESTAMP DEFAULT NOW(),
		updated_at TIMESTAMP DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_preferences (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		preferred_genres INTEGER[] DEFAULT '{}',
		preferred_languages TEXT[] DEFAULT '{}',
		min_rating DOUBLE PRECISION DEFAULT 0,
		created_at TIMESTAMP DEFAULT NOW(),
		updated_at TIMESTAMP DEFAULT NOW(),
		UNIQUE(user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS favorite_movies (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		tmdb_id INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT NOW(),
		UNIQUE(user_id, movie_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_ratings (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		tmdb_id INTEGER NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 10),
		review TEXT DEFAULT '',
		created_at TIMESTAMP DEFAULT NOW(),
		updated_at TIMESTAMP DEFAULT NOW(),
		UNIQUE(user_id, movie_id)
	)`,
	`CREATE TABLE IF NOT EXISTS watchlist (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		movie_id INTEGER NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
		tmdb_id INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT NOW(),
		UNIQUE(user_id, movie_id)
	)`,
	`CREATE TABLE IF NOT EXISTS revoked_tokens (
		jti VARCHAR(64) PRIMARY KEY,
		expires_at TIMESTAMP NOT NULL
	)`,
	// Indexes for common query patterns
	`CREATE INDEX IF NOT EXISTS idx_movies_release_date ON movies(release_date)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_popularity ON movies(popularity DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_movies_vote_average ON movies(vote_average DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_favorite_movies_user ON favorite_movies(user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_favorite_movies_tmdb_id ON favorite_movies(tmdb_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_ratings_user ON user_ratings(user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_user_ratings_movie ON user_ratings(movie_id)`,
	`CREATE INDEX IF NOT EXISTS idx_watchlist_user ON watchlist(user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires ON revoked_tokens(expires_at)`,
}

func runMigrations(db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Info("database migrations completed")
	return nil
}
