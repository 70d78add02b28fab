package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"movie-recommendation-backend/internal/models"
)

const userColumns = `id, username, email, password_hash, COALESCE(bio, ''),
	COALESCE(TO_CHAR(birth_date, 'YYYY-MM-DD'), ''), COALESCE(favorite_genres, '{}'),
	created_at, updated_at`

func scanUser(s scanner, u *models.User) error {
	var genres pq.StringArray
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Bio,
		&u.BirthDate, &genres, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return err
	}
	u.FavoriteGenres = []string(genres)
	if u.FavoriteGenres == nil {
		u.FavoriteGenres = []string{}
	}
	return nil
}

// UserRepository handles users, their preferences and revoked tokens.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a user together with an empty preference row.
func (r *UserRepository) CreateUser(ctx context.Context, u *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback()

	genres := u.FavoriteGenres
	if genres == nil {
		genres = []string{}
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, bio, birth_date, favorite_genres)
		VALUES ($1, $2, $3, $4, $5::date, $6)
		RETURNING id, created_at, updated_at
	`, u.Username, u.Email, u.PasswordHash, u.Bio, nullableDate(u.BirthDate), pq.Array(genres)).Scan(
		&u.ID, &u.CreatedAt, &u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, u.ID); err != nil {
		return fmt.Errorf("failed to create preferences: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

// Taken reports whether the email (case-insensitive) or username is already registered.
func (r *UserRepository) Taken(ctx context.Context, email, username string) (emailTaken, usernameTaken bool, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1)),
			EXISTS(SELECT 1 FROM users WHERE username = $2)
	`, email, username).Scan(&emailTaken, &usernameTaken)
	if err != nil {
		return false, false, fmt.Errorf("check user exists: %w", err)
	}
	return emailTaken, usernameTaken, nil
}

// GetByID returns a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns a user by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := scanUser(r.db.QueryRowContext(ctx, query, arg), &u)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// UpdateProfile writes the editable profile fields of u.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *models.User) error {
	genres := u.FavoriteGenres
	if genres == nil {
		genres = []string{}
	}
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET username = $1, bio = $2, birth_date = $3::date,
			favorite_genres = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`, u.Username, u.Bio, nullableDate(u.BirthDate), pq.Array(genres), u.ID).Scan(&u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2
	`, hash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPreference returns user preferences. A user without a row gets an empty preference.
func (r *UserRepository) GetPreference(ctx context.Context, userID int64) (*models.UserPreference, error) {
	pref := models.UserPreference{UserID: userID}
	var genres pq.Int64Array
	var languages pq.StringArray
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(preferred_genres, '{}'), COALESCE(preferred_languages, '{}'),
			COALESCE(min_rating, 0), created_at, updated_at
		FROM user_preferences WHERE user_id = $1
	`, userID).Scan(&genres, &languages, &pref.MinRating, &pref.CreatedAt, &pref.UpdatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get preference: %w", err)
	}
	pref.PreferredGenres = []int64(genres)
	pref.PreferredLanguages = []string(languages)
	if pref.PreferredGenres == nil {
		pref.PreferredGenres = []int64{}
	}
	if pref.PreferredLanguages == nil {
		pref.PreferredLanguages = []string{}
	}
	return &pref, nil
}

// UpsertPreference creates or updates user preferences.
func (r *UserRepository) UpsertPreference(ctx context.Context, pref *models.UserPreference) error {
	genres := pref.PreferredGenres
	if genres == nil {
		genres = []int64{}
	}
	languages := pref.PreferredLanguages
	if languages == nil {
		languages = []string{}
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO user_preferences (user_id, preferred_genres, preferred_languages, min_rating, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			preferred_genres = EXCLUDED.preferred_genres,
			preferred_languages = EXCLUDED.preferred_languages,
			min_rating = EXCLUDED.min_rating,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`, pref.UserID, pq.Array(genres), pq.Array(languages), pref.MinRating).Scan(
		&pref.CreatedAt, &pref.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}
	pref.PreferredGenres = genres
	pref.PreferredLanguages = languages
	return nil
}

// RevokeToken records a token id as unusable until it would have expired anyway.
func (r *UserRepository) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, expiresAt)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether a token id was revoked.
func (r *UserRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)
	`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// PurgeRevokedTokens drops revocations whose tokens have expired.
func (r *UserRepository) PurgeRevokedTokens(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
