package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"movie-recommendation-backend/internal/models"
)

// collectionTables maps a collection to its table. Table names are never taken
// from input, only from this map.
var collectionTables = map[models.Collection]string{
	models.CollectionFavorites: "favorite_movies",
	models.CollectionWatchlist: "watchlist",
}

func tableFor(c models.Collection) (string, error) {
	table, ok := collectionTables[c]
	if !ok {
		return "", fmt.Errorf("unknown collection %q", c)
	}
	return table, nil
}

// CollectionRepository handles favorites, the watchlist and ratings.
type CollectionRepository struct {
	db *sql.DB
}

func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// ---- Favorites / Watchlist ----

// Add puts a stored movie into one of the user's collections.
func (r *CollectionRepository) Add(ctx context.Context, c models.Collection, userID int64, movie models.Movie) (*models.CollectionItem, error) {
	table, err := tableFor(c)
	if err != nil {
		return nil, err
	}

	item := models.CollectionItem{UserID: userID, Movie: movie}
	err = r.db.QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (user_id, movie_id, tmdb_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, table), userID, movie.ID, movie.TMDBId).Scan(&item.ID, &item.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("add to %s: %w", c, err)
	}
	return &item, nil
}

// List returns one page of a collection, newest first, and the total count.
func (r *CollectionRepository) List(ctx context.Context, c models.Collection, userID int64, p models.Pagination) ([]models.CollectionItem, int, error) {
	table, err := tableFor(c)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1`, table), userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", c, err)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT c.id, c.created_at, %s
		FROM %s c
		INNER JOIN movies m ON m.id = c.movie_id
		WHERE c.user_id = $1
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2 OFFSET $3
	`, movieColumns, table), userID, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", c, err)
	}
	defer rows.Close()

	items := make([]models.CollectionItem, 0)
	for rows.Next() {
		item := models.CollectionItem{UserID: userID}
		if err := scanMovie(prefixScanner{rows, []any{&item.ID, &item.CreatedAt}}, &item.Movie); err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", c, err)
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// Remove deletes a collection entry owned by the user. Entries of other users
// are reported as not found.
func (r *CollectionRepository) Remove(ctx context.Context, c models.Collection, userID, itemID int64) error {
	table, err := tableFor(c)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, table), itemID, userID)
	if err != nil {
		return fmt.Errorf("remove from %s: %w", c, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Ratings ----

// UpsertRating creates or updates the user's rating of a movie. created is
// false when an existing rating was updated.
func (r *CollectionRepository) UpsertRating(ctx context.Context, userID int64, movie models.Movie, rating int, review string) (*models.UserRating, bool, error) {
	ur := models.UserRating{UserID: userID, Movie: movie, Rating: rating, Review: review}
	var created bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO user_ratings (user_id, movie_id, tmdb_id, rating, review)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, movie_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			review = EXCLUDED.review,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`, userID, movie.ID, movie.TMDBId, rating, review).Scan(&ur.ID, &ur.CreatedAt, &ur.UpdatedAt, &created)
	if err != nil {
		return nil, false, fmt.Errorf("upsert rating: %w", err)
	}
	return &ur, created, nil
}

// ListRatings returns one page of the user's ratings, newest first, and the total count.
func (r *CollectionRepository) ListRatings(ctx context.Context, userID int64, p models.Pagination) ([]models.UserRating, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_ratings WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ratings: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.rating, COALESCE(r.review, ''), r.created_at, r.updated_at, `+movieColumns+`
		FROM user_ratings r
		INNER JOIN movies m ON m.id = r.movie_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $2 OFFSET $3
	`, userID, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]models.UserRating, 0)
	for rows.Next() {
		ur := models.UserRating{UserID: userID}
		prefix := []any{&ur.ID, &ur.Rating, &ur.Review, &ur.CreatedAt, &ur.UpdatedAt}
		if err := scanMovie(prefixScanner{rows, prefix}, &ur.Movie); err != nil {
			return nil, 0, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, ur)
	}
	return ratings, total, rows.Err()
}

// DeleteRating deletes a rating owned by the user.
func (r *CollectionRepository) DeleteRating(ctx context.Context, userID, ratingID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_ratings WHERE id = $1 AND user_id = $2`, ratingID, userID)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Recommendation inputs ----

// RatingSignals returns the user's ratings with the rated movies' genres.
func (r *CollectionRepository) RatingSignals(ctx context.Context, userID int64) ([]models.RatingSignal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.tmdb_id, r.rating, COALESCE(m.genre_ids, '{}')
		FROM user_ratings r
		INNER JOIN movies m ON m.id = r.movie_id
		WHERE r.user_id = $1
		ORDER BY r.tmdb_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query rating signals: %w", err)
	}
	defer rows.Close()

	signals := make([]models.RatingSignal, 0)
	for rows.Next() {
		var s models.RatingSignal
		var genres pq.Int64Array
		if err := rows.Scan(&s.TMDBId, &s.Rating, &genres); err != nil {
			return nil, fmt.Errorf("scan rating signal: %w", err)
		}
		s.GenreIDs = []int64(genres)
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

// FavoriteGenres returns the distinct genres across the user's favorites.
func (r *CollectionRepository) FavoriteGenres(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT g.genre_id
		FROM favorite_movies f
		INNER JOIN movies m ON m.id = f.movie_id
		CROSS JOIN LATERAL unnest(m.genre_ids) AS g(genre_id)
		WHERE f.user_id = $1
		ORDER BY g.genre_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query favorite genres: %w", err)
	}
	defer rows.Close()

	genres := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite genre: %w", err)
		}
		genres = append(genres, id)
	}
	return genres, rows.Err()
}

// NeighborRatings returns the ratings of every other user who rated at least
// one of tmdbIDs. Ratings of tmdbIDs are always included; the rest are capped
// at perUser most recent each. Every row carries the user's total rating count.
func (r *CollectionRepository) NeighborRatings(ctx context.Context, userID int64, tmdbIDs []int64, perUser int) ([]models.NeighborRating, error) {
	if len(tmdbIDs) == 0 {
		return []models.NeighborRating{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, tmdb_id, rating, rated_count FROM (
			SELECT r.user_id, r.tmdb_id, r.rating,
				r.tmdb_id = ANY($2) AS shared,
				COUNT(*) OVER (PARTITION BY r.user_id) AS rated_count,
				ROW_NUMBER() OVER (
					PARTITION BY r.user_id, r.tmdb_id = ANY($2)
					ORDER BY r.updated_at DESC, r.tmdb_id
				) AS rn
			FROM user_ratings r
			WHERE r.user_id <> $1
				AND r.user_id IN (SELECT user_id FROM user_ratings WHERE tmdb_id = ANY($2))
		) ranked
		WHERE shared OR rn <= $3
		ORDER BY user_id, tmdb_id
	`, userID, pq.Array(tmdbIDs), perUser)
	if err != nil {
		return nil, fmt.Errorf("query neighbor ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]models.NeighborRating, 0)
	for rows.Next() {
		var nr models.NeighborRating
		if err := rows.Scan(&nr.UserID, &nr.TMDBId, &nr.Rating, &nr.RatedCount); err != nil {
			return nil, fmt.Errorf("scan neighbor rating: %w", err)
		}
		ratings = append(ratings, nr)
	}
	return ratings, rows.Err()
}

// CollectionTMDBIds returns every TMDB id in the user's favorites, ratings or watchlist.
func (r *CollectionRepository) CollectionTMDBIds(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tmdb_id FROM favorite_movies WHERE user_id = $1
		UNION
		SELECT tmdb_id FROM user_ratings WHERE user_id = $1
		UNION
		SELECT tmdb_id FROM watchlist WHERE user_id = $1
		ORDER BY tmdb_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query collection ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan collection id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MovieState reports how a movie sits in the user's collections.
func (r *CollectionRepository) MovieState(ctx context.Context, userID, tmdbID int64) (models.UserMovieState, error) {
	var state models.UserMovieState
	var rating sql.NullInt64
	var review sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM favorite_movies WHERE user_id = $1 AND tmdb_id = $2),
			EXISTS(SELECT 1 FROM watchlist WHERE user_id = $1 AND tmdb_id = $2),
			(SELECT rating FROM user_ratings WHERE user_id = $1 AND tmdb_id = $2),
			(SELECT review FROM user_ratings WHERE user_id = $1 AND tmdb_id = $2)
	`, userID, tmdbID).Scan(&state.IsFavorite, &state.InWatchlist, &rating, &review)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return state, fmt.Errorf("query movie state: %w", err)
	}
	if rating.Valid {
		state.UserRating = &models.RatingNote{Rating: int(rating.Int64), Review: review.String}
	}
	return state, nil
}

// prefixScanner scans leading columns into prefix and hands the rest to the movie scan.
type prefixScanner struct {
	rows   *sql.Rows
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.rows.Scan(append(append([]any{}, p.prefix...), dest...)...)
}
