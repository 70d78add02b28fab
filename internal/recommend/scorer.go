// Package recommend ranks candidate movies for a user from genre overlap and
// the rating behaviour of similar users. It does no I/O: callers load the
// inputs and the same Input always produces the same ranking.
package recommend

import (
	"math"
	"sort"
	"strings"

	"movie-recommendation-backend/internal/config"
	"movie-recommendation-backend/internal/models"
)

// Config holds the blend weights and collaborative cutoffs.
type Config struct {
	ContentWeight       float64
	CollaborativeWeight float64
	NeighborCount       int
	PositiveThreshold   int
}

// Input is one user's snapshot of signals plus the candidate pool.
type Input struct {
	Preference     *models.UserPreference
	Ratings        []models.RatingSignal
	FavoriteGenres []int64
	// Excluded holds every TMDB id already in the user's favorites, ratings or watchlist.
	Excluded  []int64
	Neighbors []models.NeighborRating
	Pool      []models.Movie
}

// Scorer ranks candidate pools.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer from the recommender configuration.
func NewScorer(cfg config.RecommenderConfig) *Scorer {
	return &Scorer{cfg: Config{
		ContentWeight:       cfg.ContentWeight,
		CollaborativeWeight: cfg.CollaborativeWeight,
		NeighborCount:       cfg.NeighborCount,
		PositiveThreshold:   cfg.PositiveThreshold,
	}}
}

// HasSignal reports whether the user has anything to personalize on.
func (s *Scorer) HasSignal(in Input) bool {
	return len(in.Ratings) > 0 || !in.Preference.IsEmpty()
}

// Fallback returns the pool in its own order, unscored, without the user's
// collections. For a user with empty collections it is the pool itself.
func (s *Scorer) Fallback(in Input) []models.MovieRecommendation {
	excluded := s.excluded(in)
	seen := make(map[int64]bool, len(in.Pool))

	out := make([]models.MovieRecommendation, 0, len(in.Pool))
	for _, m := range in.Pool {
		if excluded[m.TMDBId] || seen[m.TMDBId] {
			continue
		}
		seen[m.TMDBId] = true
		out = append(out, models.MovieRecommendation{Movie: m})
	}
	return out
}

// Rank scores and orders the pool for the user.
func (s *Scorer) Rank(in Input) []models.MovieRecommendation {
	excluded := s.excluded(in)
	liked := s.likedGenres(in)
	collab := s.collaborative(in)

	var maxPop float64
	for _, m := range in.Pool {
		if m.Popularity > maxPop {
			maxPop = m.Popularity
		}
	}
	if maxPop == 0 {
		maxPop = 1
	}

	languages := make(map[string]bool)
	var minRating float64
	if in.Preference != nil {
		for _, l := range in.Preference.PreferredLanguages {
			languages[strings.ToLower(l)] = true
		}
		minRating = in.Preference.MinRating
	}

	seen := make(map[int64]bool, len(in.Pool))
	results := make([]models.MovieRecommendation, 0, len(in.Pool))
	for _, m := range in.Pool {
		if excluded[m.TMDBId] || seen[m.TMDBId] {
			continue
		}
		seen[m.TMDBId] = true

		if minRating > 0 && m.VoteAverage < minRating {
			continue
		}
		if len(languages) > 0 && !languages[strings.ToLower(m.OriginalLanguage)] {
			continue
		}

		content := contentScore(m, liked, maxPop)
		cf := collab[m.TMDBId]
		total := s.cfg.ContentWeight*content + s.cfg.CollaborativeWeight*cf

		results = append(results, models.MovieRecommendation{
			Movie:              m,
			Score:              round4(total),
			ContentScore:       round4(content),
			CollaborativeScore: round4(cf),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return less(results[i], results[j])
	})
	return results
}

// less orders by score, popularity, release date (newest first), then TMDB id.
func less(a, b models.MovieRecommendation) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Popularity != b.Popularity {
		return a.Popularity > b.Popularity
	}
	// YYYY-MM-DD compares lexically; unknown dates sort last
	if a.ReleaseDate != b.ReleaseDate {
		return a.ReleaseDate > b.ReleaseDate
	}
	return a.TMDBId < b.TMDBId
}

func (s *Scorer) excluded(in Input) map[int64]bool {
	excluded := make(map[int64]bool, len(in.Excluded)+len(in.Ratings))
	for _, id := range in.Excluded {
		excluded[id] = true
	}
	for _, r := range in.Ratings {
		excluded[r.TMDBId] = true
	}
	return excluded
}

// likedGenres is the union of preferred genres, genres of positively rated
// movies and genres of favorites.
func (s *Scorer) likedGenres(in Input) map[int64]bool {
	liked := make(map[int64]bool)
	if in.Preference != nil {
		for _, g := range in.Preference.PreferredGenres {
			liked[g] = true
		}
	}
	for _, r := range in.Ratings {
		if r.Rating < s.cfg.PositiveThreshold {
			continue
		}
		for _, g := range r.GenreIDs {
			liked[g] = true
		}
	}
	for _, g := range in.FavoriteGenres {
		liked[g] = true
	}
	return liked
}

func contentScore(m models.Movie, liked map[int64]bool, maxPop float64) float64 {
	if len(m.GenreIDs) == 0 || len(liked) == 0 {
		return 0
	}
	overlap := 0
	for _, g := range m.GenreIDs {
		if liked[g] {
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}

	quality := (m.Popularity/maxPop + clamp01(m.VoteAverage/10)) / 2
	return float64(overlap) / float64(len(m.GenreIDs)) * (0.5 + 0.5*clamp01(quality))
}

type neighbor struct {
	userID     int64
	similarity float64
	positive   []int64
}

// collaborative returns a score in [0,1] per TMDB id from the top-K most
// similar users' positively rated movies.
func (s *Scorer) collaborative(in Input) map[int64]float64 {
	scores := make(map[int64]float64)
	if len(in.Ratings) == 0 || len(in.Neighbors) == 0 || s.cfg.NeighborCount < 1 {
		return scores
	}

	rated := make(map[int64]bool, len(in.Ratings))
	positive := make(map[int64]bool)
	for _, r := range in.Ratings {
		rated[r.TMDBId] = true
		if r.Rating >= s.cfg.PositiveThreshold {
			positive[r.TMDBId] = true
		}
	}

	type history struct {
		rated      map[int64]bool
		ratedCount int
		positive   []int64
	}
	histories := make(map[int64]*history)
	for _, nr := range in.Neighbors {
		h, ok := histories[nr.UserID]
		if !ok {
			h = &history{rated: make(map[int64]bool)}
			histories[nr.UserID] = h
		}
		h.ratedCount = max(h.ratedCount, nr.RatedCount)
		if h.rated[nr.TMDBId] {
			continue
		}
		h.rated[nr.TMDBId] = true
		if nr.Rating >= s.cfg.PositiveThreshold {
			h.positive = append(h.positive, nr.TMDBId)
		}
	}

	neighbors := make([]neighbor, 0, len(histories))
	for userID, h := range histories {
		shared := 0
		for _, id := range h.positive {
			if positive[id] {
				shared++
			}
		}
		if shared == 0 {
			continue
		}
		// every movie both users rated is present in h.rated, so the
		// neighbour's other ratings are ratedCount minus that overlap
		sharedRated := 0
		for id := range h.rated {
			if rated[id] {
				sharedRated++
			}
		}
		union := len(rated) + max(h.ratedCount, len(h.rated)) - sharedRated
		sort.Slice(h.positive, func(i, j int) bool { return h.positive[i] < h.positive[j] })
		neighbors = append(neighbors, neighbor{
			userID:     userID,
			similarity: float64(shared) / float64(union),
			positive:   h.positive,
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].similarity != neighbors[j].similarity {
			return neighbors[i].similarity > neighbors[j].similarity
		}
		return neighbors[i].userID < neighbors[j].userID
	})
	if len(neighbors) > s.cfg.NeighborCount {
		neighbors = neighbors[:s.cfg.NeighborCount]
	}

	var maxScore float64
	for _, n := range neighbors {
		for _, id := range n.positive {
			if rated[id] {
				continue
			}
			scores[id] += n.similarity
			if scores[id] > maxScore {
				maxScore = scores[id]
			}
		}
	}
	if maxScore > 0 {
		for id := range scores {
			scores[id] /= maxScore
		}
	}
	return scores
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
