package recommend

import (
	"reflect"
	"testing"

	"movie-recommendation-backend/internal/config"
	"movie-recommendation-backend/internal/models"
)

const (
	action = 28
	drama  = 18
	comedy = 35
)

func newTestScorer() *Scorer {
	return NewScorer(config.RecommenderConfig{
		ContentWeight:       0.6,
		CollaborativeWeight: 0.4,
		NeighborCount:       2,
		PositiveThreshold:   7,
	})
}

func movie(id int64, pop float64, date string, genres ...int64) models.Movie {
	return models.Movie{TMDBId: id, Popularity: pop, ReleaseDate: date, VoteAverage: 7, GenreIDs: genres, OriginalLanguage: "en"}
}

func ids(recs []models.MovieRecommendation) []int64 {
	out := make([]int64, len(recs))
	for i, r := range recs {
		out[i] = r.TMDBId
	}
	return out
}

func TestHasSignal(t *testing.T) {
	s := newTestScorer()
	tests := []struct {
		name string
		in   Input
		want bool
	}{
		{"nothing", Input{}, false},
		{"empty preference", Input{Preference: &models.UserPreference{}}, false},
		{"preferred genres", Input{Preference: &models.UserPreference{PreferredGenres: []int64{action}}}, true},
		{"min rating only", Input{Preference: &models.UserPreference{MinRating: 6}}, true},
		{"ratings", Input{Ratings: []models.RatingSignal{{TMDBId: 1, Rating: 3}}}, true},
		{"favorites only", Input{FavoriteGenres: []int64{action}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.HasSignal(tt.in); got != tt.want {
				t.Errorf("HasSignal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFallbackIsIdentityWithoutCollections(t *testing.T) {
	s := newTestScorer()
	pool := []models.Movie{
		movie(3, 10, "2020-01-01", drama),
		movie(1, 90, "2021-01-01", action),
		movie(2, 50, "2019-01-01", comedy),
	}

	got := s.Fallback(Input{Pool: pool})
	if !reflect.DeepEqual(ids(got), []int64{3, 1, 2}) {
		t.Errorf("Fallback() = %v, want pool order", ids(got))
	}
	for _, r := range got {
		if r.Score != 0 {
			t.Errorf("fallback entry %d scored %v", r.TMDBId, r.Score)
		}
	}
}

func TestFallbackExcludesCollections(t *testing.T) {
	s := newTestScorer()
	pool := []models.Movie{movie(1, 1, ""), movie(2, 1, ""), movie(3, 1, "")}

	got := s.Fallback(Input{Pool: pool, Excluded: []int64{2}})
	if !reflect.DeepEqual(ids(got), []int64{1, 3}) {
		t.Errorf("Fallback() = %v", ids(got))
	}
}

func TestRankPrefersGenresOfHighlyRatedMovies(t *testing.T) {
	s := newTestScorer()
	in := Input{
		Ratings: []models.RatingSignal{
			{TMDBId: 100, Rating: 9, GenreIDs: []int64{action}},
			{TMDBId: 200, Rating: 2, GenreIDs: []int64{drama}},
		},
		Pool: []models.Movie{
			movie(400, 50, "2020-01-01", drama),
			movie(300, 50, "2020-01-01", action),
		},
	}

	got := s.Rank(in)
	if !reflect.DeepEqual(ids(got), []int64{300, 400}) {
		t.Fatalf("Rank() = %v, want action movie first", ids(got))
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("scores %v <= %v", got[0].Score, got[1].Score)
	}
}

func TestRankExcludesCollections(t *testing.T) {
	s := newTestScorer()
	in := Input{
		Preference: &models.UserPreference{PreferredGenres: []int64{action}},
		Ratings:    []models.RatingSignal{{TMDBId: 1, Rating: 8, GenreIDs: []int64{action}}},
		Excluded:   []int64{2, 3},
		Pool: []models.Movie{
			movie(1, 10, "", action),
			movie(2, 10, "", action),
			movie(3, 10, "", action),
			movie(4, 10, "", action),
		},
	}

	got := s.Rank(in)
	if !reflect.DeepEqual(ids(got), []int64{4}) {
		t.Errorf("Rank() = %v, want only 4", ids(got))
	}
}

func TestRankIsDeterministic(t *testing.T) {
	s := newTestScorer()
	in := Input{
		Preference: &models.UserPreference{PreferredGenres: []int64{action, comedy}},
		Ratings: []models.RatingSignal{
			{TMDBId: 1, Rating: 9, GenreIDs: []int64{action}},
			{TMDBId: 2, Rating: 8, GenreIDs: []int64{comedy}},
		},
		Neighbors: []models.NeighborRating{
			{UserID: 9, TMDBId: 1, Rating: 9}, {UserID: 9, TMDBId: 10, Rating: 8},
			{UserID: 5, TMDBId: 2, Rating: 9}, {UserID: 5, TMDBId: 11, Rating: 10},
			{UserID: 7, TMDBId: 1, Rating: 8}, {UserID: 7, TMDBId: 12, Rating: 7},
		},
		Pool: []models.Movie{
			movie(10, 30, "2020-01-01", action),
			movie(11, 30, "2020-01-01", comedy),
			movie(12, 30, "2020-01-01", action, comedy),
			movie(13, 30, "2020-01-01", drama),
			movie(14, 30, "2021-01-01", drama),
		},
	}

	first := s.Rank(in)
	for i := 0; i < 20; i++ {
		if got := s.Rank(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: %v != %v", i, ids(got), ids(first))
		}
	}
}

func TestRankTieBreaks(t *testing.T) {
	s := newTestScorer()
	in := Input{
		Preference: &models.UserPreference{MinRating: 1},
		Pool: []models.Movie{
			movie(5, 10, "2019-05-01"),
			movie(4, 20, "2010-01-01"),
			movie(3, 10, "2021-05-01"),
			movie(2, 10, "2021-05-01"),
		},
	}

	got := s.Rank(in)
	// all score zero: popularity desc, then newest, then tmdb id
	if !reflect.DeepEqual(ids(got), []int64{4, 2, 3, 5}) {
		t.Errorf("Rank() = %v", ids(got))
	}
}

func TestRankCollaborativeTopK(t *testing.T) {
	s := newTestScorer()
	in := Input{
		Ratings: []models.RatingSignal{
			{TMDBId: 1, Rating: 9},
			{TMDBId: 2, Rating: 9},
		},
		Neighbors: []models.NeighborRating{
			// user 10: shares both, similarity 2/3
			{UserID: 10, TMDBId: 1, Rating: 9}, {UserID: 10, TMDBId: 2, Rating: 8},
			{UserID: 10, TMDBId: 50, Rating: 9},
			// user 20: shares one, similarity 1/3
			{UserID: 20, TMDBId: 1, Rating: 9}, {UserID: 20, TMDBId: 60, Rating: 9},
			// user 30: shares one, similarity 1/3, cut by K=2 on user id
			{UserID: 30, TMDBId: 2, Rating: 9}, {UserID: 30, TMDBId: 70, Rating: 9},
			// user 40: only a low rating in common
			{UserID: 40, TMDBId: 1, Rating: 3}, {UserID: 40, TMDBId: 80, Rating: 10},
		},
		Pool: []models.Movie{
			movie(80, 10, ""),
			movie(70, 10, ""),
			movie(60, 10, ""),
			movie(50, 10, ""),
		},
	}

	got := s.Rank(in)
	byID := make(map[int64]models.MovieRecommendation)
	for _, r := range got {
		byID[r.TMDBId] = r
	}

	if byID[50].CollaborativeScore != 1 {
		t.Errorf("movie 50 collaborative = %v, want 1", byID[50].CollaborativeScore)
	}
	if c := byID[60].CollaborativeScore; c <= 0 || c >= 1 {
		t.Errorf("movie 60 collaborative = %v, want in (0,1)", c)
	}
	if byID[70].CollaborativeScore != 0 {
		t.Errorf("movie 70 collaborative = %v, want 0 (neighbour beyond K)", byID[70].CollaborativeScore)
	}
	if byID[80].CollaborativeScore != 0 {
		t.Errorf("movie 80 collaborative = %v, want 0 (no shared positive rating)", byID[80].CollaborativeScore)
	}
	if !reflect.DeepEqual(ids(got)[:2], []int64{50, 60}) {
		t.Errorf("Rank() = %v", ids(got))
	}
}

func TestRankAppliesPreferenceFilters(t *testing.T) {
	s := newTestScorer()
	low := movie(1, 10, "", action)
	low.VoteAverage = 5
	french := movie(2, 10, "", action)
	french.OriginalLanguage = "fr"
	keep := movie(3, 10, "", action)
	keep.VoteAverage = 8

	in := Input{
		Preference: &models.UserPreference{
			PreferredGenres:    []int64{action},
			PreferredLanguages: []string{"EN"},
			MinRating:          6,
		},
		Pool: []models.Movie{low, french, keep},
	}

	if got := s.Rank(in); !reflect.DeepEqual(ids(got), []int64{3}) {
		t.Errorf("Rank() = %v, want [3]", ids(got))
	}
}

func TestRankDeduplicatesPool(t *testing.T) {
	s := newTestScorer()
	in := Input{
		Preference: &models.UserPreference{PreferredGenres: []int64{action}},
		Pool:       []models.Movie{movie(1, 10, "", action), movie(1, 10, "", action)},
	}
	if got := s.Rank(in); len(got) != 1 {
		t.Errorf("Rank() returned %d entries, want 1", len(got))
	}
}

func TestContentScoreRange(t *testing.T) {
	liked := map[int64]bool{action: true}
	m := movie(1, 100, "", action, drama)
	m.VoteAverage = 10

	got := contentScore(m, liked, 100)
	if got != 0.5 {
		t.Errorf("contentScore() = %v, want 0.5", got)
	}
	if contentScore(movie(2, 1, "", drama), liked, 100) != 0 {
		t.Error("no overlap should score 0")
	}
}

func TestCollaborativeUnionUsesFullRatingCount(t *testing.T) {
	s := newTestScorer()
	in := Input{
		Ratings: []models.RatingSignal{
			{TMDBId: 1, Rating: 9},
			{TMDBId: 2, Rating: 9},
		},
		Neighbors: []models.NeighborRating{
			// user 10 rated only these two movies: union {1,2,50}, similarity 1/3
			{UserID: 10, TMDBId: 1, Rating: 9, RatedCount: 2},
			{UserID: 10, TMDBId: 50, Rating: 9, RatedCount: 2},
			// user 20 rated ten movies, only two returned: union 2+10-1, similarity 1/11
			{UserID: 20, TMDBId: 2, Rating: 9, RatedCount: 10},
			{UserID: 20, TMDBId: 60, Rating: 9, RatedCount: 10},
		},
		Pool: []models.Movie{
			movie(50, 10, ""),
			movie(60, 10, ""),
		},
	}

	byID := make(map[int64]models.MovieRecommendation)
	for _, r := range s.Rank(in) {
		byID[r.TMDBId] = r
	}

	if byID[50].CollaborativeScore != 1 {
		t.Errorf("movie 50 collaborative = %v, want 1", byID[50].CollaborativeScore)
	}
	want := (1.0 / 11) / (1.0 / 3)
	if got := byID[60].CollaborativeScore; got != want {
		t.Errorf("movie 60 collaborative = %v, want %v", got, want)
	}
}
