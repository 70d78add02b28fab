package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"movie-recommendation-backend/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.TMDBConfig{
		APIKey:            "test-key",
		BaseURL:           srv.URL,
		Timeout:           2 * time.Second,
		MaxRetries:        retries,
		RetryInterval:     time.Millisecond,
		RequestsPerSecond: 1000,
	})
}

func TestPopularDecodesPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/popular" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("api_key = %q", r.URL.Query().Get("api_key"))
		}
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("page = %q", r.URL.Query().Get("page"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":2,"total_pages":5,"total_results":100,"results":[
			{"id":603,"title":"The Matrix","genre_ids":[28,878],"vote_average":8.2,"popularity":80.5,"release_date":"1999-03-30","original_language":"en"}
		]}`))
	}, 0)

	page, err := client.Popular(context.Background(), 2)
	if err != nil {
		t.Fatalf("Popular() error = %v", err)
	}
	if page.Page != 2 || page.TotalPages != 5 || len(page.Results) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}

	movies := page.ToModels()
	m := movies[0]
	if m.TMDBId != 603 || m.Title != "The Matrix" || len(m.GenreIDs) != 2 || m.OriginalLanguage != "en" {
		t.Errorf("ToModels() = %+v", m)
	}
}

func TestDetailsConvertsGenres(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("append_to_response") != "similar" {
			t.Errorf("append_to_response missing")
		}
		_, _ = w.Write([]byte(`{"id":27205,"title":"Inception","runtime":148,
			"genres":[{"id":28,"name":"Action"},{"id":878,"name":"Science Fiction"}],
			"similar":{"page":1,"results":[{"id":1,"title":"Other"}]}}`))
	}, 0)

	detail, err := client.Details(context.Background(), 27205)
	if err != nil {
		t.Fatalf("Details() error = %v", err)
	}
	m := detail.ToModel()
	if m.Runtime != 148 || len(m.GenreIDs) != 2 || m.GenreIDs[1] != 878 {
		t.Errorf("ToModel() = %+v", m)
	}
	if detail.Similar == nil || len(detail.Similar.Results) != 1 {
		t.Errorf("similar not decoded: %+v", detail.Similar)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"genres":[{"id":18,"name":"Drama"}]}`))
	}, 3)

	genres, err := client.Genres(context.Background())
	if err != nil {
		t.Fatalf("Genres() error = %v", err)
	}
	if len(genres) != 1 || genres[0].Name != "Drama" {
		t.Errorf("Genres() = %+v", genres)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestRetriesRateLimited(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[]}`))
	}, 2)

	if _, err := client.TopRated(context.Background(), 1); err != nil {
		t.Fatalf("TopRated() error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestExhaustedRetriesAreCatalogUnavailable(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 2)

	_, err := client.Trending(context.Background(), "week", 1)
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("Trending() error = %v, want ErrCatalogUnavailable", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 1 attempt + 2 retries", got)
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, 3)

	_, err := client.Details(context.Background(), 999999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Details() error = %v, want ErrNotFound", err)
	}
	if errors.Is(err, ErrCatalogUnavailable) {
		t.Error("not found must be distinguishable from catalog unavailable")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_message":"Invalid API key"}`))
	}, 3)

	_, err := client.Search(context.Background(), "matrix", 1)
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("Search() error = %v, want ErrCatalogUnavailable", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestRejectedParametersDoNotOpenCircuit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("page") == "501" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"errors":["page must be less than or equal to 500"]}`))
			return
		}
		_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"total_results":0,"results":[]}`))
	}, 3)

	for i := 0; i < 10; i++ {
		_, err := client.Popular(context.Background(), 501)
		if !errors.Is(err, ErrBadRequest) {
			t.Fatalf("Popular(501) error = %v, want ErrBadRequest", err)
		}
		if errors.Is(err, ErrCatalogUnavailable) {
			t.Fatalf("Popular(501) error = %v, must not be ErrCatalogUnavailable", err)
		}
	}
	if got := calls.Load(); got != 10 {
		t.Errorf("calls = %d, want 10 (no retries)", got)
	}

	if _, err := client.Popular(context.Background(), 1); err != nil {
		t.Fatalf("Popular(1) after rejected pages error = %v", err)
	}
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, 0)

	for i := 0; i < 5; i++ {
		_, _ = client.Popular(context.Background(), 1)
	}
	before := calls.Load()

	_, err := client.Popular(context.Background(), 1)
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("Popular() error = %v, want ErrCatalogUnavailable", err)
	}
	if calls.Load() != before {
		t.Error("open circuit still reached the catalog")
	}
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient(config.TMDBConfig{BaseURL: "http://127.0.0.1:1", RequestsPerSecond: 1})

	_, err := client.Popular(context.Background(), 1)
	if !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("Popular() error = %v, want ErrCatalogUnavailable", err)
	}
}

func TestDiscoverParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("with_genres") != "28,12" || q.Get("sort_by") != "popularity.desc" || q.Get("vote_count.gte") != "50" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[]}`))
	}, 0)

	if _, err := client.Discover(context.Background(), DiscoverParams{WithGenres: []int64{28, 12}, MinVoteCount: 50}); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
}
