package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"movie-recommendation-backend/internal/config"
	"movie-recommendation-backend/internal/metrics"
)

var (
	// ErrCatalogUnavailable is returned once retries are exhausted, the circuit
	// is open, or the catalog cannot be reached at all.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	// ErrNotFound is returned when the catalog has no such resource.
	ErrNotFound = errors.New("not found in catalog")
	// ErrBadRequest is returned when the catalog rejects the request parameters
	// (any 4xx other than 401, 403, 404 and 429).
	ErrBadRequest = errors.New("catalog rejected request")
)

// MaxPage is the highest page the catalog serves for list endpoints.
const MaxPage = 500

// StatusError is a non-200 catalog response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("TMDB API returned status %d: %s", e.StatusCode, e.Body)
}

// Client is the TMDB API client.
type Client struct {
	apiKey        string
	baseURL       string
	http          *http.Client
	maxRetries    int
	retryInterval time.Duration
	limiter       *rate.Limiter
	breaker       *gobreaker.CircuitBreaker[struct{}]
}

// NewClient creates a new TMDB API client.
func NewClient(cfg config.TMDBConfig) *Client {
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		apiKey:        cfg.APIKey,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		http:          &http.Client{Timeout: cfg.Timeout},
		maxRetries:    cfg.MaxRetries,
		retryInterval: cfg.RetryInterval,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		breaker:       newBreaker("tmdb"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[struct{}] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a missing movie, a rejected parameter or a caller hanging up says
		// nothing about catalog health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrBadRequest) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("catalog circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// ---- Client Methods ----

// Trending fetches trending movies for a "day" or "week" window.
func (c *Client) Trending(ctx context.Context, window string, page int) (*MoviePage, error) {
	var result MoviePage
	err := c.get(ctx, "trending", "/trending/movie/"+url.PathEscape(window), pageParams(page), &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Popular fetches the popular movies list.
func (c *Client) Popular(ctx context.Context, page int) (*MoviePage, error) {
	var result MoviePage
	if err := c.get(ctx, "popular", "/movie/popular", pageParams(page), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TopRated fetches the top rated movies list.
func (c *Client) TopRated(ctx context.Context, page int) (*MoviePage, error) {
	var result MoviePage
	if err := c.get(ctx, "top_rated", "/movie/top_rated", pageParams(page), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search searches movies by title.
func (c *Client) Search(ctx context.Context, query string, page int) (*MoviePage, error) {
	params := pageParams(page)
	params.Set("query", query)
	params.Set("include_adult", "false")

	var result MoviePage
	if err := c.get(ctx, "search", "/search/movie", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Details fetches detailed movie info, including the first page of similar movies.
func (c *Client) Details(ctx context.Context, tmdbID int64) (*TMDBMovieDetail, error) {
	params := url.Values{}
	params.Set("append_to_response", "similar")

	var result TMDBMovieDetail
	if err := c.get(ctx, "details", fmt.Sprintf("/movie/%d", tmdbID), params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Similar fetches movies similar to the given one.
func (c *Client) Similar(ctx context.Context, tmdbID int64, page int) (*MoviePage, error) {
	var result MoviePage
	if err := c.get(ctx, "similar", fmt.Sprintf("/movie/%d/similar", tmdbID), pageParams(page), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Genres fetches all movie genres.
func (c *Client) Genres(ctx context.Context) ([]TMDBGenre, error) {
	var result GenreListResponse
	if err := c.get(ctx, "genres", "/genre/movie/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Genres, nil
}

// Discover fetches movies from the discover endpoint.
func (c *Client) Discover(ctx context.Context, p DiscoverParams) (*MoviePage, error) {
	params := pageParams(p.Page)
	if len(p.WithGenres) > 0 {
		ids := make([]string, len(p.WithGenres))
		for i, g := range p.WithGenres {
			ids[i] = strconv.FormatInt(g, 10)
		}
		params.Set("with_genres", strings.Join(ids, ","))
	}
	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	params.Set("sort_by", sortBy)
	if p.MinVoteCount > 0 {
		params.Set("vote_count.gte", strconv.Itoa(p.MinVoteCount))
	}

	var result MoviePage
	if err := c.get(ctx, "discover", "/discover/movie", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func pageParams(page int) url.Values {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	return params
}

// get runs one logical catalog call: circuit breaker around a bounded retry loop.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		metrics.CatalogRequests.WithLabelValues(endpoint, "failure").Inc()
		return fmt.Errorf("%w: TMDB API key is not configured", ErrCatalogUnavailable)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	target := c.baseURL + path + "?" + params.Encode()

	slog.Debug("fetching TMDB", "endpoint", endpoint, "path", path)

	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.getWithRetry(ctx, endpoint, target, out)
	})

	switch {
	case err == nil:
		metrics.CatalogRequests.WithLabelValues(endpoint, "success").Inc()
		return nil
	case errors.Is(err, ErrNotFound):
		metrics.CatalogRequests.WithLabelValues(endpoint, "not_found").Inc()
		return err
	case errors.Is(err, ErrBadRequest):
		metrics.CatalogRequests.WithLabelValues(endpoint, "bad_request").Inc()
		return fmt.Errorf("%s: %w", endpoint, err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CatalogRequests.WithLabelValues(endpoint, "rejected").Inc()
		return fmt.Errorf("%w: %s: %v", ErrCatalogUnavailable, endpoint, err)
	default:
		metrics.CatalogRequests.WithLabelValues(endpoint, "failure").Inc()
		return fmt.Errorf("%w: %s: %v", ErrCatalogUnavailable, endpoint, err)
	}
}

func (c *Client) getWithRetry(ctx context.Context, endpoint, target string, out any) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)

	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		return c.doGet(ctx, target, out)
	}

	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		metrics.CatalogRetries.WithLabelValues(endpoint).Inc()
		slog.Warn("retrying TMDB request", "endpoint", endpoint, "wait", wait, "error", err)
	})
}

// doGet performs a single attempt. Errors wrapped in backoff.Permanent are not retried.
func (c *Client) doGet(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("HTTP request failed: %s", redact(err.Error(), c.apiKey))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode TMDB response: %w", err))
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return statusError(resp)
	case resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden:
		return backoff.Permanent(fmt.Errorf("%w: %v", ErrBadRequest, statusError(resp)))
	default:
		return backoff.Permanent(statusError(resp))
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}

// redact keeps the API key out of error messages; net/http errors embed the URL.
func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "REDACTED")
}
