package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the movie recommendation backend.
type Config struct {
	DB          DBConfig
	Redis       RedisConfig
	TMDB        TMDBConfig
	Auth        AuthConfig
	Cache       CacheConfig
	Recommender RecommenderConfig
	RateLimit   RateLimitConfig
	Refresh     RefreshConfig
	Port        string
	LogLevel    string
}

// DBConfig holds PostgreSQL configuration.
type DBConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	SSLRootCert string
}

// DSN returns the PostgreSQL connection string.
func (d DBConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
	if d.SSLRootCert != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", d.SSLRootCert)
	}
	return dsn
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey            string
	BaseURL           string
	ImageBaseURL      string
	Timeout           time.Duration
	MaxRetries        int
	RetryInterval     time.Duration
	RequestsPerSecond float64
}

// AuthConfig holds token signing configuration.
type AuthConfig struct {
	JWTSecret         string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	MinPasswordLength int
}

// CacheConfig holds the TTL for each endpoint category.
type CacheConfig struct {
	TrendingTTL        time.Duration
	SearchTTL          time.Duration
	MovieDetailsTTL    time.Duration
	GenresTTL          time.Duration
	RecommendationsTTL time.Duration
	PreferencesTTL     time.Duration
}

// RecommenderConfig holds the scoring knobs. The blend weights and the neighbour
// cutoff have no canonical values and are meant to be tuned per deployment.
type RecommenderConfig struct {
	ContentWeight       float64
	CollaborativeWeight float64
	NeighborCount       int
	PositiveThreshold   int
	PoolSize            int
	PoolTimeout         time.Duration
	LastGoodPoolTTL     time.Duration
	MaxNeighborMovies   int
}

// RateLimitConfig holds inbound rate limiting configuration.
type RateLimitConfig struct {
	// Max applies per client IP to anonymous callers, UserMax per user to
	// authenticated ones.
	Max               int
	UserMax           int
	WindowSeconds     int
	AuthMax           int
	AuthWindowSeconds int
}

// RefreshConfig holds the periodic catalog refresh schedule.
type RefreshConfig struct {
	Enabled  bool
	Schedule string
	Pages    int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DB: DBConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "movie_recommendation"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			SSLRootCert: getEnv("DB_SSLROOTCERT", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		TMDB: TMDBConfig{
			APIKey:            getEnv("TMDB_API_KEY", ""),
			BaseURL:           getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			ImageBaseURL:      getEnv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p/"),
			Timeout:           getEnvDuration("TMDB_TIMEOUT", 10*time.Second),
			MaxRetries:        getEnvInt("TMDB_MAX_RETRIES", 3),
			RetryInterval:     getEnvDuration("TMDB_RETRY_INTERVAL", 500*time.Millisecond),
			RequestsPerSecond: getEnvFloat("TMDB_REQUESTS_PER_SECOND", 20),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			AccessTokenTTL:    getEnvDuration("JWT_ACCESS_TTL", 60*time.Minute),
			RefreshTokenTTL:   getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
			MinPasswordLength: getEnvInt("MIN_PASSWORD_LENGTH", 8),
		},
		Cache: CacheConfig{
			TrendingTTL:        getEnvDuration("CACHE_TTL_TRENDING", time.Hour),
			SearchTTL:          getEnvDuration("CACHE_TTL_SEARCH", 30*time.Minute),
			MovieDetailsTTL:    getEnvDuration("CACHE_TTL_MOVIE_DETAILS", 24*time.Hour),
			GenresTTL:          getEnvDuration("CACHE_TTL_GENRES", 7*24*time.Hour),
			RecommendationsTTL: getEnvDuration("CACHE_TTL_RECOMMENDATIONS", 30*time.Minute),
			PreferencesTTL:     getEnvDuration("CACHE_TTL_PREFERENCES", 10*time.Minute),
		},
		Recommender: RecommenderConfig{
			ContentWeight:       getEnvFloat("RECOMMEND_CONTENT_WEIGHT", 0.6),
			CollaborativeWeight: getEnvFloat("RECOMMEND_COLLABORATIVE_WEIGHT", 0.4),
			NeighborCount:       getEnvInt("RECOMMEND_NEIGHBOR_COUNT", 10),
			PositiveThreshold:   getEnvInt("RECOMMEND_POSITIVE_THRESHOLD", 7),
			PoolSize:            getEnvInt("RECOMMEND_POOL_SIZE", 60),
			PoolTimeout:         getEnvDuration("RECOMMEND_POOL_TIMEOUT", 5*time.Second),
			LastGoodPoolTTL:     getEnvDuration("RECOMMEND_LAST_GOOD_POOL_TTL", 7*24*time.Hour),
			MaxNeighborMovies:   getEnvInt("RECOMMEND_MAX_NEIGHBOR_MOVIES", 100),
		},
		RateLimit: RateLimitConfig{
			Max:               getEnvInt("RATE_LIMIT_MAX", 100),
			UserMax:           getEnvInt("RATE_LIMIT_USER_MAX", 1000),
			WindowSeconds:     getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			AuthMax:           getEnvInt("RATE_LIMIT_AUTH_MAX", 5),
			AuthWindowSeconds: getEnvInt("RATE_LIMIT_AUTH_WINDOW_SECONDS", 60),
		},
		Refresh: RefreshConfig{
			Enabled:  getEnvBool("CATALOG_REFRESH_ENABLED", true),
			Schedule: getEnv("CATALOG_REFRESH_SCHEDULE", "@every 6h"),
			Pages:    getEnvInt("CATALOG_REFRESH_PAGES", 3),
		},
		Port:     getEnv("SERVER_PORT", "8000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}

	r := c.Recommender
	if r.ContentWeight < 0 || r.CollaborativeWeight < 0 {
		errs = append(errs, errors.New("recommendation weights must not be negative"))
	}
	if r.ContentWeight == 0 && r.CollaborativeWeight == 0 {
		errs = append(errs, errors.New("at least one recommendation weight must be positive"))
	}
	if r.NeighborCount < 1 {
		errs = append(errs, errors.New("RECOMMEND_NEIGHBOR_COUNT must be at least 1"))
	}
	if r.PositiveThreshold < 1 || r.PositiveThreshold > 10 {
		errs = append(errs, errors.New("RECOMMEND_POSITIVE_THRESHOLD must be between 1 and 10"))
	}
	if r.PoolSize < 1 {
		errs = append(errs, errors.New("RECOMMEND_POOL_SIZE must be at least 1"))
	}

	if c.TMDB.MaxRetries < 0 {
		errs = append(errs, errors.New("TMDB_MAX_RETRIES must not be negative"))
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("TMDB_REQUESTS_PER_SECOND must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
