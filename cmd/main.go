package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	fiberRecover "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"movie-recommendation-backend/internal/auth"
	"movie-recommendation-backend/internal/cache"
	"movie-recommendation-backend/internal/config"
	"movie-recommendation-backend/internal/database"
	"movie-recommendation-backend/internal/handler"
	"movie-recommendation-backend/internal/jobs"
	"movie-recommendation-backend/internal/middleware"
	"movie-recommendation-backend/internal/repository"
	"movie-recommendation-backend/internal/service"
	"movie-recommendation-backend/internal/tmdb"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})))

	db, err := database.NewPostgres(cfg.DB)
	if err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Connect to Redis (non-fatal if unavailable)
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, running without cache", "error", err)
	}
	store := cache.NewRedisStore(rdb)

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		slog.Error("failed to create token manager", "error", err)
		os.Exit(1)
	}

	// Initialize layers
	catalog := tmdb.NewClient(cfg.TMDB)
	movieRepo := repository.NewMovieRepository(db)
	userRepo := repository.NewUserRepository(db)
	collectionRepo := repository.NewCollectionRepository(db)

	movieSvc := service.NewMovieService(movieRepo, collectionRepo, catalog, store, cfg)
	userSvc := service.NewUserService(userRepo, tokens, store, cfg)
	collectionSvc := service.NewCollectionService(collectionRepo, movieSvc, store)
	recommendSvc := service.NewRecommendationService(collectionRepo, movieRepo, userSvc, movieSvc, store, cfg)

	app := fiber.New(fiber.Config{
		AppName:      "Movie Recommendation Backend",
		ServerHeader: "Movie-Recommendation-Backend",
		ErrorHandler: handler.ErrorHandler,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	// Middleware
	app.Use(fiberRecover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New())
	// OptionalAuth only identifies the caller for the per-user bucket; routes
	// still enforce auth themselves.
	app.Use(middleware.OptionalAuth(tokens))
	app.Use(middleware.NewRateLimiter(rdb, "global", cfg.RateLimit.Max, cfg.RateLimit.WindowSeconds).
		PerUser(cfg.RateLimit.UserMax).Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger docs
	swaggerYAML, err := os.ReadFile("docs/swagger.yaml")
	if err != nil {
		slog.Warn("swagger.yaml not found, swagger UI will be unavailable", "error", err)
	} else {
		handler.RegisterSwagger(app, swaggerYAML)
	}

	handler.Routes{
		Movies:      handler.NewMovieHandler(movieSvc, recommendSvc),
		Users:       handler.NewUserHandler(userSvc),
		Collections: handler.NewCollectionHandler(collectionSvc),
		Tokens:      tokens,
		AuthLimit:   middleware.NewRateLimiter(rdb, "auth", cfg.RateLimit.AuthMax, cfg.RateLimit.AuthWindowSeconds).Handler(),
	}.Register(app.Group("/api"))

	scheduler := jobs.NewScheduler(cfg.Refresh, movieSvc, recommendSvc, userRepo)
	if err := scheduler.Start(); err != nil {
		slog.Error("failed to start catalog refresh", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.Port
		slog.Info("starting movie recommendation backend", "addr", addr)
		if err := app.Listen(addr); err != nil {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down movie recommendation backend...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error shutting down HTTP server", "error", err)
	}
	slog.Info("HTTP server stopped")

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("error closing Redis connection", "error", err)
		}
	}
	if err := db.Close(); err != nil {
		slog.Error("error closing PostgreSQL connection", "error", err)
	}
	slog.Info("shutdown complete")
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
