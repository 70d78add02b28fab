// Package jobs runs the periodic catalog refresh.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"movie-recommendation-backend/internal/config"
	"movie-recommendation-backend/internal/metrics"
)

// Refresher pulls fresh catalog pages into the local store.
type Refresher interface {
	RefreshCatalog(ctx context.Context, pages int) (int, error)
}

// PoolWarmer rebuilds the cached recommendation candidate pool.
type PoolWarmer interface {
	WarmPool(ctx context.Context) error
}

// TokenPurger removes revoked refresh tokens that have expired.
type TokenPurger interface {
	PurgeRevokedTokens(ctx context.Context) (int64, error)
}

// runTimeout bounds a single refresh run.
const runTimeout = 10 * time.Minute

// Scheduler runs the catalog refresh on a cron schedule.
type Scheduler struct {
	cfg     config.RefreshConfig
	catalog Refresher
	pool    PoolWarmer
	tokens  TokenPurger
	cron    *cron.Cron
}

// NewScheduler creates a scheduler. pool and tokens may be nil.
func NewScheduler(cfg config.RefreshConfig, catalog Refresher, pool PoolWarmer, tokens TokenPurger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		catalog: catalog,
		pool:    pool,
		tokens:  tokens,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start registers the refresh job and starts the cron loop. It is a no-op
// when refreshing is disabled.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		slog.Info("catalog refresh disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { _ = s.RunRefresh(context.Background()) }); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	slog.Info("catalog refresh scheduled", "schedule", s.cfg.Schedule, "pages", s.cfg.Pages)
	return nil
}

// Stop stops the cron loop and waits for a running job to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("catalog refresh stopped")
	case <-ctx.Done():
		slog.Warn("catalog refresh still running at shutdown")
	}
}

// RunRefresh performs one refresh: catalog pages, then the candidate pool,
// then expired revoked tokens. A catalog failure skips the pool warm-up.
func (s *Scheduler) RunRefresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	stored, err := s.catalog.RefreshCatalog(ctx, s.cfg.Pages)
	if err != nil {
		metrics.CatalogRefreshes.WithLabelValues("failure").Inc()
		slog.Error("catalog refresh failed", "stored", stored, "error", err)
		s.purgeTokens(ctx)
		return err
	}

	if s.pool != nil {
		if err := s.pool.WarmPool(ctx); err != nil {
			slog.Warn("candidate pool warm-up failed", "error", err)
		}
	}
	s.purgeTokens(ctx)

	metrics.CatalogRefreshes.WithLabelValues("success").Inc()
	slog.Info("catalog refresh complete", "stored", stored, "duration", time.Since(start))
	return nil
}

func (s *Scheduler) purgeTokens(ctx context.Context) {
	if s.tokens == nil {
		return
	}
	n, err := s.tokens.PurgeRevokedTokens(ctx)
	if err != nil {
		slog.Warn("failed to purge revoked tokens", "error", err)
		return
	}
	if n > 0 {
		slog.Info("purged revoked tokens", "count", n)
	}
}
