package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/manoam/stocks-backend/internal/shared"
)

// StatsSource abstracts the aggregate queries for the service.
type StatsSource interface {
	CountProducts(ctx context.Context) (int, error)
	CountSites(ctx context.Context) (int, error)
	CountSuppliers(ctx context.Context) (int, error)
	TotalStockUnits(ctx context.Context) (int, error)
	CountPendingOrders(ctx context.Context) (int, error)
	LowStockAlerts(ctx context.Context, threshold int) ([]Alert, error)
	MovementSeries(ctx context.Context, since time.Time) ([]SeriesPoint, error)
}

// VersionSource yields the current read-model version for a view.
type VersionSource interface {
	Version(ctx context.Context, view string) (int64, error)
}

// Config groups dashboard tunables.
type Config struct {
	LowStockThreshold int
	CacheTTL          time.Duration
	SeriesWindow      time.Duration
}

// Service aggregates dashboard read models with a versioned Redis
// cache in front: writes bump the version, stale entries age out.
type Service struct {
	source   StatsSource
	cache    *redis.Client
	versions VersionSource
	logger   *slog.Logger
	cfg      Config
}

// NewService builds Service. A nil cache client disables caching.
func NewService(source StatsSource, cache *redis.Client, versions VersionSource, logger *slog.Logger, cfg Config) *Service {
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = 5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.SeriesWindow <= 0 {
		cfg.SeriesWindow = 30 * 24 * time.Hour
	}
	return &Service{source: source, cache: cache, versions: versions, logger: logger, cfg: cfg}
}

// Stats returns the headline aggregates, fanning the count queries out
// concurrently on a cache miss.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	hit, err := s.cached(ctx, "stats", &stats)
	if err == nil && hit {
		return stats, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.TotalProducts, err = s.source.CountProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TotalSites, err = s.source.CountSites(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TotalSuppliers, err = s.source.CountSuppliers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TotalStockUnits, err = s.source.TotalStockUnits(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.PendingOrders, err = s.source.CountPendingOrders(gctx)
		return err
	})
	g.Go(func() error {
		alerts, err := s.source.LowStockAlerts(gctx, s.cfg.LowStockThreshold)
		if err != nil {
			return err
		}
		stats.LowStockCount = len(alerts)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	s.store(ctx, "stats", stats)
	return stats, nil
}

// Alerts lists products at or below the low stock threshold.
func (s *Service) Alerts(ctx context.Context) ([]Alert, error) {
	var alerts []Alert
	hit, err := s.cached(ctx, "alerts", &alerts)
	if err == nil && hit {
		return alerts, nil
	}

	alerts, err = s.source.LowStockAlerts(ctx, s.cfg.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []Alert{}
	}
	s.store(ctx, "alerts", alerts)
	return alerts, nil
}

// Series returns daily movement counts for the trailing window.
func (s *Service) Series(ctx context.Context) ([]SeriesPoint, error) {
	var series []SeriesPoint
	hit, err := s.cached(ctx, "series", &series)
	if err == nil && hit {
		return series, nil
	}

	since := time.Now().UTC().Add(-s.cfg.SeriesWindow).Truncate(24 * time.Hour)
	series, err = s.source.MovementSeries(ctx, since)
	if err != nil {
		return nil, err
	}
	if series == nil {
		series = []SeriesPoint{}
	}
	s.store(ctx, "series", series)
	return series, nil
}

// Warm pre-populates every cached view. Used by the scheduled warmup
// job so the first request after an invalidation stays fast.
func (s *Service) Warm(ctx context.Context) error {
	if _, err := s.Stats(ctx); err != nil {
		return err
	}
	if _, err := s.Alerts(ctx); err != nil {
		return err
	}
	_, err := s.Series(ctx)
	return err
}

func (s *Service) key(ctx context.Context, section string) string {
	version := int64(1)
	if s.versions != nil {
		if v, err := s.versions.Version(ctx, shared.ViewDashboard); err == nil {
			version = v
		}
	}
	return fmt.Sprintf("dashboard:%s:v%d", section, version)
}

func (s *Service) cached(ctx context.Context, section string, target any) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	raw, err := s.cache.Get(ctx, s.key(ctx, section)).Bytes()
	if err != nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return false, nil
	}
	return true, nil
}

// store writes a cache entry. Failures are logged, never fatal.
func (s *Service) store(ctx context.Context, section string, value any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.key(ctx, section), raw, s.cfg.CacheTTL).Err(); err != nil && s.logger != nil {
		s.logger.Warn("dashboard cache write failed", slog.String("section", section), slog.Any("error", err))
	}
}
