package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/manoam/stocks-backend/internal/app"
	"github.com/manoam/stocks-backend/internal/audit"
	"github.com/manoam/stocks-backend/internal/dashboard"
	"github.com/manoam/stocks-backend/internal/geo"
	"github.com/manoam/stocks-backend/internal/importer"
	"github.com/manoam/stocks-backend/internal/inventory"
	"github.com/manoam/stocks-backend/internal/masterdata/products"
	"github.com/manoam/stocks-backend/internal/masterdata/sites"
	"github.com/manoam/stocks-backend/internal/masterdata/suppliers"
	"github.com/manoam/stocks-backend/internal/masterdata/taxonomy"
	"github.com/manoam/stocks-backend/internal/observability"
	"github.com/manoam/stocks-backend/internal/orders"
	"github.com/manoam/stocks-backend/internal/packs"
	"github.com/manoam/stocks-backend/internal/platform/cache"
	"github.com/manoam/stocks-backend/internal/platform/db"
	"github.com/manoam/stocks-backend/internal/shared"
	"github.com/manoam/stocks-backend/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{
		MaxConns:        cfg.PGMaxConns,
		MinConns:        cfg.PGMinConns,
		MaxConnLifetime: cfg.PGConnLifetime,
	})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()
	invalidator := shared.NewInvalidator(redisClient, logger)
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	geocoder := geo.NewHTTPGeocoder(cfg.GeocoderURL, cfg.GeocoderTimeout)

	siteService := sites.NewService(sites.NewRepository(pool), invalidator)
	supplierService := suppliers.NewService(suppliers.NewRepository(pool), geocoder, invalidator, logger)
	taxonomyService := taxonomy.NewService(taxonomy.NewRepository(pool), invalidator)
	productService := products.NewService(products.NewRepository(pool), invalidator)

	inventoryService := inventory.NewService(inventory.NewRepository(pool), auditLogger, invalidator,
		inventory.ServiceConfig{AllowNegativeStock: cfg.AllowNegativeStock})
	orderService := orders.NewService(orders.NewRepository(pool), inventoryService, auditLogger, invalidator)
	packService := packs.NewService(packs.NewRepository(pool), inventoryService, invalidator)

	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), redisClient, invalidator, logger,
		dashboard.Config{
			LowStockThreshold: cfg.LowStockThreshold,
			CacheTTL:          cfg.DashboardCacheTTL,
		})

	importStore := importer.NewPGStore(pool, siteService, supplierService, taxonomyService,
		productService, inventoryService, orderService)
	importService := importer.NewService(importStore, auditLogger, invalidator, logger)
	exporter := importer.NewExporter(pool)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,

		SitesHandler:     sites.NewHandler(siteService),
		SuppliersHandler: suppliers.NewHandler(supplierService),
		ProductsHandler:  products.NewHandler(productService),
		TaxonomyHandler:  taxonomy.NewHandler(taxonomyService),
		InventoryHandler: inventory.NewHandler(inventoryService, idempotencyStore),
		OrdersHandler:    orders.NewHandler(orderService, idempotencyStore),
		PacksHandler:     packs.NewHandler(packService),
		DashboardHandler: dashboard.NewHandler(dashboardService),
		ImporterHandler:  importer.NewHandler(importService, exporter, jobClient, cfg.ImportMaxBytes),
		AuditHandler:     audit.NewHandler(audit.NewService(audit.NewRepository(pool))),
		JobHandler:       jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
