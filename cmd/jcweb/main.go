package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/busanokirby/jc-web-v2/internal/app"
	"github.com/busanokirby/jc-web-v2/internal/catalog"
	"github.com/busanokirby/jc-web-v2/internal/integrity"
	"github.com/busanokirby/jc-web-v2/internal/observability"
	"github.com/busanokirby/jc-web-v2/internal/platform/cache"
	"github.com/busanokirby/jc-web-v2/internal/platform/db"
	"github.com/busanokirby/jc-web-v2/internal/recon"
	"github.com/busanokirby/jc-web-v2/internal/repairs"
	"github.com/busanokirby/jc-web-v2/internal/sales"
	"github.com/busanokirby/jc-web-v2/internal/shared"
	"github.com/busanokirby/jc-web-v2/internal/stock"
	"github.com/busanokirby/jc-web-v2/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	settingsStore := shared.NewSettingsStore(pool)
	metrics := observability.NewMetrics()

	catalogRepo := catalog.NewRepository(pool)
	catalogHandler := catalog.NewHandler(logger, catalogRepo)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, auditLogger, metrics)
	stockHandler := stock.NewHandler(logger, stockService, settingsStore)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, auditLogger, metrics, cfg.OverpaymentTolerance)
	salesHandler := sales.NewHandler(logger, salesService, settingsStore)

	repairsRepo := repairs.NewRepository(pool)
	repairsService := repairs.NewService(repairsRepo, auditLogger, metrics, cfg.OverpaymentTolerance)
	repairsHandler := repairs.NewHandler(logger, repairsService)

	reconRepo := recon.NewRepository(pool)
	reconService := recon.NewService(reconRepo, redisClient, cfg.ReconCacheTTL, logger)
	reconHandler := recon.NewHandler(logger, reconService)

	integrityRepo := integrity.NewRepository(pool)
	integrityService := integrity.NewService(integrityRepo, auditLogger, logger)
	integrityHandler := integrity.NewHandler(logger, integrityService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalogHandler,
		StockHandler:     stockHandler,
		SalesHandler:     salesHandler,
		RepairsHandler:   repairsHandler,
		ReconHandler:     reconHandler,
		IntegrityHandler: integrityHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
