package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/busanokirby/jc-web-v2/internal/app"
	"github.com/busanokirby/jc-web-v2/internal/integrity"
	"github.com/busanokirby/jc-web-v2/internal/platform/cache"
	"github.com/busanokirby/jc-web-v2/internal/platform/db"
	"github.com/busanokirby/jc-web-v2/internal/recon"
	"github.com/busanokirby/jc-web-v2/internal/reportmail"
	"github.com/busanokirby/jc-web-v2/internal/shared"
	"github.com/busanokirby/jc-web-v2/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
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

	integrityRepo := integrity.NewRepository(pool)
	integrityService := integrity.NewService(integrityRepo, auditLogger, logger)
	integrityJob := integrity.NewScanJob(integrityService, logger)

	reconRepo := recon.NewRepository(pool)
	reconService := recon.NewService(reconRepo, redisClient, cfg.ReconCacheTTL, logger)

	mailer := reportmail.NewSendGridMailer(cfg.SendGridAPIKey, cfg.ReportFromName, cfg.ReportFromEmail)
	reportRepo := reportmail.NewRepository(pool)
	reportService := reportmail.NewService(reportRepo, reconService, mailer, logger)
	reportJob := reportmail.NewDispatchJob(reportService, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeIntegrityScan, Handler: integrityJob.Handle},
			{Type: jobs.TaskTypeReportDispatch, Handler: reportJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: jobs.NewIntegrityScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "*/15 * * * *", Task: jobs.NewReportDispatchTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
