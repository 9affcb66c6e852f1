package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/launchthat/storefront/internal/app"
	"github.com/launchthat/storefront/internal/catalog"
	jobmetrics "github.com/launchthat/storefront/internal/jobs"
	"github.com/launchthat/storefront/internal/platform/db"
	"github.com/launchthat/storefront/jobs"
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

	catalogRepo := catalog.NewRepository(pool)
	metrics := jobmetrics.NewMetrics(nil)

	recountJob := jobs.NewRecountHandler(catalogRepo, metrics, logger)
	receiptJob := jobs.NewReceiptHandler(metrics, logger)

	// Nightly sweep recounts the whole catalog.
	sweepTask, err := jobs.NewProductRecountTask(jobs.ProductRecountPayload{})
	if err != nil {
		logger.Error("build recount task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskProductRecount, Handler: recountJob.Handle},
			{Type: jobs.TaskOrderReceipt, Handler: receiptJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
