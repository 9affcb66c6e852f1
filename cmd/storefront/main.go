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

	"github.com/launchthat/storefront/internal/app"
	"github.com/launchthat/storefront/internal/audit"
	"github.com/launchthat/storefront/internal/auth"
	"github.com/launchthat/storefront/internal/catalog"
	"github.com/launchthat/storefront/internal/checkout"
	"github.com/launchthat/storefront/internal/downloads"
	"github.com/launchthat/storefront/internal/observability"
	"github.com/launchthat/storefront/internal/platform/cache"
	"github.com/launchthat/storefront/internal/platform/db"
	"github.com/launchthat/storefront/internal/rbac"
	"github.com/launchthat/storefront/internal/shared"
	"github.com/launchthat/storefront/internal/users"
	"github.com/launchthat/storefront/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "storefront_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	auditLogger := audit.NewLogger(dbpool)

	userRepo := users.NewRepository(dbpool)
	catalogRepo := catalog.NewRepository(dbpool)

	authService := auth.NewService(userRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	rolesRepo := rbac.NewRepository(dbpool)
	rolesService := rbac.NewService(rolesRepo, userRepo, auditLogger, logger)
	rolesHandler := rbac.NewHandler(logger, rolesService)

	downloadsRepo := downloads.NewRepository(dbpool)
	downloadsService := downloads.NewService(downloadsRepo, catalogRepo, userRepo, auditLogger, logger)
	downloadsHandler := downloads.NewHandler(logger, downloadsService)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	configCache := cache.NewJSONCache(redisClient, "checkout-config", cfg.CheckoutCacheTTL)

	checkoutRepo := checkout.NewRepository(dbpool)
	checkoutService := checkout.NewService(checkoutRepo, catalogRepo, configCache, jobClient, auditLogger, logger)
	checkoutHandler := checkout.NewHandler(logger, checkoutService)

	metrics := observability.NewMetrics()

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
		SessionManager:   sessionManager,
		AuthService:      authService,
		AuthHandler:      authHandler,
		RolesHandler:     rolesHandler,
		DownloadsHandler: downloadsHandler,
		CheckoutHandler:  checkoutHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
