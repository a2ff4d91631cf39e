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

	"github.com/gatehouse-console/gatehouse/internal/accesslog"
	"github.com/gatehouse-console/gatehouse/internal/app"
	"github.com/gatehouse-console/gatehouse/internal/audit"
	"github.com/gatehouse-console/gatehouse/internal/auth"
	"github.com/gatehouse-console/gatehouse/internal/backend"
	"github.com/gatehouse-console/gatehouse/internal/dashboard"
	"github.com/gatehouse-console/gatehouse/internal/imagecache"
	"github.com/gatehouse-console/gatehouse/internal/lookup"
	"github.com/gatehouse-console/gatehouse/internal/observability"
	"github.com/gatehouse-console/gatehouse/internal/offline"
	"github.com/gatehouse-console/gatehouse/internal/platform/cache"
	"github.com/gatehouse-console/gatehouse/internal/platform/db"
	"github.com/gatehouse-console/gatehouse/internal/registry"
	"github.com/gatehouse-console/gatehouse/internal/shared"
	"github.com/gatehouse-console/gatehouse/internal/view"
	"github.com/gatehouse-console/gatehouse/jobs"
)

type imageFetcher struct {
	client *backend.Client
}

func (f imageFetcher) FetchImage(ctx context.Context, filename string) ([]byte, string, error) {
	return f.client.Image(ctx, filename)
}

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

	sessionManager := shared.NewSessionManager(redisClient, "gatehouse_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)

	images, err := imagecache.New(imageFetcher{client: backendClient}, cfg.ImageCacheSize, logger)
	if err != nil {
		logger.Error("create image cache", slog.Any("error", err))
		os.Exit(1)
	}

	authService := auth.NewService(backendClient, cfg.BreakglassUser, cfg.BreakglassHash)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	offlineHandler := offline.NewHandler(logger, backendClient, templates, csrfManager)

	accessService := accesslog.NewService(backendClient)
	accessHandler := accesslog.NewHandler(logger, accessService, images, templates, csrfManager, sessionManager)

	dashboardCache := dashboard.NewCache(redisClient, 10*time.Minute)
	dashboardService := dashboard.NewService(backendClient, dashboardCache)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, images, templates, csrfManager)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService, templates, csrfManager)

	registryService := registry.NewService(backendClient)
	registryHandler := registry.NewHandler(logger, registryService, templates, csrfManager, sessionManager)
	registryHandler.SetRecorder(auditService)

	lookupHandler := lookup.NewHandler(logger, registryService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		OfflineHandler:   offlineHandler,
		AccessLogHandler: accessHandler,
		DashboardHandler: dashboardHandler,
		RegistryHandler:  registryHandler,
		LookupHandler:    lookupHandler,
		AuditHandler:     auditHandler,
		JobsHandler:      jobsHandler,
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
