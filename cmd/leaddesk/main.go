package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"

	"github.com/leaddesk/leaddesk/internal/app"
	"github.com/leaddesk/leaddesk/internal/auth"
	"github.com/leaddesk/leaddesk/internal/leads"
	"github.com/leaddesk/leaddesk/internal/masterdata"
	"github.com/leaddesk/leaddesk/internal/observability"
	"github.com/leaddesk/leaddesk/internal/platform/cache"
	"github.com/leaddesk/leaddesk/internal/platform/db"
	"github.com/leaddesk/leaddesk/internal/platform/validation"
	"github.com/leaddesk/leaddesk/internal/rbac"
	"github.com/leaddesk/leaddesk/internal/shared"
	"github.com/leaddesk/leaddesk/internal/users"
	"github.com/leaddesk/leaddesk/internal/whatsapp"
	"github.com/leaddesk/leaddesk/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if applied, err := db.Migrate(ctx, dbpool); err != nil {
		logger.Error("migrate schema", slog.Any("error", err))
		os.Exit(1)
	} else if applied > 0 {
		logger.Info("schema migrated", slog.Int("applied", applied))
	}

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

	metrics := observability.NewMetrics()
	validator := validation.New()
	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionTTL)
	auditLogger := shared.NewAuditLogger(dbpool)

	rbacService := rbac.NewService()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	usersService := users.NewService(users.NewRepository(dbpool), cache.NewVersioned(redisClient, "users", cfg.CacheTTL), logger)
	usersHandler := users.NewHandler(logger, usersService, validator, rbacMiddleware)

	lookupService := masterdata.NewService(masterdata.NewRepository(dbpool), cache.NewVersioned(redisClient, "lookups", cfg.CacheTTL), logger)
	lookupHandlers := make(map[masterdata.Kind]*masterdata.Handler, len(masterdata.Kinds()))
	for _, kind := range masterdata.Kinds() {
		lookupHandlers[kind] = masterdata.NewHandler(logger, lookupService, validator, rbacMiddleware, kind)
	}

	whatsappClient := whatsapp.NewClient(cfg.WhatsAppBaseURL, whatsapp.Credentials{
		APIKey:   cfg.WhatsAppAPIKey,
		AppKey:   cfg.WhatsAppAppKey,
		DeviceID: cfg.WhatsAppDeviceID,
	})

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	resolver := leads.NewResolver(usersService, jobClient, metrics, logger)
	leadsService := leads.NewService(
		leads.NewRepository(dbpool),
		lookupService,
		usersService,
		resolver,
		auditLogger,
		whatsappClient,
		validator,
		leads.ServiceConfig{Metrics: metrics, Logger: logger},
	)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        authHandler,
		LeadsHandler:       leads.NewHandler(logger, leadsService, rbacMiddleware),
		UsersHandler:       usersHandler,
		LookupHandlers:     lookupHandlers,
		WhatsAppHandler:    whatsapp.NewHandler(logger, whatsappClient, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
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
