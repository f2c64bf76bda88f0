package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leaddesk/leaddesk/internal/app"
	jobmetrics "github.com/leaddesk/leaddesk/internal/jobs"
	"github.com/leaddesk/leaddesk/internal/leads"
	"github.com/leaddesk/leaddesk/internal/notify"
	"github.com/leaddesk/leaddesk/internal/platform/cache"
	"github.com/leaddesk/leaddesk/internal/platform/db"
	"github.com/leaddesk/leaddesk/internal/users"
	"github.com/leaddesk/leaddesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	remindDate := flag.String("remind", "", "enqueue follow-up reminders for the given YYYY-MM-DD and exit (\"today\" for the current day)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := jobs.NewClient(redisOpts)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	if *remindDate != "" {
		payload := jobs.FollowUpRemindersPayload{}
		if *remindDate != "today" {
			payload.Date = *remindDate
		}
		info, err := client.EnqueueFollowUpReminders(ctx, payload)
		if err != nil {
			logger.Error("enqueue follow-up reminders", slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Printf("enqueued %s on %s (%s)\n", info.Type, info.Queue, info.ID)
		return
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("load display timezone", slog.String("timezone", cfg.DisplayTimezone), slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
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

	metrics := jobmetrics.NewMetrics(nil)
	usersService := users.NewService(users.NewRepository(pool), cache.NewVersioned(redisClient, "users", cfg.CacheTTL), logger)

	pushJob := jobs.NewPushJob(notify.NewHTTPPusher(cfg.NotifyEndpoint), logger, metrics)
	reminderJob := jobs.NewFollowUpReminderJob(leads.NewRepository(pool), usersService, client, loc, logger, metrics)

	reminderTask, err := jobs.NewFollowUpRemindersTask(jobs.FollowUpRemindersPayload{})
	if err != nil {
		logger.Error("build follow-up reminders task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Location:  loc,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSendPush, Handler: pushJob.Handle},
			{Type: jobs.TaskFollowUpReminders, Handler: reminderJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.FollowUpRemindersCron, Task: reminderTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("worker metrics listener", slog.Any("error", err))
			}
		}()
		defer func() { _ = metricsServer.Close() }()
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
