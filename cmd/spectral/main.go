package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spectral-companion/internal/analytics"
	"spectral-companion/internal/bot"
	"spectral-companion/internal/catalog"
	"spectral-companion/internal/challenge"
	"spectral-companion/internal/config"
	"spectral-companion/internal/leveling"
	"spectral-companion/internal/modules/activity"
	"spectral-companion/internal/modules/verification"
	"spectral-companion/internal/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	activityLogger := activity.NewLogger(store, logger)
	levelingEngine := leveling.NewEngine(cfg.Leveling)
	analyticsService := analytics.New(store)
	selector := challenge.NewSelector(catalog.Default())
	verifyModule := verification.New(cfg.Verification, store, activityLogger, logger)

	botSvc, err := bot.New(cfg, logger, store, verifyModule, levelingEngine, analyticsService, activityLogger)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	scheduler := challenge.NewScheduler(logger, store, botSvc, selector)
	scheduler.WithActivity(activityLogger)
	scheduler.AddCleanup(func(ctx context.Context) {
		if err := store.CleanupActivityLogs(ctx, cfg.RetentionDays); err != nil {
			logger.Warn("activity log cleanup failed", zap.Error(err))
		}
	})
	scheduler.AddCleanup(func(ctx context.Context) {
		_ = ctx
		verifyModule.EvictStale(cfg.Challenge.StatsRetentionDays)
	})
	scheduler.Initialize()
	botSvc.SetScheduler(scheduler)

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal("scheduler start failed", zap.Error(err))
	}
	logger.Info("bot started")

	var server *http.Server
	if cfg.Health.Enabled {
		server = &http.Server{Addr: cfg.Health.Addr}
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop()
	if server != nil {
		_ = server.Shutdown(ctx)
	}
	botSvc.Close(ctx)
}
