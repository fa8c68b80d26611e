package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budgetplanner/internal/backend"
	"budgetplanner/internal/cli"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/services"
	"budgetplanner/internal/sheets"
	gsheet "budgetplanner/internal/sheets/google"
	sheetsmem "budgetplanner/internal/sheets/memory"
	"budgetplanner/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting budget-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	if !backendCfg.Type.Persistent() {
		logger.Warn("Worker is running on the memory backend and only sees its own records")
	}
	res, err := backend.NewFactory(logger).Create(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}

	var appender sheets.Appender
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.FromAppConfig(cfg), logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		appender = client
	} else {
		logger.Info("Google Sheets disabled, mirroring into process memory")
		appender = sheetsmem.New()
	}

	mirror := worker.NewMirrorWorker(res.Store, appender, cfg.MirrorBatchSize, logger)
	sweeper := services.NewMirrorSweeper(mirror, services.SweeperConfig{
		Schedule: cfg.MirrorSweepSchedule,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := sweeper.Stop(ctx); err != nil {
			logger.Error("Sweeper shutdown error", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Performing startup mirror check")
	if err := mirror.StartupCheck(ctx); err != nil {
		logger.Error("Startup mirror check failed", applog.FieldError, err)
	}

	if err := sweeper.Start(ctx); err != nil {
		logger.Error("Failed to start mirror sweeper", applog.FieldError, err)
		os.Exit(1)
	}

	if res.Publisher != nil {
		go func() {
			err := res.Publisher.ConsumeTransactionSync(ctx, mirror.HandleSyncMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
			}
		}()
	} else {
		logger.Info("No AMQP_URL configured, relying on the periodic sweep only")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
