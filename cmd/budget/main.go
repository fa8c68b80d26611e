package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetplanner/internal/auth"
	"budgetplanner/internal/backend"
	"budgetplanner/internal/cache"
	"budgetplanner/internal/cli"
	"budgetplanner/internal/core"
	apphttp "budgetplanner/internal/http"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/services"
)

const (
	transactionCacheEntries = 1000
	cacheSweepInterval      = time.Minute
	shutdownTimeout         = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).Create(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}

	txCache := cache.NewLRUCache[[]core.Transaction](transactionCacheEntries, cfg.ReportCacheTTL)
	janitor := cache.NewJanitor(logger)
	janitor.Register(txCache)

	opts := []services.LedgerOption{
		services.WithLogger(logger),
		services.WithTransactionCache(txCache),
	}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	ledger := services.NewLedgerService(res.Store, opts...)
	reports := services.NewReportService(ledger, logger)

	verifier := auth.NewVerifier(cfg.JWTSecret,
		auth.WithIssuer(cfg.JWTIssuer),
		auth.WithDevUser(cfg.DevUserID, cfg.DevUserEmail),
		auth.WithLogger(logger))
	if cfg.JWTSecret == "" {
		logger.Warn("No AUTH_JWT_SECRET set, every request acts as the dev user", applog.FieldUserID, cfg.DevUserID)
	} else if cfg.DevUserID != "" {
		logger.Warn("DEV_USER_ID ignored because AUTH_JWT_SECRET is set")
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:          ledger,
		Reports:         reports,
		Auth:            verifier,
		Logger:          logger,
		RateLimitPerMin: cfg.RateLimitPerMin,
		TrustedProxies:  cfg.TrustedProxyCIDRs,
		CacheEntries:    txCache.Size,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		janitor.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})
	janitor.Start(ctx, cacheSweepInterval)

	logger.Info("Starting budget server", "port", cfg.Port, "backend", backendCfg.Type)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
