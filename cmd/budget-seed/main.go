package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"budgetplanner/internal/auth"
	"budgetplanner/internal/backend"
	"budgetplanner/internal/cli"
	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/seed"
	"budgetplanner/internal/services"
)

func main() {
	defaults := seed.DefaultOptions()
	var (
		userID   = flag.String("user", "demo-user", "user id to seed")
		email    = flag.String("email", "demo@example.com", "profile email")
		opts     seed.Options
		tokenTTL = flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed bearer token")
	)
	flag.IntVar(&opts.Transactions, "transactions", defaults.Transactions, "number of transactions")
	flag.IntVar(&opts.Goals, "goals", defaults.Goals, "number of income goals")
	flag.IntVar(&opts.Events, "events", defaults.Events, "number of events")
	flag.IntVar(&opts.Months, "months", defaults.Months, "months of history to spread transactions over")
	flag.Int64Var(&opts.Seed, "seed", 0, "random seed, 0 for a random run")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	if !backendCfg.Type.Persistent() {
		logger.Error("Seeding the memory backend has no lasting effect, set DATA_BACKEND to sqlite or postgres")
		os.Exit(1)
	}

	ctx := context.Background()
	res, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	}()

	ledgerOpts := []services.LedgerOption{services.WithLogger(logger)}
	if res.Publisher != nil {
		ledgerOpts = append(ledgerOpts, services.WithPublisher(res.Publisher))
	}
	ledger := services.NewLedgerService(res.Store, ledgerOpts...)

	sum, err := seed.Run(ctx, ledger, *userID, *email, opts, core.DateOf(time.Now().UTC()))
	if err != nil {
		logger.Error("Seeding failed", applog.FieldError, err,
			"transactions", sum.Transactions,
			"goals", sum.Goals,
			"events", sum.Events)
		os.Exit(1)
	}
	logger.Info("Seeding complete",
		applog.FieldUserID, *userID,
		"transactions", sum.Transactions,
		"goals", sum.Goals,
		"events", sum.Events)

	if cfg.JWTSecret == "" {
		return
	}
	token, err := auth.NewVerifier(cfg.JWTSecret, auth.WithIssuer(cfg.JWTIssuer)).Issue(*userID, *email, *tokenTTL)
	if err != nil {
		logger.Error("Failed to issue token", applog.FieldError, err)
		os.Exit(1)
	}
	fmt.Printf("Authorization: Bearer %s\n", token)
}
