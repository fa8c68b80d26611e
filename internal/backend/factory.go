package backend

import (
	"context"
	"errors"
	"fmt"

	"budgetplanner/internal/amqp"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/storage"
	"budgetplanner/internal/storage/postgres"
	"budgetplanner/internal/store"
	"budgetplanner/internal/store/memory"
)

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

var _ Factory = (*DefaultFactory)(nil)

func (f *DefaultFactory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		st      store.Store
		closers []func() error
	)
	switch cfg.Type {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		st, closers = repo, append(closers, repo.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	case Postgres:
		repo, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("initialize Postgres repository: %w", err)
		}
		st, closers = repo, append(closers, repo.Close)
		f.logger.Info("Initialized Postgres backend")
	case Memory:
		st = memory.New()
		f.logger.Warn("Initialized memory backend, data is lost on restart")
	}

	res := &Result{Store: st}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without mirror",
				applog.FieldError, err)
		} else {
			res.Publisher = client
			closers = append([]func() error{client.Close}, closers...)
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	res.Cleanup = func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
	return res, nil
}
