package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	applog "budgetplanner/internal/log"
)

// PendingProcessor mirrors a batch of unmirrored transactions and reports
// how many were copied.
type PendingProcessor interface {
	ProcessPending(ctx context.Context) (int, error)
}

type SweeperConfig struct {
	// Schedule is a standard cron spec or descriptor such as "@every 30s".
	Schedule string
	// RunOnStart triggers one sweep before the first scheduled tick.
	RunOnStart bool
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{Schedule: "@every 30s", RunOnStart: true}
}

// MirrorSweeper re-runs the mirror over records the message bus missed.
// Sweeps never overlap.
type MirrorSweeper struct {
	processor PendingProcessor
	config    SweeperConfig
	logger    *applog.Logger

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	cancel  context.CancelFunc
	sweep   sync.Mutex
}

func NewMirrorSweeper(processor PendingProcessor, config SweeperConfig, logger *applog.Logger) *MirrorSweeper {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &MirrorSweeper{
		processor: processor,
		config:    config,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// Start schedules the sweep. It returns an error if already running or if
// the schedule does not parse.
func (s *MirrorSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("mirror sweeper is already running")
	}
	if s.processor == nil {
		return errors.New("mirror sweeper has no processor")
	}

	ctx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(s.config.Schedule, func() { s.RunOnce(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule %q: %w", s.config.Schedule, err)
	}
	c.Start()
	s.cron, s.cancel, s.running = c, cancel, true

	if s.config.RunOnStart {
		go s.RunOnce(ctx)
	}
	s.logger.InfoContext(ctx, "Mirror sweeper started", "schedule", s.config.Schedule)
	return nil
}

// RunOnce performs one sweep unless another is in progress.
func (s *MirrorSweeper) RunOnce(ctx context.Context) {
	if !s.sweep.TryLock() {
		s.logger.DebugContext(ctx, "Sweep already in progress, skipping")
		return
	}
	defer s.sweep.Unlock()

	if ctx.Err() != nil {
		return
	}
	n, err := s.processor.ProcessPending(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Mirror sweep failed", applog.FieldError, err)
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Mirror sweep completed", applog.FieldRecordCount, n)
	}
}

// Stop cancels the schedule and waits for a running sweep, or for ctx.
func (s *MirrorSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c, cancel := s.cron, s.cancel
	s.running = false
	s.mu.Unlock()

	cancel()
	select {
	case <-c.Stop().Done():
		s.logger.InfoContext(ctx, "Mirror sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Mirror sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *MirrorSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
