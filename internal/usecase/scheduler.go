package usecase

import (
	"context"
	"log/slog"

	"NewsPipeline/internal/logging"
	"NewsPipeline/internal/ports"
)

// ScheduleConfig holds the cron expressions of the recurring jobs. Empty disables a job.
type ScheduleConfig struct {
	FetchCron   string
	SweepCron   string
	ProcessCron string
	Categories  []string
}

// Scheduler wires the cron driver with the ingestion, sweep and pool use cases.
type Scheduler struct {
	driver   ports.Scheduler
	ingestor *Ingestor
	sweeper  *Sweeper
	pool     *Pool
	cfg      ScheduleConfig
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, ingestor *Ingestor, sweeper *Sweeper, pool *Pool, cfg ScheduleConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		driver:   driver,
		ingestor: ingestor,
		sweeper:  sweeper,
		pool:     pool,
		cfg:      cfg,
		logger:   logging.OrDiscard(logger),
	}
}

// Start registers the jobs with the driver and starts it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	if s.cfg.FetchCron != "" && s.ingestor != nil {
		if err := s.driver.Schedule("fetch", s.cfg.FetchCron, s.fetch); err != nil {
			return err
		}
	}
	if s.cfg.SweepCron != "" && s.sweeper != nil {
		if err := s.driver.Schedule("sweep", s.cfg.SweepCron, s.sweep); err != nil {
			return err
		}
	}
	if s.cfg.ProcessCron != "" && s.pool != nil {
		if err := s.driver.Schedule("process", s.cfg.ProcessCron, func(context.Context) { s.pool.Wake() }); err != nil {
			return err
		}
	}

	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

func (s *Scheduler) fetch(ctx context.Context) {
	result, err := s.ingestor.FetchCategories(ctx, s.cfg.Categories)
	if err != nil {
		s.logger.Warn("scheduled fetch had failures", "error", err)
	}
	s.logger.Info("scheduled fetch done",
		"categories", len(s.cfg.Categories),
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"validation_dropped", result.ValidationDropped,
	)
}

func (s *Scheduler) sweep(ctx context.Context) {
	result, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("scheduled sweep failed", "error", err)
		return
	}
	s.logger.Debug("scheduled sweep done", "reset", result.Reset, "released", result.Released)
}
