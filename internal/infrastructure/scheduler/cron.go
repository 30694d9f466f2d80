package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"NewsPipeline/internal/logging"
	"NewsPipeline/internal/ports"
)

// CronScheduler runs named jobs on standard five-field cron expressions.
// A job still running when its next tick fires is skipped rather than overlapped.
type CronScheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating expressions in loc.
func NewCronScheduler(loc *time.Location, logger *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger = logging.OrDiscard(logger)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)
	ctx, cancel := context.WithCancel(context.Background())
	return &CronScheduler{cron: c, logger: logger, ctx: ctx, cancel: cancel}
}

// Schedule registers job under name. The job receives a context cancelled on Stop.
func (c *CronScheduler) Schedule(name, spec string, job func(ctx context.Context)) error {
	if job == nil {
		return fmt.Errorf("job %s is nil", name)
	}
	_, err := c.cron.AddFunc(spec, func() {
		start := time.Now()
		c.logger.Debug("job started", "job", name)
		job(c.ctx)
		c.logger.Debug("job finished", "job", name, "elapsed", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

// Start begins dispatching. Calling it twice is a no-op.
func (c *CronScheduler) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	c.started = true
	c.cron.Start()
	return nil
}

// Stop halts dispatching and waits for running jobs or ctx, whichever ends first.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	c.mu.Unlock()

	c.cancel()
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries is the number of registered jobs.
func (c *CronScheduler) Entries() int {
	return len(c.cron.Entries())
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
