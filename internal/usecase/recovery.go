package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsPipeline/internal/logging"
	"NewsPipeline/internal/ports"
)

// SweepResult reports what one recovery pass changed.
type SweepResult struct {
	Reset    int `json:"reset"`
	Released int `json:"released"`
}

// Sweeper returns articles stuck in processing to pending and releases due retries.
type Sweeper struct {
	store        ports.ArticleStore
	stuckTimeout time.Duration
	counters     *Counters
	waker        Waker
	logger       *slog.Logger
	now          func() time.Time
}

// NewSweeper builds the recovery sweep. A nil waker or counters is tolerated.
func NewSweeper(store ports.ArticleStore, stuckTimeout time.Duration, counters *Counters, waker Waker, logger *slog.Logger, now func() time.Time) *Sweeper {
	if counters == nil {
		counters = NewCounters()
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{
		store:        store,
		stuckTimeout: stuckTimeout,
		counters:     counters,
		waker:        waker,
		logger:       logging.OrDiscard(logger),
		now:          now,
	}
}

// Sweep runs one pass. retry_count is never changed by a reset.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.now().UTC()

	reset, err := s.store.ResetStuck(ctx, now.Add(-s.stuckTimeout), now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("reset stuck: %w", err)
	}
	released, err := s.store.ReleaseDueRetries(ctx, now)
	if err != nil {
		return SweepResult{Reset: reset}, fmt.Errorf("release retries: %w", err)
	}

	result := SweepResult{Reset: reset, Released: released}
	if reset > 0 {
		s.counters.recovered.Add(int64(reset))
		s.logger.Warn("reset stuck articles", "count", reset, "stuck_timeout", s.stuckTimeout)
	}
	if reset+released > 0 && s.waker != nil {
		s.waker.Wake()
	}
	return result, nil
}
