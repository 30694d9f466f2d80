package usecase

import (
	"sync/atomic"

	"NewsPipeline/internal/domain"
)

// Counters is the process-wide pipeline state. One instance is created at startup
// and shared by the ingestor, pool and sweeper.
type Counters struct {
	fetchRuns         atomic.Int64
	fetchErrors       atomic.Int64
	inserted          atomic.Int64
	skipped           atomic.Int64
	validationDropped atomic.Int64
	claimed           atomic.Int64
	claimConflicts    atomic.Int64
	processed         atomic.Int64
	failed            atomic.Int64
	deadLettered      atomic.Int64
	recovered         atomic.Int64
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters {
	return &Counters{}
}

// Snapshot copies the current values.
func (c *Counters) Snapshot() domain.CounterSnapshot {
	if c == nil {
		return domain.CounterSnapshot{}
	}
	return domain.CounterSnapshot{
		FetchRuns:         c.fetchRuns.Load(),
		FetchErrors:       c.fetchErrors.Load(),
		Inserted:          c.inserted.Load(),
		Skipped:           c.skipped.Load(),
		ValidationDropped: c.validationDropped.Load(),
		Claimed:           c.claimed.Load(),
		ClaimConflicts:    c.claimConflicts.Load(),
		Processed:         c.processed.Load(),
		Failed:            c.failed.Load(),
		DeadLettered:      c.deadLettered.Load(),
		Recovered:         c.recovered.Load(),
	}
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	for _, v := range []*atomic.Int64{
		&c.fetchRuns, &c.fetchErrors, &c.inserted, &c.skipped, &c.validationDropped,
		&c.claimed, &c.claimConflicts, &c.processed, &c.failed, &c.deadLettered, &c.recovered,
	} {
		v.Store(0)
	}
}

func (c *Counters) recordFetch(r domain.FetchResult) {
	c.fetchRuns.Add(1)
	c.inserted.Add(int64(r.Inserted))
	c.skipped.Add(int64(r.Skipped))
	c.validationDropped.Add(int64(r.ValidationDropped))
}

func (c *Counters) recordFetchError() {
	c.fetchRuns.Add(1)
	c.fetchErrors.Add(1)
}

func (c *Counters) recordOutcome(s domain.Status) {
	switch s {
	case domain.StatusProcessed:
		c.processed.Add(1)
	case domain.StatusFailed:
		c.failed.Add(1)
	case domain.StatusDead:
		c.failed.Add(1)
		c.deadLettered.Add(1)
	}
}
