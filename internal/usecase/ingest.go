package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"NewsPipeline/internal/dedup"
	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/logging"
	"NewsPipeline/internal/ports"
)

// Waker is notified when new work may be available.
type Waker interface {
	Wake()
}

// IngestorDeps wires the ingestion gate.
type IngestorDeps struct {
	Source   ports.NewsSourceClient
	Store    ports.ArticleStore
	Counters *Counters
	Waker    Waker
	Logger   *slog.Logger
	Now      func() time.Time
}

// Ingestor fetches from the source, deduplicates and inserts pending articles.
type Ingestor struct {
	source   ports.NewsSourceClient
	store    ports.ArticleStore
	counters *Counters
	waker    Waker
	logger   *slog.Logger
	now      func() time.Time
	locks    *keyedMutex
}

// NewIngestor constructs the ingestion use case.
func NewIngestor(deps IngestorDeps) *Ingestor {
	if deps.Counters == nil {
		deps.Counters = NewCounters()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Ingestor{
		source:   deps.Source,
		store:    deps.Store,
		counters: deps.Counters,
		waker:    deps.Waker,
		logger:   logging.OrDiscard(deps.Logger),
		now:      deps.Now,
		locks:    newKeyedMutex(),
	}
}

// Fetch runs one ingestion for criteria. Runs for the same criteria are serialised.
// Source failures are returned wrapped (ErrSourceUnavailable / ErrRateLimited) and
// are meant to be retried by the next trigger, never inline.
func (i *Ingestor) Fetch(ctx context.Context, criteria domain.Criteria) (domain.FetchResult, error) {
	if i.source == nil || i.store == nil {
		return domain.FetchResult{}, fmt.Errorf("ingestor is not configured")
	}

	runID := newRunID()
	log := i.logger.With("run_id", runID, "criteria", criteria.Key(), "source", i.source.Name())

	unlock, err := i.locks.Lock(ctx, criteria.Key())
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("wait for fetch lock: %w", err)
	}
	defer unlock()

	started := i.now()
	raws, err := i.source.Fetch(ctx, criteria)
	if err != nil {
		i.counters.recordFetchError()
		if domain.IsTransient(err) {
			log.Warn("fetch failed, waiting for next trigger", "error", err)
		} else {
			log.Error("fetch failed", "error", err)
		}
		return domain.FetchResult{}, fmt.Errorf("fetch %s: %w", criteria.Key(), err)
	}

	batch := dedup.Admit(raws, i.now().UTC())
	result := domain.FetchResult{ValidationDropped: batch.ValidationDropped}
	for _, article := range batch.Articles {
		inserted, err := i.store.InsertIfAbsent(ctx, article)
		if err != nil {
			i.counters.recordFetch(result)
			return result, fmt.Errorf("store %s: %w", article.CanonicalURL, err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}

	i.counters.recordFetch(result)
	log.Info("fetch complete",
		"received", len(raws),
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"validation_dropped", result.ValidationDropped,
		"elapsed", i.now().Sub(started),
	)

	if result.Inserted > 0 && i.waker != nil {
		i.waker.Wake()
	}
	return result, nil
}

// FetchCategories runs one fetch per category in parallel. Failures are logged and
// do not stop other categories; the joined error is returned alongside the totals.
func (i *Ingestor) FetchCategories(ctx context.Context, categories []string) (domain.FetchResult, error) {
	results := make([]domain.FetchResult, len(categories))
	errs := make([]error, len(categories))

	var g errgroup.Group
	for idx, category := range categories {
		g.Go(func() error {
			results[idx], errs[idx] = i.Fetch(ctx, domain.Criteria{Category: category})
			return nil
		})
	}
	_ = g.Wait()

	var total domain.FetchResult
	for _, r := range results {
		total.Add(r)
	}
	return total, errors.Join(errs...)
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
