package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/logging"
	"NewsPipeline/internal/ports"
)

// PoolConfig sizes the worker pool and carries the retry policy.
type PoolConfig struct {
	Workers          int
	Policy           domain.RetryPolicy
	SummarizeTimeout time.Duration
	PollInterval     time.Duration
	BatchSize        int
}

// PoolDeps wires the enrichment pool.
type PoolDeps struct {
	Store      ports.ArticleStore
	Summarizer ports.Summarizer
	Tagger     ports.Tagger
	Notifier   ports.Notifier
	Counters   *Counters
	Logger     *slog.Logger
	Now        func() time.Time
	Config     PoolConfig
}

// ProcessStats summarises one drain of the queue.
type ProcessStats struct {
	Claimed   int `json:"claimed"`
	Conflicts int `json:"conflicts"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Dead      int `json:"dead"`
}

// Outcomes reported by ProcessArticle besides the resulting status.
const (
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeNotClaimable     = "not_claimable"
)

// ArticleResult reports one on-demand processing request.
type ArticleResult struct {
	ArticleID int64         `json:"article_id"`
	Status    domain.Status `json:"status"`
	Outcome   string        `json:"outcome"`
}

func (s *ProcessStats) add(o ProcessStats) {
	s.Claimed += o.Claimed
	s.Conflicts += o.Conflicts
	s.Processed += o.Processed
	s.Failed += o.Failed
	s.Dead += o.Dead
}

// Pool is a fixed set of workers that claim pending articles and enrich them.
// Each worker finishes one article before claiming the next.
type Pool struct {
	store      ports.ArticleStore
	summarizer ports.Summarizer
	tagger     ports.Tagger
	notifier   ports.Notifier
	counters   *Counters
	logger     *slog.Logger
	now        func() time.Time
	cfg        PoolConfig
	owner      string
	wake       chan struct{}
}

// NewPool constructs the pool with defaults for zero config values.
func NewPool(deps PoolDeps) *Pool {
	cfg := deps.Config
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Policy.MaxRetries < 1 {
		cfg.Policy.MaxRetries = 3
	}
	if cfg.SummarizeTimeout <= 0 {
		cfg.SummarizeTimeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 20
	}
	if deps.Counters == nil {
		deps.Counters = NewCounters()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pool{
		store:      deps.Store,
		summarizer: deps.Summarizer,
		tagger:     deps.Tagger,
		notifier:   deps.Notifier,
		counters:   deps.Counters,
		logger:     logging.OrDiscard(deps.Logger),
		now:        deps.Now,
		cfg:        cfg,
		owner:      uuid.NewString(),
		wake:       make(chan struct{}, cfg.Workers),
	}
}

// Wake nudges idle workers. It never blocks.
func (p *Pool) Wake() {
	for i := 0; i < p.cfg.Workers; i++ {
		select {
		case p.wake <- struct{}{}:
		default:
			return
		}
	}
}

// Run starts the workers and blocks until ctx is cancelled.
// Workers drain the queue, then sleep until woken or the poll interval passes.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < p.cfg.Workers; w++ {
		worker := fmt.Sprintf("%s-%d", p.owner[:8], w)
		g.Go(func() error {
			log := p.logger.With("worker", worker)
			ticker := time.NewTicker(p.cfg.PollInterval)
			defer ticker.Stop()
			for {
				if _, err := p.drain(ctx, worker, log); err != nil && ctx.Err() == nil {
					log.Error("drain failed", "error", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-p.wake:
				case <-ticker.C:
				}
			}
		})
	}
	return g.Wait()
}

// ProcessOnce drains the queue with every worker and returns when nothing is claimable.
func (p *Pool) ProcessOnce(ctx context.Context) (ProcessStats, error) {
	var (
		mu    sync.Mutex
		total ProcessStats
	)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < p.cfg.Workers; w++ {
		worker := fmt.Sprintf("%s-%d", p.owner[:8], w)
		g.Go(func() error {
			stats, err := p.drain(gctx, worker, p.logger.With("worker", worker))
			mu.Lock()
			total.add(stats)
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	return total, err
}

// drain claims and processes articles until none are claimable.
func (p *Pool) drain(ctx context.Context, worker string, log *slog.Logger) (ProcessStats, error) {
	var stats ProcessStats
	for {
		if err := ctx.Err(); err != nil {
			return stats, nil
		}

		if _, err := p.store.ReleaseDueRetries(ctx, p.now().UTC()); err != nil {
			return stats, fmt.Errorf("release retries: %w", err)
		}
		ids, err := p.store.ListClaimable(ctx, p.cfg.BatchSize)
		if err != nil {
			return stats, fmt.Errorf("list claimable: %w", err)
		}
		if len(ids) == 0 {
			return stats, nil
		}

		for _, id := range ids {
			if ctx.Err() != nil {
				return stats, nil
			}
			ok, err := p.store.Claim(ctx, id, worker, p.now().UTC())
			if err != nil {
				return stats, fmt.Errorf("claim %d: %w", id, err)
			}
			if !ok {
				stats.Conflicts++
				p.counters.claimConflicts.Add(1)
				continue
			}
			stats.Claimed++
			p.counters.claimed.Add(1)

			status, err := p.process(ctx, id, worker, log)
			if err != nil {
				if !errors.Is(err, domain.ErrNotClaimed) {
					log.Error("process article", "article_id", id, "error", err)
				}
				continue
			}
			switch status {
			case domain.StatusProcessed:
				stats.Processed++
			case domain.StatusFailed:
				stats.Failed++
			case domain.StatusDead:
				stats.Failed++
				stats.Dead++
			}
		}
	}
}

// ProcessArticle claims one article by id and enriches it ahead of the queue.
// Articles that are already processed or not claimable are reported, not treated as errors.
func (p *Pool) ProcessArticle(ctx context.Context, id int64) (ArticleResult, error) {
	article, err := p.store.Get(ctx, id)
	if err != nil {
		return ArticleResult{}, err
	}
	result := ArticleResult{ArticleID: id, Status: article.Status}
	if article.Status == domain.StatusProcessed {
		result.Outcome = OutcomeAlreadyProcessed
		return result, nil
	}

	worker := p.owner[:8] + "-manual"
	log := p.logger.With("worker", worker)
	ok, err := p.store.Claim(ctx, id, worker, p.now().UTC())
	if err != nil {
		return ArticleResult{}, fmt.Errorf("claim %d: %w", id, err)
	}
	if !ok {
		p.counters.claimConflicts.Add(1)
		result.Outcome = OutcomeNotClaimable
		return result, nil
	}
	p.counters.claimed.Add(1)

	status, err := p.process(ctx, id, worker, log)
	if errors.Is(err, domain.ErrNotClaimed) {
		result.Outcome = OutcomeNotClaimable
		return result, nil
	}
	if err != nil {
		return ArticleResult{}, err
	}
	result.Status = status
	result.Outcome = string(status)
	return result, nil
}

// process enriches one claimed article and records the outcome.
// An error means the outcome could not be persisted; the sweep recovers such articles.
func (p *Pool) process(ctx context.Context, id int64, worker string, log *slog.Logger) (domain.Status, error) {
	article, err := p.store.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load: %w", err)
	}

	summary, err := p.summarize(ctx, article)
	if err != nil {
		return p.fail(ctx, article, worker, err, log)
	}

	var tags []string
	if p.tagger != nil {
		tags = p.tagger.Tags(article.Title, article.ContentText())
	}

	err = p.store.Complete(ctx, id, worker, domain.Enrichment{Summary: summary, Tags: tags}, p.now().UTC())
	if errors.Is(err, domain.ErrNotClaimed) {
		log.Warn("claim lost before completion", "article_id", id)
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}

	p.counters.recordOutcome(domain.StatusProcessed)
	log.Debug("article processed", "article_id", id, "tags", len(tags))
	return domain.StatusProcessed, nil
}

func (p *Pool) summarize(ctx context.Context, article domain.Article) (string, error) {
	if p.summarizer == nil {
		return "", fmt.Errorf("%w: no summarizer configured", domain.ErrSummarizationFailed)
	}
	sctx, cancel := context.WithTimeout(ctx, p.cfg.SummarizeTimeout)
	defer cancel()

	summary, err := p.summarizer.Summarize(sctx, article)
	if err != nil {
		return "", err
	}
	if errors.Is(sctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: summarize exceeded %s", domain.ErrTimeout, p.cfg.SummarizeTimeout)
	}
	return summary, nil
}

func (p *Pool) fail(ctx context.Context, article domain.Article, worker string, cause error, log *slog.Logger) (domain.Status, error) {
	outcome, err := p.store.Fail(ctx, article.ID, worker, cause.Error(), p.cfg.Policy, p.now().UTC())
	if errors.Is(err, domain.ErrNotClaimed) {
		log.Warn("claim lost before failure was recorded", "article_id", article.ID)
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("record failure: %w", err)
	}
	p.counters.recordOutcome(outcome.Status)

	if outcome.Status != domain.StatusDead {
		log.Warn("enrichment failed, retry scheduled",
			"article_id", article.ID,
			"retry_count", outcome.RetryCount,
			"scheduled_for", outcome.ScheduledFor,
			"error", cause,
		)
		return outcome.Status, nil
	}

	log.Error("article dead-lettered", "article_id", article.ID, "retry_count", outcome.RetryCount, "error", cause)
	if p.notifier != nil {
		alert := domain.DeadLetter{
			ArticleID:  article.ID,
			Title:      article.Title,
			URL:        article.URL,
			Source:     article.Source,
			RetryCount: outcome.RetryCount,
			LastError:  cause.Error(),
		}
		if err := p.notifier.NotifyDeadLetter(ctx, alert); err != nil {
			log.Warn("dead-letter notification failed", "article_id", article.ID, "error", err)
		}
	}
	return outcome.Status, nil
}
