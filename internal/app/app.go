package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsPipeline/internal/config"
	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/enrich"
	"NewsPipeline/internal/infrastructure/llm"
	"NewsPipeline/internal/infrastructure/ml"
	"NewsPipeline/internal/infrastructure/scheduler"
	"NewsPipeline/internal/infrastructure/storage"
	"NewsPipeline/internal/infrastructure/telegram"
	"NewsPipeline/internal/logging"
	"NewsPipeline/internal/ports"
	"NewsPipeline/internal/source"
	"NewsPipeline/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Repository
	pool      *usecase.Pool
	scheduler *usecase.Scheduler
	service   *usecase.Service
	counters  *usecase.Counters
}

// New opens the store and builds every component from cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	src, err := newSource(cfg, baseLogger)
	if err != nil {
		return nil, err
	}
	summarizer, err := newSummarizer(cfg)
	if err != nil {
		return nil, err
	}

	driver, err := storage.ParseDriver(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	e := cfg.Enrichment
	counters := usecase.NewCounters()
	pool := usecase.NewPool(usecase.PoolDeps{
		Store:      store,
		Summarizer: summarizer,
		Tagger:     enrich.NewKeywordTagger(),
		Notifier:   newNotifier(cfg),
		Counters:   counters,
		Logger:     baseLogger.With("component", "pool"),
		Config: usecase.PoolConfig{
			Workers:          e.Workers,
			Policy:           domainPolicy(e),
			SummarizeTimeout: e.SummarizeTimeout,
			PollInterval:     e.PollInterval,
			BatchSize:        e.BatchSize,
		},
	})
	ingestor := usecase.NewIngestor(usecase.IngestorDeps{
		Source:   src,
		Store:    store,
		Counters: counters,
		Waker:    pool,
		Logger:   baseLogger.With("component", "ingest", "source", src.Name()),
	})
	sweeper := usecase.NewSweeper(store, e.StuckTimeout, counters, pool, baseLogger.With("component", "sweeper"), nil)

	cron := scheduler.NewCronScheduler(cfg.Scheduler.Location(), baseLogger.With("component", "cron"))
	jobs := usecase.NewScheduler(cron, ingestor, sweeper, pool, usecase.ScheduleConfig{
		FetchCron:   cfg.Scheduler.FetchCron,
		SweepCron:   cfg.Scheduler.SweepCron,
		ProcessCron: cfg.Scheduler.ProcessCron,
		Categories:  cfg.Source.Categories,
	}, baseLogger.With("component", "scheduler"))

	service := usecase.NewService(
		ingestor,
		pool,
		sweeper,
		usecase.NewReader(store, store),
		usecase.NewAnalyst(store, store, counters, nil),
	)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		pool:      pool,
		scheduler: jobs,
		service:   service,
		counters:  counters,
	}, nil
}

// Config returns the validated configuration the application was built from.
func (a *Application) Config() config.Config {
	return a.cfg
}

// Service exposes the use-case facade for one-shot commands.
func (a *Application) Service() *usecase.Service {
	return a.service
}

// Run starts the recurring jobs and the worker pool and blocks until ctx is cancelled.
// Articles left in processing by a previous crash are recovered before workers start.
func (a *Application) Run(ctx context.Context) error {
	if result, err := a.service.Sweep(ctx); err != nil {
		a.logger.Warn("startup sweep failed", "error", err)
	} else if result.Reset+result.Released > 0 {
		a.logger.Info("startup sweep", "reset", result.Reset, "released", result.Released)
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("pipeline started",
		"workers", a.cfg.Enrichment.Workers,
		"source", a.cfg.Source.Provider,
		"summarizer", a.cfg.Summarizer.Provider,
		"timezone", a.cfg.Scheduler.Location().String(),
	)

	runErr := a.pool.Run(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	stopErr := a.scheduler.Stop(stopCtx)

	snap := a.counters.Snapshot()
	a.logger.Info("pipeline stopped",
		"inserted", snap.Inserted,
		"processed", snap.Processed,
		"dead_lettered", snap.DeadLettered,
	)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return errors.Join(runErr, stopErr)
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}

func newSource(cfg config.Config, logger *slog.Logger) (ports.NewsSourceClient, error) {
	n := cfg.Source.NewsAPI
	feeds := make([]source.Feed, 0, len(cfg.Source.RSS.Feeds))
	for _, f := range cfg.Source.RSS.Feeds {
		feeds = append(feeds, source.Feed{Name: f.Name, Category: f.Category, URL: f.URL})
	}
	listings := make([]source.Listing, 0, len(cfg.Source.Arxiv.Listings))
	for _, l := range cfg.Source.Arxiv.Listings {
		listings = append(listings, source.Listing{Name: l.Name, Category: l.Category, URL: l.URL})
	}

	registry := source.NewRegistry(
		source.NewNewsAPIClient(source.NewsAPIOptions{
			BaseURL:  n.BaseURL,
			APIKey:   n.APIKey,
			Country:  n.Country,
			PageSize: n.PageSize,
			Timeout:  n.Timeout,
		}, logger.With("component", "source.newsapi")),
		source.NewRSSClient(feeds, cfg.Source.RSS.Timeout, logger.With("component", "source.rss")),
		source.NewArxivClient(source.ArxivOptions{
			Listings:   listings,
			PageSize:   cfg.Source.Arxiv.PageSize,
			MaxEntries: cfg.Source.Arxiv.MaxEntries,
			Timeout:    cfg.Source.Arxiv.Timeout,
		}, logger.With("component", "source.arxiv")),
	)
	return registry.Resolve(cfg.Source.Provider)
}

func newSummarizer(cfg config.Config) (ports.Summarizer, error) {
	timeout := cfg.Enrichment.SummarizeTimeout
	switch cfg.Summarizer.Provider {
	case "", "local":
		return enrich.NewExtractiveSummarizer(cfg.Summarizer.Sentences), nil
	case "ml":
		if cfg.ML.InferenceURL == "" {
			return nil, errors.New("summarizer ml requires ml.inferenceUrl")
		}
		return ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey, cfg.Summarizer.Sentences, timeout), nil
	case "chatgpt":
		if cfg.ChatGPT.APIKey == "" {
			return nil, errors.New("summarizer chatgpt requires chatgpt.apiKey")
		}
		return llm.NewChatGPTClient(cfg.ChatGPT, timeout), nil
	default:
		return nil, fmt.Errorf("unknown summarizer %q", cfg.Summarizer.Provider)
	}
}

func newNotifier(cfg config.Config) ports.Notifier {
	t := cfg.Notifications.Telegram
	if !t.Enabled() {
		return telegram.Nop{}
	}
	return telegram.NewNotifier(t.BaseURL, t.BotToken, t.ChatID)
}

func domainPolicy(e config.EnrichmentConfig) domain.RetryPolicy {
	return domain.RetryPolicy{MaxRetries: e.MaxRetries, BaseDelay: e.BaseDelay, MaxDelay: e.MaxDelay}
}
