package usecase

import (
	"context"

	"NewsPipeline/internal/domain"
)

// Service is the surface exposed to outer layers (CLI, HTTP). It holds no state of its own.
type Service struct {
	ingestor *Ingestor
	pool     *Pool
	sweeper  *Sweeper
	reader   *Reader
	analyst  *Analyst
}

// NewService bundles the use cases.
func NewService(ingestor *Ingestor, pool *Pool, sweeper *Sweeper, reader *Reader, analyst *Analyst) *Service {
	return &Service{ingestor: ingestor, pool: pool, sweeper: sweeper, reader: reader, analyst: analyst}
}

// TriggerFetch runs one ingestion for criteria.
func (s *Service) TriggerFetch(ctx context.Context, criteria domain.Criteria) (domain.FetchResult, error) {
	return s.ingestor.Fetch(ctx, criteria)
}

// TriggerFetchCategories runs one ingestion per category concurrently.
func (s *Service) TriggerFetchCategories(ctx context.Context, categories []string) (domain.FetchResult, error) {
	return s.ingestor.FetchCategories(ctx, categories)
}

// TriggerProcessing wakes the worker pool without waiting for it.
func (s *Service) TriggerProcessing() {
	s.pool.Wake()
}

// ProcessNow drains the queue synchronously.
func (s *Service) ProcessNow(ctx context.Context) (ProcessStats, error) {
	return s.pool.ProcessOnce(ctx)
}

// ProcessArticle enriches one article now instead of waiting for the queue.
func (s *Service) ProcessArticle(ctx context.Context, id int64) (ArticleResult, error) {
	return s.pool.ProcessArticle(ctx, id)
}

// Sweep runs one recovery pass.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	return s.sweeper.Sweep(ctx)
}

// GetArticle loads one article.
func (s *Service) GetArticle(ctx context.Context, id int64) (domain.Article, error) {
	return s.reader.Get(ctx, id)
}

// ListArticles pages through articles in any status.
func (s *Service) ListArticles(ctx context.Context, filters domain.Filters, page, pageSize int) (domain.Page, error) {
	return s.reader.List(ctx, filters, domain.PageRequest{Page: page, PageSize: pageSize})
}

// Search matches processed articles.
func (s *Service) Search(ctx context.Context, term string, filters domain.Filters, page, pageSize int) (domain.SearchResult, error) {
	return s.reader.Search(ctx, term, filters, domain.PageRequest{Page: page, PageSize: pageSize})
}

// GetSuggestions returns typeahead candidates.
func (s *Service) GetSuggestions(ctx context.Context, prefix string, limit int) (domain.Suggestions, error) {
	return s.reader.Suggest(ctx, prefix, limit)
}

// GetPopularTags returns tag usage counts over processed articles.
func (s *Service) GetPopularTags(ctx context.Context, limit int) ([]domain.TagCount, error) {
	return s.reader.PopularTags(ctx, limit)
}

// GetTags lists all tags alphabetically.
func (s *Service) GetTags(ctx context.Context) ([]domain.Tag, error) {
	return s.reader.Tags(ctx)
}

// GetCategories lists categories.
func (s *Service) GetCategories(ctx context.Context) ([]string, error) {
	return s.reader.Categories(ctx)
}

// GetSources lists sources.
func (s *Service) GetSources(ctx context.Context) ([]string, error) {
	return s.reader.Sources(ctx)
}

// GetDashboardStats returns the operator dashboard.
func (s *Service) GetDashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	return s.analyst.Dashboard(ctx)
}

// GetAnalytics returns the full analytics bundle.
func (s *Service) GetAnalytics(ctx context.Context) (domain.Analytics, error) {
	return s.analyst.Analytics(ctx)
}
