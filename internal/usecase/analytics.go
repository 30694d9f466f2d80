package usecase

import (
	"context"
	"fmt"
	"time"

	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/ports"
)

const (
	analyticsTopTags    = 20
	analyticsTopSources = 20
	analyticsDays       = 30
)

// Analyst derives read-only statistics from the current store state.
type Analyst struct {
	reader   ports.AnalyticsReader
	index    ports.ArticleIndex
	counters *Counters
	now      func() time.Time
}

// NewAnalyst builds the analytics aggregator.
func NewAnalyst(reader ports.AnalyticsReader, index ports.ArticleIndex, counters *Counters, now func() time.Time) *Analyst {
	if now == nil {
		now = time.Now
	}
	return &Analyst{reader: reader, index: index, counters: counters, now: now}
}

// Dashboard counts articles by state. Unprocessed covers pending, processing and failed.
func (a *Analyst) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	now := a.now().UTC()
	byStatus, err := a.reader.CountByStatus(ctx)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count by status: %w", err)
	}
	tags, err := a.reader.CountTags(ctx)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count tags: %w", err)
	}

	today := startOfDay(now)
	fetchedToday, err := a.reader.CountFetchedSince(ctx, today)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count today: %w", err)
	}
	fetchedWeek, err := a.reader.CountFetchedSince(ctx, today.AddDate(0, 0, -6))
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count week: %w", err)
	}

	stats := domain.DashboardStats{
		ProcessedArticles:  byStatus[domain.StatusProcessed],
		DeadArticles:       byStatus[domain.StatusDead],
		PendingArticles:    byStatus[domain.StatusPending],
		ProcessingArticles: byStatus[domain.StatusProcessing],
		FailedArticles:     byStatus[domain.StatusFailed],
		TotalTags:          tags,
		ArticlesToday:      fetchedToday,
		ArticlesThisWeek:   fetchedWeek,
		Pipeline:           a.counters.Snapshot(),
		GeneratedAt:        now,
	}
	for _, n := range byStatus {
		stats.TotalArticles += n
	}
	stats.UnprocessedArticles = stats.PendingArticles + stats.ProcessingArticles + stats.FailedArticles
	return stats, nil
}

// DailyCounts returns fetch counts for the trailing days ending today, oldest first.
// Days without articles are present with zero.
func (a *Analyst) DailyCounts(ctx context.Context, days int) ([]domain.DailyCount, error) {
	if days < 1 {
		days = 1
	}
	first := startOfDay(a.now().UTC()).AddDate(0, 0, -(days - 1))
	fetched, err := a.reader.FetchedSince(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("fetched since: %w", err)
	}

	out := make([]domain.DailyCount, days)
	index := make(map[string]int, days)
	for i := range out {
		date := first.AddDate(0, 0, i).Format(time.DateOnly)
		out[i] = domain.DailyCount{Date: date}
		index[date] = i
	}
	for _, t := range fetched {
		if i, ok := index[t.UTC().Format(time.DateOnly)]; ok {
			out[i].Count++
		}
	}
	return out, nil
}

// Analytics bundles the dashboard with tag, category, daily and source breakdowns.
func (a *Analyst) Analytics(ctx context.Context) (domain.Analytics, error) {
	dashboard, err := a.Dashboard(ctx)
	if err != nil {
		return domain.Analytics{}, err
	}
	tags, err := a.index.PopularTags(ctx, analyticsTopTags)
	if err != nil {
		return domain.Analytics{}, fmt.Errorf("popular tags: %w", err)
	}
	categories, err := a.reader.CategoryCounts(ctx)
	if err != nil {
		return domain.Analytics{}, fmt.Errorf("category counts: %w", err)
	}
	daily, err := a.DailyCounts(ctx, analyticsDays)
	if err != nil {
		return domain.Analytics{}, err
	}
	sources, err := a.reader.TopSources(ctx, analyticsTopSources)
	if err != nil {
		return domain.Analytics{}, fmt.Errorf("top sources: %w", err)
	}
	return domain.Analytics{
		Dashboard:      dashboard,
		TopTags:        tags,
		Categories:     categories,
		ArticlesPerDay: daily,
		TopSources:     sources,
	}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
