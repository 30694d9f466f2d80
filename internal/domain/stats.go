package domain

import "time"

// DashboardStats is the operator view of the store.
// Unprocessed counts every non-terminal article (pending, processing, failed).
type DashboardStats struct {
	TotalArticles       int             `json:"total_articles"`
	ProcessedArticles   int             `json:"processed_articles"`
	UnprocessedArticles int             `json:"unprocessed_articles"`
	DeadArticles        int             `json:"dead_articles"`
	PendingArticles     int             `json:"pending_articles"`
	ProcessingArticles  int             `json:"processing_articles"`
	FailedArticles      int             `json:"failed_articles"`
	TotalTags           int             `json:"total_tags"`
	ArticlesToday       int             `json:"articles_today"`
	ArticlesThisWeek    int             `json:"articles_this_week"`
	Pipeline            CounterSnapshot `json:"pipeline"`
	GeneratedAt         time.Time       `json:"generated_at"`
}

// CounterSnapshot is a point-in-time copy of the process-wide pipeline counters.
type CounterSnapshot struct {
	FetchRuns         int64 `json:"fetch_runs"`
	FetchErrors       int64 `json:"fetch_errors"`
	Inserted          int64 `json:"inserted"`
	Skipped           int64 `json:"skipped"`
	ValidationDropped int64 `json:"validation_dropped"`
	Claimed           int64 `json:"claimed"`
	ClaimConflicts    int64 `json:"claim_conflicts"`
	Processed         int64 `json:"processed"`
	Failed            int64 `json:"failed"`
	DeadLettered      int64 `json:"dead_lettered"`
	Recovered         int64 `json:"recovered"`
}

// CategoryCount is the number of articles in one category.
type CategoryCount struct {
	Category     string `json:"category"`
	ArticleCount int    `json:"article_count"`
}

// SourceCount is the number of articles from one source.
type SourceCount struct {
	Source       string `json:"source"`
	ArticleCount int    `json:"article_count"`
}

// DailyCount is the number of articles fetched on one UTC day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Analytics bundles every derived statistic.
type Analytics struct {
	Dashboard      DashboardStats  `json:"dashboard"`
	TopTags        []TagCount      `json:"top_tags"`
	Categories     []CategoryCount `json:"categories"`
	ArticlesPerDay []DailyCount    `json:"articles_per_day"`
	TopSources     []SourceCount   `json:"top_sources"`
}
