package ports

import (
	"context"
	"time"

	"NewsPipeline/internal/domain"
)

// NewsSourceClient pulls raw articles from an upstream provider.
// Failures wrap domain.ErrSourceUnavailable or domain.ErrRateLimited.
type NewsSourceClient interface {
	Name() string
	Fetch(ctx context.Context, criteria domain.Criteria) ([]domain.RawArticle, error)
}

// ArticleStore is the durable write path and lifecycle state machine.
type ArticleStore interface {
	// InsertIfAbsent reports false when the canonical URL is already stored.
	InsertIfAbsent(ctx context.Context, article domain.NewArticle) (bool, error)
	// Claim moves a pending article to processing; false means another caller won.
	Claim(ctx context.Context, id int64, owner string, now time.Time) (bool, error)
	// ReleaseDueRetries moves failed articles whose backoff elapsed back to pending.
	ReleaseDueRetries(ctx context.Context, now time.Time) (int, error)
	// ListClaimable returns pending article ids, oldest first.
	ListClaimable(ctx context.Context, limit int) ([]int64, error)
	Get(ctx context.Context, id int64) (domain.Article, error)
	// Complete persists enrichment and marks the article processed if owner still holds the claim.
	Complete(ctx context.Context, id int64, owner string, result domain.Enrichment, now time.Time) error
	// Fail records a failed enrichment attempt by the claim owner per the retry policy.
	Fail(ctx context.Context, id int64, owner string, cause string, policy domain.RetryPolicy, now time.Time) (domain.FailureOutcome, error)
	// ResetStuck returns processing articles claimed before cutoff to pending.
	ResetStuck(ctx context.Context, cutoff, now time.Time) (int, error)
}

// ArticleIndex is the read-only search and tag surface.
type ArticleIndex interface {
	Query(ctx context.Context, q domain.ArticleQuery) ([]domain.Article, int, error)
	SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error)
	SuggestTitles(ctx context.Context, fragment string, limit int) ([]string, error)
	PopularTags(ctx context.Context, limit int) ([]domain.TagCount, error)
	Tags(ctx context.Context) ([]domain.Tag, error)
	Categories(ctx context.Context) ([]string, error)
	Sources(ctx context.Context) ([]string, error)
}

// AnalyticsReader exposes aggregate counts over the store.
type AnalyticsReader interface {
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
	CountTags(ctx context.Context) (int, error)
	CountFetchedSince(ctx context.Context, since time.Time) (int, error)
	CategoryCounts(ctx context.Context) ([]domain.CategoryCount, error)
	TopSources(ctx context.Context, limit int) ([]domain.SourceCount, error)
	FetchedSince(ctx context.Context, since time.Time) ([]time.Time, error)
}

// Summarizer produces the article summary. Failures wrap
// domain.ErrSummarizationFailed or domain.ErrTimeout.
type Summarizer interface {
	Summarize(ctx context.Context, article domain.Article) (string, error)
}

// Tagger extracts tag names deterministically from article text.
type Tagger interface {
	Tags(title, content string) []string
}

// Notifier alerts operators about dead-lettered articles.
type Notifier interface {
	NotifyDeadLetter(ctx context.Context, alert domain.DeadLetter) error
}

// Scheduler runs named jobs on cron expressions.
type Scheduler interface {
	Schedule(name, spec string, job func(ctx context.Context)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
