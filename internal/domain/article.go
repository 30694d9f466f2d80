package domain

import "time"

// Article is a stored news item together with its enrichment state.
type Article struct {
	ID           int64      `json:"id"`
	CanonicalURL string     `json:"canonical_url"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Content      *string    `json:"content,omitempty"`
	Summary      *string    `json:"summary,omitempty"`
	Source       string     `json:"source"`
	Category     *string    `json:"category,omitempty"`
	Author       *string    `json:"author,omitempty"`
	ImageURL     *string    `json:"image_url,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	FetchedAt    time.Time  `json:"fetched_at"`
	Status       Status     `json:"status"`
	RetryCount   int        `json:"retry_count"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	LastError    *string    `json:"last_error,omitempty"`
	Tags         []string   `json:"tags"`
}

// ContentText returns the article body, or an empty string when the provider sent none.
func (a Article) ContentText() string {
	if a.Content == nil {
		return ""
	}
	return *a.Content
}

// RawArticle is the uniform shape every provider response is mapped into.
// Title and URL are required; pointer fields stay nil when the provider omitted them.
type RawArticle struct {
	URL         string
	Title       string
	Content     *string
	Source      string
	Category    *string
	Author      *string
	ImageURL    *string
	PublishedAt *time.Time
}

// NewArticle is a validated raw item ready for insert-if-absent.
type NewArticle struct {
	Raw          RawArticle
	CanonicalURL string
	FetchedAt    time.Time
}

// Tag is a normalized keyword attached to processed articles.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TagCount pairs a tag with the number of processed articles using it.
type TagCount struct {
	Name         string `json:"name"`
	ArticleCount int    `json:"article_count"`
}

// FetchResult summarises a single ingestion run.
type FetchResult struct {
	Inserted          int `json:"inserted"`
	Skipped           int `json:"skipped"`
	ValidationDropped int `json:"validation_dropped"`
}

// Add accumulates another run into r.
func (r *FetchResult) Add(other FetchResult) {
	r.Inserted += other.Inserted
	r.Skipped += other.Skipped
	r.ValidationDropped += other.ValidationDropped
}

// Enrichment is the output of the summarizer and tagger for one article.
type Enrichment struct {
	Summary string
	Tags    []string
}
