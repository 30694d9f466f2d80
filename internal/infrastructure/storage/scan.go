package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsPipeline/internal/domain"
)

var articleColumns = []string{
	"a.id", "a.canonical_url", "a.url", "a.title", "a.content", "a.summary", "a.source",
	"a.category", "a.author", "a.image_url", "a.published_at", "a.fetched_at", "a.status",
	"a.retry_count", "a.scheduled_for", "a.claimed_at", "a.processed_at", "a.last_error",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		a                                         domain.Article
		content, summary, category, author, image sql.NullString
		lastError                                 sql.NullString
		published, scheduled, claimed, processed  sql.NullInt64
		fetched                                   int64
		status                                    string
	)
	err := row.Scan(&a.ID, &a.CanonicalURL, &a.URL, &a.Title, &content, &summary, &a.Source,
		&category, &author, &image, &published, &fetched, &status,
		&a.RetryCount, &scheduled, &claimed, &processed, &lastError)
	if err != nil {
		return domain.Article{}, err
	}

	a.Content = nullString(content)
	a.Summary = nullString(summary)
	a.Category = nullString(category)
	a.Author = nullString(author)
	a.ImageURL = nullString(image)
	a.LastError = nullString(lastError)
	a.PublishedAt = nullTime(published)
	a.FetchedAt = fromMillis(fetched)
	a.Status = domain.Status(status)
	a.ScheduledFor = nullTime(scheduled)
	a.ClaimedAt = nullTime(claimed)
	a.ProcessedAt = nullTime(processed)
	a.Tags = []string{}
	return a, nil
}

// tagsFor loads tag names for the given articles, sorted by name.
func (r *Repository) tagsFor(ctx context.Context, ids []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := r.sb.Select("at.article_id", "t.name").
		From("article_tags at").
		Join("tags t ON t.id = at.tag_id").
		Where(sq.Eq{"at.article_id": ids}).
		OrderBy("at.article_id", "t.name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tags: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

func millis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return millis(*t)
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
