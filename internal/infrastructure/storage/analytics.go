package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsPipeline/internal/domain"
)

// CountByStatus returns the number of articles in each lifecycle state. Missing states are zero.
func (r *Repository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	query, args, err := r.sb.Select("status", "COUNT(*)").
		From("articles").
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build status counts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query status counts: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Status]int, 5)
	for _, s := range domain.AllStatuses() {
		out[s] = 0
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[domain.Status(status)] = n
	}
	return out, rows.Err()
}

// CountTags returns the number of known tags.
func (r *Repository) CountTags(ctx context.Context) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").From("tags").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build tag count: %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tags: %w", err)
	}
	return n, nil
}

// CountFetchedSince counts articles fetched at or after since.
func (r *Repository) CountFetchedSince(ctx context.Context, since time.Time) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").
		From("articles").
		Where(sq.GtOrEq{"fetched_at": millis(since)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build fetched count: %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count fetched: %w", err)
	}
	return n, nil
}

// CategoryCounts groups articles by category, largest first.
func (r *Repository) CategoryCounts(ctx context.Context) ([]domain.CategoryCount, error) {
	query, args, err := r.sb.Select("category", "COUNT(*) AS n").
		From("articles").
		Where(sq.NotEq{"category": nil}).
		Where("category <> ''").
		GroupBy("category").
		OrderBy("n DESC", "category ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build category counts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query category counts: %w", err)
	}
	defer rows.Close()

	out := []domain.CategoryCount{}
	for rows.Next() {
		var c domain.CategoryCount
		if err := rows.Scan(&c.Category, &c.ArticleCount); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TopSources returns the sources with the most articles.
func (r *Repository) TopSources(ctx context.Context, limit int) ([]domain.SourceCount, error) {
	b := r.sb.Select("source", "COUNT(*) AS n").
		From("articles").
		GroupBy("source").
		OrderBy("n DESC", "source ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top sources: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top sources: %w", err)
	}
	defer rows.Close()

	out := []domain.SourceCount{}
	for rows.Next() {
		var s domain.SourceCount
		if err := rows.Scan(&s.Source, &s.ArticleCount); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FetchedSince returns fetch timestamps at or after since. Bucketing happens in the caller
// so day boundaries do not depend on SQL dialect date functions.
func (r *Repository) FetchedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	query, args, err := r.sb.Select("fetched_at").
		From("articles").
		Where(sq.GtOrEq{"fetched_at": millis(since)}).
		OrderBy("fetched_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build fetched since: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fetched since: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, fmt.Errorf("scan fetched_at: %w", err)
		}
		out = append(out, fromMillis(ms))
	}
	return out, rows.Err()
}
