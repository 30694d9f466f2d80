package storage

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"NewsPipeline/internal/domain"
)

const recencyOrder = "COALESCE(a.published_at, a.fetched_at) DESC"

// Query returns one page of articles matching q together with the size of the full filtered set.
func (r *Repository) Query(ctx context.Context, q domain.ArticleQuery) ([]domain.Article, int, error) {
	page := q.Page.Normalize()

	count := r.applyFilters(r.sb.Select("COUNT(*)").From("articles a"), q)
	query, args, err := count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}
	if total == 0 {
		return []domain.Article{}, 0, nil
	}

	sel := r.applyFilters(r.sb.Select(articleColumns...).From("articles a"), q).
		OrderBy(recencyOrder, "a.id DESC").
		Limit(uint64(page.PageSize)).
		Offset(uint64(page.Offset()))
	query, args, err = sel.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query articles: %w", err)
	}
	items := make([]domain.Article, 0, page.PageSize)
	ids := make([]int64, 0, page.PageSize)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan article: %w", err)
		}
		items = append(items, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("iterate articles: %w", err)
	}
	rows.Close()

	tags, err := r.tagsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		if t, ok := tags[items[i].ID]; ok {
			items[i].Tags = t
		}
	}
	return items, total, nil
}

func (r *Repository) applyFilters(b sq.SelectBuilder, q domain.ArticleQuery) sq.SelectBuilder {
	f := q.Filters
	if q.ProcessedOnly {
		b = b.Where(sq.Eq{"a.status": domain.StatusProcessed})
	} else if f.Status != "" {
		b = b.Where(sq.Eq{"a.status": f.Status})
	}
	if term := strings.TrimSpace(q.Term); term != "" {
		like := "%" + escapeLike(domain.FoldText(term)) + "%"
		b = b.Where(`(a.search_title LIKE ? ESCAPE '\' OR a.search_body LIKE ? ESCAPE '\')`, like, like)
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		b = b.Where("LOWER(a.category) = ?", strings.ToLower(c))
	}
	if s := strings.TrimSpace(f.Source); s != "" {
		b = b.Where("LOWER(a.source) = ?", strings.ToLower(s))
	}
	if tag := domain.NormalizeTag(f.Tag); tag != "" {
		b = b.Where("a.id IN (SELECT at.article_id FROM article_tags at JOIN tags t ON t.id = at.tag_id WHERE t.name = ?)", tag)
	}
	if f.FromDate != nil {
		b = b.Where(sq.GtOrEq{"a.published_at": millis(*f.FromDate)})
	}
	if f.ToDate != nil {
		b = b.Where(sq.LtOrEq{"a.published_at": millis(*f.ToDate)})
	}
	return b
}

// SuggestTags returns tag names starting with prefix, most used first.
func (r *Repository) SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = domain.NormalizeTag(prefix)
	if prefix == "" || limit <= 0 {
		return []string{}, nil
	}

	query, args, err := r.sb.Select("t.name", "COUNT(a.id) AS uses").
		From("tags t").
		LeftJoin("article_tags at ON at.tag_id = t.id").
		LeftJoin("articles a ON a.id = at.article_id AND a.status = ?", domain.StatusProcessed).
		Where(`t.name LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		GroupBy("t.name").
		OrderBy("uses DESC", "t.name ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tag suggestions: %w", err)
	}
	return r.queryStrings(ctx, query, args, 0)
}

// SuggestTitles returns distinct processed article titles containing fragment, newest first.
func (r *Repository) SuggestTitles(ctx context.Context, fragment string, limit int) ([]string, error) {
	fragment = domain.FoldText(strings.TrimSpace(fragment))
	if fragment == "" || limit <= 0 {
		return []string{}, nil
	}

	query, args, err := r.sb.Select("a.title").
		From("articles a").
		Where(sq.Eq{"a.status": domain.StatusProcessed}).
		Where(`a.search_title LIKE ? ESCAPE '\'`, "%"+escapeLike(fragment)+"%").
		OrderBy(recencyOrder, "a.title ASC").
		Limit(uint64(limit * 4)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build title suggestions: %w", err)
	}
	return r.queryStrings(ctx, query, args, limit)
}

// PopularTags counts processed articles per tag.
func (r *Repository) PopularTags(ctx context.Context, limit int) ([]domain.TagCount, error) {
	b := r.sb.Select("t.name", "COUNT(a.id) AS uses").
		From("tags t").
		Join("article_tags at ON at.tag_id = t.id").
		Join("articles a ON a.id = at.article_id").
		Where(sq.Eq{"a.status": domain.StatusProcessed}).
		GroupBy("t.name").
		OrderBy("uses DESC", "t.name ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build popular tags: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query popular tags: %w", err)
	}
	defer rows.Close()

	out := []domain.TagCount{}
	for rows.Next() {
		var tc domain.TagCount
		if err := rows.Scan(&tc.Name, &tc.ArticleCount); err != nil {
			return nil, fmt.Errorf("scan popular tag: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// Tags lists every known tag alphabetically, whether or not a processed article uses it.
func (r *Repository) Tags(ctx context.Context) ([]domain.Tag, error) {
	query, args, err := r.sb.Select("id", "name", "created_at").
		From("tags").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tags: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	out := []domain.Tag{}
	for rows.Next() {
		var (
			tag     domain.Tag
			created int64
		)
		if err := rows.Scan(&tag.ID, &tag.Name, &created); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tag.CreatedAt = fromMillis(created)
		out = append(out, tag)
	}
	return out, rows.Err()
}

// Categories lists distinct non-empty categories alphabetically.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "category")
}

// Sources lists distinct sources alphabetically.
func (r *Repository) Sources(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "source")
}

func (r *Repository) distinct(ctx context.Context, column string) ([]string, error) {
	query, args, err := r.sb.Select("DISTINCT " + column).
		From("articles").
		Where(sq.NotEq{column: nil}).
		Where(column + " <> ''").
		OrderBy(column + " ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build distinct %s: %w", column, err)
	}
	return r.queryStrings(ctx, query, args, 0)
}

// queryStrings reads a single string column, dropping repeats. max > 0 bounds the result.
func (r *Repository) queryStrings(ctx context.Context, query string, args []any, max int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query strings: %w", err)
	}
	defer rows.Close()

	out := []string{}
	seen := map[string]struct{}{}
	for rows.Next() {
		var s string
		var ignored any
		dest := []any{&s}
		cols, _ := rows.Columns()
		for i := 1; i < len(cols); i++ {
			dest = append(dest, &ignored)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan string: %w", err)
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
