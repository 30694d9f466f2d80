package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/ports"
)

// Repository persists articles and tags and owns the lifecycle transitions.
type Repository struct {
	db     *sql.DB
	driver Driver
	sb     sq.StatementBuilderType
}

var (
	_ ports.ArticleStore    = (*Repository)(nil)
	_ ports.ArticleIndex    = (*Repository)(nil)
	_ ports.AnalyticsReader = (*Repository)(nil)
)

// NewRepository wraps an already opened and migrated sql.DB.
func NewRepository(db *sql.DB, driver Driver) *Repository {
	return &Repository{
		db:     db,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(driver.placeholder()),
	}
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// InsertIfAbsent stores a new pending article unless its canonical URL already exists.
func (r *Repository) InsertIfAbsent(ctx context.Context, article domain.NewArticle) (bool, error) {
	raw := article.Raw
	query, args, err := r.sb.Insert("articles").
		Columns("canonical_url", "url", "title", "content", "source", "category", "author",
			"image_url", "published_at", "fetched_at", "status", "retry_count",
			"search_title", "search_body", "updated_at").
		Values(article.CanonicalURL, raw.URL, raw.Title, raw.Content, raw.Source, raw.Category, raw.Author,
			raw.ImageURL, nullMillis(raw.PublishedAt), millis(article.FetchedAt), domain.StatusPending, 0,
			domain.FoldText(raw.Title), domain.FoldText(deref(raw.Content)), millis(article.FetchedAt)).
		Suffix("ON CONFLICT (canonical_url) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert article %s: %w", article.CanonicalURL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert article rows affected: %w", err)
	}
	return n == 1, nil
}

// Claim is the compare-and-set pending -> processing transition.
func (r *Repository) Claim(ctx context.Context, id int64, owner string, now time.Time) (bool, error) {
	query, args, err := r.sb.Update("articles").
		Set("status", domain.StatusProcessing).
		Set("claimed_at", millis(now)).
		Set("claimed_by", owner).
		Set("updated_at", millis(now)).
		Where(sq.Eq{"id": id, "status": domain.StatusPending}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build claim: %w", err)
	}

	n, err := r.exec(ctx, r.db, query, args)
	if err != nil {
		return false, fmt.Errorf("claim article %d: %w", id, err)
	}
	return n == 1, nil
}

// ReleaseDueRetries makes failed articles whose backoff has elapsed claimable again.
func (r *Repository) ReleaseDueRetries(ctx context.Context, now time.Time) (int, error) {
	query, args, err := r.sb.Update("articles").
		Set("status", domain.StatusPending).
		Set("scheduled_for", nil).
		Set("updated_at", millis(now)).
		Where(sq.Eq{"status": domain.StatusFailed}).
		Where(sq.LtOrEq{"scheduled_for": millis(now)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build release: %w", err)
	}

	n, err := r.exec(ctx, r.db, query, args)
	if err != nil {
		return 0, fmt.Errorf("release due retries: %w", err)
	}
	return int(n), nil
}

// ListClaimable returns up to limit pending article ids in fetch order.
func (r *Repository) ListClaimable(ctx context.Context, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 1
	}
	query, args, err := r.sb.Select("id").
		From("articles").
		Where(sq.Eq{"status": domain.StatusPending}).
		OrderBy("fetched_at ASC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build claimable: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claimable: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan claimable id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Get loads one article with its tags.
func (r *Repository) Get(ctx context.Context, id int64) (domain.Article, error) {
	query, args, err := r.sb.Select(articleColumns...).
		From("articles a").
		Where(sq.Eq{"a.id": id}).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build get: %w", err)
	}

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("get article %d: %w", id, err)
	}

	tags, err := r.tagsFor(ctx, []int64{id})
	if err != nil {
		return domain.Article{}, err
	}
	article.Tags = tags[id]
	return article, nil
}

// Complete stores the summary and tags and marks the article processed.
// The write is rejected with domain.ErrNotClaimed unless owner still holds the claim.
func (r *Repository) Complete(ctx context.Context, id int64, owner string, result domain.Enrichment, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := r.sb.Update("articles").
		Set("summary", result.Summary).
		Set("search_body", sq.Expr("search_body || ?", "\n"+domain.FoldText(result.Summary))).
		Set("status", domain.StatusProcessed).
		Set("processed_at", millis(now)).
		Set("scheduled_for", nil).
		Set("claimed_at", nil).
		Set("claimed_by", nil).
		Set("last_error", nil).
		Set("updated_at", millis(now)).
		Where(sq.Eq{"id": id, "status": domain.StatusProcessing, "claimed_by": owner}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build complete: %w", err)
	}

	n, err := r.exec(ctx, tx, query, args)
	if err != nil {
		return fmt.Errorf("complete article %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("complete article %d: %w", id, domain.ErrNotClaimed)
	}

	seen := map[string]struct{}{}
	for _, name := range result.Tags {
		name = domain.NormalizeTag(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		if err := r.attachTag(ctx, tx, id, name, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete: %w", err)
	}
	return nil
}

func (r *Repository) attachTag(ctx context.Context, tx *sql.Tx, articleID int64, name string, now time.Time) error {
	query, args, err := r.sb.Insert("tags").
		Columns("name", "created_at").
		Values(name, millis(now)).
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build tag upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert tag %q: %w", name, err)
	}

	query, args, err = r.sb.Select("id").From("tags").Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return fmt.Errorf("build tag lookup: %w", err)
	}
	var tagID int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&tagID); err != nil {
		return fmt.Errorf("lookup tag %q: %w", name, err)
	}

	query, args, err = r.sb.Insert("article_tags").
		Columns("article_id", "tag_id").
		Values(articleID, tagID).
		Suffix("ON CONFLICT (article_id, tag_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build tag link: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("link tag %q: %w", name, err)
	}
	return nil
}

// Fail increments retry_count and moves the article to failed with a backoff,
// or to dead once the policy is exhausted. Only the claim owner may record a failure.
func (r *Repository) Fail(ctx context.Context, id int64, owner string, cause string, policy domain.RetryPolicy, now time.Time) (domain.FailureOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.FailureOutcome{}, fmt.Errorf("begin fail: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := r.sb.Select("retry_count", "status", "COALESCE(claimed_by, '')").
		From("articles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.FailureOutcome{}, fmt.Errorf("build fail lookup: %w", err)
	}

	var (
		retryCount int
		status     string
		claimedBy  string
	)
	err = tx.QueryRowContext(ctx, query, args...).Scan(&retryCount, &status, &claimedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FailureOutcome{}, fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.FailureOutcome{}, fmt.Errorf("lookup article %d: %w", id, err)
	}
	if domain.Status(status) != domain.StatusProcessing {
		return domain.FailureOutcome{}, fmt.Errorf("fail article %d in status %s: %w", id, status, domain.ErrNotClaimed)
	}
	if claimedBy != owner {
		return domain.FailureOutcome{}, fmt.Errorf("fail article %d claimed by %q: %w", id, claimedBy, domain.ErrNotClaimed)
	}

	outcome := domain.FailureOutcome{RetryCount: retryCount + 1, Status: domain.StatusFailed}
	var scheduled any
	if policy.Exhausted(outcome.RetryCount) {
		outcome.Status = domain.StatusDead
	} else {
		at := now.Add(policy.Delay(outcome.RetryCount)).UTC()
		outcome.ScheduledFor = &at
		scheduled = millis(at)
	}

	query, args, err = r.sb.Update("articles").
		Set("retry_count", outcome.RetryCount).
		Set("status", outcome.Status).
		Set("scheduled_for", scheduled).
		Set("last_error", truncate(cause, 1000)).
		Set("claimed_at", nil).
		Set("claimed_by", nil).
		Set("updated_at", millis(now)).
		Where(sq.Eq{"id": id, "status": domain.StatusProcessing, "claimed_by": owner, "retry_count": retryCount}).
		ToSql()
	if err != nil {
		return domain.FailureOutcome{}, fmt.Errorf("build fail: %w", err)
	}

	n, err := r.exec(ctx, tx, query, args)
	if err != nil {
		return domain.FailureOutcome{}, fmt.Errorf("fail article %d: %w", id, err)
	}
	if n == 0 {
		return domain.FailureOutcome{}, fmt.Errorf("fail article %d: %w", id, domain.ErrNotClaimed)
	}

	if err := tx.Commit(); err != nil {
		return domain.FailureOutcome{}, fmt.Errorf("commit fail: %w", err)
	}
	return outcome, nil
}

// ResetStuck returns articles claimed before cutoff to pending without touching retry_count.
func (r *Repository) ResetStuck(ctx context.Context, cutoff, now time.Time) (int, error) {
	query, args, err := r.sb.Update("articles").
		Set("status", domain.StatusPending).
		Set("claimed_at", nil).
		Set("claimed_by", nil).
		Set("updated_at", millis(now)).
		Where(sq.Eq{"status": domain.StatusProcessing}).
		Where(sq.Lt{"claimed_at": millis(cutoff)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build reset stuck: %w", err)
	}

	n, err := r.exec(ctx, r.db, query, args)
	if err != nil {
		return 0, fmt.Errorf("reset stuck: %w", err)
	}
	return int(n), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) exec(ctx context.Context, db execer, query string, args []any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
