package storage

import (
	"context"
	"fmt"
)

// Timestamps are unix milliseconds so comparisons behave the same on both drivers.
// search_title and search_body hold domain.FoldText of title and of content plus summary;
// SQL LOWER only folds ASCII on SQLite, so term matching runs against these columns.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    canonical_url TEXT    NOT NULL UNIQUE,
    url           TEXT    NOT NULL,
    title         TEXT    NOT NULL,
    content       TEXT,
    summary       TEXT,
    source        TEXT    NOT NULL,
    category      TEXT,
    author        TEXT,
    image_url     TEXT,
    published_at  BIGINT,
    fetched_at    BIGINT  NOT NULL,
    status        TEXT    NOT NULL DEFAULT 'pending',
    retry_count   INTEGER NOT NULL DEFAULT 0 CHECK (retry_count >= 0),
    scheduled_for BIGINT,
    claimed_at    BIGINT,
    claimed_by    TEXT,
    processed_at  BIGINT,
    last_error    TEXT,
    search_title  TEXT    NOT NULL DEFAULT '',
    search_body   TEXT    NOT NULL DEFAULT '',
    updated_at    BIGINT  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
CREATE INDEX IF NOT EXISTS idx_articles_fetched ON articles(fetched_at);

CREATE TABLE IF NOT EXISTS tags (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT   NOT NULL UNIQUE,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS article_tags (
    article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    tag_id     INTEGER NOT NULL REFERENCES tags(id),
    PRIMARY KEY (article_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_article_tags_tag ON article_tags(tag_id);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
    id            BIGSERIAL PRIMARY KEY,
    canonical_url TEXT    NOT NULL UNIQUE,
    url           TEXT    NOT NULL,
    title         TEXT    NOT NULL,
    content       TEXT,
    summary       TEXT,
    source        TEXT    NOT NULL,
    category      TEXT,
    author        TEXT,
    image_url     TEXT,
    published_at  BIGINT,
    fetched_at    BIGINT  NOT NULL,
    status        TEXT    NOT NULL DEFAULT 'pending',
    retry_count   INTEGER NOT NULL DEFAULT 0 CHECK (retry_count >= 0),
    scheduled_for BIGINT,
    claimed_at    BIGINT,
    claimed_by    TEXT,
    processed_at  BIGINT,
    last_error    TEXT,
    search_title  TEXT    NOT NULL DEFAULT '',
    search_body   TEXT    NOT NULL DEFAULT '',
    updated_at    BIGINT  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);
CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
CREATE INDEX IF NOT EXISTS idx_articles_fetched ON articles(fetched_at);

CREATE TABLE IF NOT EXISTS tags (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT   NOT NULL UNIQUE,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS article_tags (
    article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    tag_id     BIGINT NOT NULL REFERENCES tags(id),
    PRIMARY KEY (article_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_article_tags_tag ON article_tags(tag_id);
`

func (r *Repository) migrate(ctx context.Context) error {
	schema := sqliteSchema
	if r.driver == DriverPostgres {
		schema = postgresSchema
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
