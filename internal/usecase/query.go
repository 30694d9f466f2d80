package usecase

import (
	"context"
	"strings"
	"unicode/utf8"

	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/ports"
)

const (
	defaultSuggestionLimit = 5
	maxSuggestionLimit     = 20
	defaultPopularLimit    = 10
)

// Reader serves search, listing and suggestion reads straight from the store.
type Reader struct {
	store ports.ArticleStore
	index ports.ArticleIndex
}

// NewReader builds the read side.
func NewReader(store ports.ArticleStore, index ports.ArticleIndex) *Reader {
	return &Reader{store: store, index: index}
}

// Get returns one article with its tags.
func (r *Reader) Get(ctx context.Context, id int64) (domain.Article, error) {
	return r.store.Get(ctx, id)
}

// List pages through articles in any status, newest first.
func (r *Reader) List(ctx context.Context, filters domain.Filters, page domain.PageRequest) (domain.Page, error) {
	return r.page(ctx, domain.ArticleQuery{Filters: filters, Page: page})
}

// Search matches term against processed articles and echoes the term back.
func (r *Reader) Search(ctx context.Context, term string, filters domain.Filters, page domain.PageRequest) (domain.SearchResult, error) {
	filters.Status = ""
	p, err := r.page(ctx, domain.ArticleQuery{Term: term, Filters: filters, ProcessedOnly: true, Page: page})
	if err != nil {
		return domain.SearchResult{}, err
	}
	return domain.SearchResult{Page: p, Query: term}, nil
}

func (r *Reader) page(ctx context.Context, q domain.ArticleQuery) (domain.Page, error) {
	q.Page = q.Page.Normalize()
	items, total, err := r.index.Query(ctx, q)
	if err != nil {
		return domain.Page{}, err
	}
	return domain.Page{
		Items:      items,
		Total:      total,
		Page:       q.Page.Page,
		PageSize:   q.Page.PageSize,
		TotalPages: domain.TotalPages(total, q.Page.PageSize),
	}, nil
}

// Suggest returns tag and title candidates. Prefixes shorter than two characters yield nothing.
func (r *Reader) Suggest(ctx context.Context, prefix string, limit int) (domain.Suggestions, error) {
	empty := domain.Suggestions{Tags: []string{}, Titles: []string{}}
	prefix = strings.TrimSpace(prefix)
	if utf8.RuneCountInString(prefix) < domain.MinSuggestionPrefix {
		return empty, nil
	}
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	if limit > maxSuggestionLimit {
		limit = maxSuggestionLimit
	}

	tags, err := r.index.SuggestTags(ctx, prefix, limit)
	if err != nil {
		return empty, err
	}
	titles, err := r.index.SuggestTitles(ctx, prefix, limit)
	if err != nil {
		return empty, err
	}
	return domain.Suggestions{Tags: tags, Titles: titles}, nil
}

// PopularTags returns the most used tags on processed articles.
func (r *Reader) PopularTags(ctx context.Context, limit int) ([]domain.TagCount, error) {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	return r.index.PopularTags(ctx, limit)
}

// Tags lists every stored tag alphabetically.
func (r *Reader) Tags(ctx context.Context) ([]domain.Tag, error) {
	return r.index.Tags(ctx)
}

// Categories lists known categories.
func (r *Reader) Categories(ctx context.Context) ([]string, error) {
	return r.index.Categories(ctx)
}

// Sources lists known sources.
func (r *Reader) Sources(ctx context.Context) ([]string, error) {
	return r.index.Sources(ctx)
}
