package domain

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Criteria selects what a fetch run asks the provider for.
// Query takes precedence over Category when both are set.
type Criteria struct {
	Query    string
	Category string
}

// Key identifies the criteria for mutual exclusion of concurrent fetch runs.
func (c Criteria) Key() string {
	if q := strings.ToLower(strings.TrimSpace(c.Query)); q != "" {
		return "query:" + q
	}
	return "category:" + strings.ToLower(strings.TrimSpace(c.Category))
}

// IsQuery reports whether the free-text query is in effect.
func (c Criteria) IsQuery() bool {
	return strings.TrimSpace(c.Query) != ""
}

// Filters are AND-combined equality and range constraints.
type Filters struct {
	Category string
	Source   string
	Tag      string
	Status   Status
	FromDate *time.Time
	ToDate   *time.Time
}

// PageRequest is a 1-based page with a positive size.
type PageRequest struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the request to valid bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset is the number of rows preceding the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Page is a slice of a filtered, ordered result set.
type Page struct {
	Items      []Article `json:"items"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// TotalPages is ceil(total / size).
func TotalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// SearchResult is a page with the echoed free-text term.
type SearchResult struct {
	Page
	Query string `json:"query"`
}

// Suggestions holds typeahead candidates.
type Suggestions struct {
	Tags   []string `json:"tags"`
	Titles []string `json:"titles"`
}

// MinSuggestionPrefix is the shortest prefix that yields suggestions.
const MinSuggestionPrefix = 2

// NormalizeTag lower-cases, trims and NFC-normalizes a tag name and collapses inner whitespace.
func NormalizeTag(name string) string {
	name = norm.NFC.String(name)
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.FieldsFunc(name, unicode.IsSpace), " ")
}

// FoldText case-folds NFC-normalized text for case-insensitive matching.
// Stored search columns and search terms must both pass through it.
func FoldText(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// ArticleQuery is a filtered, paginated read over the store.
type ArticleQuery struct {
	Term          string
	Filters       Filters
	ProcessedOnly bool
	Page          PageRequest
}
