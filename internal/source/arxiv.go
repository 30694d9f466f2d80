package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/logging"
	"NewsPipeline/internal/ports"
)

const arxivBaseURL = "https://arxiv.org"

var arxivDate = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// Listing is one arXiv listing page (e.g. /list/cs.AI/new) assigned to a category.
type Listing struct {
	Name     string
	Category string
	URL      string
}

// ArxivOptions configures ArxivClient.
type ArxivOptions struct {
	Listings   []Listing
	PageSize   int
	MaxEntries int
	Timeout    time.Duration
}

// ArxivClient scrapes arXiv listing pages and reports each paper as an article whose
// content is the abstract.
type ArxivClient struct {
	opts   ArxivOptions
	http   *http.Client
	logger *slog.Logger
}

var _ ports.NewsSourceClient = (*ArxivClient)(nil)

// NewArxivClient builds a client. PageSize defaults to 50 and MaxEntries to 200 per listing.
func NewArxivClient(opts ArxivOptions, logger *slog.Logger) *ArxivClient {
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 200
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &ArxivClient{
		opts:   opts,
		http:   &http.Client{Timeout: opts.Timeout},
		logger: logging.OrDiscard(logger),
	}
}

// Name identifies the client inside the registry.
func (a *ArxivClient) Name() string {
	return "arxiv"
}

// Fetch pages through the listings selected by criteria. A query keeps entries whose
// title or abstract contains it. Listings that fail are skipped unless all of them fail.
func (a *ArxivClient) Fetch(ctx context.Context, criteria domain.Criteria) ([]domain.RawArticle, error) {
	listings := a.selectListings(criteria)
	if len(listings) == 0 {
		return nil, fmt.Errorf("%w: no arxiv listings configured for %s", domain.ErrSourceUnavailable, criteria.Key())
	}

	query := strings.ToLower(strings.TrimSpace(criteria.Query))
	var (
		out      []domain.RawArticle
		failures int
		lastErr  error
	)
	for _, l := range listings {
		items, err := a.scanListing(ctx, l)
		if err != nil {
			failures++
			lastErr = err
			a.logger.Warn("arxiv listing failed", "listing", l.Name, "error", err)
			continue
		}
		for _, item := range items {
			if query != "" && !containsFold(item, query) {
				continue
			}
			out = append(out, Normalize(item))
		}
	}
	if failures == len(listings) {
		return nil, lastErr
	}
	return out, nil
}

func (a *ArxivClient) selectListings(criteria domain.Criteria) []Listing {
	if criteria.IsQuery() {
		return a.opts.Listings
	}
	var out []Listing
	for _, l := range a.opts.Listings {
		if strings.EqualFold(l.Category, strings.TrimSpace(criteria.Category)) {
			out = append(out, l)
		}
	}
	return out
}

// scanListing follows skip/show paging until a short page or MaxEntries.
func (a *ArxivClient) scanListing(ctx context.Context, l Listing) ([]Fields, error) {
	var out []Fields
	for skip := 0; skip < a.opts.MaxEntries; skip += a.opts.PageSize {
		pageURL, err := buildPageURL(l.URL, skip, a.opts.PageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: listing %s: %v", domain.ErrSourceUnavailable, l.Name, err)
		}
		doc, err := a.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		entries := doc.Find("dl > dt")
		entries.Each(func(_ int, dt *goquery.Selection) {
			if f, ok := parseEntry(dt, dt.Next(), l); ok {
				out = append(out, f)
			}
		})
		if entries.Length() < a.opts.PageSize {
			break
		}
	}
	if len(out) > a.opts.MaxEntries {
		out = out[:a.opts.MaxEntries]
	}
	return out, nil
}

func (a *ArxivClient) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", "NewsPipeline/1.0")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: arxiv: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: arxiv returned %s", domain.ErrRateLimited, resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: arxiv returned %s", domain.ErrSourceUnavailable, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse arxiv page: %v", domain.ErrSourceUnavailable, err)
	}
	return doc, nil
}

// parseEntry reads one dt/dd pair. Entries without an abstract link are skipped.
func parseEntry(dt, dd *goquery.Selection, l Listing) (Fields, bool) {
	link := dt.Find(`a[href*="/abs/"]`).First()
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return Fields{}, false
	}
	if !strings.HasPrefix(href, "http") {
		href = arxivBaseURL + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := strings.TrimSpace(dd.Find("p.mathjax").First().Text())
	abstract = strings.TrimSpace(strings.TrimPrefix(abstract, "Abstract:"))

	authors := strings.TrimSpace(dd.Find(".list-authors").First().Text())
	authors = strings.TrimSpace(strings.TrimPrefix(authors, "Authors:"))

	f := Fields{
		URL:      href,
		Title:    title,
		Content:  abstract,
		Source:   l.Name,
		Category: l.Category,
		Author:   authors,
	}
	if f.Source == "" {
		f.Source = "arXiv"
	}

	dateText := dd.Find(".list-date").First().Text()
	if dateText == "" {
		dateText = dd.Find(".list-dateline").First().Text()
	}
	if m := arxivDate.FindString(dateText); m != "" {
		if t, err := time.Parse("2 Jan 2006", m); err == nil {
			f.Published = &t
		}
	}
	return f, true
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}
	q := parsed.Query()
	q.Set("skip", strconv.Itoa(skip))
	q.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func containsFold(f Fields, query string) bool {
	return strings.Contains(strings.ToLower(f.Title), query) ||
		strings.Contains(strings.ToLower(f.Content), query)
}
