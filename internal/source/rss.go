package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/logging"
	"NewsPipeline/internal/ports"
)

// Feed is one RSS or Atom feed assigned to a category.
type Feed struct {
	Name     string
	Category string
	URL      string
}

// RSSClient reads configured feeds. A query fetch scans every feed and keeps matching items.
type RSSClient struct {
	feeds  []Feed
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ ports.NewsSourceClient = (*RSSClient)(nil)

// NewRSSClient builds a client whose requests are bounded by timeout.
func NewRSSClient(feeds []Feed, timeout time.Duration, logger *slog.Logger) *RSSClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	return &RSSClient{feeds: feeds, parser: parser, logger: logging.OrDiscard(logger)}
}

// Name identifies the client inside the registry.
func (c *RSSClient) Name() string {
	return "rss"
}

// Fetch returns items from the feeds selected by criteria. A single failing feed is logged
// and skipped; the call fails only when every selected feed failed.
func (c *RSSClient) Fetch(ctx context.Context, criteria domain.Criteria) ([]domain.RawArticle, error) {
	feeds := c.selectFeeds(criteria)
	if len(feeds) == 0 {
		return nil, fmt.Errorf("%w: no feeds configured for %s", domain.ErrSourceUnavailable, criteria.Key())
	}

	query := strings.ToLower(strings.TrimSpace(criteria.Query))
	var (
		out         []domain.RawArticle
		failures    int
		rateLimited bool
		lastErr     error
	)
	for _, feed := range feeds {
		parsed, err := c.parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			failures++
			lastErr = err
			var httpErr gofeed.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
				rateLimited = true
			}
			c.logger.Warn("feed fetch failed", "feed", feed.Name, "error", err)
			continue
		}

		for _, item := range parsed.Items {
			if query != "" && !matches(item, query) {
				continue
			}
			out = append(out, Normalize(itemFields(feed, parsed, item)))
		}
	}

	if failures == len(feeds) {
		if rateLimited {
			return nil, fmt.Errorf("%w: rss: %v", domain.ErrRateLimited, lastErr)
		}
		return nil, fmt.Errorf("%w: rss: %v", domain.ErrSourceUnavailable, lastErr)
	}
	return out, nil
}

func (c *RSSClient) selectFeeds(criteria domain.Criteria) []Feed {
	if criteria.IsQuery() {
		return c.feeds
	}
	category := strings.ToLower(strings.TrimSpace(criteria.Category))
	var out []Feed
	for _, f := range c.feeds {
		if strings.EqualFold(f.Category, category) {
			out = append(out, f)
		}
	}
	return out
}

func matches(item *gofeed.Item, query string) bool {
	return strings.Contains(strings.ToLower(item.Title), query) ||
		strings.Contains(strings.ToLower(item.Description), query)
}

func itemFields(feed Feed, parsed *gofeed.Feed, item *gofeed.Item) Fields {
	f := Fields{
		URL:         item.Link,
		Title:       item.Title,
		Content:     item.Content,
		Description: item.Description,
		Source:      feed.Name,
		Category:    feed.Category,
	}
	if f.Source == "" {
		f.Source = parsed.Title
	}
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		f.Author = item.Authors[0].Name
	}
	if item.Image != nil {
		f.ImageURL = item.Image.URL
	}
	switch {
	case item.PublishedParsed != nil:
		f.Published = item.PublishedParsed
	case item.UpdatedParsed != nil:
		f.Published = item.UpdatedParsed
	}
	return f
}
