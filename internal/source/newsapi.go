package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/logging"
	"NewsPipeline/internal/ports"
)

const defaultNewsAPIURL = "https://newsapi.org/v2"

// NewsAPIOptions configures NewsAPIClient.
type NewsAPIOptions struct {
	BaseURL  string
	APIKey   string
	Country  string
	PageSize int
	Timeout  time.Duration
}

// NewsAPIClient fetches headlines and keyword searches from a NewsAPI compatible endpoint.
type NewsAPIClient struct {
	opts   NewsAPIOptions
	http   *http.Client
	logger *slog.Logger
}

var _ ports.NewsSourceClient = (*NewsAPIClient)(nil)

// NewNewsAPIClient applies defaults and builds a client bounded by opts.Timeout.
func NewNewsAPIClient(opts NewsAPIOptions, logger *slog.Logger) *NewsAPIClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultNewsAPIURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Country == "" {
		opts.Country = "us"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &NewsAPIClient{
		opts:   opts,
		http:   &http.Client{Timeout: opts.Timeout},
		logger: logging.OrDiscard(logger),
	}
}

// Name identifies the client inside the registry.
func (c *NewsAPIClient) Name() string {
	return "newsapi"
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Author      string `json:"author"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		URLToImage  string `json:"urlToImage"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
	} `json:"articles"`
}

// Fetch queries /everything for a free-text query, otherwise /top-headlines for the category.
func (c *NewsAPIClient) Fetch(ctx context.Context, criteria domain.Criteria) ([]domain.RawArticle, error) {
	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(c.opts.PageSize))

	var (
		endpoint string
		category string
	)
	if criteria.IsQuery() {
		endpoint = "/everything"
		params.Set("q", strings.TrimSpace(criteria.Query))
		params.Set("sortBy", "publishedAt")
		params.Set("language", "en")
	} else {
		endpoint = "/top-headlines"
		category = strings.ToLower(strings.TrimSpace(criteria.Category))
		if category == "" {
			category = "general"
		}
		params.Set("country", c.opts.Country)
		params.Set("category", category)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: new request: %v", domain.ErrSourceUnavailable, err)
	}
	if c.opts.APIKey != "" {
		req.Header.Set("X-Api-Key", c.opts.APIKey)
	}

	c.logger.Debug("newsapi request", "endpoint", endpoint, "criteria", criteria.Key())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: newsapi %s: %v", domain.ErrSourceUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	var payload newsAPIResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&payload)

	if resp.StatusCode == http.StatusTooManyRequests || payload.Code == "rateLimited" {
		return nil, fmt.Errorf("%w: newsapi %s: %s", domain.ErrRateLimited, endpoint, payload.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: newsapi %s: unexpected status %s", domain.ErrSourceUnavailable, endpoint, resp.Status)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode newsapi response: %v", domain.ErrSourceUnavailable, decodeErr)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("%w: newsapi error %s: %s", domain.ErrSourceUnavailable, payload.Code, payload.Message)
	}

	out := make([]domain.RawArticle, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		out = append(out, Normalize(Fields{
			URL:         a.URL,
			Title:       a.Title,
			Content:     a.Content,
			Description: a.Description,
			Source:      a.Source.Name,
			Category:    category,
			Author:      a.Author,
			ImageURL:    a.URLToImage,
			PublishedAt: a.PublishedAt,
		}))
	}
	return out, nil
}
