package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsPipeline/internal/domain"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	raw := Normalize(Fields{
		URL:         " https://example.com/a ",
		Title:       "  Markets <b>rally</b> ",
		Content:     "<p>Stocks rose &amp; bonds fell…</p> [+2345 chars]",
		Source:      "Wire",
		Category:    "Business",
		Author:      "",
		ImageURL:    "  ",
		PublishedAt: "2025-03-10T08:30:00Z",
	})

	assert.Equal(t, "https://example.com/a", raw.URL)
	assert.Equal(t, "Markets rally", raw.Title)
	require.NotNil(t, raw.Content)
	assert.Equal(t, "Stocks rose & bonds fell", *raw.Content)
	require.NotNil(t, raw.Category)
	assert.Equal(t, "business", *raw.Category)
	assert.Nil(t, raw.Author)
	assert.Nil(t, raw.ImageURL)
	require.NotNil(t, raw.PublishedAt)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC), *raw.PublishedAt)
}

func TestNormalizeFallsBackToDescription(t *testing.T) {
	t.Parallel()

	raw := Normalize(Fields{URL: "https://e.com/x", Title: "T", Description: "Short description", PublishedAt: "not a date"})
	require.NotNil(t, raw.Content)
	assert.Equal(t, "Short description", *raw.Content)
	assert.Nil(t, raw.PublishedAt)
	assert.Nil(t, raw.Category)
}

const headlines = `{
  "status": "ok",
  "totalResults": 2,
  "articles": [
    {"source": {"id": null, "name": "Tech Daily"}, "author": "Ada", "title": "Chips get faster",
     "description": "desc", "url": "https://tech.example.com/chips", "urlToImage": "https://img.example.com/1.png",
     "publishedAt": "2025-03-10T08:30:00Z", "content": "Chips are getting faster. [+100 chars]"},
    {"source": {"id": null, "name": "Tech Daily"}, "author": null, "title": "No content",
     "description": null, "url": "https://tech.example.com/empty", "urlToImage": null,
     "publishedAt": null, "content": null}
  ]
}`

func TestNewsAPIHeadlines(t *testing.T) {
	t.Parallel()

	var gotPath, gotCategory, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCategory = r.URL.Query().Get("category")
		gotKey = r.Header.Get("X-Api-Key")
		_, _ = w.Write([]byte(headlines))
	}))
	defer srv.Close()

	client := NewNewsAPIClient(NewsAPIOptions{BaseURL: srv.URL, APIKey: "secret"}, nil)
	items, err := client.Fetch(context.Background(), domain.Criteria{Category: "Technology"})
	require.NoError(t, err)

	assert.Equal(t, "/top-headlines", gotPath)
	assert.Equal(t, "technology", gotCategory)
	assert.Equal(t, "secret", gotKey)
	require.Len(t, items, 2)

	assert.Equal(t, "Chips get faster", items[0].Title)
	assert.Equal(t, "Chips are getting faster.", *items[0].Content)
	assert.Equal(t, "Ada", *items[0].Author)
	assert.Equal(t, "technology", *items[0].Category)

	assert.Nil(t, items[1].Content)
	assert.Nil(t, items[1].Author)
	assert.Nil(t, items[1].ImageURL)
	assert.Nil(t, items[1].PublishedAt)
}

func TestNewsAPIQueryUsesEverything(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"status":"ok","articles":[]}`))
	}))
	defer srv.Close()

	client := NewNewsAPIClient(NewsAPIOptions{BaseURL: srv.URL}, nil)
	items, err := client.Fetch(context.Background(), domain.Criteria{Query: "fusion", Category: "science"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, "/everything", gotPath)
	assert.Equal(t, "fusion", gotQuery)
}

func TestNewsAPIErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"too many requests", http.StatusTooManyRequests, `{"status":"error"}`, domain.ErrRateLimited},
		{"rate limited code", http.StatusOK, `{"status":"error","code":"rateLimited","message":"slow down"}`, domain.ErrRateLimited},
		{"server error", http.StatusBadGateway, `oops`, domain.ErrSourceUnavailable},
		{"api error", http.StatusOK, `{"status":"error","code":"apiKeyInvalid"}`, domain.ErrSourceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewNewsAPIClient(NewsAPIOptions{BaseURL: srv.URL}, nil).Fetch(context.Background(), domain.Criteria{Category: "general"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, domain.IsTransient(err))
		})
	}
}

func TestNewsAPITimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewNewsAPIClient(NewsAPIOptions{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := client.Fetch(context.Background(), domain.Criteria{Category: "general"})
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Science Feed</title>
  <item>
    <title>Fusion record broken</title>
    <link>https://sci.example.com/fusion</link>
    <description>&lt;p&gt;Plasma held for minutes&lt;/p&gt;</description>
    <pubDate>Mon, 10 Mar 2025 08:30:00 GMT</pubDate>
  </item>
  <item>
    <title>New frog species</title>
    <link>https://sci.example.com/frog</link>
    <description>Found in the rainforest</description>
  </item>
</channel>
</rss>`

func TestRSSClient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssBody))
	}))
	defer srv.Close()

	client := NewRSSClient([]Feed{{Name: "Sci", Category: "science", URL: srv.URL}}, time.Second, nil)

	items, err := client.Fetch(context.Background(), domain.Criteria{Category: "science"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Sci", items[0].Source)
	assert.Equal(t, "Plasma held for minutes", *items[0].Content)
	require.NotNil(t, items[0].PublishedAt)
	assert.Nil(t, items[1].PublishedAt)

	items, err = client.Fetch(context.Background(), domain.Criteria{Query: "FUSION"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://sci.example.com/fusion", items[0].URL)

	_, err = client.Fetch(context.Background(), domain.Criteria{Category: "sports"})
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestRSSClientAllFeedsDown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewRSSClient([]Feed{{Name: "Down", Category: "general", URL: srv.URL}}, time.Second, nil)
	_, err := client.Fetch(context.Background(), domain.Criteria{Category: "general"})
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
}

func TestRSSClientRateLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewRSSClient([]Feed{{Name: "Busy", Category: "general", URL: srv.URL}}, time.Second, nil)
	_, err := client.Fetch(context.Background(), domain.Criteria{Category: "general"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.True(t, domain.IsTransient(err))
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(NewNewsAPIClient(NewsAPIOptions{}, nil), NewRSSClient(nil, 0, nil), NewArxivClient(ArxivOptions{}, nil))
	assert.Equal(t, []string{"arxiv", "newsapi", "rss"}, reg.Names())

	c, err := reg.Resolve("rss")
	require.NoError(t, err)
	assert.Equal(t, "rss", c.Name())

	_, err = reg.Resolve("gdelt")
	assert.Error(t, err)
}
