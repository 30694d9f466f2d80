package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsPipeline/internal/domain"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Wire</title>
  <link>https://wire.example.com</link>
  <item>
    <title>Fusion startup reaches net energy gain</title>
    <link>https://wire.example.com/fusion?utm_source=rss</link>
    <description>A fusion energy startup reported net energy gain in a laboratory test. Investors welcomed the fusion result. Regulators said grid connection remains years away.</description>
    <pubDate>Mon, 10 Mar 2025 08:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Chip makers expand capacity</title>
    <link>https://wire.example.com/chips</link>
    <description>Semiconductor companies announced new factories to meet demand from data centers.</description>
    <pubDate>Mon, 10 Mar 2025 07:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Fusion startup reaches net energy gain</title>
    <link>https://WIRE.example.com/fusion/</link>
    <description>Duplicate of the first story.</description>
  </item>
</channel>
</rss>`

func writeConfig(t *testing.T, feedURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`database:
  driver: sqlite
  dsn: %s
logging:
  level: error
source:
  provider: rss
  categories: [technology]
  rss:
    feeds:
      - name: Test Wire
        category: technology
        url: %s
enrichment:
  workers: 2
`, filepath.Join(dir, "news.db"), feedURL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"run", "fetch", "process", "sweep", "search", "list", "get", "suggest", "tags", "categories", "sources", "stats"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestFetchProcessSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer srv.Close()
	cfg := writeConfig(t, srv.URL)

	out, err := execute(t, "--config", cfg, "fetch", "--process")
	require.NoError(t, err)
	var fetched struct {
		domain.FetchResult
		Processed struct {
			Processed int `json:"processed"`
		} `json:"processed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &fetched))
	assert.Equal(t, 2, fetched.Inserted)
	assert.Equal(t, 1, fetched.Skipped)
	assert.Equal(t, 2, fetched.Processed.Processed)

	out, err = execute(t, "--config", cfg, "search", "fusion", "--category", "technology")
	require.NoError(t, err)
	var res domain.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "fusion", res.Query)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "https://wire.example.com/fusion", res.Items[0].CanonicalURL)
	require.NotNil(t, res.Items[0].Summary)
	assert.NotEmpty(t, *res.Items[0].Summary)

	out, err = execute(t, "--config", cfg, "stats", "--dashboard")
	require.NoError(t, err)
	var stats domain.DashboardStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.TotalArticles)
	assert.Equal(t, 2, stats.ProcessedArticles)

	out, err = execute(t, "--config", cfg, "sources")
	require.NoError(t, err)
	assert.JSONEq(t, `["Test Wire"]`, out)

	out, err = execute(t, "--config", cfg, "process", "--id", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"article_id":1,"status":"processed","outcome":"already_processed"}`, out)

	out, err = execute(t, "--config", cfg, "tags", "--all")
	require.NoError(t, err)
	var tags []domain.Tag
	require.NoError(t, json.Unmarshal([]byte(out), &tags))
	require.NotEmpty(t, tags)
	for i := 1; i < len(tags); i++ {
		assert.Less(t, tags[i-1].Name, tags[i].Name)
	}

	// A second fetch of the same feed stores nothing new.
	out, err = execute(t, "--config", cfg, "fetch", "--category", "technology")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &fetched))
	assert.Zero(t, fetched.Inserted)
	assert.Equal(t, 3, fetched.Skipped)
}

func TestInvalidArguments(t *testing.T) {
	cfg := writeConfig(t, "http://127.0.0.1:1/feed")

	_, err := execute(t, "--config", cfg, "search", "x", "--from", "March")
	assert.ErrorContains(t, err, "--from")

	_, err = execute(t, "--config", cfg, "search", "x", "--from", "2025-03-10", "--to", "2025-03-01")
	assert.ErrorContains(t, err, "before")

	_, err = execute(t, "--config", cfg, "list", "--status", "archived")
	assert.ErrorContains(t, err, "archived")

	_, err = execute(t, "--config", cfg, "get", "abc")
	assert.ErrorContains(t, err, "invalid id")

	_, err = execute(t, "--config", cfg, "get", "99")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = execute(t, "--config", cfg, "process", "--id", "99")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "tags")
	assert.Error(t, err)
}
