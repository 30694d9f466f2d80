package ml

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsPipeline/internal/domain"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/summarize", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"summary":"  short version "}`))
	}))
	defer srv.Close()

	content := "long body"
	summary, err := NewClient(srv.URL+"/", "k", 2, time.Second).Summarize(context.Background(), domain.Article{Title: "T", Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "short version", summary)
	assert.Equal(t, "long body", got["content"])
	assert.EqualValues(t, 2, got["sentences"])
}

func TestSummarizeFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }, domain.ErrSummarizationFailed},
		{"empty summary", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"summary":""}`)) }, domain.ErrSummarizationFailed},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{`)) }, domain.ErrSummarizationFailed},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}, domain.ErrTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, "", 3, 100*time.Millisecond).Summarize(context.Background(), domain.Article{ID: 1, Title: "T"})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
