package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsPipeline/internal/domain"
)

func TestNotifyDeadLetter(t *testing.T) {
	t.Parallel()

	var path, chat, text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, r.ParseForm())
		chat = r.PostForm.Get("chat_id")
		text = r.PostForm.Get("text")
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "TOKEN", "42")
	alert := domain.DeadLetter{
		ArticleID:  7,
		Title:      "Rates hold steady",
		URL:        "https://news.example.com/rates",
		Source:     "Example Wire",
		RetryCount: 3,
		LastError:  "summarization failed: empty content",
	}
	require.NoError(t, n.NotifyDeadLetter(context.Background(), alert))

	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "42", chat)
	assert.Equal(t, "Article 7 dead-lettered after 3 attempts\n"+
		"Rates hold steady (Example Wire)\n"+
		"https://news.example.com/rates\n"+
		"Last error: summarization failed: empty content", text)
}

func TestFormatDeadLetter(t *testing.T) {
	t.Parallel()

	text := FormatDeadLetter(domain.DeadLetter{ArticleID: 1, RetryCount: 1})
	assert.Equal(t, "Article 1 dead-lettered after 1 attempts\n(untitled)", text)

	long := FormatDeadLetter(domain.DeadLetter{ArticleID: 2, Title: "t", LastError: strings.Repeat("x", 2000)})
	assert.LessOrEqual(t, utf8.RuneCountInString(long), 600)
	assert.True(t, strings.HasSuffix(long, "…"))
}

func TestNotifyErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	assert.ErrorIs(t, NewNotifier("", "", "").NotifyDeadLetter(ctx, domain.DeadLetter{}), errMisconfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	assert.Error(t, NewNotifier(srv.URL, "T", "1").NotifyDeadLetter(ctx, domain.DeadLetter{ArticleID: 1}))

	assert.NoError(t, Nop{}.NotifyDeadLetter(ctx, domain.DeadLetter{}))
}
