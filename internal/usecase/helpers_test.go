package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/infrastructure/storage"
)

var epoch = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func testStore(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.Open(context.Background(), storage.DriverSQLite, filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// fakeClock returns a fixed time until advanced. With step set, every read advances it.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newClock() *fakeClock { return &fakeClock{t: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeSource struct {
	items   []domain.RawArticle
	err     error
	block   chan struct{}
	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Fetch(ctx context.Context, _ domain.Criteria) ([]domain.RawArticle, error) {
	s.calls.Add(1)
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

type fakeSummarizer struct {
	mu    sync.Mutex
	calls map[int64]int
	err   error
	slow  bool
}

func newSummarizer() *fakeSummarizer { return &fakeSummarizer{calls: map[int64]int{}} }

func (s *fakeSummarizer) Summarize(ctx context.Context, a domain.Article) (string, error) {
	s.mu.Lock()
	s.calls[a.ID]++
	s.mu.Unlock()
	if s.slow {
		<-ctx.Done()
		return "", fmt.Errorf("%w: %v", domain.ErrTimeout, ctx.Err())
	}
	if s.err != nil {
		return "", s.err
	}
	return "summary of " + a.Title, nil
}

func (s *fakeSummarizer) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

type staticTagger []string

func (t staticTagger) Tags(_, content string) []string {
	if content == "" {
		return []string{}
	}
	return t
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []domain.DeadLetter
}

func (n *fakeNotifier) NotifyDeadLetter(_ context.Context, alert domain.DeadLetter) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

type countingWaker struct{ n atomic.Int32 }

func (w *countingWaker) Wake() { w.n.Add(1) }

func raw(url, title string) domain.RawArticle {
	body := "Body of " + title
	category := "technology"
	return domain.RawArticle{URL: url, Title: title, Content: &body, Source: "Fake Wire", Category: &category}
}

// seed inserts n pending articles through the store.
func seed(t *testing.T, store *storage.Repository, n int, fetchedAt time.Time) {
	t.Helper()
	for i := 1; i <= n; i++ {
		r := raw(fmt.Sprintf("https://news.example.com/%d", i), fmt.Sprintf("Story %02d", i))
		_, err := store.InsertIfAbsent(context.Background(), domain.NewArticle{Raw: r, CanonicalURL: r.URL, FetchedAt: fetchedAt})
		require.NoError(t, err)
	}
}
