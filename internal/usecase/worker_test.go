package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsPipeline/internal/domain"
)

func testPolicy() domain.RetryPolicy {
	return domain.RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: time.Minute}
}

func TestProcessOnceEnrichesEveryArticleOnce(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	seed(t, store, 20, epoch)

	summarizer := newSummarizer()
	counters := NewCounters()
	pool := NewPool(PoolDeps{
		Store:      store,
		Summarizer: summarizer,
		Tagger:     staticTagger{"ai", "Cloud"},
		Counters:   counters,
		Now:        newClock().Now,
		Config:     PoolConfig{Workers: 4, Policy: testPolicy(), BatchSize: 3},
	})

	stats, err := pool.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, stats.Claimed)
	assert.Equal(t, 20, stats.Processed)

	summarizer.mu.Lock()
	for id, n := range summarizer.calls {
		assert.Equal(t, 1, n, "article %d summarized %d times", id, n)
	}
	assert.Len(t, summarizer.calls, 20)
	summarizer.mu.Unlock()

	counts, err := store.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, counts[domain.StatusProcessed])

	a, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ai", "cloud"}, a.Tags)
	require.NotNil(t, a.Summary)
	assert.Equal(t, "summary of Story 01", *a.Summary)

	assert.Equal(t, int64(20), counters.Snapshot().Processed)
	assert.Equal(t, int64(20), counters.Snapshot().Claimed)
}

func TestRetryBoundDeadLetters(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	seed(t, store, 1, epoch)

	clock := newClock()
	clock.step = time.Hour // every read moves past any backoff
	summarizer := newSummarizer()
	summarizer.err = domain.ErrSummarizationFailed
	notifier := &fakeNotifier{}
	counters := NewCounters()

	pool := NewPool(PoolDeps{
		Store:      store,
		Summarizer: summarizer,
		Tagger:     staticTagger{},
		Notifier:   notifier,
		Counters:   counters,
		Now:        clock.Now,
		Config:     PoolConfig{Workers: 1, Policy: testPolicy()},
	})

	stats, err := pool.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Claimed)
	assert.Equal(t, 3, stats.Failed)
	assert.Equal(t, 1, stats.Dead)
	assert.Equal(t, 3, summarizer.total())

	a, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDead, a.Status)
	assert.Equal(t, 3, a.RetryCount)

	// A further drain never attempts the dead article again.
	stats, err = pool.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Claimed)
	assert.Equal(t, 3, summarizer.total())

	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "Story 01", notifier.alerts[0].Title)
	assert.Equal(t, 3, notifier.alerts[0].RetryCount)
	assert.Contains(t, notifier.alerts[0].LastError, "summarization")
	assert.Equal(t, int64(1), counters.Snapshot().DeadLettered)
}

func TestFailedArticleWaitsForBackoff(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	seed(t, store, 1, epoch)

	clock := newClock()
	summarizer := newSummarizer()
	summarizer.err = domain.ErrSummarizationFailed
	pool := NewPool(PoolDeps{
		Store:      store,
		Summarizer: summarizer,
		Now:        clock.Now,
		Config:     PoolConfig{Workers: 2, Policy: testPolicy()},
	})

	stats, err := pool.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	a, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, a.Status)
	require.NotNil(t, a.ScheduledFor)
	assert.Equal(t, epoch.Add(2*time.Second), *a.ScheduledFor)

	stats, err = pool.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Claimed, "backoff has not elapsed")

	clock.Advance(2 * time.Second)
	summarizer.err = nil
	stats, err = pool.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)

	a, err = store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, a.Status)
	assert.Equal(t, 1, a.RetryCount)
}

func TestSummarizeTimeoutCountsAsFailure(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	seed(t, store, 1, epoch)

	summarizer := newSummarizer()
	summarizer.slow = true
	pool := NewPool(PoolDeps{
		Store:      store,
		Summarizer: summarizer,
		Now:        newClock().Now,
		Config:     PoolConfig{Workers: 1, Policy: testPolicy(), SummarizeTimeout: 20 * time.Millisecond},
	})

	stats, err := pool.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	a, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, a.Status)
	require.NotNil(t, a.LastError)
	assert.Contains(t, *a.LastError, "timeout")
}

func TestRunProcessesOnWake(t *testing.T) {
	t.Parallel()
	store := testStore(t)

	summarizer := newSummarizer()
	pool := NewPool(PoolDeps{
		Store:      store,
		Summarizer: summarizer,
		Tagger:     staticTagger{"ai"},
		Config:     PoolConfig{Workers: 2, Policy: testPolicy(), PollInterval: time.Hour},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	ing := NewIngestor(IngestorDeps{
		Source: &fakeSource{items: []domain.RawArticle{raw("https://a.com/1", "A"), raw("https://a.com/2", "B")}},
		Store:  store,
		Waker:  pool,
	})
	_, err := ing.Fetch(context.Background(), domain.Criteria{Category: "technology"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		counts, err := store.CountByStatus(context.Background())
		return err == nil && counts[domain.StatusProcessed] == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not stop")
	}
}

func TestWakeNeverBlocks(t *testing.T) {
	t.Parallel()
	pool := NewPool(PoolDeps{Config: PoolConfig{Workers: 2}})
	for i := 0; i < 100; i++ {
		pool.Wake()
	}
	assert.Len(t, pool.wake, 2)
}

func TestProcessArticleOnDemand(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	seed(t, store, 3, epoch)
	ctx := context.Background()

	summarizer := newSummarizer()
	pool := NewPool(PoolDeps{
		Store:      store,
		Summarizer: summarizer,
		Tagger:     staticTagger{"ai"},
		Now:        newClock().Now,
		Config:     PoolConfig{Workers: 2, Policy: testPolicy()},
	})

	res, err := pool.ProcessArticle(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, ArticleResult{ArticleID: 2, Status: domain.StatusProcessed, Outcome: "processed"}, res)
	assert.Equal(t, 1, summarizer.total())

	res, err = pool.ProcessArticle(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, res.Outcome)
	assert.Equal(t, 1, summarizer.total())

	ok, err := store.Claim(ctx, 3, "other-worker", epoch)
	require.NoError(t, err)
	require.True(t, ok)
	res, err = pool.ProcessArticle(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotClaimable, res.Outcome)
	assert.Equal(t, domain.StatusProcessing, res.Status)

	_, err = pool.ProcessArticle(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	a, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, a.Status, "other articles stay queued")
}

func TestProcessArticleRecordsFailure(t *testing.T) {
	t.Parallel()
	store := testStore(t)
	seed(t, store, 1, epoch)

	summarizer := newSummarizer()
	summarizer.err = domain.ErrSummarizationFailed
	pool := NewPool(PoolDeps{
		Store:      store,
		Summarizer: summarizer,
		Now:        newClock().Now,
		Config:     PoolConfig{Workers: 1, Policy: testPolicy()},
	})

	res, err := pool.ProcessArticle(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, "failed", res.Outcome)

	a, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, a.RetryCount)
	require.NotNil(t, a.ScheduledFor)
}
