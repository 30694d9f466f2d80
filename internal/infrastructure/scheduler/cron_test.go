package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil, nil)
	assert.Error(t, s.Schedule("bad", "not a cron", func(context.Context) {}))
	assert.Error(t, s.Schedule("nil", "* * * * *", nil))
	require.NoError(t, s.Schedule("ok", "*/5 * * * *", func(context.Context) {}))
	assert.Equal(t, 1, s.Entries())
}

func TestStartStopRunsJobs(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	var runs int32
	require.NoError(t, s.Schedule("tick", "@every 10ms", func(ctx context.Context) {
		atomic.AddInt32(&runs, 1)
	}))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, 3*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}

func TestStopCancelsJobContext(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	entered := make(chan struct{}, 1)
	require.NoError(t, s.Schedule("long", "@every 10ms", func(ctx context.Context) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
	}))
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
