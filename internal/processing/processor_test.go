package processing

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/FileVault/internal/logging"
	"github.com/dharsanguruparan/FileVault/internal/queue"
)

func TestPool_RunsEveryJob(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	pool := New(func(_ context.Context, job queue.ThumbnailPayload) error {
		mu.Lock()
		defer mu.Unlock()
		seen[job.FileID]++
		return nil
	}, 3, 0, logging.Discard())
	pool.Start(context.Background())

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, pool.EnqueueThumbnail(context.Background(), queue.ThumbnailPayload{FileID: id, UserID: "u"}))
	}
	pool.Stop()

	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1, "e": 1}, seen)
}

func TestPool_RetriesUpToBudget(t *testing.T) {
	var calls atomic.Int32
	pool := New(func(context.Context, queue.ThumbnailPayload) error {
		calls.Add(1)
		return errors.New("disk full")
	}, 1, 2, logging.Discard())
	pool.Start(context.Background())

	require.NoError(t, pool.EnqueueThumbnail(context.Background(), queue.ThumbnailPayload{FileID: "x", UserID: "u"}))
	pool.Stop()

	assert.Equal(t, int32(3), calls.Load())
}

func TestPool_StopsRetryingAfterSuccess(t *testing.T) {
	var calls atomic.Int32
	pool := New(func(context.Context, queue.ThumbnailPayload) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}, 1, 5, logging.Discard())
	pool.Start(context.Background())

	require.NoError(t, pool.EnqueueThumbnail(context.Background(), queue.ThumbnailPayload{FileID: "x", UserID: "u"}))
	pool.Stop()

	assert.Equal(t, int32(2), calls.Load())
}

func TestPool_QueueFullAndStopped(t *testing.T) {
	block := make(chan struct{})
	pool := New(func(context.Context, queue.ThumbnailPayload) error {
		<-block
		return nil
	}, 1, 0, logging.Discard())

	// Not started: the buffer fills without being drained.
	var err error
	for i := 0; i < 100 && err == nil; i++ {
		err = pool.EnqueueThumbnail(context.Background(), queue.ThumbnailPayload{FileID: "f", UserID: "u"})
	}
	assert.ErrorIs(t, err, ErrQueueFull)

	close(block)
	pool.Start(context.Background())
	pool.Stop()

	err = pool.EnqueueThumbnail(context.Background(), queue.ThumbnailPayload{FileID: "late", UserID: "u"})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestPool_DropLogReportsAttemptsMade(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	pool := New(func(context.Context, queue.ThumbnailPayload) error {
		if calls.Add(1) == 2 {
			cancel()
		}
		return errors.New("transient")
	}, 1, 5, logging.New("info", "text", &buf))

	attempts := pool.run(ctx, queue.ThumbnailPayload{FileID: "x", UserID: "u"})

	assert.Equal(t, 2, attempts)
	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, buf.String(), "attempts=2")
	assert.NotContains(t, buf.String(), "attempts=6")
}

func TestPool_RunCountsSuccessfulAttempt(t *testing.T) {
	pool := New(func(context.Context, queue.ThumbnailPayload) error { return nil }, 1, 3, logging.Discard())
	assert.Equal(t, 1, pool.run(context.Background(), queue.ThumbnailPayload{FileID: "x", UserID: "u"}))
}
