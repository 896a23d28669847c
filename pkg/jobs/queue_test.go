package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "notify"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Flush(ctx))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueDropsAfterMaxRetries(t *testing.T) {
	dropped := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		return errors.New("permanent")
	}, QueueConfig{
		Workers:    1,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		OnDrop:     func(j Job, err error) { dropped <- j },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "x"}))

	select {
	case j := <-dropped:
		assert.Equal(t, "x", j.ID)
		assert.Equal(t, 2, j.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was never dropped")
	}
}

func TestTryEnqueueRejectsWhenNotStartedOrFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	require.Error(t, q.TryEnqueue(Job{ID: "early"}))

	q.Start(context.Background())
	defer q.Stop()
	defer close(block)

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	// the single worker may or may not have picked up "a" yet; fill until full
	var full error
	for i := 0; i < 3 && full == nil; i++ {
		full = q.TryEnqueue(Job{ID: "b"})
	}
	assert.ErrorIs(t, full, ErrQueueFull)
}

func TestQueueRejectsAfterClose(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	q.Close()

	assert.ErrorIs(t, q.TryEnqueue(Job{ID: "late"}), ErrQueueClosed)
	assert.ErrorIs(t, q.Enqueue(Job{ID: "late"}), ErrQueueClosed)
	require.NoError(t, q.Flush(context.Background()))
}

func TestQueueFlushDrainsJobsAcceptedBeforeClose(t *testing.T) {
	var calls int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&calls, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())

	for i := 0; i < 5; i++ {
		require.NoError(t, q.TryEnqueue(Job{ID: "j"}))
	}
	q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Flush(ctx))
	q.Stop()
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestQueueStopHandsBufferedJobsToOnDrop(t *testing.T) {
	block := make(chan struct{})
	var (
		mu      sync.Mutex
		dropped []error
	)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{
		Workers:    1,
		BufferSize: 4,
		OnDrop: func(j Job, err error) {
			mu.Lock()
			dropped = append(dropped, err)
			mu.Unlock()
		},
	})
	q.Start(context.Background())

	require.NoError(t, q.TryEnqueue(Job{ID: "running"}))
	require.NoError(t, q.TryEnqueue(Job{ID: "queued-1"}))
	require.NoError(t, q.TryEnqueue(Job{ID: "queued-2"}))

	q.Stop()
	close(block)

	mu.Lock()
	defer mu.Unlock()
	// the worker finishes at most one job after cancellation
	require.GreaterOrEqual(t, len(dropped), 1)
	for _, err := range dropped {
		assert.ErrorIs(t, err, ErrQueueClosed)
	}
	require.NoError(t, q.Flush(context.Background()))
}
