package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesJobs(t *testing.T) {
	var handled int64
	pool := NewPool(Config{Workers: 2, QueueSize: 8, BackoffBase: time.Millisecond}, func(_ context.Context, _ Job) error {
		atomic.AddInt64(&handled, 1)
		return nil
	}, nil)

	ctx := context.Background()
	pool.Start(ctx)
	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Enqueue(ctx, Job{RunID: "r", Path: "doc.pdf"}))
	}
	require.NoError(t, pool.Shutdown(ctx))

	assert.Equal(t, int64(5), atomic.LoadInt64(&handled))
}

func TestPoolRetryCeiling(t *testing.T) {
	var attempts int64
	pool := NewPool(Config{Workers: 1, MaxAttempts: 3, BackoffBase: time.Millisecond}, func(_ context.Context, _ Job) error {
		atomic.AddInt64(&attempts, 1)
		return errors.New("still failing")
	}, nil)

	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Enqueue(ctx, Job{RunID: "r", Path: "doc.pdf"}))
	require.NoError(t, pool.Shutdown(ctx))

	assert.Equal(t, int64(3), atomic.LoadInt64(&attempts), "a job is attempted exactly MaxAttempts times")
}

func TestPoolReportsDroppedJobs(t *testing.T) {
	var dropped int64
	var droppedRun atomic.Value
	pool := NewPool(Config{
		Workers:     1,
		MaxAttempts: 2,
		BackoffBase: time.Millisecond,
		OnDrop: func(job Job) {
			atomic.AddInt64(&dropped, 1)
			droppedRun.Store(job.RunID)
		},
	}, func(_ context.Context, _ Job) error {
		return errors.New("still failing")
	}, nil)

	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Enqueue(ctx, Job{RunID: "r-drop", Path: "doc.pdf"}))
	require.NoError(t, pool.Shutdown(ctx))

	assert.Equal(t, int64(1), atomic.LoadInt64(&dropped))
	assert.Equal(t, "r-drop", droppedRun.Load())
}

func TestPoolNoDropOnSuccess(t *testing.T) {
	var dropped int64
	pool := NewPool(Config{
		Workers:     1,
		BackoffBase: time.Millisecond,
		OnDrop:      func(Job) { atomic.AddInt64(&dropped, 1) },
	}, func(_ context.Context, _ Job) error {
		return nil
	}, nil)

	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Enqueue(ctx, Job{RunID: "r"}))
	require.NoError(t, pool.Shutdown(ctx))

	assert.Equal(t, int64(0), atomic.LoadInt64(&dropped))
}

func TestPoolRetrySucceedsMidway(t *testing.T) {
	var attempts int64
	pool := NewPool(Config{Workers: 1, MaxAttempts: 3, BackoffBase: time.Millisecond}, func(_ context.Context, _ Job) error {
		if atomic.AddInt64(&attempts, 1) < 2 {
			return errors.New("transient")
		}
		return nil
	}, nil)

	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Enqueue(ctx, Job{RunID: "r"}))
	require.NoError(t, pool.Shutdown(ctx))

	assert.Equal(t, int64(2), atomic.LoadInt64(&attempts))
}

func TestEnqueueAfterShutdown(t *testing.T) {
	pool := NewPool(Config{Workers: 1}, func(_ context.Context, _ Job) error { return nil }, nil)
	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Shutdown(ctx))

	err := pool.Enqueue(ctx, Job{RunID: "r"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}
