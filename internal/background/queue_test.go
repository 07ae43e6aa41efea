package background

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmitRunsJobOnWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(ctx, 2, 4)

	var wg sync.WaitGroup
	wg.Add(1)
	var ran bool
	ok := q.Submit(func(context.Context) {
		ran = true
		wg.Done()
	})
	require.True(t, ok)
	wg.Wait()
	require.True(t, ran)
}

func TestSubmitDropsWhenBufferFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQueue(ctx, 1, 1)

	block := make(chan struct{})
	require.True(t, q.Submit(func(context.Context) { <-block }))

	// Buffer size 1: one more fits in the channel, the next is dropped.
	require.True(t, q.Submit(func(context.Context) {}))
	ok := q.Submit(func(context.Context) {})
	require.False(t, ok)
	require.Equal(t, int64(1), q.Dropped())

	close(block)
}

func TestWorkerStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue(ctx, 1, 4)
	cancel()
	time.Sleep(10 * time.Millisecond)

	// Submitting after cancellation still enqueues (Submit doesn't check ctx),
	// but nothing drains it since the worker has exited; that's fine, the job
	// buffer just never runs after shutdown.
	q.Submit(func(context.Context) {})
}
