package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New[int](time.Millisecond)
	go q.Start(ctx)

	var mu sync.Mutex
	var order []int

	results := make([]<-chan Outcome[int], 0, 5)
	for i := 0; i < 5; i++ {
		i := i
		results = append(results, q.Enqueue(func(ctx context.Context) (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i * 10, nil
		}))
	}

	for i, result := range results {
		outcome := <-result
		require.NoError(t, outcome.Err)
		assert.Equal(t, i*10, outcome.Value)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestQueueSingleJobInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New[struct{}](time.Millisecond)
	go q.Start(ctx)

	release := make(chan struct{})
	first := q.Enqueue(func(ctx context.Context) (struct{}, error) {
		<-release
		return struct{}{}, nil
	})
	second := q.Enqueue(func(ctx context.Context) (struct{}, error) {
		return struct{}{}, nil
	})

	require.Eventually(t, q.Processing, time.Second, time.Millisecond)
	assert.Equal(t, 1, q.Len())

	select {
	case <-second:
		t.Fatal("second job finished while first still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, (<-first).Err)
	require.NoError(t, (<-second).Err)
	assert.Equal(t, 0, q.Len())
}

func TestQueueDeliversJobError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New[string](time.Millisecond)
	go q.Start(ctx)

	boom := errors.New("encode blew up")
	failed := q.Enqueue(func(ctx context.Context) (string, error) {
		return "", boom
	})
	next := q.Enqueue(func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	assert.ErrorIs(t, (<-failed).Err, boom)

	// A failure never wedges the queue.
	outcome := <-next
	require.NoError(t, outcome.Err)
	assert.Equal(t, "ok", outcome.Value)
}

func TestQueueEnqueueNeverBlocks(t *testing.T) {
	q := New[int](time.Millisecond)
	// No worker running at all.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			q.Enqueue(func(ctx context.Context) (int, error) { return 0, nil })
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked without a worker")
	}
	assert.Equal(t, 100, q.Len())
}

func TestQueueShutdownDrainsPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	q := New[int](time.Millisecond)
	go q.Start(ctx)

	blocked := q.Enqueue(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	queued := q.Enqueue(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	require.Eventually(t, q.Processing, time.Second, time.Millisecond)
	cancel()

	assert.ErrorIs(t, (<-blocked).Err, context.Canceled)
	assert.ErrorIs(t, (<-queued).Err, context.Canceled)
}
