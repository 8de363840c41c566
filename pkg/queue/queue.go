// Package queue serializes transcode jobs: a FIFO with exactly one job
// executing at a time, delivering each job's outcome back to its enqueuer
// through a future-style channel.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Job is one unit of work. The worker passes its own context so jobs stop
// when the queue shuts down.
type Job[T any] func(ctx context.Context) (T, error)

// Outcome is the terminal result of a job.
type Outcome[T any] struct {
	Value T
	Err   error
}

type item[T any] struct {
	job    Job[T]
	result chan Outcome[T]
}

// Queue runs jobs strictly sequentially with a cool-down between jobs so the
// external encoder can release resources. No priority, no cancellation of
// queued jobs, no reordering.
type Queue[T any] struct {
	cooldown time.Duration

	mu      sync.Mutex
	pending []item[T]
	running bool
	wake    chan struct{}
}

func New[T any](cooldown time.Duration) *Queue[T] {
	return &Queue[T]{
		cooldown: cooldown,
		wake:     make(chan struct{}, 1),
	}
}

// Enqueue appends a job and returns immediately. The returned channel is
// buffered and receives exactly one Outcome when the job finishes.
func (q *Queue[T]) Enqueue(job Job[T]) <-chan Outcome[T] {
	result := make(chan Outcome[T], 1)
	q.mu.Lock()
	q.pending = append(q.pending, item[T]{job: job, result: result})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return result
}

// Len reports the number of queued jobs not yet started.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Processing reports whether a job is currently executing.
func (q *Queue[T]) Processing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Start runs the worker loop until ctx is cancelled. Jobs still queued at
// shutdown receive ctx.Err as their outcome.
func (q *Queue[T]) Start(ctx context.Context) {
	for {
		next, ok := q.pop()
		if !ok {
			select {
			case <-q.wake:
				continue
			case <-ctx.Done():
				q.drain(ctx.Err())
				return
			}
		}

		value, err := next.job(ctx)
		next.result <- Outcome[T]{Value: value, Err: err}
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("queued job failed")
		}

		q.mu.Lock()
		q.running = false
		q.mu.Unlock()

		select {
		case <-time.After(q.cooldown):
		case <-ctx.Done():
			q.drain(ctx.Err())
			return
		}
	}
}

func (q *Queue[T]) pop() (item[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return item[T]{}, false
	}
	next := q.pending[0]
	q.pending = q.pending[1:]
	q.running = true
	return next, true
}

func (q *Queue[T]) drain(err error) {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, it := range pending {
		var zero T
		it.result <- Outcome[T]{Value: zero, Err: err}
	}
}
