// Package queue holds the in-memory FIFO of submissions waiting to be graded.
//
// The queue lives only in process memory: identifiers not yet dequeued are
// lost on restart while their records stay pending in the datastore.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grader/internal/observability"
)

// Job is a queued submission.
type Job struct {
	SubmissionID uint
	EnqueuedAt   time.Time
}

// SubmissionQueue is an unbounded FIFO with a blocking Dequeue.
type SubmissionQueue struct {
	mu     sync.Mutex
	jobs   []Job
	notify chan struct{}
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs an empty queue.
func New(logger zerolog.Logger) *SubmissionQueue {
	return &SubmissionQueue{
		notify: make(chan struct{}, 1),
		logger: logger.With().Str("component", "submission_queue").Logger(),
		now:    time.Now,
	}
}

// Enqueue appends a submission to the tail. It never blocks and never drops;
// enqueuing the same id twice grades it twice.
func (q *SubmissionQueue) Enqueue(submissionID uint) {
	q.mu.Lock()
	q.jobs = append(q.jobs, Job{SubmissionID: submissionID, EnqueuedAt: q.now()})
	depth := len(q.jobs)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}

	observability.QueueDepth().Set(float64(depth))
	q.logger.Info().Uint("submission_id", submissionID).Int("depth", depth).Msg("submission enqueued for grading")
}

// Dequeue removes and returns the oldest job, waiting until one is available
// or ctx is done.
func (q *SubmissionQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		q.mu.Lock()
		if len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs[0] = Job{}
			q.jobs = q.jobs[1:]
			depth := len(q.jobs)
			q.mu.Unlock()

			observability.QueueDepth().Set(float64(depth))
			return job, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Job{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// Len returns the number of waiting jobs.
func (q *SubmissionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
