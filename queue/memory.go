package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sendhub/sendhub/logger"
)

// MemoryQueue executes jobs in-process the moment they are enqueued, with the
// same bounded-retry policy as the broker-backed queue. Meant for small
// single-process deployments; jobs do not survive a restart.
type MemoryQueue struct {
	processor   Processor
	maxAttempts int

	mu        sync.Mutex
	active    map[string]*DispatchJob
	failed    []*DispatchJob
	completed int64

	wg     sync.WaitGroup
	closed chan struct{}
}

func NewMemoryQueue(processor Processor, maxAttempts int) *MemoryQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &MemoryQueue{
		processor:   processor,
		maxAttempts: maxAttempts,
		active:      make(map[string]*DispatchJob),
		closed:      make(chan struct{}),
	}
}

// Enqueue starts processing the job immediately in the background and returns
// its ID, preserving the asynchronous contract of the HTTP tier.
func (q *MemoryQueue) Enqueue(ctx context.Context, job *DispatchJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = q.maxAttempts
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	q.mu.Lock()
	q.active[job.ID] = job
	q.mu.Unlock()

	q.wg.Add(1)
	go q.run(job)
	return job.ID, nil
}

func (q *MemoryQueue) run(job *DispatchJob) {
	defer q.wg.Done()
	for {
		err := q.processor(context.Background(), job)
		if err == nil {
			q.mu.Lock()
			delete(q.active, job.ID)
			q.completed++
			q.mu.Unlock()
			return
		}

		job.Attempts++
		logger.Sugar.Warnw("job attempt failed",
			"jobId", job.ID, "to", job.To, "attempt", job.Attempts, "error", err)
		if IsPermanent(err) || job.Attempts >= job.MaxAttempts {
			q.mu.Lock()
			delete(q.active, job.ID)
			q.failed = append(q.failed, job)
			q.mu.Unlock()
			return
		}

		select {
		case <-q.closed:
			// Shutdown mid-backoff: the remaining retries will never run, so
			// record the job failed instead of leaving it active.
			q.mu.Lock()
			delete(q.active, job.ID)
			q.failed = append(q.failed, job)
			q.mu.Unlock()
			return
		case <-time.After(backoff(job.Attempts)):
		}
	}
}

func (q *MemoryQueue) Counts(ctx context.Context) (Counts, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Counts{
		Active:    int64(len(q.active)),
		Completed: q.completed,
		Failed:    int64(len(q.failed)),
	}, nil
}

func (q *MemoryQueue) Jobs(ctx context.Context, states ...State) ([]JobInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []JobInfo
	for _, state := range states {
		switch state {
		case StateActive:
			for _, job := range q.active {
				out = append(out, JobInfo{Job: job, State: StateActive})
			}
		case StateFailed:
			for _, job := range q.failed {
				out = append(out, JobInfo{Job: job, State: StateFailed})
			}
		}
	}
	return out, nil
}

// Close waits for in-flight jobs to finish their current attempt.
func (q *MemoryQueue) Close() error {
	close(q.closed)
	q.wg.Wait()
	return nil
}
