package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProcessor struct {
	mu    sync.Mutex
	calls int
	errs  []error // consumed in order; nil past the end
}

func (p *countingProcessor) process(_ context.Context, _ *DispatchJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= len(p.errs) {
		return p.errs[p.calls-1]
	}
	return nil
}

func (p *countingProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestMemoryQueueCompletesJob(t *testing.T) {
	p := &countingProcessor{}
	q := NewMemoryQueue(p.process, 3)

	id, err := q.Enqueue(context.Background(), &DispatchJob{To: "a@b.c"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, q.Close())

	counts, err := q.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Completed)
	assert.Equal(t, int64(0), counts.Failed)
	assert.Equal(t, 1, p.callCount())
}

func TestMemoryQueueRetriesThenSucceeds(t *testing.T) {
	p := &countingProcessor{errs: []error{errors.New("transient")}}
	q := NewMemoryQueue(p.process, 3)

	_, err := q.Enqueue(context.Background(), &DispatchJob{To: "a@b.c"})
	require.NoError(t, err)

	// First attempt fails, the retry lands after one backoff interval.
	require.Eventually(t, func() bool {
		counts, _ := q.Counts(context.Background())
		return counts.Completed == 1
	}, 5*time.Second, 50*time.Millisecond)
	require.NoError(t, q.Close())

	assert.Equal(t, 2, p.callCount())
}

func TestMemoryQueueExhaustsAttempts(t *testing.T) {
	p := &countingProcessor{errs: []error{errors.New("down"), errors.New("down")}}
	q := NewMemoryQueue(p.process, 1)

	_, err := q.Enqueue(context.Background(), &DispatchJob{To: "a@b.c"})
	require.NoError(t, err)
	require.NoError(t, q.Close())

	counts, err := q.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Failed)
	assert.Equal(t, 1, p.callCount(), "maxAttempts 1 means no retry")

	jobs, err := q.Jobs(context.Background(), StateFailed)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, StateFailed, jobs[0].State)
	assert.Equal(t, 1, jobs[0].Job.Attempts)
}

func TestMemoryQueuePermanentErrorSkipsRetries(t *testing.T) {
	p := &countingProcessor{errs: []error{
		Permanent(errors.New("user deleted")),
		errors.New("never reached"),
	}}
	q := NewMemoryQueue(p.process, 5)

	_, err := q.Enqueue(context.Background(), &DispatchJob{To: "a@b.c"})
	require.NoError(t, err)
	require.NoError(t, q.Close())

	counts, err := q.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Failed)
	assert.Equal(t, 1, p.callCount(), "permanent failures do not retry")
}

func TestMemoryQueueCloseDuringBackoffRecordsFailure(t *testing.T) {
	started := make(chan struct{}, 1)
	q := NewMemoryQueue(func(context.Context, *DispatchJob) error {
		started <- struct{}{}
		return errors.New("transient")
	}, 5)

	_, err := q.Enqueue(context.Background(), &DispatchJob{To: "a@b.c"})
	require.NoError(t, err)

	// Close while the job waits out its backoff window.
	<-started
	require.NoError(t, q.Close())

	counts, err := q.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts.Active, "no job stays active after Close")
	assert.Equal(t, int64(1), counts.Failed)
}

func TestPermanentErrorWrapping(t *testing.T) {
	base := errors.New("boom")

	assert.True(t, IsPermanent(Permanent(base)))
	assert.True(t, IsPermanent(errors.Wrap(Permanent(base), "outer")), "survives wrapping")
	assert.False(t, IsPermanent(base))
	assert.Nil(t, Permanent(nil))
}
