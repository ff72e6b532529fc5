// Package queue implements the outbound-email dispatch queue. Jobs fan out one
// per recipient and are consumed at-least-once: a worker crash mid-send leaves
// the claimed job recoverable, at the cost of a possible duplicate delivery.
package queue

import (
	"context"
	"errors"
	"time"
)

// Job priorities. Single-recipient sends outrank group fan-out so interactive
// sends are not starved behind a large broadcast.
const (
	PriorityGroup  = 0
	PrioritySingle = 1
)

// Job states reported by Counts and Jobs.
type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateDelayed   State = "delayed"
)

// DispatchJob is one queued unit of work: a single rendered email to a single
// recipient. IDs reference Mongo documents as hex strings so the payload stays
// a plain JSON document on the wire.
type DispatchJob struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	HTML        string    `json:"html"`
	Type        string    `json:"type"`
	TemplateID  string    `json:"templateId,omitempty"`
	GroupID     string    `json:"groupId,omitempty"`
	Priority    int       `json:"priority"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"maxAttempts"`
	EnqueuedAt  time.Time `json:"enqueuedAt"`
}

// JobInfo is a job plus the state it was observed in.
type JobInfo struct {
	Job   *DispatchJob `json:"job"`
	State State        `json:"state"`
}

// Counts mirrors the queue's bookkeeping buckets.
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}

// Queue is the producer-side contract. The HTTP tier only ever enqueues and
// inspects; consumption lives behind Consumer.
type Queue interface {
	Enqueue(ctx context.Context, job *DispatchJob) (string, error)
	Counts(ctx context.Context) (Counts, error)
	Jobs(ctx context.Context, states ...State) ([]JobInfo, error)
	Close() error
}

// Processor handles one claimed job. A non-nil error triggers the queue's
// retry policy; nil marks the job complete.
type Processor func(ctx context.Context, job *DispatchJob) error

// ClaimedJob is a job checked out by a consumer, with the opaque payload
// needed to acknowledge it.
type ClaimedJob struct {
	Job *DispatchJob
	raw string
}

// Consumer is the worker-side contract: claim, then exactly one of Done,
// Fail (retryable) or Discard (permanent, skips remaining retries).
type Consumer interface {
	Claim(ctx context.Context) (*ClaimedJob, error)
	Done(ctx context.Context, c *ClaimedJob) error
	Fail(ctx context.Context, c *ClaimedJob, cause error) error
	Discard(ctx context.Context, c *ClaimedJob, cause error) error
}

// PermanentError marks a processing failure no retry can fix, such as a job
// referencing a deleted user or SMTP config.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is marked permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
