// Package worker consumes the dispatch queue and performs SMTP delivery.
// It runs as its own process (cmd/worker); the HTTP tier only enqueues.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sendhub/sendhub/logger"
	"github.com/sendhub/sendhub/models"
	"github.com/sendhub/sendhub/queue"
)

// Store is the slice of the document store the pipeline needs.
type Store interface {
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	SmtpConfigByID(ctx context.Context, id primitive.ObjectID) (*models.SmtpConfig, error)
	InsertEmailLog(ctx context.Context, log *models.EmailLog) error
}

// Sender delivers one email through a user's SMTP transport.
type Sender interface {
	Send(cfg *models.SmtpConfig, to, subject, html string) error
}

// JobSource is the consumable queue plus its maintenance hooks. Satisfied by
// *queue.RedisQueue.
type JobSource interface {
	queue.Consumer
	PromoteDue(ctx context.Context) error
	Reclaim(ctx context.Context) (int, error)
}

// Pipeline resolves a job's tenant and SMTP config, attempts delivery and
// writes the ledger row. It is the queue.Processor for the in-memory queue
// and the per-job body for the redis worker.
type Pipeline struct {
	Store  Store
	Sender Sender
}

// Process handles one dispatch job. Every attempt that reaches the send step
// produces exactly one EmailLog row, success or failure, before the job is
// resolved. Errors wrapped by queue.Permanent must not be retried.
func (p *Pipeline) Process(ctx context.Context, job *queue.DispatchJob) error {
	userID, err := primitive.ObjectIDFromHex(job.UserID)
	if err != nil {
		return queue.Permanent(errors.Wrapf(err, "invalid user id %q", job.UserID))
	}

	user, err := p.Store.UserByID(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "resolve user")
	}
	if user == nil {
		err := errors.Errorf("user not found: %s", job.UserID)
		p.logOutcome(ctx, job, userID, models.StatusFailed, err)
		return queue.Permanent(err)
	}

	if user.Smtp.IsZero() {
		err := errors.Errorf("SMTP configuration not set for user: %s", job.UserID)
		p.logOutcome(ctx, job, userID, models.StatusFailed, err)
		return queue.Permanent(err)
	}
	cfg, err := p.Store.SmtpConfigByID(ctx, user.Smtp)
	if err != nil {
		return errors.Wrap(err, "resolve smtp config")
	}
	if cfg == nil {
		err := errors.Errorf("SMTP configuration not found for user: %s", job.UserID)
		p.logOutcome(ctx, job, userID, models.StatusFailed, err)
		return queue.Permanent(err)
	}

	if sendErr := p.Sender.Send(cfg, job.To, job.Subject, job.HTML); sendErr != nil {
		if logErr := p.logOutcome(ctx, job, userID, models.StatusFailed, sendErr); logErr != nil {
			return logErr
		}
		// Transport failure: retryable by the queue's policy.
		return errors.Wrap(sendErr, "smtp send")
	}

	return p.logOutcome(ctx, job, userID, models.StatusSuccess, nil)
}

func (p *Pipeline) logOutcome(ctx context.Context, job *queue.DispatchJob, userID primitive.ObjectID, status string, cause error) error {
	row := &models.EmailLog{
		User:      userID,
		To:        job.To,
		Subject:   job.Subject,
		Body:      job.HTML,
		Type:      job.Type,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if cause != nil {
		row.Error = cause.Error()
	}
	if id, err := primitive.ObjectIDFromHex(job.TemplateID); err == nil {
		row.Template = &id
	}
	if id, err := primitive.ObjectIDFromHex(job.GroupID); err == nil {
		row.Group = &id
	}
	if err := p.Store.InsertEmailLog(ctx, row); err != nil {
		// The ledger row must exist before the job resolves; failing the job
		// retries the whole attempt (a duplicate send is the accepted cost).
		return errors.Wrap(err, "write email log")
	}
	return nil
}

// Worker drives N concurrent Pipeline executions against a JobSource.
type Worker struct {
	source   JobSource
	pipeline *Pipeline
	pool     *ants.Pool
}

func New(source JobSource, pipeline *Pipeline, concurrency int) (*Worker, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	return &Worker{source: source, pipeline: pipeline, pool: pool}, nil
}

const (
	idleWait        = 500 * time.Millisecond
	promoteInterval = time.Second
)

// Run blocks, claiming and processing jobs until ctx is cancelled. In-flight
// jobs finish their current attempt before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	if n, err := w.source.Reclaim(ctx); err != nil {
		return errors.Wrap(err, "reclaim leftover jobs")
	} else if n > 0 {
		logger.Sugar.Infow("reclaimed jobs from previous run", "count", n)
	}

	var wg sync.WaitGroup
	lastPromote := time.Time{}

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			w.pool.Release()
			return nil
		default:
		}

		if time.Since(lastPromote) >= promoteInterval {
			if err := w.source.PromoteDue(ctx); err != nil {
				logger.Sugar.Errorw("promoting delayed jobs", "error", err)
			}
			lastPromote = time.Now()
		}

		claimed, err := w.source.Claim(ctx)
		if err != nil {
			logger.Sugar.Errorw("claiming job", "error", err)
			sleepCtx(ctx, idleWait)
			continue
		}
		if claimed == nil {
			sleepCtx(ctx, idleWait)
			continue
		}

		wg.Add(1)
		job := claimed
		// Submit blocks when all slots are busy, throttling the claim rate.
		if err := w.pool.Submit(func() {
			defer wg.Done()
			w.handle(ctx, job)
		}); err != nil {
			wg.Done()
			// Pool released during shutdown; put the claim back for a retry.
			_ = w.source.Fail(context.WithoutCancel(ctx), job, err)
		}
	}
}

func (w *Worker) handle(ctx context.Context, claimed *queue.ClaimedJob) {
	// A claimed job's attempt runs to completion even during shutdown:
	// cancellation stops further claims, not the ledger write or the ack.
	ctx = context.WithoutCancel(ctx)
	job := claimed.Job
	err := w.pipeline.Process(ctx, job)
	switch {
	case err == nil:
		logger.Sugar.Infow("job completed", "jobId", job.ID, "to", job.To)
		if ackErr := w.source.Done(ctx, claimed); ackErr != nil {
			logger.Sugar.Errorw("acking job", "jobId", job.ID, "error", ackErr)
		}
	case queue.IsPermanent(err):
		logger.Sugar.Errorw("job failed permanently", "jobId", job.ID, "to", job.To, "error", err)
		if dErr := w.source.Discard(ctx, claimed, err); dErr != nil {
			logger.Sugar.Errorw("discarding job", "jobId", job.ID, "error", dErr)
		}
	default:
		logger.Sugar.Warnw("job failed", "jobId", job.ID, "to", job.To,
			"attempt", job.Attempts+1, "error", err)
		if fErr := w.source.Fail(ctx, claimed, err); fErr != nil {
			logger.Sugar.Errorw("releasing failed job", "jobId", job.ID, "error", fErr)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
