package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/sendhub/sendhub/logger"
	"github.com/sendhub/sendhub/models"
)

// Redis key layout. Waiting jobs live in two FIFO lists (one per priority);
// each consumer owns a processing list so a crashed worker's claims survive
// and are reclaimed on restart; retries wait in a delayed zset scored by
// ready-time; terminal failures land in a capped list.
const (
	keyWaitingHigh    = "dispatch:waiting:high"
	keyWaitingDefault = "dispatch:waiting:default"
	keyActivePrefix   = "dispatch:active:"
	keyDelayed        = "dispatch:delayed"
	keyFailed         = "dispatch:failed"
	keyCompleted      = "dispatch:completed"
	keyConsumers      = "dispatch:consumers"

	failedKeep = 1000
)

// RedisQueue is the durable broker-backed queue. It is both a Queue (producer
// side) and a Consumer (worker side).
type RedisQueue struct {
	client      *redis.Client
	consumer    string
	maxAttempts int
}

// NewRedisQueue connects the queue to Redis. consumer names this process's
// processing list; reuse a stable name across restarts so leftover claims are
// reclaimed.
func NewRedisQueue(client *redis.Client, consumer string, maxAttempts int) *RedisQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RedisQueue{client: client, consumer: consumer, maxAttempts: maxAttempts}
}

func (q *RedisQueue) activeKey() string {
	return keyActivePrefix + q.consumer
}

func waitingKey(priority int) string {
	if priority >= PrioritySingle {
		return keyWaitingHigh
	}
	return keyWaitingDefault
}

// Enqueue pushes a job onto the waiting list for its priority and returns the
// job ID immediately; delivery is asynchronous from the caller's point of view.
func (q *RedisQueue) Enqueue(ctx context.Context, job *DispatchJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = q.maxAttempts
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", errors.Wrap(err, "marshal dispatch job")
	}
	if err := q.client.LPush(ctx, waitingKey(job.Priority), payload).Err(); err != nil {
		return "", errors.Wrap(err, "enqueue dispatch job")
	}
	return job.ID, nil
}

// Claim atomically moves the oldest waiting job (high priority first) into
// this consumer's processing list. Returns nil when nothing is ready.
func (q *RedisQueue) Claim(ctx context.Context) (*ClaimedJob, error) {
	for _, key := range []string{keyWaitingHigh, keyWaitingDefault} {
		raw, err := q.client.LMove(ctx, key, q.activeKey(), "RIGHT", "LEFT").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "claim dispatch job")
		}
		job, err := decodeJob(raw)
		if err != nil {
			// Poison payload: record it in the failed list, then release it.
			q.pushFailed(ctx, raw)
			q.client.LRem(ctx, q.activeKey(), 1, raw)
			logger.Sugar.Errorw("discarding undecodable job payload", "error", err)
			continue
		}
		return &ClaimedJob{Job: job, raw: raw}, nil
	}
	return nil, nil
}

// Done acknowledges a claimed job and counts it completed.
func (q *RedisQueue) Done(ctx context.Context, c *ClaimedJob) error {
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.activeKey(), 1, c.raw)
	pipe.Incr(ctx, keyCompleted)
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "ack dispatch job")
}

// Fail releases a claimed job after a processing error. The job is re-queued
// through the delayed zset with exponential backoff until MaxAttempts is
// exhausted, then recorded as permanently failed. The new record is written
// before the claim is released: a crash in between leaves the job in both
// places, and at-least-once tolerates the duplicate; the reverse order could
// lose it.
func (q *RedisQueue) Fail(ctx context.Context, c *ClaimedJob, cause error) error {
	job := c.Job
	job.Attempts++
	if job.Attempts >= job.MaxAttempts {
		payload, _ := json.Marshal(job)
		q.pushFailed(ctx, string(payload))
		logger.Sugar.Warnw("job permanently failed",
			"jobId", job.ID, "to", job.To, "attempts", job.Attempts, "error", cause)
		return errors.Wrap(q.client.LRem(ctx, q.activeKey(), 1, c.raw).Err(), "release dispatch job")
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, "marshal retried job")
	}
	readyAt := time.Now().Add(backoff(job.Attempts))
	if err := q.client.ZAdd(ctx, keyDelayed, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: payload,
	}).Err(); err != nil {
		return errors.Wrap(err, "delay retried job")
	}
	return errors.Wrap(q.client.LRem(ctx, q.activeKey(), 1, c.raw).Err(), "release dispatch job")
}

// Discard resolves a claimed job as permanently failed without consuming its
// remaining retries. Used when no retry can fix the failure.
func (q *RedisQueue) Discard(ctx context.Context, c *ClaimedJob, cause error) error {
	job := c.Job
	job.Attempts++
	payload, _ := json.Marshal(job)
	q.pushFailed(ctx, string(payload))
	logger.Sugar.Warnw("job discarded",
		"jobId", job.ID, "to", job.To, "error", cause)
	return errors.Wrap(q.client.LRem(ctx, q.activeKey(), 1, c.raw).Err(), "release dispatch job")
}

// PromoteDue moves delayed jobs whose backoff has elapsed back onto their
// waiting lists. Called periodically by the worker loop.
func (q *RedisQueue) PromoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := q.client.ZRangeByScore(ctx, keyDelayed, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return errors.Wrap(err, "scan delayed jobs")
	}
	for _, raw := range members {
		// Only the remover promotes; concurrent workers skip already-taken members.
		removed, err := q.client.ZRem(ctx, keyDelayed, raw).Result()
		if err != nil || removed == 0 {
			continue
		}
		job, derr := decodeJob(raw)
		if derr != nil {
			q.pushFailed(ctx, raw)
			continue
		}
		q.client.LPush(ctx, waitingKey(job.Priority), raw)
	}
	return nil
}

// Reclaim returns this consumer's leftover claims (from a previous crash) to
// the front of the waiting lists. Call once on worker start.
func (q *RedisQueue) Reclaim(ctx context.Context) (int, error) {
	if err := q.client.SAdd(ctx, keyConsumers, q.consumer).Err(); err != nil {
		return 0, errors.Wrap(err, "register consumer")
	}
	n := 0
	for {
		raw, err := q.client.RPop(ctx, q.activeKey()).Result()
		if err == redis.Nil {
			return n, nil
		}
		if err != nil {
			return n, errors.Wrap(err, "reclaim active jobs")
		}
		job, derr := decodeJob(raw)
		if derr != nil {
			q.pushFailed(ctx, raw)
			continue
		}
		q.client.RPush(ctx, waitingKey(job.Priority), raw)
		n++
	}
}

func (q *RedisQueue) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	waitingHigh, err := q.client.LLen(ctx, keyWaitingHigh).Result()
	if err != nil {
		return c, errors.Wrap(err, "queue counts")
	}
	waitingDefault, err := q.client.LLen(ctx, keyWaitingDefault).Result()
	if err != nil {
		return c, errors.Wrap(err, "queue counts")
	}
	c.Waiting = waitingHigh + waitingDefault

	consumers, err := q.client.SMembers(ctx, keyConsumers).Result()
	if err != nil {
		return c, errors.Wrap(err, "queue counts")
	}
	for _, name := range consumers {
		n, err := q.client.LLen(ctx, keyActivePrefix+name).Result()
		if err != nil {
			return c, errors.Wrap(err, "queue counts")
		}
		c.Active += n
	}

	if completed, err := q.client.Get(ctx, keyCompleted).Int64(); err == nil {
		c.Completed = completed
	} else if err != redis.Nil {
		return c, errors.Wrap(err, "queue counts")
	}
	if c.Failed, err = q.client.LLen(ctx, keyFailed).Result(); err != nil {
		return c, errors.Wrap(err, "queue counts")
	}
	if c.Delayed, err = q.client.ZCard(ctx, keyDelayed).Result(); err != nil {
		return c, errors.Wrap(err, "queue counts")
	}
	return c, nil
}

// Jobs lists the jobs currently observable in the given states. Completed jobs
// are only counted, never retained, so StateCompleted yields nothing here.
func (q *RedisQueue) Jobs(ctx context.Context, states ...State) ([]JobInfo, error) {
	var out []JobInfo
	for _, state := range states {
		switch state {
		case StateWaiting:
			for _, key := range []string{keyWaitingHigh, keyWaitingDefault} {
				raws, err := q.client.LRange(ctx, key, 0, -1).Result()
				if err != nil {
					return nil, errors.Wrap(err, "list waiting jobs")
				}
				out = appendJobs(out, raws, StateWaiting)
			}
		case StateActive:
			consumers, err := q.client.SMembers(ctx, keyConsumers).Result()
			if err != nil {
				return nil, errors.Wrap(err, "list active jobs")
			}
			for _, name := range consumers {
				raws, err := q.client.LRange(ctx, keyActivePrefix+name, 0, -1).Result()
				if err != nil {
					return nil, errors.Wrap(err, "list active jobs")
				}
				out = appendJobs(out, raws, StateActive)
			}
		case StateDelayed:
			raws, err := q.client.ZRange(ctx, keyDelayed, 0, -1).Result()
			if err != nil {
				return nil, errors.Wrap(err, "list delayed jobs")
			}
			out = appendJobs(out, raws, StateDelayed)
		case StateFailed:
			raws, err := q.client.LRange(ctx, keyFailed, 0, -1).Result()
			if err != nil {
				return nil, errors.Wrap(err, "list failed jobs")
			}
			out = appendJobs(out, raws, StateFailed)
		}
	}
	return out, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) pushFailed(ctx context.Context, raw string) {
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, keyFailed, raw)
	pipe.LTrim(ctx, keyFailed, 0, failedKeep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Sugar.Errorw("recording failed job", "error", err)
	}
}

func appendJobs(out []JobInfo, raws []string, state State) []JobInfo {
	for _, raw := range raws {
		job, err := decodeJob(raw)
		if err != nil {
			continue
		}
		out = append(out, JobInfo{Job: job, State: state})
	}
	return out
}

func decodeJob(raw string) (*DispatchJob, error) {
	var job DispatchJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, err
	}
	if job.Type == "" {
		job.Type = models.TemplateStatic
	}
	return &job, nil
}

// backoff grows exponentially with the attempt count: 1s, 2s, 4s, ...
func backoff(attempt int) time.Duration {
	d := time.Second
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	if d > time.Minute {
		d = time.Minute
	}
	return d
}
