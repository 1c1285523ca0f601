package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"travelone/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options tunes retry and retention behavior for a queue.
type Options struct {
	MaxAttempts   int
	Backoff       Backoff
	LockDuration  time.Duration
	KeepCompleted time.Duration
	KeepFailed    time.Duration
}

// Handler processes one job. A nil return acknowledges the job; an error
// sends it back through the retry schedule.
type Handler func(ctx context.Context, job *Job) error

// Queue is a delayed task queue over redis. Jobs wait in a sorted set until
// their ready time, move to a waiting list, then to an active set guarded by
// a per-job lock with a TTL. Delivery is at-least-once: a consumer that dies
// mid-job loses its lock and the job is recovered on the next sweep.
type Queue struct {
	client *redis.Client
	name   string
	opts   Options
	logger zerolog.Logger

	// injectable clock for tests
	now func() time.Time
}

func New(client *redis.Client, name string, opts Options, logger *zerolog.Logger) *Queue {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.LockDuration <= 0 {
		opts.LockDuration = 30 * time.Second
	}
	if opts.KeepCompleted <= 0 {
		opts.KeepCompleted = time.Hour
	}
	if opts.KeepFailed <= 0 {
		opts.KeepFailed = 2 * time.Hour
	}
	return &Queue{
		client: client,
		name:   name,
		opts:   opts,
		logger: logger.With().Str("queue", name).Logger(),
		now:    time.Now,
	}
}

func (q *Queue) key(suffix string) string {
	return fmt.Sprintf("queue:%s:%s", q.name, suffix)
}

func (q *Queue) lockKey(jobID string) string {
	return q.key("lock:" + jobID)
}

func (q *Queue) jobKey(jobID string) string {
	return q.key("job:" + jobID)
}

// Schedule enqueues a job to become ready after delay. jobKey deduplicates:
// scheduling the same key again replaces the earlier delayed job.
func (q *Queue) Schedule(ctx context.Context, jobName, jobKey string, payload Payload, delay time.Duration) (string, error) {
	if jobKey == "" {
		return "", errors.New("job key is required")
	}

	// Drop a previous delayed job under the same key, if any.
	if _, err := q.CancelIfPresent(ctx, jobKey); err != nil {
		return "", err
	}

	now := q.now()
	job := &Job{
		ID:          uuid.NewString(),
		Name:        jobName,
		Key:         jobKey,
		Payload:     payload,
		Attempts:    0,
		MaxAttempts: q.opts.MaxAttempts,
		CreatedAt:   now,
		ReadyAt:     now.Add(delay),
	}

	pipe := q.client.TxPipeline()
	pipe.HSet(ctx, q.jobKey(job.ID), job.fields())
	pipe.ZAdd(ctx, q.key("delayed"), redis.Z{
		Score:  float64(job.ReadyAt.UnixMilli()),
		Member: job.ID,
	})
	pipe.HSet(ctx, q.key("keys"), jobKey, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("schedule job: %w", err)
	}

	q.logger.Debug().
		Str("job_id", job.ID).
		Str("job_key", jobKey).
		Time("ready_at", job.ReadyAt).
		Msg("job scheduled")
	return job.ID, nil
}

// CancelIfPresent removes a still-delayed job by its key. Returns false when
// no job exists under the key or the job has already left the delayed set;
// in the latter case the consumer's own state check decides the outcome.
func (q *Queue) CancelIfPresent(ctx context.Context, jobKey string) (bool, error) {
	jobID, err := q.client.HGet(ctx, q.key("keys"), jobKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup job key: %w", err)
	}

	// ZREM is the claim: whoever removes the member owns the job. A job
	// already promoted to waiting or active cannot be claimed here.
	removed, err := q.client.ZRem(ctx, q.key("delayed"), jobID).Result()
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	if removed == 0 {
		return false, nil
	}

	pipe := q.client.TxPipeline()
	pipe.Del(ctx, q.jobKey(jobID))
	pipe.HDel(ctx, q.key("keys"), jobKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("cleanup cancelled job: %w", err)
	}

	q.logger.Debug().Str("job_id", jobID).Str("job_key", jobKey).Msg("job cancelled")
	return true, nil
}

// Promote moves due jobs from the delayed set to the waiting list. Returns
// the number of jobs promoted.
func (q *Queue) Promote(ctx context.Context) (int, error) {
	nowMs := strconv.FormatInt(q.now().UnixMilli(), 10)
	ids, err := q.client.ZRangeByScore(ctx, q.key("delayed"), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   nowMs,
		Count: 100,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan delayed jobs: %w", err)
	}

	promoted := 0
	for _, id := range ids {
		// Same ZREM claim as cancellation; losing the race means the job
		// was cancelled under us, which is fine.
		removed, err := q.client.ZRem(ctx, q.key("delayed"), id).Result()
		if err != nil {
			return promoted, fmt.Errorf("claim delayed job: %w", err)
		}
		if removed == 0 {
			continue
		}
		pipe := q.client.TxPipeline()
		pipe.HSet(ctx, q.jobKey(id), "status", StatusWaiting)
		pipe.LPush(ctx, q.key("wait"), id)
		if _, err := pipe.Exec(ctx); err != nil {
			return promoted, fmt.Errorf("promote job %s: %w", id, err)
		}
		promoted++
	}
	return promoted, nil
}

// Next blocks up to timeout for a waiting job, marks it active and takes its
// lock. Returns nil when nothing arrived in time.
func (q *Queue) Next(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key("wait")).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop waiting job: %w", err)
	}
	if len(res) != 2 {
		return nil, nil
	}
	jobID := res[1]

	pipe := q.client.TxPipeline()
	pipe.SAdd(ctx, q.key("active"), jobID)
	pipe.Set(ctx, q.lockKey(jobID), "1", q.opts.LockDuration)
	pipe.HSet(ctx, q.jobKey(jobID), "status", StatusActive)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("activate job %s: %w", jobID, err)
	}

	fields, err := q.client.HGetAll(ctx, q.jobKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if len(fields) == 0 {
		// Data hash expired or was deleted; nothing left to run.
		q.discard(ctx, jobID)
		q.logger.Warn().Str("job_id", jobID).Msg("orphaned job dropped")
		return nil, nil
	}
	return jobFromFields(jobID, fields)
}

// ExtendLock refreshes the active job's lock while a long handler runs.
func (q *Queue) ExtendLock(ctx context.Context, jobID string) error {
	ok, err := q.client.Expire(ctx, q.lockKey(jobID), q.opts.LockDuration).Result()
	if err != nil {
		return fmt.Errorf("extend lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock for job %s is gone", jobID)
	}
	return nil
}

// Ack marks a job completed and schedules its record for cleanup.
func (q *Queue) Ack(ctx context.Context, job *Job) error {
	now := q.now()
	pipe := q.client.TxPipeline()
	pipe.SRem(ctx, q.key("active"), job.ID)
	pipe.Del(ctx, q.lockKey(job.ID))
	pipe.HSet(ctx, q.jobKey(job.ID), "status", StatusCompleted, "finished_at", now.UnixMilli())
	pipe.Expire(ctx, q.jobKey(job.ID), q.opts.KeepCompleted)
	pipe.HDel(ctx, q.key("keys"), job.Key)
	pipe.ZAdd(ctx, q.key("completed"), redis.Z{Score: float64(now.UnixMilli()), Member: job.ID})
	pipe.ZRemRangeByScore(ctx, q.key("completed"), "-inf",
		strconv.FormatInt(now.Add(-q.opts.KeepCompleted).UnixMilli(), 10))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack job %s: %w", job.ID, err)
	}
	metrics.IncQueueJob(StatusCompleted)
	return nil
}

// RetryOrFail reschedules a failed attempt with backoff, or buries the job
// once its attempts are spent.
func (q *Queue) RetryOrFail(ctx context.Context, job *Job, cause error) error {
	attempt := job.Attempts + 1
	now := q.now()

	if attempt >= job.MaxAttempts {
		pipe := q.client.TxPipeline()
		pipe.SRem(ctx, q.key("active"), job.ID)
		pipe.Del(ctx, q.lockKey(job.ID))
		pipe.HSet(ctx, q.jobKey(job.ID),
			"status", StatusFailed,
			"attempts", attempt,
			"error", cause.Error(),
			"finished_at", now.UnixMilli(),
		)
		pipe.Expire(ctx, q.jobKey(job.ID), q.opts.KeepFailed)
		pipe.HDel(ctx, q.key("keys"), job.Key)
		pipe.ZAdd(ctx, q.key("failed"), redis.Z{Score: float64(now.UnixMilli()), Member: job.ID})
		pipe.ZRemRangeByScore(ctx, q.key("failed"), "-inf",
			strconv.FormatInt(now.Add(-q.opts.KeepFailed).UnixMilli(), 10))
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("fail job %s: %w", job.ID, err)
		}
		q.logger.Error().
			Err(cause).
			Str("job_id", job.ID).
			Str("job_key", job.Key).
			Int("attempts", attempt).
			Msg("job failed permanently")
		metrics.IncQueueJob(StatusFailed)
		return nil
	}

	readyAt := now.Add(q.opts.Backoff.NextDelay(attempt))
	pipe := q.client.TxPipeline()
	pipe.SRem(ctx, q.key("active"), job.ID)
	pipe.Del(ctx, q.lockKey(job.ID))
	pipe.HSet(ctx, q.jobKey(job.ID),
		"status", StatusDelayed,
		"attempts", attempt,
		"error", cause.Error(),
		"ready_at", readyAt.UnixMilli(),
	)
	pipe.ZAdd(ctx, q.key("delayed"), redis.Z{Score: float64(readyAt.UnixMilli()), Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reschedule job %s: %w", job.ID, err)
	}
	q.logger.Warn().
		Err(cause).
		Str("job_id", job.ID).
		Str("job_key", job.Key).
		Int("attempt", attempt).
		Time("retry_at", readyAt).
		Msg("job attempt failed, rescheduled")
	metrics.IncQueueJob("retried")
	return nil
}

// RecoverStalled re-enqueues active jobs whose lock has expired. The attempt
// counter is not charged: a lost consumer is not the job's fault.
func (q *Queue) RecoverStalled(ctx context.Context) (int, error) {
	ids, err := q.client.SMembers(ctx, q.key("active")).Result()
	if err != nil {
		return 0, fmt.Errorf("list active jobs: %w", err)
	}

	recovered := 0
	for _, id := range ids {
		held, err := q.client.Exists(ctx, q.lockKey(id)).Result()
		if err != nil {
			return recovered, fmt.Errorf("check lock for %s: %w", id, err)
		}
		if held > 0 {
			continue
		}
		removed, err := q.client.SRem(ctx, q.key("active"), id).Result()
		if err != nil {
			return recovered, fmt.Errorf("release stalled job %s: %w", id, err)
		}
		if removed == 0 {
			continue
		}
		pipe := q.client.TxPipeline()
		pipe.HSet(ctx, q.jobKey(id), "status", StatusWaiting)
		pipe.LPush(ctx, q.key("wait"), id)
		if _, err := pipe.Exec(ctx); err != nil {
			return recovered, fmt.Errorf("requeue stalled job %s: %w", id, err)
		}
		q.logger.Warn().Str("job_id", id).Msg("stalled job recovered")
		recovered++
	}
	return recovered, nil
}

// Counts reports queue depth per state, for metrics and introspection.
func (q *Queue) Counts(ctx context.Context) (map[string]int64, error) {
	pipe := q.client.Pipeline()
	delayed := pipe.ZCard(ctx, q.key("delayed"))
	waiting := pipe.LLen(ctx, q.key("wait"))
	active := pipe.SCard(ctx, q.key("active"))
	completed := pipe.ZCard(ctx, q.key("completed"))
	failed := pipe.ZCard(ctx, q.key("failed"))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("queue counts: %w", err)
	}
	return map[string]int64{
		StatusDelayed:   delayed.Val(),
		StatusWaiting:   waiting.Val(),
		StatusActive:    active.Val(),
		StatusCompleted: completed.Val(),
		StatusFailed:    failed.Val(),
	}, nil
}

// nextReadyIn reports how long until the earliest delayed job is due.
func (q *Queue) nextReadyIn(ctx context.Context) (time.Duration, bool) {
	zs, err := q.client.ZRangeWithScores(ctx, q.key("delayed"), 0, 0).Result()
	if err != nil || len(zs) == 0 {
		return 0, false
	}
	until := time.UnixMilli(int64(zs[0].Score)).Sub(q.now())
	if until < 0 {
		until = 0
	}
	return until, true
}

func (q *Queue) discard(ctx context.Context, jobID string) {
	pipe := q.client.TxPipeline()
	pipe.SRem(ctx, q.key("active"), jobID)
	pipe.Del(ctx, q.lockKey(jobID))
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Error().Err(err).Str("job_id", jobID).Msg("discard failed")
	}
}
