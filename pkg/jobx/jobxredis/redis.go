package jobxredis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Abraxas-365/relay/pkg/jobx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// finishedTTL bounds how long completed and failed job records are kept.
const finishedTTL = 7 * 24 * time.Hour

// RedisQueue implements jobx.Queue backed by Redis lists, a sorted set per
// queue for delayed retries, and one JSON record per job.
type RedisQueue struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisQueue creates a new Redis-backed queue.
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb, prefix: "relay:jobx:"}
}

var _ jobx.Queue = (*RedisQueue)(nil)

func (q *RedisQueue) queueKey(name string) string     { return q.prefix + "queue:" + name }
func (q *RedisQueue) scheduledKey(name string) string { return q.prefix + "scheduled:" + name }
func (q *RedisQueue) jobKey(id string) string         { return q.prefix + "job:" + id }

// Enqueue adds a job to the ready queue immediately.
func (q *RedisQueue) Enqueue(ctx context.Context, job jobx.Job) (string, error) {
	info := jobx.NewJobInfo(uuid.NewString(), job, time.Now().UTC())

	data, err := json.Marshal(info)
	if err != nil {
		return "", redisErrors.NewWithCause(ErrMarshal, err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, q.jobKey(info.ID), data, 0)
	pipe.LPush(ctx, q.queueKey(job.Queue), info.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", redisErrors.NewWithCause(ErrStore, err).WithDetail("queue", job.Queue)
	}

	return info.ID, nil
}

// GetJob retrieves job info by ID.
func (q *RedisQueue) GetJob(ctx context.Context, jobID string) (*jobx.JobInfo, error) {
	data, err := q.rdb.Get(ctx, q.jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, jobx.NotFound(jobID)
	}
	if err != nil {
		return nil, redisErrors.NewWithCause(ErrStore, err).WithDetail("job_id", jobID)
	}

	var info jobx.JobInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, redisErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", jobID)
	}

	return &info, nil
}

func (q *RedisQueue) save(ctx context.Context, info *jobx.JobInfo, ttl time.Duration) error {
	info.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(info)
	if err != nil {
		return redisErrors.NewWithCause(ErrMarshal, err).WithDetail("job_id", info.ID)
	}

	if err := q.rdb.Set(ctx, q.jobKey(info.ID), data, ttl).Err(); err != nil {
		return redisErrors.NewWithCause(ErrStore, err).WithDetail("job_id", info.ID)
	}
	return nil
}

// update loads jobID, applies fn and stores the record with the TTL fn returns.
func (q *RedisQueue) update(ctx context.Context, jobID string, fn func(*jobx.JobInfo) time.Duration) (*jobx.JobInfo, error) {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := q.save(ctx, info, fn(info)); err != nil {
		return nil, err
	}
	return info, nil
}

// Dequeue pops the oldest ready id across queues, waiting up to timeout.
// It returns nil, nil when nothing arrived in time.
func (q *RedisQueue) Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*jobx.JobInfo, error) {
	keys := make([]string, 0, len(queues))
	for _, name := range queues {
		keys = append(keys, q.queueKey(name))
	}

	popped, err := q.rdb.BRPop(ctx, timeout, keys...).Result()
	switch {
	case errors.Is(err, redis.Nil), err != nil && ctx.Err() != nil:
		return nil, nil
	case err != nil:
		return nil, redisErrors.NewWithCause(ErrDequeue, err)
	}

	// BRPOP answers [key, value].
	return q.update(ctx, popped[1], func(info *jobx.JobInfo) time.Duration {
		info.Status = jobx.JobStatusActive
		info.Attempts++
		return 0
	})
}

// Complete marks a job as successfully completed.
func (q *RedisQueue) Complete(ctx context.Context, jobID string, result []byte) error {
	_, err := q.update(ctx, jobID, func(info *jobx.JobInfo) time.Duration {
		info.Status = jobx.JobStatusCompleted
		info.Result = result
		return finishedTTL
	})
	return err
}

// Fail records errMsg and reports whether the job has attempts left.
// Exhausted jobs expire after finishedTTL.
func (q *RedisQueue) Fail(ctx context.Context, jobID string, errMsg string) (bool, error) {
	info, err := q.update(ctx, jobID, func(info *jobx.JobInfo) time.Duration {
		info.Error = errMsg
		if info.CanRetry() {
			info.Status = jobx.JobStatusRetrying
			return 0
		}
		info.Status = jobx.JobStatusFailed
		return finishedTTL
	})
	if err != nil {
		return false, err
	}
	return info.Status == jobx.JobStatusRetrying, nil
}

// Retry schedules a job to become ready again after delay.
func (q *RedisQueue) Retry(ctx context.Context, jobID string, delay time.Duration) error {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	score := float64(time.Now().UTC().Add(delay).Unix())
	if err := q.rdb.ZAdd(ctx, q.scheduledKey(info.Queue), redis.Z{Score: score, Member: jobID}).Err(); err != nil {
		return redisErrors.NewWithCause(ErrStore, err).WithDetail("job_id", jobID)
	}
	return nil
}

// promoteScript moves due ids from the scheduled set to the ready list atomically.
var promoteScript = redis.NewScript(`
local scheduled_key = KEYS[1]
local queue_key = KEYS[2]
local now = tonumber(ARGV[1])
local ids = redis.call('ZRANGEBYSCORE', scheduled_key, '-inf', now)
if #ids > 0 then
    for _, id in ipairs(ids) do
        redis.call('LPUSH', queue_key, id)
    end
    redis.call('ZREMRANGEBYSCORE', scheduled_key, '-inf', now)
end
return #ids
`)

// PromoteScheduled makes every due retry ready again.
func (q *RedisQueue) PromoteScheduled(ctx context.Context, queues []string) error {
	now := strconv.FormatInt(time.Now().UTC().Unix(), 10)

	for _, name := range queues {
		err := promoteScript.Run(ctx, q.rdb, []string{q.scheduledKey(name), q.queueKey(name)}, now).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			return redisErrors.NewWithCause(ErrPromote, err).WithDetail("queue", name)
		}
	}

	return nil
}
