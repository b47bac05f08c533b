package jobxmemory

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/relay/pkg/jobx"
	"github.com/google/uuid"
)

type scheduled struct {
	id    string
	queue string
	at    time.Time
}

// Queue is a process-local jobx.Queue for development and tests. Jobs are
// lost when the process exits.
type Queue struct {
	mu        sync.Mutex
	jobs      map[string]*jobx.JobInfo
	ready     map[string][]string
	scheduled []scheduled
	notify    chan struct{}
	now       func() time.Time
}

func NewQueue() *Queue {
	return &Queue{
		jobs:   make(map[string]*jobx.JobInfo),
		ready:  make(map[string][]string),
		notify: make(chan struct{}, 1),
		now:    time.Now,
	}
}

var _ jobx.Queue = (*Queue)(nil)

func (q *Queue) Enqueue(_ context.Context, job jobx.Job) (string, error) {
	q.mu.Lock()
	info := jobx.NewJobInfo(uuid.NewString(), job, q.now())
	q.jobs[info.ID] = &info
	q.ready[job.Queue] = append(q.ready[job.Queue], info.ID)
	q.mu.Unlock()

	q.wake()
	return info.ID, nil
}

func (q *Queue) GetJob(_ context.Context, jobID string) (*jobx.JobInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	info, ok := q.jobs[jobID]
	if !ok {
		return nil, jobx.NotFound(jobID)
	}
	out := *info
	return &out, nil
}

// Dequeue pops the oldest ready job, waiting up to timeout for one to arrive.
func (q *Queue) Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*jobx.JobInfo, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if info := q.pop(queues); info != nil {
			return info, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-deadline.C:
			return nil, nil
		case <-q.notify:
		}
	}
}

func (q *Queue) pop(queues []string) *jobx.JobInfo {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, name := range queues {
		ids := q.ready[name]
		if len(ids) == 0 {
			continue
		}
		q.ready[name] = ids[1:]
		info := q.jobs[ids[0]]
		info.Status = jobx.JobStatusActive
		info.Attempts++
		info.UpdatedAt = q.now()
		out := *info
		return &out
	}
	return nil
}

func (q *Queue) Complete(_ context.Context, jobID string, result []byte) error {
	return q.update(jobID, func(info *jobx.JobInfo) {
		info.Status = jobx.JobStatusCompleted
		info.Result = result
	})
}

func (q *Queue) Fail(_ context.Context, jobID string, errMsg string) (bool, error) {
	var retry bool
	err := q.update(jobID, func(info *jobx.JobInfo) {
		retry = info.CanRetry()
		info.Error = errMsg
		if retry {
			info.Status = jobx.JobStatusRetrying
		} else {
			info.Status = jobx.JobStatusFailed
		}
	})
	return retry, err
}

func (q *Queue) Retry(_ context.Context, jobID string, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	info, ok := q.jobs[jobID]
	if !ok {
		return jobx.NotFound(jobID)
	}
	q.scheduled = append(q.scheduled, scheduled{id: jobID, queue: info.Queue, at: q.now().Add(delay)})
	return nil
}

func (q *Queue) PromoteScheduled(_ context.Context, queues []string) error {
	q.mu.Lock()
	now := q.now()
	wanted := make(map[string]bool, len(queues))
	for _, name := range queues {
		wanted[name] = true
	}
	kept := q.scheduled[:0]
	promoted := 0
	for _, s := range q.scheduled {
		if wanted[s.queue] && !s.at.After(now) {
			q.ready[s.queue] = append(q.ready[s.queue], s.id)
			promoted++
			continue
		}
		kept = append(kept, s)
	}
	q.scheduled = kept
	q.mu.Unlock()

	if promoted > 0 {
		q.wake()
	}
	return nil
}

// Jobs returns a snapshot of every job ever enqueued.
func (q *Queue) Jobs() []jobx.JobInfo {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]jobx.JobInfo, 0, len(q.jobs))
	for _, info := range q.jobs {
		out = append(out, *info)
	}
	return out
}

func (q *Queue) update(jobID string, fn func(*jobx.JobInfo)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	info, ok := q.jobs[jobID]
	if !ok {
		return jobx.NotFound(jobID)
	}
	fn(info)
	info.UpdatedAt = q.now()
	return nil
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
