package jobx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abraxas-365/relay/pkg/logx"
)

// HandlerFunc processes a job. Return nil on success, an error to trigger retry/fail.
type HandlerFunc func(ctx context.Context, job *JobInfo) error

// JobEnqueuer enqueues jobs for processing.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job Job) (string, error)
}

// Queue is the storage backend behind a Client.
type Queue interface {
	Enqueue(ctx context.Context, job Job) (string, error)
	GetJob(ctx context.Context, jobID string) (*JobInfo, error)
	Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*JobInfo, error)
	Complete(ctx context.Context, jobID string, result []byte) error
	// Fail records the failure and reports whether the job may run again.
	Fail(ctx context.Context, jobID string, errMsg string) (retry bool, err error)
	Retry(ctx context.Context, jobID string, delay time.Duration) error
	PromoteScheduled(ctx context.Context, queues []string) error
}

// WorkerOptions configures the job processing client.
type WorkerOptions struct {
	Queues            []string
	Concurrency       int
	PollInterval      time.Duration
	ShutdownTimeout   time.Duration
	DequeueTimeout    time.Duration
	DefaultRetryDelay time.Duration
	// MaxRetryDelay caps the exponential retry delay.
	MaxRetryDelay time.Duration
}

func (o WorkerOptions) withDefaults() WorkerOptions {
	if len(o.Queues) == 0 {
		o.Queues = []string{"default"}
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 30 * time.Second
	}
	if o.DequeueTimeout <= 0 {
		o.DequeueTimeout = 5 * time.Second
	}
	if o.DefaultRetryDelay <= 0 {
		o.DefaultRetryDelay = 30 * time.Second
	}
	if o.MaxRetryDelay <= 0 {
		o.MaxRetryDelay = 30 * time.Minute
	}
	return o
}

// Client is the main entry point for enqueuing and processing jobs.
type Client struct {
	queue    Queue
	opts     WorkerOptions
	handlers map[string]HandlerFunc
	mu       sync.RWMutex
	running  bool
}

// NewClient creates a new job processing client.
func NewClient(queue Queue, opts WorkerOptions) *Client {
	return &Client{
		queue:    queue,
		opts:     opts.withDefaults(),
		handlers: make(map[string]HandlerFunc),
	}
}

// Register adds a handler for a given job type.
func (c *Client) Register(jobType string, handler HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[jobType] = handler
}

// Enqueue enqueues a job for immediate processing.
func (c *Client) Enqueue(ctx context.Context, job Job) (string, error) {
	if job.Type == "" {
		return "", jobxErrors.New(ErrInvalidJob).WithDetail("reason", "missing type")
	}
	if job.Queue == "" {
		job.Queue = "default"
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}
	return c.queue.Enqueue(ctx, job)
}

// GetJob returns the current state of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*JobInfo, error) {
	return c.queue.GetJob(ctx, jobID)
}

// Start runs the scheduler and the worker pool until ctx is cancelled, then
// waits up to ShutdownTimeout for in-flight jobs.
func (c *Client) Start(ctx context.Context) error {
	if !c.markRunning(true) {
		return jobxErrors.New(ErrAlreadyRunning)
	}
	defer c.markRunning(false)

	logx.WithFields(logx.Fields{
		"workers": c.opts.Concurrency,
		"queues":  c.opts.Queues,
	}).Info("jobx: worker pool started")

	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	spawn(func() { c.promoteLoop(ctx) })
	for id := range c.opts.Concurrency {
		spawn(func() { c.consume(ctx, id) })
	}

	<-ctx.Done()

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	grace := time.NewTimer(c.opts.ShutdownTimeout)
	defer grace.Stop()

	select {
	case <-stopped:
		logx.Info("jobx: worker pool stopped")
	case <-grace.C:
		logx.Warnf("jobx: workers still busy after %s, abandoning them", c.opts.ShutdownTimeout)
	}
	return nil
}

// markRunning flips the running flag and reports whether it changed.
func (c *Client) markRunning(on bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running == on {
		return false
	}
	c.running = on
	return true
}

// promoteLoop moves due retries back onto their queues every PollInterval.
func (c *Client) promoteLoop(ctx context.Context) {
	tick := time.NewTicker(c.opts.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		err := c.queue.PromoteScheduled(ctx, c.opts.Queues)
		if err != nil && ctx.Err() == nil {
			logx.WithError(err).Warn("jobx: promote scheduled jobs")
		}
	}
}

// consume is one worker: dequeue, process, repeat.
func (c *Client) consume(ctx context.Context, id int) {
	for ctx.Err() == nil {
		job, err := c.queue.Dequeue(ctx, c.opts.Queues, c.opts.DequeueTimeout)
		switch {
		case err != nil && ctx.Err() != nil:
			return
		case err != nil:
			logx.WithError(err).WithField("worker", id).Warn("jobx: dequeue failed")
			pause(ctx, c.opts.PollInterval)
		case job != nil:
			c.ProcessJob(ctx, job)
		}
	}
}

func pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ProcessJob runs the handler for one dequeued job and records the outcome.
// Failed jobs go back on the queue after retryDelay while attempts remain.
func (c *Client) ProcessJob(ctx context.Context, job *JobInfo) {
	log := logx.WithFields(logx.Fields{"job_id": job.ID, "job_type": job.Type})

	c.mu.RLock()
	handler := c.handlers[job.Type]
	c.mu.RUnlock()

	var runErr error
	if handler == nil {
		runErr = jobxErrors.New(ErrNoHandler).WithDetail("type", job.Type)
	} else {
		runErr = runHandler(ctx, handler, job)
	}

	if runErr == nil {
		if err := c.queue.Complete(ctx, job.ID, nil); err != nil {
			log.WithError(err).Error("jobx: mark completed")
		}
		return
	}

	log.WithError(runErr).Warn("jobx: job failed")
	retry, err := c.queue.Fail(ctx, job.ID, runErr.Error())
	if err != nil {
		log.WithError(err).Error("jobx: mark failed")
		return
	}
	if !retry || handler == nil {
		return
	}
	if err := c.queue.Retry(ctx, job.ID, c.retryDelay(job.Attempts)); err != nil {
		log.WithError(err).Error("jobx: schedule retry")
	}
}

// retryDelay doubles DefaultRetryDelay per attempt, capped at MaxRetryDelay.
func (c *Client) retryDelay(attempts int) time.Duration {
	delay := c.opts.DefaultRetryDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= c.opts.MaxRetryDelay {
			return c.opts.MaxRetryDelay
		}
	}
	return delay
}

func runHandler(ctx context.Context, handler HandlerFunc, job *JobInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = jobxErrors.New(ErrHandlerPanic).
				WithDetail("job_id", job.ID).
				WithDetail("panic", fmt.Sprint(r))
		}
	}()
	return handler(ctx, job)
}
