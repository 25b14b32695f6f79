package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by TryEnqueue when the buffer has no room.
var ErrQueueFull = errors.New("queue full")

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as final: the queue logs it and drops the job without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory job dispatcher backed by goroutines. Failed jobs are retried with a doubling delay.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		jobs:       make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.started = false
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue pushes a job onto the queue, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	ctx, err := q.running()
	if err != nil {
		return err
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

// TryEnqueue pushes a job without blocking and reports ErrQueueFull when there is no room.
func (q *Queue) TryEnqueue(job Job) error {
	if _, err := q.running(); err != nil {
		return err
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

func (q *Queue) running() (context.Context, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return nil, fmt.Errorf("queue %s not started", q.name)
	}
	return q.ctx, nil
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.handleFailure(job, err)
			}
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	var final permanentError
	if errors.As(err, &final) {
		q.logger.Error("job failed permanently", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(final.err))
		return
	}
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Error("job exceeded retries", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
		return
	}
	delay := q.retryDelay << (job.Attempt - 1)
	q.logger.Warn("job failed, retrying",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Duration("delay", delay),
		zap.Error(err),
	)

	go func(j Job) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				q.logger.Error("failed to requeue job", zap.String("job_id", j.ID), zap.Error(err))
			}
		}
	}(job)
}
