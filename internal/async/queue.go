package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is one queued extraction: the document path plus its run identity.
type Job struct {
	RunID       string
	Path        string
	SubmittedAt time.Time
}

// Handler processes one job. A non-nil error triggers a bounded retry.
type Handler func(ctx context.Context, job Job) error

// Config for the worker pool. Zero values get sensible defaults.
type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int           // per job, default 3
	BackoffBase time.Duration // doubles per attempt, default 1s
	OnDrop      func(Job)     // called when a job is abandoned after its last attempt
}

// Pool is a bounded job queue drained by a fixed set of workers. Each worker
// handles one job at a time; failed jobs are retried in place with
// exponential backoff up to the attempt ceiling, then dropped with a log.
type Pool struct {
	cfg     Config
	jobs    chan Job
	handler Handler
	logger  *slog.Logger

	group    *errgroup.Group
	mu       sync.Mutex
	started  bool
	shutdown bool
}

var ErrQueueClosed = errors.New("job queue closed")

func NewPool(cfg Config, handler Handler, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	return &Pool{
		cfg:     cfg,
		jobs:    make(chan Job, cfg.QueueSize),
		handler: handler,
		logger:  logger,
	}
}

// Start launches the workers. Workers exit when the queue is closed and
// drained, or when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	group, ctx := errgroup.WithContext(ctx)
	p.group = group
	p.mu.Unlock()

	for i := 0; i < p.cfg.Workers; i++ {
		worker := i
		group.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case job, ok := <-p.jobs:
					if !ok {
						return nil
					}
					p.process(ctx, worker, job)
				}
			}
		})
	}
	p.logger.Info("async.pool.started", "workers", p.cfg.Workers, "queue_size", p.cfg.QueueSize)
}

// Enqueue adds a job, blocking while the queue is full.
func (p *Pool) Enqueue(ctx context.Context, job Job) error {
	p.mu.Lock()
	closed := p.shutdown
	p.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- job:
		return nil
	}
}

// Shutdown stops intake and waits for in-flight jobs, up to ctx's deadline.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return nil
	}
	p.shutdown = true
	close(p.jobs)
	group := p.group
	p.mu.Unlock()

	if group == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- group.Wait() }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

// process runs one job with in-place bounded retries.
func (p *Pool) process(ctx context.Context, worker int, job Job) {
	backoff := p.cfg.BackoffBase
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		err := p.handler(ctx, job)
		if err == nil {
			p.logger.Info("async.job.ok",
				"worker", worker,
				"run_id", job.RunID,
				"path", job.Path,
				"attempt", attempt,
				"queued_ms", time.Since(job.SubmittedAt).Milliseconds(),
			)
			return
		}
		if attempt == p.cfg.MaxAttempts || ctx.Err() != nil {
			p.logger.Error("async.job.dropped",
				"worker", worker,
				"run_id", job.RunID,
				"path", job.Path,
				"attempts", attempt,
				"error", err,
			)
			if p.cfg.OnDrop != nil {
				p.cfg.OnDrop(job)
			}
			return
		}
		p.logger.Warn("async.job.retry",
			"worker", worker,
			"run_id", job.RunID,
			"attempt", attempt,
			"backoff_ms", backoff.Milliseconds(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			if p.cfg.OnDrop != nil {
				p.cfg.OnDrop(job)
			}
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
