package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campus-market/backend/internal/observability"
)

// Options tunes the pool.
type Options struct {
	Workers     int
	QueueSize   int
	JobTimeout  time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

type job struct {
	channel string
	run     func(ctx context.Context) error
}

// Pool runs notification jobs off the request path. Each attempt gets its own
// timeout; failed attempts are retried with linear backoff and the final
// failure is logged, never returned to the submitter.
type Pool struct {
	opts    Options
	logger  *zap.Logger
	metrics *observability.Metrics

	jobs   chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool builds a pool. Call Start before submitting.
func NewPool(opts Options, logger *zap.Logger, metrics *observability.Metrics) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 10 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		opts:    opts,
		logger:  logger.Named("notification"),
		metrics: metrics,
		jobs:    make(chan job, opts.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				p.process(j)
			}
		}()
	}
}

// Submit enqueues fn without blocking. It returns false when the queue is
// full or the pool is stopping; the job is then dropped and logged.
func (p *Pool) Submit(channel string, fn func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("pool stopped, dropping job", zap.String("channel", channel))
		p.metrics.RecordNotification(channel, "dropped")
		return false
	}
	select {
	case p.jobs <- job{channel: channel, run: fn}:
		return true
	default:
		p.logger.Error("queue full, dropping job", zap.String("channel", channel))
		p.metrics.RecordNotification(channel, "dropped")
		return false
	}
}

// Stop refuses new jobs and waits for queued ones. If ctx expires first,
// in-flight attempts are cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) process(j job) {
	var err error
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		err = p.attempt(j)
		if err == nil {
			p.metrics.RecordNotification(j.channel, "sent")
			return
		}
		p.logger.Warn("notification attempt failed",
			zap.String("channel", j.channel),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == p.opts.MaxAttempts {
			break
		}
		select {
		case <-p.ctx.Done():
			attempt = p.opts.MaxAttempts
		case <-time.After(p.opts.Backoff * time.Duration(attempt)):
		}
	}
	p.metrics.RecordNotification(j.channel, "failed")
	p.logger.Error("notification failed",
		zap.String("channel", j.channel),
		zap.Error(err))
}

func (p *Pool) attempt(j job) (err error) {
	ctx, cancel := context.WithTimeout(p.ctx, p.opts.JobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return j.run(ctx)
}
