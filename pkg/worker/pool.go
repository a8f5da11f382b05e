// Package worker provides a bounded asynchronous worker pool. Streaming
// resolutions run on it so that a burst of clients cannot spawn unbounded
// goroutines against the LLM providers.
package worker

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/xiaomiproject/aikefu/pkg/logger"
)

var (
	defaultNumWorkers   uint = 20
	defaultJobQueueSize uint = 100
)

// Job is a unit of work for the worker pool to execute.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Run does the work. It must not block forever.
	Run func()
}

// Config is the configuration options for the worker pool.
type Config struct {
	// NumWorkers is the number of background workers in the pool (defaults to 20).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 100).
	QueueSize uint

	Logger *slog.Logger
}

// Pool runs jobs on a fixed set of goroutines.
type Pool struct {
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		queue:  make(chan Job, c.QueueSize),
		logger: logger.OrNop(c.Logger),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed", "job", job.Name)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "job", job.Name)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped", "job", job.Name)
		return false
	}
}

// Close stops accepting jobs and waits for queued and in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.run(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// run executes one job, recovering from panics so that a single bad job
// does not take a worker down.
func (p *Pool) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", "job", job.Name, "panic", r)
		}
	}()

	job.Run()
}
