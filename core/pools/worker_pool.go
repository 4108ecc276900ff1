package pools

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("pools: worker pool closed")

// Task represents a unit of work
type Task func()

// WorkerPool is a fixed set of long-lived workers consuming one shared FIFO
// queue. Each task runs to completion on a single worker.
type WorkerPool struct {
	numWorkers int
	tasks      chan Task

	mu     sync.RWMutex // held for reading while sending, for writing while closing
	closed bool
	wg     sync.WaitGroup

	onPanic func(recovered any)

	// Statistics
	stats struct {
		tasksSubmitted atomic.Uint64
		tasksCompleted atomic.Uint64
		tasksPanicked  atomic.Uint64
		busyWorkers    atomic.Int64
	}
}

// WorkerPoolOption configures a WorkerPool
type WorkerPoolOption func(*WorkerPool)

// WithPanicHandler is called with the recovered value when a task panics.
// The worker keeps running either way.
func WithPanicHandler(fn func(recovered any)) WorkerPoolOption {
	return func(p *WorkerPool) {
		p.onPanic = fn
	}
}

// NewWorkerPool starts numWorkers workers behind a queue holding up to
// queueSize pending tasks.
func NewWorkerPool(numWorkers, queueSize int, opts ...WorkerPoolOption) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if queueSize < 0 {
		queueSize = 0
	}

	pool := &WorkerPool{
		numWorkers: numWorkers,
		tasks:      make(chan Task, queueSize),
	}
	for _, opt := range opts {
		opt(pool)
	}

	pool.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go pool.run()
	}

	return pool
}

// Submit enqueues a task, blocking while the queue is full.
func (p *WorkerPool) Submit(task Task) error {
	return p.SubmitContext(context.Background(), task)
}

// SubmitContext enqueues a task, blocking while the queue is full or until
// ctx is done.
func (p *WorkerPool) SubmitContext(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		p.stats.tasksSubmitted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *WorkerPool) run() {
	defer p.wg.Done()

	for task := range p.tasks {
		p.execute(task)
	}
}

func (p *WorkerPool) execute(task Task) {
	p.stats.busyWorkers.Add(1)
	defer func() {
		p.stats.busyWorkers.Add(-1)
		p.stats.tasksCompleted.Add(1)
		if r := recover(); r != nil {
			p.stats.tasksPanicked.Add(1)
			if p.onPanic != nil {
				p.onPanic(r)
			}
		}
	}()

	task()
}

// Close stops accepting tasks, lets the workers drain the queue and waits
// for them to exit.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

// Size returns the number of workers.
func (p *WorkerPool) Size() int {
	return p.numWorkers
}

// Stats returns pool statistics
func (p *WorkerPool) Stats() WorkerPoolStats {
	submitted := p.stats.tasksSubmitted.Load()
	completed := p.stats.tasksCompleted.Load()
	return WorkerPoolStats{
		NumWorkers:     p.numWorkers,
		BusyWorkers:    int(p.stats.busyWorkers.Load()),
		TasksSubmitted: submitted,
		TasksCompleted: completed,
		TasksPending:   submitted - completed,
		TasksPanicked:  p.stats.tasksPanicked.Load(),
	}
}

// WorkerPoolStats contains pool statistics
type WorkerPoolStats struct {
	NumWorkers     int
	BusyWorkers    int
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksPending   uint64
	TasksPanicked  uint64
}
