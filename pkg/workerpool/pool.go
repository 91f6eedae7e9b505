// Package workerpool provides a bounded goroutine pool with backpressure.
//
// When every worker is busy and the queue is full, Submit fails fast with
// ErrPoolFull so callers on the request path can drop or degrade instead of
// piling up goroutines:
//
//	pool := workerpool.New(8, 256)
//	defer pool.Shutdown()
//
//	if err := pool.Submit(task); errors.Is(err, workerpool.ErrPoolFull) {
//	    // drop, count, move on
//	}
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

var (
	ErrPoolFull   = errors.New("workerpool: pool is full")
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

// Pool is a fixed set of workers draining a bounded task queue.
type Pool struct {
	tasks   chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	once    sync.Once
	running atomic.Int64
}

// New starts size workers with a queue of depth tasks. A non-positive depth
// defaults to twice the worker count.
func New(size, depth int) *Pool {
	if size <= 0 {
		size = 1
	}
	if depth <= 0 {
		depth = size * 2
	}

	p := &Pool{tasks: make(chan func(), depth)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until the task is queued, ctx is done, or the pool closes.
func (p *Pool) SubmitWait(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending is the number of queued tasks not yet picked up.
func (p *Pool) Pending() int { return len(p.tasks) }

// Running is the number of tasks currently executing.
func (p *Pool) Running() int { return int(p.running.Load()) }

// Shutdown stops accepting tasks, runs what is already queued and waits for
// the workers to exit. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

// run executes task; a panicking task is logged and the worker survives.
func (p *Pool) run(task func()) {
	p.running.Add(1)
	defer p.running.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("workerpool: task panicked",
				"error", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	task()
}
