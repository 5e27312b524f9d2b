// Package worker runs tasks off the caller's goroutine on a fixed set of
// workers fed by a bounded queue.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool executes submitted tasks on a fixed number of goroutines. Tasks run in
// no particular order relative to each other.
type Pool struct {
	queue   chan func()
	workers *pool.Pool
	mu      sync.RWMutex
	closed  bool
}

// New starts workers goroutines reading from a queue of queueSize pending tasks.
func New(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{
		queue:   make(chan func(), queueSize),
		workers: pool.New().WithMaxGoroutines(workers),
	}
	for i := 0; i < workers; i++ {
		p.workers.Go(p.run)
	}
	return p
}

func (p *Pool) run() {
	for task := range p.queue {
		p.execute(task)
	}
}

// execute keeps a panicking task from taking its worker down.
func (p *Pool) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Worker task panicked", "panic", r)
		}
	}()
	task()
}

// Submit queues task, blocking while the queue is full. The task receives ctx.
func (p *Pool) Submit(ctx context.Context, task func(context.Context)) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- func() { task(ctx) }:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks, runs everything already queued and waits for
// the workers to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.workers.Wait()
}
