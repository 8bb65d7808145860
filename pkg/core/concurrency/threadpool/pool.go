// Package threadpool implements a fixed-size worker pool with a FIFO task
// queue and future-style results for running tasks off the caller's
// goroutine.
package threadpool

import (
	"runtime"
	"sync"

	"github.com/google/uuid"
)

// Future is the result of a submitted task, resolved once by the worker
// that runs it. ID identifies the task for logging/tracing across the
// queue -> worker handoff, independent of submission order.
type Future struct {
	ID     uuid.UUID
	done   chan struct{}
	result any
	err    error
}

// Wait blocks until the task completes and returns its result.
func (f *Future) Wait() (any, error) {
	<-f.done
	return f.result, f.err
}

type task struct {
	fn     func() (any, error)
	future *Future
}

// Pool runs submitted tasks on a fixed number of worker goroutines, taking
// tasks off a single channel in submission order.
type Pool struct {
	tasks chan task
	wg    sync.WaitGroup
}

// New starts a pool with the given number of workers. size <= 0 defaults to
// runtime.NumCPU(), clamped to at least 1.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if size < 1 {
		size = 1
	}
	p := &Pool{tasks: make(chan task, size*4)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		result, err := t.fn()
		t.future.result = result
		t.future.err = err
		close(t.future.done)
	}
}

// Submit enqueues fn and returns a Future for its result. Blocks if the
// internal queue is full, providing natural backpressure.
func (p *Pool) Submit(fn func() (any, error)) *Future {
	future := &Future{ID: uuid.New(), done: make(chan struct{})}
	p.tasks <- task{fn: fn, future: future}
	return future
}

// Stop closes the task queue and blocks until every already-submitted task
// has run. No further Submit calls are allowed after Stop.
func (p *Pool) Stop() {
	close(p.tasks)
	p.wg.Wait()
}
