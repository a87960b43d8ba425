// Package worker runs batches of independent tasks on a bounded number of
// goroutines and hands results back in submission order.
package worker

import (
	"context"
	"sort"
	"sync"
)

// Task computes one value. It receives the pool context.
type Task[T any] func(ctx context.Context) T

type job[T any] struct {
	index int
	task  Task[T]
}

type slot[T any] struct {
	index int
	value T
}

// Pool executes tasks on a fixed set of workers
type Pool[T any] struct {
	workers    int
	jobQueue   chan job[T]
	results    chan slot[T]
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	next       int

	collected []slot[T]
	collector chan struct{}
}

// NewPool creates a pool bound to ctx. Fewer than one worker means one.
func NewPool[T any](ctx context.Context, workers int) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool[T]{
		workers:    workers,
		jobQueue:   make(chan job[T], workers*2),
		results:    make(chan slot[T], workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
		collector:  make(chan struct{}),
	}
}

// Start launches the workers and the result collector. It must be called
// before Submit.
func (p *Pool[T]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

// collect drains results as they arrive so workers never block on a full
// results channel while Submit is still feeding the queue
func (p *Pool[T]) collect() {
	defer close(p.collector)
	for s := range p.results {
		p.collected = append(p.collected, s)
	}
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case j, ok := <-p.jobQueue:
			if !ok {
				return
			}
			v := j.task(p.ctx)
			select {
			case p.results <- slot[T]{index: j.index, value: v}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a task. It reports false if the pool was cancelled first.
// Submit and Wait must be called from the same goroutine.
func (p *Pool[T]) Submit(task Task[T]) bool {
	if p.ctx.Err() != nil {
		return false
	}
	j := job[T]{index: p.next, task: task}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- j:
		p.next++
		return true
	}
}

// Wait closes the queue, waits for the workers and returns the values in
// submission order. Tasks that never ran are missing from the result.
func (p *Pool[T]) Wait() []T {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.collector
	p.cancelFunc()

	collected := p.collected
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	out := make([]T, len(collected))
	for i, s := range collected {
		out[i] = s.value
	}
	return out
}

// Shutdown cancels the pool and waits for running tasks to return
func (p *Pool[T]) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	<-p.collector
}

func (p *Pool[T]) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
