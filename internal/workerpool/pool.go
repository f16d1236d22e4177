// Package workerpool provides a bounded-admission scheduler with a cap that
// can be raised or lowered at runtime. Lowering the cap never preempts
// running work; it only delays future admissions.
package workerpool

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker pool closed")

// Pool admits tasks while activeCount < maxConcurrent. Admission is checked
// in submission order, so waiters form a FIFO queue per pool.
type Pool struct {
	mu        sync.Mutex
	cond      *sync.Cond
	max       int
	active    int
	ticket    uint64
	next      uint64
	abandoned map[uint64]struct{}
	closed    bool
}

// New constructs a pool with the given concurrency cap. Caps below 1 are
// raised to 1.
func New(maxConcurrent int) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	pool := &Pool{max: maxConcurrent, abandoned: make(map[uint64]struct{})}
	pool.cond = sync.NewCond(&pool.mu)
	return pool
}

// MaxConcurrent returns the current cap.
func (p *Pool) MaxConcurrent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.max
}

// Active returns the number of running tasks.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// SetMaxConcurrent changes the cap. Raising it wakes waiters immediately;
// lowering it only blocks future admissions.
func (p *Pool) SetMaxConcurrent(maxConcurrent int) {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	p.mu.Lock()
	p.max = maxConcurrent
	p.mu.Unlock()
	p.cond.Broadcast()
}

// acquire blocks until a slot is free, the context is cancelled, or the
// pool is closed. Tickets keep admission in submission order.
func (p *Pool) acquire(ctx context.Context) error {
	p.mu.Lock()
	ticket := p.ticket
	p.ticket++

	// A context cancellation has to wake the cond waiter.
	stop := context.AfterFunc(ctx, func() {
		p.cond.Broadcast()
	})
	defer stop()

	for {
		if p.closed {
			p.abandon(ticket)
			p.mu.Unlock()
			p.cond.Broadcast()
			return ErrClosed
		}
		if ctx.Err() != nil {
			p.abandon(ticket)
			p.mu.Unlock()
			p.cond.Broadcast()
			return ctx.Err()
		}
		p.skipAbandoned()
		if ticket == p.next && p.active < p.max {
			p.next++
			p.active++
			p.mu.Unlock()
			return nil
		}
		p.cond.Wait()
	}
}

// abandon removes a cancelled waiter's ticket from the admission order.
// Callers hold p.mu.
func (p *Pool) abandon(ticket uint64) {
	if ticket == p.next {
		p.next++
		p.skipAbandoned()
		return
	}
	p.abandoned[ticket] = struct{}{}
}

// skipAbandoned advances past tickets whose waiters already left.
// Callers hold p.mu.
func (p *Pool) skipAbandoned() {
	for {
		if _, ok := p.abandoned[p.next]; !ok {
			return
		}
		delete(p.abandoned, p.next)
		p.next++
	}
}

// release frees a slot and wakes waiters.
func (p *Pool) release() {
	p.mu.Lock()
	p.active--
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Submit blocks until the task is admitted, runs it, and releases the slot
// when it returns. The task's error is passed through.
func (p *Pool) Submit(ctx context.Context, task func(context.Context) error) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()
	return task(ctx)
}

// Go admits and runs the task on its own goroutine, reporting the result on
// the returned channel.
func (p *Pool) Go(ctx context.Context, task func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- p.Submit(ctx, task)
	}()
	return done
}

// Close rejects all waiting and future submissions. Running tasks finish
// normally.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}
