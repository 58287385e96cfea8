// Package pools provides the shared resource pools of the gateway core:
// a work-stealing goroutine pool that drives asynchronous cache-tier
// propagation and background sweeps, and a tiered byte pool for wire
// decode buffers.
package pools

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Task is a unit of background work.
type Task func()

// WorkerPool is a bounded work-stealing goroutine pool. The cache
// coordinator submits slower-tier writes here so the request path never
// blocks on them; when every queue is full the task runs inline on the
// submitter, so submission never silently drops work.
type WorkerPool struct {
	numWorkers int
	queues     []chan Task
	closed     atomic.Bool

	// mu orders Submit's channel sends before Close's channel closes,
	// so a concurrent Close can never turn a send into a panic. Submit
	// takes the read side only; unrelated submitters do not serialize.
	mu      sync.RWMutex
	workers sync.WaitGroup

	stats struct {
		submitted atomic.Uint64
		completed atomic.Uint64
		steals    atomic.Uint64
		inline    atomic.Uint64
	}
}

const queueDepth = 256

// NewWorkerPool starts numWorkers workers. A non-positive count
// defaults to the number of CPUs.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	p := &WorkerPool{
		numWorkers: numWorkers,
		queues:     make([]chan Task, numWorkers),
	}
	for i := range p.queues {
		p.queues[i] = make(chan Task, queueDepth)
	}
	p.workers.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.run(i)
	}
	return p
}

// Submit hands task to the pool. It returns false only after Close.
// Safe to call concurrently with Close.
func (p *WorkerPool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed.Load() {
		return false
	}
	p.stats.submitted.Add(1)

	idx := int(p.stats.submitted.Load()) % p.numWorkers
	select {
	case p.queues[idx] <- task:
		return true
	default:
	}

	// First-choice queue full, try the neighbor before running inline.
	idx = (idx + 1) % p.numWorkers
	select {
	case p.queues[idx] <- task:
		return true
	default:
		p.stats.inline.Add(1)
		task()
		p.stats.completed.Add(1)
		return true
	}
}

func (p *WorkerPool) run(id int) {
	defer p.workers.Done()
	own := p.queues[id]
	for {
		select {
		case task, ok := <-own:
			if !ok {
				return
			}
			task()
			p.stats.completed.Add(1)
			continue
		default:
		}

		if p.trySteal(id) {
			continue
		}

		task, ok := <-own
		if !ok {
			return
		}
		task()
		p.stats.completed.Add(1)
	}
}

// trySteal drains one task from another worker's queue. Starting at the
// next worker spreads victims instead of hammering queue 0.
func (p *WorkerPool) trySteal(id int) bool {
	for i := 1; i < p.numWorkers; i++ {
		victim := p.queues[(id+i)%p.numWorkers]
		select {
		case task, ok := <-victim:
			if !ok {
				continue
			}
			p.stats.steals.Add(1)
			task()
			p.stats.completed.Add(1)
			return true
		default:
		}
	}
	return false
}

// Close stops accepting work and blocks until already-queued tasks
// drain and the workers exit.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if !p.closed.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return
	}
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()
	p.workers.Wait()
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	NumWorkers     int
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksPending   uint64
	Steals         uint64
	RanInline      uint64
}

// Stats returns a snapshot of the pool counters.
func (p *WorkerPool) Stats() Stats {
	submitted := p.stats.submitted.Load()
	completed := p.stats.completed.Load()
	return Stats{
		NumWorkers:     p.numWorkers,
		TasksSubmitted: submitted,
		TasksCompleted: completed,
		TasksPending:   submitted - completed,
		Steals:         p.stats.steals.Load(),
		RanInline:      p.stats.inline.Load(),
	}
}
