package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"routeplay/internal/logging"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrPoolStopped = errors.New("job pool is stopped")
)

type task struct {
	id      string
	timeout time.Duration
}

// Pool runs queued jobs on a fixed set of workers, apart from the request path.
type Pool struct {
	Manager *Manager
	Workers int

	mu      sync.Mutex
	queue   chan task
	stopped bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewPool(m *Manager, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{Manager: m, Workers: workers, queue: make(chan task, queueSize), ctx: ctx, cancel: cancel}
}

func (p *Pool) Start() {
	for i := 0; i < p.Workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for t := range p.queue {
				if err := p.Manager.Execute(p.ctx, t.id, t.timeout); err != nil {
					logging.Error("jobs", "execute skipped", "job", t.id, "err", err)
				}
			}
		}()
	}
}

// Submit queues a job without blocking. The caller decides what to do with a full queue.
func (p *Pool) Submit(id string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task{id: id, timeout: timeout}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting work and waits for queued jobs to finish. When ctx ends first,
// in-flight solves are cancelled and the remaining queue drains as failures.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
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
