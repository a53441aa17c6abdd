package workers

import (
	"sync"
	"time"
)

// Pool bounds goroutine fan-out to a fixed worker count. Each stage submits
// one task per unit of work, each task writes only into its own result slot,
// and Wait is the join barrier before the serial fan-in step.
type Pool struct {
	maxWorkers  int
	minInterval time.Duration
	semaphore   chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastStart   time.Time
}

// NewPool creates a Pool with the given concurrency. minInterval, when
// positive, enforces a minimum delay between task starts for rate-limited
// upstreams.
func NewPool(maxWorkers int, minInterval time.Duration) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{
		maxWorkers:  maxWorkers,
		minInterval: minInterval,
		semaphore:   make(chan struct{}, maxWorkers),
	}
}

// Submit enqueues a job for execution in the pool.
func (p *Pool) Submit(job func()) {
	p.wg.Add(1)
	p.semaphore <- struct{}{}

	go func() {
		defer p.wg.Done()
		defer func() { <-p.semaphore }()

		p.throttle()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) throttle() {
	if p.minInterval <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.lastStart)
	if elapsed < p.minInterval {
		time.Sleep(p.minInterval - elapsed)
	}
	p.lastStart = time.Now()
}
