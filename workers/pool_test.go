package workers

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsAllJobs(t *testing.T) {
	pool := NewPool(4, 0)

	var count atomic.Int64
	for i := 0; i < 50; i++ {
		pool.Submit(func() {
			count.Add(1)
		})
	}
	pool.Wait()

	if count.Load() != 50 {
		t.Fatalf("ran %d jobs, want 50", count.Load())
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const limit = 3
	pool := NewPool(limit, 0)

	var mu sync.Mutex
	active, peak := 0, 0

	for i := 0; i < 20; i++ {
		pool.Submit(func() {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		})
	}
	pool.Wait()

	if peak > limit {
		t.Fatalf("peak concurrency %d exceeded limit %d", peak, limit)
	}
}

func TestPoolEachTaskWritesOwnSlot(t *testing.T) {
	pool := NewPool(8, 0)

	results := make([]int, 100)
	for i := range results {
		i := i
		pool.Submit(func() {
			results[i] = i + 1
		})
	}
	pool.Wait()

	for i, v := range results {
		if v != i+1 {
			t.Fatalf("slot %d = %d, want %d", i, v, i+1)
		}
	}
}

func TestPoolMinimumWorkerFloor(t *testing.T) {
	pool := NewPool(0, 0)

	done := false
	pool.Submit(func() { done = true })
	pool.Wait()

	if !done {
		t.Fatal("job never ran with zero-worker config")
	}
}

func TestPoolThrottleSpacesStarts(t *testing.T) {
	const interval = 10 * time.Millisecond
	pool := NewPool(4, interval)

	start := time.Now()
	for i := 0; i < 4; i++ {
		pool.Submit(func() {})
	}
	pool.Wait()

	// 4 starts spaced by the interval need at least 3 gaps.
	if elapsed := time.Since(start); elapsed < 3*interval {
		t.Fatalf("starts not throttled: finished in %v", elapsed)
	}
}
