package utils

import (
	"context"
	"sync"
	"time"
)

// WorkerPool bounds how many jobs run at once and spaces job starts by a
// minimum interval. Jobs submitted after the context is cancelled are
// dropped.
type WorkerPool struct {
	interval time.Duration
	slots    chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	lastRun time.Time
}

// NewWorkerPool creates a pool running at most maxWorkers jobs, starting
// them no closer together than rateLimitMs.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		interval: time.Duration(rateLimitMs) * time.Millisecond,
		slots:    make(chan struct{}, maxWorkers),
	}
}

// Submit blocks until a slot is free, then runs job on its own goroutine.
// It returns false without running job once ctx is done.
func (wp *WorkerPool) Submit(ctx context.Context, job func(ctx context.Context)) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case wp.slots <- struct{}{}:
	case <-ctx.Done():
		return false
	}
	if ctx.Err() != nil {
		<-wp.slots
		return false
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.slots }()

		if !wp.throttle(ctx) {
			return
		}
		job(ctx)
	}()
	return true
}

// Wait blocks until every started job has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) throttle(ctx context.Context) bool {
	if wp.interval <= 0 {
		return ctx.Err() == nil
	}
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.lastRun.IsZero() {
		if wait := wp.interval - time.Since(wp.lastRun); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return false
			}
		}
	}
	wp.lastRun = time.Now()
	return true
}

// SeenSet records keys across goroutines, e.g. listing URLs already queued.
type SeenSet[K comparable] struct {
	mu   sync.Mutex
	keys map[K]struct{}
}

func NewSeenSet[K comparable]() *SeenSet[K] {
	return &SeenSet[K]{keys: make(map[K]struct{})}
}

// Add reports whether key was new.
func (s *SeenSet[K]) Add(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *SeenSet[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
