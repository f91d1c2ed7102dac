package task

import (
	"sync"
	"time"

	"subtitle-hub/pkg/logger"
)

// Runner tracks fire-and-forget background goroutines. Callers hand it the
// work function and forget about it; the runner recovers panics so a wedged
// job can never take the process down, and Wait gives shutdown a bounded
// chance to let in-flight work finish.
type Runner struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	running int
}

func NewRunner() *Runner {
	return &Runner{}
}

// Go starts fn on its own goroutine. The name only appears in logs.
func (r *Runner) Go(name string, fn func()) {
	r.mu.Lock()
	r.running++
	r.mu.Unlock()
	r.wg.Add(1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Errorf("background task panicked task=%s panic=%v", name, rec)
			}
			r.mu.Lock()
			r.running--
			r.mu.Unlock()
			r.wg.Done()
		}()
		fn()
	}()
}

// Running reports how many tasks are currently in flight.
func (r *Runner) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Wait blocks until all tasks finish or the grace period elapses. Returns
// true when everything drained in time.
func (r *Runner) Wait(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}
