// Package worker runs the debounced task-list refresh.
package worker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskview/internal/query"
)

const DefaultDelay = 500 * time.Millisecond

// FetchFunc issues one fetch for the snapshot that was current when the
// timer fired.
type FetchFunc func(f query.FilterSet)

// Scheduler coalesces bursts of query changes into a single fetch. It owns
// at most one live timer at any time.
type Scheduler struct {
	delay    time.Duration
	snapshot func() query.FilterSet
	fetch    FetchFunc
	logger   *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	stopped bool
	fired   uint64
}

// NewScheduler builds a scheduler. snapshot is read at fire time, so the
// fetch always carries the latest state rather than the one that armed
// the timer.
func NewScheduler(delay time.Duration, snapshot func() query.FilterSet, fetch FetchFunc, logger *zap.Logger) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Scheduler{
		delay:    delay,
		snapshot: snapshot,
		fetch:    fetch,
		logger:   logger,
	}
}

// Trigger (re)starts the debounce timer.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

// Flush fires a pending timer right away. It reports whether a fetch was
// issued.
func (s *Scheduler) Flush() bool {
	s.mu.Lock()
	if s.stopped || s.timer == nil {
		s.mu.Unlock()
		return false
	}
	s.timer.Stop()
	gen := s.gen
	s.mu.Unlock()

	return s.fire(gen)
}

// Now cancels any pending timer and fetches immediately.
func (s *Scheduler) Now() bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = nil
	s.mu.Unlock()

	return s.fire(gen)
}

// Pending reports whether a timer is armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Fired returns how many fetches the scheduler has issued.
func (s *Scheduler) Fired() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Stop cancels the pending timer; later triggers are ignored. Fetches that
// already started keep running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.logger.Debug("fetch scheduler stopped", zap.Uint64("fired", s.fired))
}

func (s *Scheduler) fire(gen uint64) bool {
	s.mu.Lock()
	// A newer Trigger or a Stop won the race with this callback.
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.timer = nil
	s.gen++
	s.fired++
	n := s.fired
	s.mu.Unlock()

	f := s.snapshot()
	s.logger.Debug("debounced fetch", zap.Uint64("firing", n), zap.Int("page", f.Page))
	s.fetch(f)
	return true
}
