package services

import (
	"context"
	"sync"
	"time"

	applog "vendorpos/internal/log"
)

const DefaultSyncInterval = 30 * time.Second

// Scheduler runs a sync function on a fixed interval. At most one ticker
// goroutine is alive: Start replaces the running one instead of adding a
// second. Stop only prevents future runs; a run in progress completes.
type Scheduler struct {
	ctx context.Context
	run func(context.Context)

	mu       sync.Mutex
	stop     chan struct{}
	interval time.Duration
}

// NewScheduler binds run to ctx, the lifetime of the host. Cycles receive
// ctx, never a context tied to Start/Stop.
func NewScheduler(ctx context.Context, run func(context.Context)) *Scheduler {
	return &Scheduler{ctx: ctx, run: run}
}

func (s *Scheduler) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := s.stopLocked()
	stop := make(chan struct{})
	s.stop = stop
	s.interval = interval
	go s.loop(interval, stop)
	applog.Info(nil, "scheduler.start", map[string]any{"interval": interval.String(), "replaced": replaced})
}

// Stop is safe to call when not running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked() {
		applog.Info(nil, "scheduler.stop", nil)
	}
}

func (s *Scheduler) stopLocked() bool {
	if s.stop == nil {
		return false
	}
	close(s.stop)
	s.stop = nil
	s.interval = 0
	return true
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Interval is zero when stopped.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Trigger runs one cycle now in the background, whether or not the timer runs.
func (s *Scheduler) Trigger() {
	go s.run(s.ctx)
}

func (s *Scheduler) loop(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-s.ctx.Done():
			return
		case <-t.C:
			// A tick can race a Stop; the stop signal wins.
			select {
			case <-stop:
				return
			default:
			}
			s.run(s.ctx)
		}
	}
}
