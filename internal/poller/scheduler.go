package poller

import (
	"sync"
	"time"
)

// Timer is a handle to a recurring callback.
type Timer interface {
	// Stop cancels future ticks. It does not wait for a tick in progress.
	Stop()
}

// Scheduler runs callbacks at a fixed interval.
type Scheduler interface {
	Every(d time.Duration, fn func()) Timer
}

// RealScheduler schedules callbacks on wall-clock tickers. Each timer runs
// its callbacks sequentially on its own goroutine.
type RealScheduler struct{}

// Every starts a ticker that calls fn every d until the timer is stopped.
func (RealScheduler) Every(d time.Duration, fn func()) Timer {
	t := &tickerTimer{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go t.loop(d, fn)
	return t
}

type tickerTimer struct {
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

func (t *tickerTimer) loop(d time.Duration, fn func()) {
	defer close(t.doneCh)

	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			// A stop that raced with the tick wins.
			select {
			case <-t.stopCh:
				return
			default:
			}
			fn()
		}
	}
}

func (t *tickerTimer) Stop() {
	t.once.Do(func() { close(t.stopCh) })
}

// Done is closed once the timer goroutine has exited.
func (t *tickerTimer) Done() <-chan struct{} {
	return t.doneCh
}

// ManualScheduler is a Scheduler driven by explicit Fire calls. It lets
// callers step a poller without waiting on real time.
type ManualScheduler struct {
	mu     sync.Mutex
	timers []*ManualTimer
}

// ManualTimer is a timer created by ManualScheduler.
type ManualTimer struct {
	Interval time.Duration

	sched   *ManualScheduler
	fn      func()
	stopped bool
}

// NewManualScheduler creates a ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Every registers fn. It runs only when Fire is called.
func (s *ManualScheduler) Every(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &ManualTimer{Interval: d, sched: s, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Fire runs one tick of every active timer.
func (s *ManualScheduler) Fire() {
	for _, t := range s.Active() {
		t.Fire()
	}
}

// Active returns the timers that have not been stopped.
func (s *ManualScheduler) Active() []*ManualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []*ManualTimer
	for _, t := range s.timers {
		if !t.stopped {
			active = append(active, t)
		}
	}
	return active
}

// Created returns the number of timers ever created.
func (s *ManualScheduler) Created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels the timer.
func (t *ManualTimer) Stop() {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	t.stopped = true
}

// Stopped reports whether the timer was stopped.
func (t *ManualTimer) Stopped() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	return t.stopped
}

// Fire runs the callback once, even if the timer was stopped. This models a
// tick that was already in flight when the timer was cancelled.
func (t *ManualTimer) Fire() {
	t.fn()
}
