package cache

import (
	"sync"
	"time"
)

// DefaultRefreshDelay is the fixed window a refresh waits after the first mutation.
const DefaultRefreshDelay = 250 * time.Millisecond

// State is the scheduler's refresh state.
type State int

const (
	// Idle means no refresh is scheduled.
	Idle State = iota
	// Pending means a refresh timer is running.
	Pending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	default:
		return "unknown"
	}
}

// Scheduler coalesces mutation notifications into refresh calls.
//
// The first Notify while Idle starts a one-shot timer and moves to Pending.
// Further notifications while Pending change nothing; the timer is never reset.
// When the timer fires the scheduler returns to Idle and then runs the callback.
type Scheduler struct {
	mu      sync.Mutex
	state   State
	delay   time.Duration
	timer   *time.Timer
	stopped bool
	fired   uint64

	run     sync.Mutex // serializes callbacks
	refresh func()
}

// NewScheduler creates a scheduler that calls refresh delay after the first
// notification of a burst. A non-positive delay uses DefaultRefreshDelay.
func NewScheduler(delay time.Duration, refresh func()) *Scheduler {
	if delay <= 0 {
		delay = DefaultRefreshDelay
	}
	return &Scheduler{
		delay:   delay,
		refresh: refresh,
	}
}

// Notify records a mutation. It never blocks on the refresh callback.
func (s *Scheduler) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.state == Pending {
		return
	}
	s.state = Pending
	s.timer = time.AfterFunc(s.delay, s.fire)
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	s.state = Idle
	s.timer = nil
	s.fired++
	s.mu.Unlock()

	if s.refresh == nil {
		return
	}
	s.run.Lock()
	defer s.run.Unlock()
	s.refresh()
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Fired returns how many refreshes have fired.
func (s *Scheduler) Fired() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Stop prevents future notifications from scheduling a refresh.
// A refresh that is already pending still fires.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Start lets notifications schedule refreshes again after Stop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = false
}
