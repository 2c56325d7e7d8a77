package console

import (
	"sync"
	"time"
)

// Timer is a cancelable one-shot timer handle.
type Timer interface {
	// Wait blocks until the timer fires (true) or is stopped (false).
	Wait() bool
	// Stop cancels the timer and releases any waiter. Safe to call twice.
	Stop()
}

// Clock creates timers. Tests substitute ManualClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// RealClock is backed by the time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTimer(d time.Duration) Timer {
	return &realTimer{t: time.NewTimer(d), stop: make(chan struct{})}
}

type realTimer struct {
	t    *time.Timer
	stop chan struct{}
	once sync.Once
}

func (r *realTimer) Wait() bool {
	select {
	case <-r.t.C:
		return true
	case <-r.stop:
		return false
	}
}

func (r *realTimer) Stop() {
	r.t.Stop()
	r.once.Do(func() { close(r.stop) })
}

// ManualClock only moves when Advance is called.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*manualTimer
	waiting int
}

// NewManualClock returns a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), done: make(chan bool, 1)}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires every timer that is due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)

	kept := c.timers[:0]
	for _, t := range c.timers {
		if !t.at.After(c.now) {
			t.release(true)
			continue
		}
		kept = append(kept, t)
	}
	c.timers = kept
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Waiting returns the number of goroutines blocked in Timer.Wait on a timer
// that has not yet fired or been stopped.
func (c *ManualClock) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting
}

type manualTimer struct {
	clock *ManualClock
	at    time.Time
	done  chan bool
	once  sync.Once

	// guarded by clock.mu
	released bool
	parked   bool
}

// release delivers the outcome and stops counting the timer as waited on.
// The caller holds clock.mu.
func (t *manualTimer) release(fired bool) {
	t.released = true
	if t.parked {
		t.parked = false
		t.clock.waiting--
	}
	t.done <- fired
}

func (t *manualTimer) Wait() bool {
	c := t.clock
	c.mu.Lock()
	if !t.released {
		t.parked = true
		c.waiting++
	}
	c.mu.Unlock()
	return <-t.done
}

func (t *manualTimer) Stop() {
	t.once.Do(func() {
		c := t.clock
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, other := range c.timers {
			if other == t {
				c.timers = append(c.timers[:i], c.timers[i+1:]...)
				t.release(false)
				return
			}
		}
	})
}
