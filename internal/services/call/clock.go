package call

import (
	"sort"
	"sync"
	"time"
)

// Clock schedules the voicemail deadline. Injectable so tests can drive
// time manually.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// SystemClock uses real time.
type SystemClock struct{}

// NewSystemClock creates a clock backed by time.AfterFunc.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (c *SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return &systemTimer{timer: time.AfterFunc(d, f)}
}

type systemTimer struct {
	timer *time.Timer
}

func (t *systemTimer) Stop() bool {
	return t.timer.Stop()
}

// ManualClock provides deterministic time control for testing. Timers
// fire only when Advance moves the clock past their deadline.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

// NewManualClock creates a clock with manual time control.
func NewManualClock(start time.Time) *ManualClock {
	if start.IsZero() {
		start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &ManualClock{now: start}
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	mt := &manualTimer{
		fireAt: c.now.Add(d),
		fn:     f,
	}
	c.timers = append(c.timers, mt)
	return mt
}

// Advance moves time forward and fires all timers that become due,
// earliest first.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	var rest []*manualTimer
	for _, mt := range c.timers {
		mt.mu.Lock()
		stopped := mt.stopped
		mt.mu.Unlock()
		if stopped {
			continue
		}
		if !mt.fireAt.After(c.now) {
			due = append(due, mt)
		} else {
			rest = append(rest, mt)
		}
	}
	c.timers = rest
	sort.Slice(due, func(i, j int) bool { return due[i].fireAt.Before(due[j].fireAt) })
	c.mu.Unlock()

	// Fire without holding the lock; callbacks may schedule new timers.
	for _, mt := range due {
		mt.mu.Lock()
		stopped := mt.stopped
		mt.mu.Unlock()
		if !stopped {
			mt.fn()
		}
	}
}

type manualTimer struct {
	mu      sync.Mutex
	fireAt  time.Time
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}
