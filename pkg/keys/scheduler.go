package keys

import (
	"slices"
	"time"
)

// Scheduler runs deferred work on the caller's event loop. Callbacks must
// never run concurrently with Dispatcher.Handle.
type Scheduler interface {
	// AfterFunc runs fn once after d unless the returned cancel is called
	// first.
	AfterFunc(d time.Duration, fn func()) (cancel func())
	// Defer runs fn once on the next loop iteration.
	Defer(fn func())
}

// ManualScheduler is a deterministic Scheduler driven by Advance and Flush.
// Tests and headless runs use it.
type ManualScheduler struct {
	now      time.Duration
	timers   []*manualTimer
	deferred []func()
}

type manualTimer struct {
	at       time.Duration
	fn       func()
	canceled bool
}

// NewManualScheduler returns a scheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) func() {
	t := &manualTimer{at: m.now + d, fn: fn}
	m.timers = append(m.timers, t)
	return func() { t.canceled = true }
}

func (m *ManualScheduler) Defer(fn func()) {
	m.deferred = append(m.deferred, fn)
}

// Advance moves the clock forward by d and fires due timers in deadline
// order.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.now += d
	for {
		var due *manualTimer
		for _, t := range m.timers {
			if !t.canceled && t.at <= m.now && (due == nil || t.at < due.at) {
				due = t
			}
		}
		if due == nil {
			break
		}
		due.canceled = true
		due.fn()
	}
	m.timers = slices.DeleteFunc(m.timers, func(t *manualTimer) bool { return t.canceled })
}

// Flush runs deferred callbacks, including ones deferred while flushing.
func (m *ManualScheduler) Flush() {
	for len(m.deferred) > 0 {
		fn := m.deferred[0]
		m.deferred = m.deferred[1:]
		fn()
	}
}

// Pending returns the number of live timers.
func (m *ManualScheduler) Pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.canceled {
			n++
		}
	}
	return n
}
