package metrics

import "sync/atomic"

// Counter counts discrete events such as unhandled keys or sticky
// consistency errors.
type Counter struct {
	name string
	n    atomic.Int64
}

func newCounter(name string) *Counter {
	return &Counter{name: name}
}

// Inc adds one.
func (c *Counter) Inc() {
	if !enabled {
		return
	}
	c.n.Add(1)
}

func (c *Counter) Name() string { return c.name }
func (c *Counter) Value() int64 { return c.n.Load() }
func (c *Counter) Reset()       { c.n.Store(0) }

// Global counters.
var (
	StickyErrors  = newCounter("sticky_errors")
	KeysUnhandled = newCounter("keys_unhandled")
	Reloads       = newCounter("reloads")
)

// AllCounters returns all registered counters.
func AllCounters() []*Counter {
	return []*Counter{StickyErrors, KeysUnhandled, Reloads}
}
