package cursorstore

import (
	"sync"
	"time"

	"github.com/rzbill/mledger/internal/cursor"
)

// coalescer serializes and throttles persistence for a single cursor:
// bursts of submit calls within one throttle window collapse into a single
// physical write of the latest snapshot, and every callback queued during
// the window is invoked with that write's outcome, in submission order.
type coalescer struct {
	mu       sync.Mutex
	timer    *time.Timer
	pending  *cursor.Snapshot
	waiters  []func(error)
	writing  bool
	throttle time.Duration
}

// submit registers snap/cb for the next physical write, scheduling one
// after throttle if none is already pending. write performs the actual
// persistence of whatever snapshot is current when the timer fires.
func (c *coalescer) submit(snap cursor.Snapshot, cb func(error), throttle time.Duration, write func(cursor.Snapshot) error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.throttle = throttle
	c.pending = &snap
	if cb != nil {
		c.waiters = append(c.waiters, cb)
	}

	if c.timer != nil || c.writing {
		return
	}

	fire := func() { c.flush(write) }
	if throttle <= 0 {
		c.writing = true
		go fire()
		return
	}
	c.timer = time.AfterFunc(throttle, fire)
}

func (c *coalescer) flush(write func(cursor.Snapshot) error) {
	c.mu.Lock()
	c.timer = nil
	snap := c.pending
	c.pending = nil
	waiters := c.waiters
	c.waiters = nil
	c.writing = true
	c.mu.Unlock()

	var err error
	if snap != nil {
		err = write(*snap)
	}

	for _, cb := range waiters {
		cb(err)
	}

	c.mu.Lock()
	c.writing = false
	again := c.pending != nil
	if again && c.throttle > 0 {
		c.timer = time.AfterFunc(c.throttle, func() { c.flush(write) })
		again = false
	} else if again {
		c.writing = true
	}
	c.mu.Unlock()
	if again {
		c.flush(write)
	}
}
