package engine

import "sync"

// Coordinator arbitrates takeover requests within one generation iteration.
// Many validators may reject concurrently; exactly one request wins, cancels
// the iteration, and carries its offset and fix forward. Later requests are
// no-ops.
type Coordinator struct {
	mu        sync.Mutex
	triggered bool
	unit      int
	offset    int
	fix       string

	cancel func()
	onWin  func()
}

// NewCoordinator creates a coordinator for one iteration. cancel stops the
// iteration's stream and in-flight audits; onWin runs once, under no lock,
// when a request wins.
func NewCoordinator(cancel, onWin func()) *Coordinator {
	return &Coordinator{cancel: cancel, onWin: onWin}
}

// Request attempts a takeover for the given unit. It reports whether this
// call won the arbitration.
func (c *Coordinator) Request(unit, offset int, fix string) bool {
	c.mu.Lock()
	if c.triggered {
		c.mu.Unlock()
		return false
	}
	c.triggered = true
	c.unit = unit
	c.offset = offset
	c.fix = fix
	c.mu.Unlock()

	if c.onWin != nil {
		c.onWin()
	}
	if c.cancel != nil {
		c.cancel()
	}
	return true
}

// Triggered reports whether a takeover has won this iteration.
func (c *Coordinator) Triggered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.triggered
}

// Winner returns the winning unit, offset and fix. Valid only after
// Triggered reports true.
func (c *Coordinator) Winner() (unit, offset int, fix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unit, c.offset, c.fix
}
