package gpio

import (
	"sync"
	"time"
)

// EdgeTimer keeps the two most recent falling-edge timestamps of a pulse
// train. OnFallingEdge is the only writer; Interval and LastEdge are read by
// the owning update task. Both sides take mu, so a reader always sees a
// pair written by the same edge.
type EdgeTimer struct {
	mu    sync.Mutex
	prev  time.Duration
	last  time.Duration
	edges uint8 // saturates at 2
}

// OnFallingEdge shifts the current timestamp into previous and stores ts.
// It does not allocate, log or block beyond the critical section.
func (t *EdgeTimer) OnFallingEdge(ts time.Duration) {
	t.mu.Lock()
	t.prev = t.last
	t.last = ts
	if t.edges < 2 {
		t.edges++
	}
	t.mu.Unlock()
}

// Interval returns the time between the two most recent edges. ok is false
// when fewer than two edges were seen or the pair is not strictly increasing.
func (t *EdgeTimer) Interval() (d time.Duration, ok bool) {
	t.mu.Lock()
	prev, last, n := t.prev, t.last, t.edges
	t.mu.Unlock()

	if n < 2 {
		return 0, false
	}
	d = last - prev
	if d <= 0 {
		return 0, false
	}
	return d, true
}

// LastEdge returns the most recent edge timestamp, if any.
func (t *EdgeTimer) LastEdge() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.edges > 0
}

// Reset forgets all captured edges.
func (t *EdgeTimer) Reset() {
	t.mu.Lock()
	t.prev, t.last, t.edges = 0, 0, 0
	t.mu.Unlock()
}
