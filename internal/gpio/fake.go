package gpio

import (
	"sync"
	"time"
)

// FakeEdgeSource is a test double. Tests fire edges by hand and control the
// clock returned by Now.
type FakeEdgeSource struct {
	mu      sync.Mutex
	handler EdgeHandler
	now     time.Duration

	// EnableError, if set, will be returned by EnableEdgeCapture.
	EnableError error

	// Enabled tracks whether capture is currently on.
	Enabled bool

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeEdgeSource creates a FakeEdgeSource with capture disabled.
func NewFakeEdgeSource() *FakeEdgeSource {
	return &FakeEdgeSource{}
}

// EnableEdgeCapture stores h for Fire.
func (f *FakeEdgeSource) EnableEdgeCapture(h EdgeHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EnableError != nil {
		return f.EnableError
	}
	f.handler = h
	f.Enabled = true
	return nil
}

// DisableEdgeCapture drops the handler.
func (f *FakeEdgeSource) DisableEdgeCapture() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = nil
	f.Enabled = false
	return nil
}

// Fire delivers one falling edge at ts and advances the clock to ts.
// Edges fired while capture is disabled are lost, as on real hardware.
func (f *FakeEdgeSource) Fire(ts time.Duration) {
	f.mu.Lock()
	h := f.handler
	if ts > f.now {
		f.now = ts
	}
	f.mu.Unlock()
	if h != nil {
		h(ts)
	}
}

// FirePeriodic fires n edges spaced by period, starting one period after
// the current clock.
func (f *FakeEdgeSource) FirePeriodic(n int, period time.Duration) {
	for i := 0; i < n; i++ {
		f.Fire(f.Now() + period)
	}
}

// SetNow moves the clock without firing an edge.
func (f *FakeEdgeSource) SetNow(now time.Duration) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

// Now returns the fake clock.
func (f *FakeEdgeSource) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Close marks the source as closed.
func (f *FakeEdgeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = nil
	f.Enabled = false
	f.Closed = true
	return nil
}
