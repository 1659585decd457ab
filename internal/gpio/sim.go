package gpio

import (
	"errors"
	"sync"
	"time"
)

// SimEdgeSource generates a steady pulse train for running the service
// without hardware. The pulse period can be changed at runtime.
type SimEdgeSource struct {
	start time.Time

	mu     sync.Mutex
	period time.Duration
	stop   chan struct{}
	done   chan struct{}
}

// NewSimEdgeSource creates a simulated source pulsing at the given period.
// A zero period produces no edges.
func NewSimEdgeSource(period time.Duration) *SimEdgeSource {
	return &SimEdgeSource{start: time.Now(), period: period}
}

// SetPeriod changes the pulse period. It takes effect on the next edge.
func (s *SimEdgeSource) SetPeriod(d time.Duration) {
	s.mu.Lock()
	s.period = d
	s.mu.Unlock()
}

func (s *SimEdgeSource) currentPeriod() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

// EnableEdgeCapture starts the pulse goroutine.
func (s *SimEdgeSource) EnableEdgeCapture(h EdgeHandler) error {
	if h == nil {
		return errors.New("gpio: nil edge handler")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return errors.New("gpio: simulated edge capture already enabled")
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(h, s.stop, s.done)
	return nil
}

func (s *SimEdgeSource) run(h EdgeHandler, stop, done chan struct{}) {
	defer close(done)
	for {
		p := s.currentPeriod()
		if p <= 0 {
			p = 100 * time.Millisecond
			select {
			case <-stop:
				return
			case <-time.After(p):
			}
			continue
		}
		select {
		case <-stop:
			return
		case <-time.After(p):
			h(s.Now())
		}
	}
}

// DisableEdgeCapture stops the pulse goroutine and waits for it to exit.
func (s *SimEdgeSource) DisableEdgeCapture() error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

// Now returns time elapsed since the source was created.
func (s *SimEdgeSource) Now() time.Duration {
	return time.Since(s.start)
}

// Close stops edge generation.
func (s *SimEdgeSource) Close() error {
	return s.DisableEdgeCapture()
}
