//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// RealEdgeSource captures falling edges from a GPIO line using the Linux GPIO
// character device. Event timestamps come from the kernel's monotonic clock.
type RealEdgeSource struct {
	chip   string
	offset int

	mu   sync.Mutex
	line *gpiocdev.Line
}

// NewRealEdgeSource creates an edge source for a line on the given chip.
// No resources are requested until EnableEdgeCapture.
func NewRealEdgeSource(chip string, offset int) *RealEdgeSource {
	if chip == "" {
		chip = DefaultChip
	}
	return &RealEdgeSource{chip: chip, offset: offset}
}

// EnableEdgeCapture requests the line as a pulled-down input with falling
// edge detection and forwards each event timestamp to h.
func (s *RealEdgeSource) EnableEdgeCapture(h EdgeHandler) error {
	if h == nil {
		return errors.New("gpio: nil edge handler")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.line != nil {
		return fmt.Errorf("gpio: edge capture already enabled on %s:%d", s.chip, s.offset)
	}

	line, err := gpiocdev.RequestLine(s.chip, s.offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			h(evt.Timestamp)
		}),
	)
	if err != nil {
		return fmt.Errorf("request line %s:%d: %w", s.chip, s.offset, err)
	}
	s.line = line
	return nil
}

// DisableEdgeCapture releases the line. The line is first reconfigured as a
// plain pulled-down input, matching the board's boot defaults.
func (s *RealEdgeSource) DisableEdgeCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.line == nil {
		return nil
	}

	var errs []error
	if err := s.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line %d: %w", s.offset, err))
	}
	if err := s.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line %d: %w", s.offset, err))
	}
	s.line = nil

	if len(errs) > 0 {
		return fmt.Errorf("disable edge capture: %v", errs)
	}
	return nil
}

// Now reads CLOCK_MONOTONIC, the clock gpiocdev stamps events with.
func (s *RealEdgeSource) Now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

// Close releases GPIO resources.
func (s *RealEdgeSource) Close() error {
	return s.DisableEdgeCapture()
}
