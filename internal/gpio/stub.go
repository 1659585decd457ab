//go:build !linux

package gpio

import (
	"errors"
	"time"
)

// RealEdgeSource is not available on non-Linux platforms.
type RealEdgeSource struct{}

// NewRealEdgeSource returns a source whose capture always fails on
// non-Linux platforms.
func NewRealEdgeSource(chip string, offset int) *RealEdgeSource {
	return &RealEdgeSource{}
}

// EnableEdgeCapture is not implemented on non-Linux platforms.
func (s *RealEdgeSource) EnableEdgeCapture(EdgeHandler) error {
	return errors.New("gpio: not supported on this platform (requires Linux)")
}

// DisableEdgeCapture is a no-op on non-Linux platforms.
func (s *RealEdgeSource) DisableEdgeCapture() error {
	return nil
}

// Now is not meaningful without edge capture.
func (s *RealEdgeSource) Now() time.Duration {
	return 0
}

// Close is a no-op on non-Linux platforms.
func (s *RealEdgeSource) Close() error {
	return nil
}
