// Package gpio captures falling edges of the speed and RPM pulse trains.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// EdgeHandler receives the timestamp of one falling edge. It is called from
// the edge delivery context and must only record the timestamp.
type EdgeHandler func(ts time.Duration)

// EdgeSource delivers falling-edge timestamps for one input pin.
type EdgeSource interface {
	// EnableEdgeCapture starts delivering falling edges to h.
	EnableEdgeCapture(h EdgeHandler) error

	// DisableEdgeCapture stops delivering edges. It is safe to call when
	// capture is not enabled.
	DisableEdgeCapture() error

	// Now returns the current time in the same clock domain as the edge
	// timestamps.
	Now() time.Duration

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (line offsets on gpiochip0)
const (
	DefaultPinSpeed = 14
	DefaultPinRPM   = 21
)

// DefaultChip is the GPIO character device used when none is configured.
const DefaultChip = "gpiochip0"
