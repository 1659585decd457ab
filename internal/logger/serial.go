package logger

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the cluster's USB console.
const DefaultBaudRate = 115200

// OpenSerial opens a serial port as a write-only log sink.
func OpenSerial(port string, baudRate int) (io.WriteCloser, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial log sink %s: %w", port, err)
	}
	return p, nil
}
