package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Sinks is a set of log destinations written in order. A failing sink does
// not prevent later sinks from receiving the entry.
type Sinks struct {
	writers []io.Writer
	closers []io.Closer
}

// Add appends w. If w is also an io.Closer it is closed by Close.
func (s *Sinks) Add(w io.Writer) {
	s.writers = append(s.writers, w)
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		s.closers = append(s.closers, c)
	}
}

// AddFile opens path for appending, creating it if needed.
func (s *Sinks) AddFile(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	s.Add(f)
	return nil
}

// AddSerial opens a serial port sink.
func (s *Sinks) AddSerial(port string, baudRate int) error {
	p, err := OpenSerial(port, baudRate)
	if err != nil {
		return err
	}
	s.Add(p)
	return nil
}

// Len returns the number of sinks.
func (s *Sinks) Len() int { return len(s.writers) }

// Write sends p to every sink and reports the first error seen.
func (s *Sinks) Write(p []byte) (int, error) {
	var first error
	for _, w := range s.writers {
		if _, err := w.Write(p); err != nil && first == nil {
			first = err
		}
	}
	return len(p), first
}

// Close closes every sink that was opened by Sinks.
func (s *Sinks) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
