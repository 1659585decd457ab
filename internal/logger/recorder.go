package logger

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is one recorded log line.
type Entry struct {
	Level   Level
	Message string
}

// Recorder is a test double that keeps every entry in memory.
// Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(level Level, format string, args ...any) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Level: level, Message: fmt.Sprintf(format, args...)})
	r.mu.Unlock()
}

func (r *Recorder) Infof(format string, args ...any)     { r.add(LevelInfo, format, args...) }
func (r *Recorder) Warnf(format string, args ...any)     { r.add(LevelWarn, format, args...) }
func (r *Recorder) Errorf(format string, args ...any)    { r.add(LevelError, format, args...) }
func (r *Recorder) Criticalf(format string, args ...any) { r.add(LevelCritical, format, args...) }

// Entries returns a copy of all recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Count returns the number of entries at the given level.
func (r *Recorder) Count(level Level) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Contains reports whether any entry at level contains substr.
func (r *Recorder) Contains(level Level, substr string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Reset clears recorded entries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}
