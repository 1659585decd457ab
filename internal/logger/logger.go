// Package logger provides the four-level logging capability used by the
// sensor engine. Entries are built with logrus on the caller's goroutine and
// handed to a bounded queue, so a slow sink never stalls a sensor task.
package logger

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Level orders log severities. Lower is more severe. Critical is carried on
// logrus' fatal level; entries are logged with Logf, which never exits.
type Level log.Level

const (
	LevelCritical = Level(log.FatalLevel)
	LevelError    = Level(log.ErrorLevel)
	LevelWarn     = Level(log.WarnLevel)
	LevelInfo     = Level(log.InfoLevel)
)

func (l Level) prefix() string {
	switch l {
	case LevelCritical:
		return "[CRITICAL]"
	case LevelError:
		return "[ERROR]"
	case LevelWarn:
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "critical"
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel accepts critical plus the logrus names from error to info.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "critical":
		return LevelCritical, nil
	case "":
		return LevelInfo, nil
	}
	lv, err := log.ParseLevel(s)
	if err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	l := Level(lv)
	if l < LevelCritical || l > LevelInfo {
		return 0, fmt.Errorf("unsupported log level %q", s)
	}
	return l, nil
}

// Logger is the logging capability consumed by the engine and scheduler.
// Implementations must not block the caller for unbounded time.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Criticalf(format string, args ...any)
}

// DefaultQueueSize is the number of entries buffered before dropping.
const DefaultQueueSize = 256

// Async is a Logger backed by logrus whose output goes through a bounded
// queue drained by a single background goroutine.
type Async struct {
	log   *log.Logger
	queue *queueWriter
}

// New starts an Async logger writing to w. Entries less severe than min are
// discarded.
func New(w io.Writer, min Level, queueSize int) *Async {
	q := newQueueWriter(w, queueSize)
	lr := log.New()
	lr.SetOutput(q)
	lr.SetFormatter(&prefixFormatter{})
	lr.SetLevel(log.Level(min))
	return &Async{log: lr, queue: q}
}

func (l *Async) logf(level Level, format string, args ...any) {
	l.log.Logf(log.Level(level), format, args...)
}

func (l *Async) Infof(format string, args ...any)     { l.logf(LevelInfo, format, args...) }
func (l *Async) Warnf(format string, args ...any)     { l.logf(LevelWarn, format, args...) }
func (l *Async) Errorf(format string, args ...any)    { l.logf(LevelError, format, args...) }
func (l *Async) Criticalf(format string, args ...any) { l.logf(LevelCritical, format, args...) }

// Dropped returns the number of entries discarded because the queue was full.
func (l *Async) Dropped() uint64 { return l.queue.dropped.Load() }

// Close flushes queued entries and stops the writer goroutine. Entries
// logged after Close are discarded.
func (l *Async) Close() error {
	if !l.queue.close() {
		return nil
	}
	if n := l.queue.dropped.Load(); n > 0 {
		l.log.SetOutput(l.queue.out)
		l.logf(LevelWarn, "logger dropped %d entries", n)
		l.log.SetOutput(io.Discard)
	}
	return nil
}

// Discard is a Logger that drops everything.
var Discard Logger = discard{}

type discard struct{}

func (discard) Infof(string, ...any)     {}
func (discard) Warnf(string, ...any)     {}
func (discard) Errorf(string, ...any)    {}
func (discard) Criticalf(string, ...any) {}
