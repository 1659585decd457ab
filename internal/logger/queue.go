package logger

import (
	"io"
	"sync"
	"sync/atomic"
)

// queueWriter accepts formatted entries without blocking and writes them to
// out from one goroutine. Entries that do not fit are counted and dropped.
type queueWriter struct {
	out   io.Writer
	queue chan []byte
	done  chan struct{}

	mu     sync.RWMutex // guards closed against concurrent sends
	closed bool

	dropped atomic.Uint64
}

func newQueueWriter(out io.Writer, size int) *queueWriter {
	if size <= 0 {
		size = DefaultQueueSize
	}
	q := &queueWriter{
		out:   out,
		queue: make(chan []byte, size),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *queueWriter) run() {
	defer close(q.done)
	for p := range q.queue {
		q.out.Write(p)
	}
}

// Write never blocks. logrus reuses its buffer, so p is copied.
func (q *queueWriter) Write(p []byte) (int, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return len(p), nil
	}
	select {
	case q.queue <- append([]byte(nil), p...):
	default:
		q.dropped.Add(1)
	}
	return len(p), nil
}

// close drains the queue. It reports false if already closed.
func (q *queueWriter) close() bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.closed = true
	close(q.queue)
	q.mu.Unlock()
	<-q.done
	return true
}
