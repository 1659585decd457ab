package logger

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is a bytes.Buffer safe for the writer goroutine and the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// blockingWriter blocks every Write until release is closed.
type blockingWriter struct {
	release chan struct{}
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.release
	return len(p), nil
}

func TestAsyncPrefixesAndFlushOnClose(t *testing.T) {
	var buf lockedBuffer
	l := New(&buf, LevelInfo, 16)

	l.Infof("fuel level changed from %d to %d", 40, 39)
	l.Warnf("adc read failed")
	l.Errorf("channel %d degraded", 2)
	l.Criticalf("scheduler failed")
	require.NoError(t, l.Close())

	out := buf.String()
	assert.Contains(t, out, "[INFO] fuel level changed from 40 to 39")
	assert.Contains(t, out, "[WARNING] adc read failed")
	assert.Contains(t, out, "[ERROR] channel 2 degraded")
	assert.Contains(t, out, "[CRITICAL] scheduler failed")
}

func TestAsyncMinimumLevel(t *testing.T) {
	var buf lockedBuffer
	l := New(&buf, LevelError, 16)

	l.Infof("info")
	l.Warnf("warn")
	l.Errorf("error")
	l.Criticalf("critical")
	require.NoError(t, l.Close())

	out := buf.String()
	assert.NotContains(t, out, "[INFO]")
	assert.NotContains(t, out, "[WARNING]")
	assert.Contains(t, out, "[ERROR] error")
	assert.Contains(t, out, "[CRITICAL] critical")
}

func TestAsyncNeverBlocksOnSlowSink(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{})}
	l := New(w, LevelInfo, 2)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			l.Infof("entry %d", i)
		}
		close(done)
	}()
	<-done

	assert.Greater(t, l.Dropped(), uint64(0))
	close(w.release)
	require.NoError(t, l.Close())
}

func TestAsyncLogAfterClose(t *testing.T) {
	var buf lockedBuffer
	l := New(&buf, LevelInfo, 4)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second Close is a no-op")

	l.Infof("late entry")
	assert.NotContains(t, buf.String(), "late entry")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"info", LevelInfo, true},
		{"", LevelInfo, true},
		{"WARN", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{" critical ", LevelCritical, true},
		{"fatal", LevelCritical, true},
		{"debug", 0, false},
		{"panic", 0, false},
		{"verbose", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "warn", LevelWarn.String())
}

func TestAsyncLevelMapsToLogrus(t *testing.T) {
	l := New(io.Discard, LevelWarn, 4)
	defer l.Close()

	assert.Equal(t, log.WarnLevel, l.log.GetLevel())
	assert.True(t, l.log.IsLevelEnabled(log.FatalLevel), "critical passes a warn threshold")
	assert.False(t, l.log.IsLevelEnabled(log.InfoLevel))
}

func TestAsyncCriticalDoesNotExit(t *testing.T) {
	var buf lockedBuffer
	l := New(&buf, LevelCritical, 4)
	l.log.ExitFunc = func(int) { t.Fatal("critical entry must not exit") }

	l.Errorf("filtered")
	l.Criticalf("still running")
	require.NoError(t, l.Close())

	out := buf.String()
	assert.NotContains(t, out, "filtered")
	assert.Contains(t, out, "[CRITICAL] still running")
}

func TestPrefixFormatterFields(t *testing.T) {
	e := log.NewEntry(log.New()).WithFields(log.Fields{"sink": "serial", "channel": 2})
	e.Level = log.ErrorLevel
	e.Message = "write failed"
	e.Time = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	b, err := (&prefixFormatter{}).Format(e)
	require.NoError(t, err)
	assert.Equal(t, "2026/01/01 12:00:00.000000 [ERROR] write failed channel=2 sink=serial\n", string(b))
}

func TestAsyncReportsDropsOnClose(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{})}
	var buf lockedBuffer
	l := New(io.MultiWriter(w, &buf), LevelInfo, 1)

	for i := 0; i < 10; i++ {
		l.Infof("entry %d", i)
	}
	require.Greater(t, l.Dropped(), uint64(0))
	close(w.release)
	require.NoError(t, l.Close())

	assert.Contains(t, buf.String(), "[WARNING] logger dropped")
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Infof("a %d", 1)
	r.Warnf("b")
	r.Warnf("c")
	r.Criticalf("boom")

	assert.Equal(t, 1, r.Count(LevelInfo))
	assert.Equal(t, 2, r.Count(LevelWarn))
	assert.True(t, r.Contains(LevelInfo, "a 1"))
	assert.False(t, r.Contains(LevelError, "boom"))
	assert.True(t, r.Contains(LevelCritical, "boom"))

	r.Reset()
	assert.Empty(t, r.Entries())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("sink offline") }

func TestSinksFanOutPastFailures(t *testing.T) {
	var a, b bytes.Buffer
	var s Sinks
	s.Add(&a)
	s.Add(failingWriter{})
	s.Add(&b)

	n, err := s.Write([]byte("hello\n"))
	assert.Equal(t, 6, n)
	assert.EqualError(t, err, "sink offline")
	assert.Equal(t, "hello\n", a.String())
	assert.Equal(t, "hello\n", b.String())
	assert.Equal(t, 3, s.Len())
}

func TestSinksFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	var s Sinks
	require.NoError(t, s.AddFile(path))

	l := New(&s, LevelInfo, 8)
	l.Warnf("persisted")
	require.NoError(t, l.Close())
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "[WARNING] persisted"))
}

func TestSinksBadFile(t *testing.T) {
	var s Sinks
	err := s.AddFile(filepath.Join(t.TempDir(), "missing", "log.txt"))
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}
