package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/cluster-sensor/internal/logger"
)

// countingSleep lets each task run n times, then stops it.
func countingSleep(n int) SleepFunc {
	var mu sync.Mutex
	calls := make(map[time.Duration]int)
	return func(ctx context.Context, d time.Duration) bool {
		mu.Lock()
		defer mu.Unlock()
		calls[d]++
		return calls[d] < n && ctx.Err() == nil
	}
}

func TestStartRunsEveryTask(t *testing.T) {
	var a, b atomic.Int32
	s := New(logger.Discard, WithSleep(countingSleep(3)))

	err := s.Start(context.Background(), []Task{
		{Name: "a", Period: time.Second, Run: func() { a.Add(1) }},
		{Name: "b", Period: 2 * time.Second, Run: func() { b.Add(1) }},
	})
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, int32(3), a.Load())
	assert.Equal(t, int32(3), b.Load())

	stats := s.Stats()
	require.Len(t, stats, 2)
	for _, st := range stats {
		assert.Equal(t, uint64(3), st.Runs, st.Name)
	}
}

func TestStartIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name  string
		tasks []Task
	}{
		{"empty", nil},
		{"zero period", []Task{
			{Name: "ok", Period: time.Second, Run: func() {}},
			{Name: "bad", Period: 0, Run: func() {}},
		}},
		{"nil run", []Task{
			{Name: "ok", Period: time.Second, Run: func() {}},
			{Name: "bad", Period: time.Second},
		}},
		{"no name", []Task{{Period: time.Second, Run: func() {}}}},
		{"duplicate", []Task{
			{Name: "x", Period: time.Second, Run: func() {}},
			{Name: "x", Period: time.Second, Run: func() {}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ran atomic.Bool
			for i := range tt.tasks {
				if tt.tasks[i].Run != nil {
					tt.tasks[i].Run = func() { ran.Store(true) }
				}
			}
			rec := logger.NewRecorder()
			s := New(rec, WithSleep(countingSleep(1)))

			err := s.Start(context.Background(), tt.tasks)
			assert.ErrorIs(t, err, ErrInvalidTask)
			s.Wait()
			assert.False(t, ran.Load(), "no task may run when any is invalid")
			assert.Equal(t, 1, rec.Count(logger.LevelCritical))
			assert.Empty(t, s.Stats())
		})
	}
}

func TestStartOrdersByPriority(t *testing.T) {
	s := New(logger.Discard, WithSleep(func(context.Context, time.Duration) bool { return false }))
	err := s.Start(context.Background(), []Task{
		{Name: "oil", Period: time.Second, Priority: 0, Run: func() {}},
		{Name: "water", Period: time.Second, Priority: 3, Run: func() {}},
		{Name: "fuel", Period: time.Second, Priority: 2, Run: func() {}},
		{Name: "internal", Period: time.Second, Priority: 2, Run: func() {}},
	})
	require.NoError(t, err)
	s.Wait()

	var names []string
	for _, st := range s.Stats() {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{"water", "fuel", "internal", "oil"}, names)
}

func TestStartTwice(t *testing.T) {
	s := New(logger.Discard, WithSleep(countingSleep(1)))
	tasks := []Task{{Name: "a", Period: time.Second, Run: func() {}}}
	require.NoError(t, s.Start(context.Background(), tasks))
	assert.ErrorIs(t, s.Start(context.Background(), tasks), ErrAlreadyStarted)
	s.Wait()
}

func TestPanicIsRecoveredAndCadenceKept(t *testing.T) {
	var n atomic.Int32
	rec := logger.NewRecorder()
	s := New(rec, WithSleep(countingSleep(3)))

	err := s.Start(context.Background(), []Task{{
		Name: "flaky", Period: time.Second,
		Run: func() {
			if n.Add(1) == 1 {
				panic(errors.New("sensor exploded"))
			}
		},
	}})
	require.NoError(t, err)
	s.Wait()

	assert.Equal(t, int32(3), n.Load(), "task keeps running after a panic")
	st := s.Stats()[0]
	assert.Equal(t, uint64(1), st.Panics)
	assert.Equal(t, uint64(2), st.Runs)
	assert.True(t, rec.Contains(logger.LevelError, "sensor exploded"))
}

func TestCancelStopsTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int32
	s := New(logger.Discard)

	require.NoError(t, s.Start(ctx, []Task{{
		Name: "fast", Period: time.Millisecond, Run: func() { n.Add(1) },
	}}))

	require.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tasks did not stop after cancel")
	}
}

func TestSleepFullPeriodAfterRun(t *testing.T) {
	var periods []time.Duration
	var mu sync.Mutex
	s := New(logger.Discard, WithSleep(func(_ context.Context, d time.Duration) bool {
		mu.Lock()
		defer mu.Unlock()
		periods = append(periods, d)
		return len(periods) < 2
	}))

	require.NoError(t, s.Start(context.Background(), []Task{{
		Name: "fuel", Period: 250 * time.Millisecond, Run: func() {},
	}}))
	s.Wait()

	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, periods)
}
