// Package scheduler runs periodic activities, one goroutine each. An
// activity runs, then sleeps its full period; there is no drift
// compensation, so the effective period is the configured period plus the
// activity's run time.
package scheduler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/cluster-sensor/internal/logger"
)

// ErrInvalidTask is returned by Start when any task cannot be scheduled.
var ErrInvalidTask = errors.New("scheduler: invalid task")

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("scheduler: already started")

// Task is one periodic activity.
//
// Priority only orders startup (highest first) and is reported in Stats;
// goroutines have no scheduling priority.
type Task struct {
	Name     string
	Period   time.Duration
	Priority int
	Run      func()
}

// TaskStats is a point-in-time view of one running task.
type TaskStats struct {
	Name     string        `json:"name"`
	Period   time.Duration `json:"period_ns"`
	Priority int           `json:"priority"`
	Runs     uint64        `json:"runs"`
	Panics   uint64        `json:"panics"`
}

type taskState struct {
	task   Task
	runs   atomic.Uint64
	panics atomic.Uint64
}

// SleepFunc waits d or until ctx is done. It returns false when the task
// should stop.
type SleepFunc func(ctx context.Context, d time.Duration) bool

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSleep replaces the period wait. Tests use it to run tasks without
// real delays.
func WithSleep(fn SleepFunc) Option {
	return func(s *Scheduler) { s.sleep = fn }
}

// Scheduler starts and supervises periodic tasks.
type Scheduler struct {
	log   logger.Logger
	sleep SleepFunc

	mu      sync.Mutex
	started bool
	states  []*taskState
	wg      sync.WaitGroup
}

// New creates a Scheduler.
func New(log logger.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = logger.Discard
	}
	s := &Scheduler{log: log, sleep: sleepContext}
	for _, o := range opts {
		o(s)
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Validate checks a task set without starting anything.
func Validate(tasks []Task) error {
	if len(tasks) == 0 {
		return fmt.Errorf("%w: no tasks", ErrInvalidTask)
	}
	seen := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		switch {
		case t.Name == "":
			return fmt.Errorf("%w: task %d has no name", ErrInvalidTask, i)
		case seen[t.Name]:
			return fmt.Errorf("%w: duplicate task %q", ErrInvalidTask, t.Name)
		case t.Period <= 0:
			return fmt.Errorf("%w: task %q has period %v", ErrInvalidTask, t.Name, t.Period)
		case t.Run == nil:
			return fmt.Errorf("%w: task %q has no run function", ErrInvalidTask, t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// Start launches every task, or none. Tasks are started highest priority
// first and stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context, tasks []Task) error {
	if err := Validate(tasks); err != nil {
		s.log.Criticalf("scheduler: not starting any task: %v", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ordered := slices.Clone(tasks)
	slices.SortStableFunc(ordered, func(a, b Task) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	for _, t := range ordered {
		st := &taskState{task: t}
		s.states = append(s.states, st)
		s.wg.Add(1)
		go s.loop(ctx, st)
	}
	s.log.Infof("scheduler: started %d tasks", len(ordered))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, st *taskState) {
	defer s.wg.Done()
	for ctx.Err() == nil {
		s.runOnce(st)
		if !s.sleep(ctx, st.task.Period) {
			return
		}
	}
}

func (s *Scheduler) runOnce(st *taskState) {
	defer func() {
		if r := recover(); r != nil {
			st.panics.Add(1)
			s.log.Errorf("scheduler: task %s panicked: %v", st.task.Name, r)
		}
	}()
	st.task.Run()
	st.runs.Add(1)
}

// Wait blocks until every started task has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Stats returns per-task counters in start order.
func (s *Scheduler) Stats() []TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStats, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, TaskStats{
			Name:     st.task.Name,
			Period:   st.task.Period,
			Priority: st.task.Priority,
			Runs:     st.runs.Load(),
			Panics:   st.panics.Load(),
		})
	}
	return out
}
