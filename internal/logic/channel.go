// Package logic contains the change-detection state machine shared by every
// sensor channel. This package has NO hardware, logging or clock dependencies.
package logic

import "fmt"

// State is the lifecycle state of a channel.
type State int

const (
	// Uninitialized channels have not finished setup.
	Uninitialized State = iota
	// Active channels sample and notify.
	Active
	// Degraded channels failed setup. The state is terminal.
	Degraded
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Active:
		return "ACTIVE"
	case Degraded:
		return "DEGRADED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Transition is the outcome of observing one value.
type Transition[T comparable] struct {
	Old T
	New T
	// Baseline is set for the first value observed by an active channel.
	Baseline bool
	// Changed is set when New differs from the stored value. Only changed
	// transitions are dispatched to consumers.
	Changed bool
}

// Channel tracks the last value of one sensor and detects changes.
// Not safe for concurrent use: a channel is owned by its update task.
type Channel[T comparable] struct {
	state     State
	value     T
	baselined bool
}

// NewChannel returns an uninitialized channel.
func NewChannel[T comparable]() *Channel[T] {
	return &Channel[T]{}
}

// Activate marks setup as successful. It has no effect on degraded channels.
func (c *Channel[T]) Activate() {
	if c.state == Uninitialized {
		c.state = Active
	}
}

// Degrade marks setup as failed. Once degraded a channel never leaves that
// state.
func (c *Channel[T]) Degrade() {
	c.state = Degraded
}

// State returns the lifecycle state.
func (c *Channel[T]) State() State {
	return c.state
}

// Degraded reports whether setup failed.
func (c *Channel[T]) Degraded() bool {
	return c.state == Degraded
}

// Value returns the stored value and whether a baseline exists.
func (c *Channel[T]) Value() (T, bool) {
	return c.value, c.baselined
}

// Observe compares v with the stored value and stores it when it differs.
// Channels that are not active ignore every value.
func (c *Channel[T]) Observe(v T) Transition[T] {
	if c.state != Active {
		return Transition[T]{Old: c.value, New: c.value}
	}

	if !c.baselined {
		c.baselined = true
		c.value = v
		return Transition[T]{Old: v, New: v, Baseline: true}
	}

	if v == c.value {
		return Transition[T]{Old: v, New: v}
	}

	old := c.value
	c.value = v
	return Transition[T]{Old: old, New: v, Changed: true}
}
