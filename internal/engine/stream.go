package engine

import (
	"sync/atomic"

	"github.com/sweeney/cluster-sensor/internal/logic"
	"github.com/sweeney/cluster-sensor/internal/sensor"
)

type boxed struct{ v sensor.Value }

// stream is one notification channel. The logic.Channel is owned by the
// update task; the atomics mirror it for readers on other goroutines.
type stream[T comparable] struct {
	kind sensor.Kind
	ch   *logic.Channel[T]
	wrap func(T) sensor.Value

	value      atomic.Pointer[boxed]
	degraded   atomic.Bool
	dispatched atomic.Uint64
}

func newStream[T comparable](kind sensor.Kind, wrap func(T) sensor.Value) *stream[T] {
	return &stream[T]{kind: kind, ch: logic.NewChannel[T](), wrap: wrap}
}

func (s *stream[T]) activate() {
	s.ch.Activate()
}

func (s *stream[T]) degrade() {
	s.ch.Degrade()
	s.degraded.Store(true)
}

func (s *stream[T]) active() bool {
	return s.ch.State() == logic.Active
}

func (s *stream[T]) status() sensor.ChannelStatus {
	st := sensor.ChannelStatus{
		Kind:       s.kind,
		Degraded:   s.degraded.Load(),
		Dispatched: s.dispatched.Load(),
	}
	if b := s.value.Load(); b != nil {
		st.Value = b.v
	}
	return st
}

type statusSource interface {
	status() sensor.ChannelStatus
}

// observe feeds v through change detection. A change is stored, logged with
// old and new value, then handed to the registered callback. The baseline
// goes to the baseline hook only.
func observe[T comparable](e *Engine, s *stream[T], v T) {
	tr := s.ch.Observe(v)
	switch {
	case tr.Baseline:
		val := s.wrap(tr.New)
		s.value.Store(&boxed{val})
		e.log.Infof("%s: initial value %s", s.kind, val)
		if hook := e.baselineHook(); hook != nil {
			hook(sensor.Reading{Kind: s.kind, Value: val, Time: e.now()})
		}
	case tr.Changed:
		val := s.wrap(tr.New)
		s.value.Store(&boxed{val})
		e.log.Infof("%s changed from %s to %s", s.kind, s.wrap(tr.Old), val)
		if cb := e.callback(s.kind); cb != nil {
			cb(sensor.Reading{Kind: s.kind, Value: val, Time: e.now()})
			s.dispatched.Add(1)
		}
	}
}
