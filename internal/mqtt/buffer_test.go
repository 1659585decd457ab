package mqtt

import (
	"testing"

	"github.com/sweeney/cluster-sensor/internal/logger"
)

func pushN(rb *ringBuffer, from, to int) {
	for i := from; i < to; i++ {
		rb.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10, nil)
	if got := rb.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestRingBufferOverflowKeepsNewest(t *testing.T) {
	rec := logger.NewRecorder()
	rb := newRingBuffer(5, rec)

	pushN(rb, 0, 8)
	if rb.len() != 5 {
		t.Fatalf("expected len 5, got %d", rb.len())
	}
	if rec.Count(logger.LevelWarn) != 1 {
		t.Errorf("expected one overflow warning, got %d", rec.Count(logger.LevelWarn))
	}

	got := rb.drainAll()
	for i, msg := range got {
		want := byte(i + 3) // oldest 3 were dropped
		if msg.payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, msg.payload[0])
		}
	}
	if !rec.Contains(logger.LevelWarn, "3 buffered messages were dropped") {
		t.Error("expected drop summary on drain")
	}
}

func TestRingBufferMultipleCycles(t *testing.T) {
	rb := newRingBuffer(5, nil)

	pushN(rb, 0, 3)
	if got := rb.drainAll(); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	pushN(rb, 10, 14)
	got := rb.drainAll()
	if len(got) != 4 {
		t.Fatalf("cycle 2: expected 4 items, got %d", len(got))
	}
	for i, msg := range got {
		if want := byte(10 + i); msg.payload[0] != want {
			t.Errorf("cycle 2 item %d: expected %d, got %d", i, want, msg.payload[0])
		}
	}
	if rb.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", rb.len())
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(10, nil)
	rb.push(bufferedMsg{
		topic:    "vehicle/cluster/system",
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	got := rb.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	m := got[0]
	if m.topic != "vehicle/cluster/system" || string(m.payload) != `{"test":true}` || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	rb := newRingBuffer(0, nil)
	pushN(rb, 0, 2)
	got := rb.drainAll()
	if len(got) != 1 || got[0].payload[0] != 1 {
		t.Errorf("expected only the newest message, got %v", got)
	}
}
