package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/cluster-sensor/internal/logger"
	"github.com/sweeney/cluster-sensor/internal/sensor"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	failures     int // next N publishes fail
	sent         []bufferedMsg
	disconnected bool
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return &fakeToken{err: errors.New("not acknowledged")}
	}
	c.sent = append(c.sent, bufferedMsg{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func (c *fakeClient) sentMsgs() []bufferedMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bufferedMsg(nil), c.sent...)
}

func startPublisher(c *fakeClient, log logger.Logger) *RealPublisher {
	p := newPublisher(c, Options{BufferSize: 10, Log: log})
	go p.run()
	return p
}

func reading(kmh int) sensor.Reading {
	return sensor.Reading{Kind: sensor.Speed, Value: sensor.KMH(kmh), Time: time.Unix(0, 0)}
}

func displayOf(t *testing.T, m bufferedMsg) string {
	t.Helper()
	// payload ends with "display":"N"}}
	s := string(m.payload)
	i := len(s) - 3
	j := i
	for j > 0 && s[j-1] != '"' {
		j--
	}
	return s[j:i]
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	c := &fakeClient{connected: true}
	p := startPublisher(c, nil)

	for _, v := range []int{10, 20} {
		if err := p.Publish(reading(v)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := p.PublishSystem(SystemEvent{Event: "HEARTBEAT", Timestamp: time.Now(), Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := c.sentMsgs()
	if len(sent) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(sent))
	}
	if sent[0].topic != "vehicle/cluster/sensors/speed" || sent[0].qos != 0 || !sent[0].retained {
		t.Errorf("unexpected sensor message: %+v", sent[0])
	}
	if displayOf(t, sent[0]) != "10" || displayOf(t, sent[1]) != "20" {
		t.Errorf("messages out of order: %s, %s", sent[0].payload, sent[1].payload)
	}
	if sent[2].topic != "vehicle/cluster/system" || sent[2].qos != 1 || !sent[2].retained {
		t.Errorf("unexpected system message: %+v", sent[2])
	}
	if !c.disconnected {
		t.Error("expected Disconnect on Close")
	}
}

func TestRealPublisherBuffersWhileOffline(t *testing.T) {
	c := &fakeClient{}
	rec := logger.NewRecorder()
	p := startPublisher(c, rec)

	for _, v := range []int{1, 2, 3} {
		p.Publish(reading(v))
	}
	p.Close()

	if n := len(c.sentMsgs()); n != 0 {
		t.Errorf("expected nothing sent while offline, got %d", n)
	}
	if p.buf.len() != 3 {
		t.Errorf("expected 3 buffered, got %d", p.buf.len())
	}
	if !rec.Contains(logger.LevelWarn, "3 buffered messages not delivered") {
		t.Error("expected undelivered warning")
	}
}

func TestRealPublisherReplaysOnReconnect(t *testing.T) {
	c := &fakeClient{}
	p := startPublisher(c, nil)

	for _, v := range []int{1, 2, 3} {
		p.Publish(reading(v))
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(p.queue) > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	c.setConnected(true)
	p.notifyConnected()
	p.Publish(reading(4))
	p.Close()

	sent := c.sentMsgs()
	if len(sent) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(sent))
	}
	for i, want := range []string{"1", "2", "3", "4"} {
		if got := displayOf(t, sent[i]); got != want {
			t.Errorf("message %d: got %s, want %s", i, got, want)
		}
	}
}

func TestRealPublisherBuffersFailedPublish(t *testing.T) {
	c := &fakeClient{connected: true, failures: 1}
	p := startPublisher(c, nil)

	p.Publish(reading(1)) // fails, buffered
	p.Publish(reading(2)) // flushes 1, then sends 2
	p.Close()

	sent := c.sentMsgs()
	if len(sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sent))
	}
	if displayOf(t, sent[0]) != "1" || displayOf(t, sent[1]) != "2" {
		t.Errorf("messages out of order: %s, %s", sent[0].payload, sent[1].payload)
	}
}

func TestRealPublisherClosed(t *testing.T) {
	c := &fakeClient{connected: true}
	p := startPublisher(c, nil)
	p.Close()

	if err := p.Publish(reading(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "SHUTDOWN"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
