package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/cluster-sensor/internal/logger"
	"github.com/sweeney/cluster-sensor/internal/sensor"
)

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("mqtt: publisher closed")

// ErrQueueFull is returned when a message cannot be queued without blocking.
var ErrQueueFull = errors.New("mqtt: publish queue full")

const (
	publishTimeout = 5 * time.Second
	queueSize      = 256
)

// client is the subset of paho.Client the publisher uses.
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Topics     Topics
	BufferSize int // messages kept while offline
	Log        logger.Logger
}

// RealPublisher publishes to an actual MQTT broker. Messages are queued and
// sent by a single worker goroutine, so callers never wait on the network.
// While the broker is unreachable messages go to a ring buffer that is
// replayed in order on reconnect.
type RealPublisher struct {
	client client
	topics Topics
	log    logger.Logger

	queue     chan bufferedMsg
	connected chan struct{}
	done      chan struct{}
	buf       *ringBuffer // worker-owned

	mu     sync.RWMutex // guards closed against concurrent sends
	closed bool

	dropped atomic.Uint64
}

// NewRealPublisher creates a publisher for the given broker. It does not wait
// for the connection; paho keeps retrying in the background and messages are
// buffered meanwhile.
func NewRealPublisher(o Options) *RealPublisher {
	p := newPublisher(nil, o)

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(p.topics.System(), string(WillPayload()), 1, true).
		SetOnConnectHandler(func(paho.Client) {
			p.log.Infof("mqtt: connected to %s", o.Broker)
			p.notifyConnected()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warnf("mqtt: connection lost: %v", err)
		})

	c := paho.NewClient(opts)
	p.client = c
	go p.run()

	c.Connect()
	return p
}

func newPublisher(c client, o Options) *RealPublisher {
	if o.Log == nil {
		o.Log = logger.Discard
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 1000
	}
	return &RealPublisher{
		client:    c,
		topics:    o.Topics,
		log:       o.Log,
		queue:     make(chan bufferedMsg, queueSize),
		connected: make(chan struct{}, 1),
		done:      make(chan struct{}),
		buf:       newRingBuffer(o.BufferSize, o.Log),
	}
}

func (p *RealPublisher) notifyConnected() {
	select {
	case p.connected <- struct{}{}:
	default:
	}
}

// Publish queues a sensor reading on its retained topic with QoS 0.
func (p *RealPublisher) Publish(r sensor.Reading) error {
	payload, err := FormatPayload(r)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.enqueue(bufferedMsg{topic: p.topics.Sensor(r.Kind), payload: payload, qos: 0, retained: true})
}

// PublishSystem queues a system lifecycle event with QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.enqueue(bufferedMsg{topic: p.topics.System(), payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) enqueue(m bufferedMsg) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- m:
		return nil
	default:
		p.dropped.Add(1)
		return ErrQueueFull
	}
}

func (p *RealPublisher) run() {
	defer close(p.done)
	for {
		select {
		case m, ok := <-p.queue:
			if !ok {
				return
			}
			p.send(m)
		case <-p.connected:
			p.flush()
		}
	}
}

func (p *RealPublisher) send(m bufferedMsg) {
	if p.buf.len() > 0 || !p.client.IsConnected() {
		p.buf.push(m)
		if p.client.IsConnected() {
			p.flush()
		}
		return
	}
	if err := p.publishNow(m); err != nil {
		p.log.Warnf("mqtt: publish to %s failed, buffering: %v", m.topic, err)
		p.buf.push(m)
	}
}

// flush replays buffered messages in order. On the first failure the
// remainder goes back into the buffer.
func (p *RealPublisher) flush() {
	msgs := p.buf.drainAll()
	if len(msgs) == 0 {
		return
	}
	p.log.Infof("mqtt: replaying %d buffered messages", len(msgs))
	for i, m := range msgs {
		if err := p.publishNow(m); err != nil {
			p.log.Warnf("mqtt: replay interrupted: %v", err)
			for _, rest := range msgs[i:] {
				p.buf.push(rest)
			}
			return
		}
	}
}

func (p *RealPublisher) publishNow(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Dropped returns the number of messages rejected because the queue was full.
func (p *RealPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close sends everything still queued, then disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	if n := p.buf.len(); n > 0 {
		p.log.Warnf("mqtt: %d buffered messages not delivered", n)
	}
	p.client.Disconnect(1000) // 1 second
	return nil
}
