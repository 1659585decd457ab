// Package status provides a thread-safe status tracker for the cluster-sensor daemon.
// It is read by the HTTP handlers and by the MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/cluster-sensor/internal/scheduler"
	"github.com/sweeney/cluster-sensor/internal/sensor"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Backend     string
	HeartbeatMs int64
	Broker      string
	TopicPrefix string
	HTTPAddr    string
	LogLevel    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Health        string
	Channels      []sensor.ChannelStatus
	Tasks         []scheduler.TaskStats
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether every non-degraded channel has produced a value.
func (s Snapshot) Ready() bool {
	if len(s.Channels) == 0 {
		return false
	}
	for _, c := range s.Channels {
		if !c.Degraded && c.Value == nil {
			return false
		}
	}
	return true
}

// Channel returns the status of one stream.
func (s Snapshot) Channel(kind sensor.Kind) (sensor.ChannelStatus, bool) {
	for _, c := range s.Channels {
		if c.Kind == kind {
			return c, true
		}
	}
	return sensor.ChannelStatus{}, false
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update replaces the channel and task views. Called from runLoop on every tick.
func (t *Tracker) Update(channels []sensor.ChannelStatus, tasks []scheduler.TaskStats) {
	ch := append([]sensor.ChannelStatus(nil), channels...)
	ts := append([]scheduler.TaskStats(nil), tasks...)
	t.mu.Lock()
	t.snap.Channels = ch
	t.snap.Tasks = ts
	t.mu.Unlock()
}

// SetHealth records the engine's startup health summary.
func (t *Tracker) SetHealth(health string) {
	t.mu.Lock()
	t.snap.Health = health
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Channels = append([]sensor.ChannelStatus(nil), t.snap.Channels...)
	s.Tasks = append([]scheduler.TaskStats(nil), t.snap.Tasks...)
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
