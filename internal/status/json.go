package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/cluster-sensor/internal/sensor"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Health        string        `json:"health"`
	Ready         bool          `json:"ready"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Sensors       []ChannelJSON `json:"sensors"`
	Tasks         []TaskJSON    `json:"tasks,omitempty"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Config        ConfigJSON    `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ChannelJSON is the JSON representation of one sensor stream.
// Value is null until the first valid reading.
type ChannelJSON struct {
	Kind          string `json:"kind"`
	Value         any    `json:"value"`
	Display       string `json:"display"`
	Unit          string `json:"unit,omitempty"`
	Degraded      bool   `json:"degraded"`
	Notifications uint64 `json:"notifications"`
}

// TaskJSON is the JSON representation of a periodic task.
type TaskJSON struct {
	Name     string `json:"name"`
	PeriodMs int64  `json:"period_ms"`
	Priority int    `json:"priority"`
	Runs     uint64 `json:"runs"`
	Panics   uint64 `json:"panics"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Backend     string `json:"backend"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPAddr    string `json:"http_addr"`
	LogLevel    string `json:"log_level"`
}

func channelJSON(c sensor.ChannelStatus) ChannelJSON {
	cj := ChannelJSON{
		Kind:          string(c.Kind),
		Display:       "UNKNOWN",
		Degraded:      c.Degraded,
		Notifications: c.Dispatched,
	}
	if c.Value != nil {
		cj.Value = c.Value
		cj.Display = c.Value.String()
		cj.Unit = c.Value.Unit()
	}
	return cj
}

func buildInner(snap Snapshot) StatusInner {
	health := snap.Health
	if health == "" {
		health = "UNKNOWN"
	}

	sensors := make([]ChannelJSON, 0, len(snap.Channels))
	for _, c := range snap.Channels {
		sensors = append(sensors, channelJSON(c))
	}

	var tasks []TaskJSON
	for _, t := range snap.Tasks {
		tasks = append(tasks, TaskJSON{
			Name:     t.Name,
			PeriodMs: t.Period.Milliseconds(),
			Priority: t.Priority,
			Runs:     t.Runs,
			Panics:   t.Panics,
		})
	}

	return StatusInner{
		Health:        health,
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Sensors:       sensors,
		Tasks:         tasks,
		Config: ConfigJSON{
			Backend:     snap.Config.Backend,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
			LogLevel:    snap.Config.LogLevel,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
// Task statistics are omitted to keep retained messages small.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	inner.Tasks = nil
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatChannelJSON returns one sensor stream as a bare JSON object.
func FormatChannelJSON(c sensor.ChannelStatus) []byte {
	data, _ := json.Marshal(channelJSON(c))
	return data
}
