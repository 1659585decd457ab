// Package mqtt publishes sensor change notifications and system lifecycle
// events, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/cluster-sensor/internal/sensor"
)

// DefaultTopicPrefix is the root of every topic the service publishes.
const DefaultTopicPrefix = "vehicle/cluster"

// Topics builds topic names under a prefix.
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// Sensor is the retained topic carrying the latest value of kind.
func (t Topics) Sensor(kind sensor.Kind) string {
	return t.prefix() + "/sensors/" + string(kind)
}

// System is the topic for lifecycle events.
func (t Topics) System() string {
	return t.prefix() + "/system"
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a sensor change notification. It must not block the
	// calling update task.
	Publish(r sensor.Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a sensor reading.
type Payload struct {
	Sensor SensorPayload `json:"sensor"`
}

// SensorPayload contains the reading details. Value is a JSON bool for oil
// pressure, an integer for levels, speed and RPM, and a number for
// temperatures.
type SensorPayload struct {
	Timestamp string       `json:"timestamp"`
	Kind      string       `json:"kind"`
	Value     sensor.Value `json:"value"`
	Unit      string       `json:"unit,omitempty"`
	Display   string       `json:"display"`
}

// FormatPayload creates the JSON payload for a sensor reading.
func FormatPayload(r sensor.Reading) ([]byte, error) {
	p := Payload{
		Sensor: SensorPayload{
			Timestamp: r.Time.UTC().Format(time.RFC3339),
			Kind:      string(r.Kind),
		},
	}
	if r.Value != nil {
		p.Sensor.Value = r.Value
		p.Sensor.Unit = r.Value.Unit()
		p.Sensor.Display = r.Value.String()
	}
	return json.Marshal(p)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
// A zero Timestamp is omitted.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Event:  event.Event,
			Reason: event.Reason,
		},
	}
	if !event.Timestamp.IsZero() {
		payload.System.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(payload)
}

// WillPayload is the retained last-will message. The broker publishes it
// whenever the connection drops, possibly hours after it was registered, so
// it carries no timestamp.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "LWT", Reason: "connection lost"})
	return data
}
