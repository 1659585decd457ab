package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/cluster-sensor/internal/sensor"
)

func TestFormatPayloadExactJSON(t *testing.T) {
	r := sensor.Reading{
		Kind:  sensor.FuelLevelPercent,
		Value: sensor.Percent(42),
		Time:  time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
	}

	payload, err := FormatPayload(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"sensor":{"timestamp":"2026-02-03T10:30:45Z","kind":"fuel_level_percent","value":42,"unit":"%","display":"42"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadValueTypes(t *testing.T) {
	tests := []struct {
		kind        sensor.Kind
		value       sensor.Value
		wantValue   interface{}
		wantDisplay string
	}{
		{sensor.OilPressure, sensor.Pressure(true), true, "OK"},
		{sensor.OilPressure, sensor.Pressure(false), false, "LOW"},
		{sensor.FuelLevelLitre, sensor.Litres(18), float64(18), "18"},
		{sensor.WaterTemperature, sensor.Celsius(87.5), 87.5, "87.5"},
		{sensor.Speed, sensor.KMH(0), float64(0), "0"},
		{sensor.RPM, sensor.RPMValue(1930), float64(1930), "1930"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.wantDisplay, func(t *testing.T) {
			payload, err := FormatPayload(sensor.Reading{Kind: tt.kind, Value: tt.value, Time: time.Now()})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed map[string]map[string]interface{}
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			s := parsed["sensor"]
			if s["kind"] != string(tt.kind) {
				t.Errorf("kind: got %v, want %s", s["kind"], tt.kind)
			}
			if s["value"] != tt.wantValue {
				t.Errorf("value: got %v (%T), want %v", s["value"], s["value"], tt.wantValue)
			}
			if s["display"] != tt.wantDisplay {
				t.Errorf("display: got %v, want %s", s["display"], tt.wantDisplay)
			}
		})
	}
}

func TestFormatPayloadOmitsEmptyUnit(t *testing.T) {
	payload, err := FormatPayload(sensor.Reading{Kind: sensor.OilPressure, Value: sensor.Pressure(true), Time: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed map[string]map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, exists := parsed["sensor"]["unit"]; exists {
		t.Error("unit should be omitted for oil pressure")
	}
}

func TestTopics(t *testing.T) {
	var def Topics
	if got := def.Sensor(sensor.RPM); got != "vehicle/cluster/sensors/rpm" {
		t.Errorf("unexpected sensor topic: %s", got)
	}
	if got := def.System(); got != "vehicle/cluster/system" {
		t.Errorf("unexpected system topic: %s", got)
	}

	custom := Topics{Prefix: "bench/rig1"}
	if got := custom.Sensor(sensor.FuelLevelLitre); got != "bench/rig1/sensors/fuel_level_litre" {
		t.Errorf("unexpected sensor topic: %s", got)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	r := sensor.Reading{Kind: sensor.Speed, Value: sensor.KMH(50), Time: time.Now()}
	if err := f.Publish(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(f.Readings))
	}
	if f.Readings[0].Value != sensor.KMH(50) {
		t.Errorf("unexpected value: %v", f.Readings[0].Value)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
	if f.ReadingCount() != 1 {
		t.Errorf("ReadingCount: got %d", f.ReadingCount())
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	err := f.Publish(sensor.Reading{Kind: sensor.Speed, Value: sensor.KMH(1)})
	if err == nil {
		t.Error("expected error")
	}
	if len(f.Readings) != 0 {
		t.Errorf("expected no readings recorded on error, got %d", len(f.Readings))
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(sensor.Reading{Kind: sensor.Speed, Value: sensor.KMH(1)})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Close()
	f.PublishError = errors.New("error")

	f.Reset()

	if len(f.Readings) != 0 || len(f.Payloads) != 0 {
		t.Error("readings should be cleared")
	}
	if len(f.SystemEventNames()) != 0 {
		t.Error("system events should be cleared")
	}
	if f.Closed {
		t.Error("closed should be reset")
	}
	if f.PublishError != nil {
		t.Error("error should be cleared")
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadOmitsReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 19, 5, 51, 0, time.UTC),
		Event:     "LWT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	system := parsed["system"].(map[string]interface{})
	if _, exists := system["reason"]; exists {
		t.Error("reason field should be omitted when empty")
	}
}

func TestWillPayloadHasNoTimestamp(t *testing.T) {
	got := string(WillPayload())
	want := `{"system":{"event":"LWT","reason":"connection lost"}}`
	if got != want {
		t.Errorf("will payload:\ngot:  %s\nwant: %s", got, want)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not passed through: %s", payload)
	}
}
