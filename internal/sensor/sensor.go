// Package sensor defines the sensor kinds of the instrument cluster and the
// typed values delivered to consumers when a reading changes.
package sensor

import (
	"fmt"
	"time"
)

// Kind identifies one notification stream.
type Kind string

const (
	OilPressure         Kind = "oil_pressure"
	FuelLevelPercent    Kind = "fuel_level_percent"
	FuelLevelLitre      Kind = "fuel_level_litre"
	WaterTemperature    Kind = "water_temperature"
	InternalTemperature Kind = "internal_temperature"
	Speed               Kind = "speed"
	RPM                 Kind = "rpm"
)

// Kinds lists every notification stream in a stable order.
var Kinds = []Kind{
	OilPressure,
	FuelLevelPercent,
	FuelLevelLitre,
	WaterTemperature,
	InternalTemperature,
	Speed,
	RPM,
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Value is a physical value typed per sensor. The set of implementations is
// closed: Pressure, Percent, Litres, Celsius, KMH and RPMValue.
type Value interface {
	Unit() string
	String() string
	isValue()
}

// Pressure reports whether oil pressure is present.
type Pressure bool

// Percent is an integer percentage in [0, 100].
type Percent int

// Litres is an integer volume.
type Litres int

// Celsius is a temperature in degrees Celsius.
type Celsius float32

// KMH is a speed in kilometres per hour.
type KMH int

// RPMValue is engine revolutions per minute.
type RPMValue int

func (Pressure) Unit() string { return "" }
func (Percent) Unit() string  { return "%" }
func (Litres) Unit() string   { return "l" }
func (Celsius) Unit() string  { return "°C" }
func (KMH) Unit() string      { return "km/h" }
func (RPMValue) Unit() string { return "rpm" }

func (p Pressure) String() string {
	if p {
		return "OK"
	}
	return "LOW"
}
func (p Percent) String() string  { return fmt.Sprintf("%d", int(p)) }
func (l Litres) String() string   { return fmt.Sprintf("%d", int(l)) }
func (c Celsius) String() string  { return fmt.Sprintf("%.1f", float32(c)) }
func (s KMH) String() string      { return fmt.Sprintf("%d", int(s)) }
func (r RPMValue) String() string { return fmt.Sprintf("%d", int(r)) }

func (Pressure) isValue() {}
func (Percent) isValue()  {}
func (Litres) isValue()   {}
func (Celsius) isValue()  {}
func (KMH) isValue()      {}
func (RPMValue) isValue() {}

// Reading is one change notification.
type Reading struct {
	Kind  Kind
	Value Value
	Time  time.Time
}

// Callback receives change notifications. It runs inline in the sensor's
// periodic update and must return quickly.
type Callback func(Reading)

// OnPressure adapts a typed oil pressure handler.
func OnPressure(fn func(Pressure)) Callback {
	return func(r Reading) {
		if v, ok := r.Value.(Pressure); ok {
			fn(v)
		}
	}
}

// OnPercent adapts a typed percentage handler.
func OnPercent(fn func(Percent)) Callback {
	return func(r Reading) {
		if v, ok := r.Value.(Percent); ok {
			fn(v)
		}
	}
}

// OnLitres adapts a typed litre handler.
func OnLitres(fn func(Litres)) Callback {
	return func(r Reading) {
		if v, ok := r.Value.(Litres); ok {
			fn(v)
		}
	}
}

// OnCelsius adapts a typed temperature handler.
func OnCelsius(fn func(Celsius)) Callback {
	return func(r Reading) {
		if v, ok := r.Value.(Celsius); ok {
			fn(v)
		}
	}
}

// OnKMH adapts a typed speed handler.
func OnKMH(fn func(KMH)) Callback {
	return func(r Reading) {
		if v, ok := r.Value.(KMH); ok {
			fn(v)
		}
	}
}

// OnRPM adapts a typed RPM handler.
func OnRPM(fn func(RPMValue)) Callback {
	return func(r Reading) {
		if v, ok := r.Value.(RPMValue); ok {
			fn(v)
		}
	}
}

// ChannelStatus is a point-in-time view of one notification stream.
type ChannelStatus struct {
	Kind       Kind
	Value      Value // nil until the first valid reading
	Degraded   bool
	Dispatched uint64 // callback notifications since startup
}
