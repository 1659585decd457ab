package engine

import (
	"time"

	"github.com/sweeney/cluster-sensor/internal/adc"
	"github.com/sweeney/cluster-sensor/internal/convert"
)

// AnalogInput describes where an analog sensor is wired.
type AnalogInput struct {
	Channel     int
	Width       adc.BitWidth
	Attenuation adc.Attenuation
}

// Calibration holds the conversion constants of every sensor.
type Calibration struct {
	ReferenceVolts float64

	OilSeriesOhms   float64
	FuelSeriesOhms  float64
	WaterSeriesOhms float64

	// Oil pressure is present when the sender voltage is strictly inside
	// (OilLowerMV, OilUpperMV).
	OilLowerMV int
	OilUpperMV int

	// FuelOffset and FuelScale also apply to the coolant sender.
	FuelOffset float64
	FuelScale  float64
	TankLitres int

	InternalOffsetMV float32
	InternalScale    float32

	RPMTiers   convert.TierTable
	RPMMaxHz   int
	SpeedMaxHz int

	// EdgeStaleAfter is how long a pulse input may stay silent before its
	// frequency is taken as 0. Zero disables the check.
	EdgeStaleAfter time.Duration

	// TemperatureResolution rounds temperatures before change detection.
	// Zero compares raw float values exactly.
	TemperatureResolution float32
}

// Timing is the cadence of one update task.
type Timing struct {
	Period   time.Duration
	Priority int
}

// Schedule holds the timing of the six update tasks.
type Schedule struct {
	Oil      Timing
	Fuel     Timing
	Water    Timing
	Internal Timing
	Speed    Timing
	RPM      Timing
}

// Config is everything the engine needs besides its peripherals.
type Config struct {
	Oil         AnalogInput
	Fuel        AnalogInput
	Water       AnalogInput
	Internal    AnalogInput
	Calibration Calibration
	Schedule    Schedule
}

// DefaultConfig returns the cluster's stock wiring and calibration.
func DefaultConfig() Config {
	return Config{
		Oil:      AnalogInput{Channel: 1, Width: 12, Attenuation: adc.Atten2_5dB},
		Fuel:     AnalogInput{Channel: 0, Width: 12, Attenuation: adc.Atten2_5dB},
		Water:    AnalogInput{Channel: 2, Width: 12, Attenuation: adc.Atten12dB},
		Internal: AnalogInput{Channel: 6, Width: 12, Attenuation: adc.Atten6dB},
		Calibration: Calibration{
			ReferenceVolts:   3.3,
			OilSeriesOhms:    240,
			FuelSeriesOhms:   240,
			WaterSeriesOhms:  3000,
			OilLowerMV:       65,
			OilUpperMV:       255,
			FuelOffset:       5,
			FuelScale:        115,
			TankLitres:       45,
			InternalOffsetMV: 540,
			InternalScale:    10,
			RPMTiers:         append(convert.TierTable(nil), convert.DefaultRPMTiers...),
			RPMMaxHz:         300,
			SpeedMaxHz:       500,
			EdgeStaleAfter:   2 * time.Second,
		},
		Schedule: Schedule{
			Oil:      Timing{Period: 10 * time.Second, Priority: 0},
			Fuel:     Timing{Period: 250 * time.Millisecond, Priority: 2},
			Water:    Timing{Period: 5 * time.Second, Priority: 3},
			Internal: Timing{Period: 5 * time.Second, Priority: 2},
			Speed:    Timing{Period: 250 * time.Millisecond, Priority: 0},
			RPM:      Timing{Period: 250 * time.Millisecond, Priority: 0},
		},
	}
}
