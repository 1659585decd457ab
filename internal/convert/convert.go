// Package convert maps measured voltages and pulse frequencies to physical
// values. Everything here is pure: no I/O, no clocks, no shared state.
package convert

import (
	"errors"
	"math"
	"time"

	"github.com/chewxy/math32"

	"github.com/sweeney/cluster-sensor/internal/mathx"
)

// Unknown is returned by conversions that have no valid result for an input.
const Unknown = -1

// saturationEpsilon is the smallest divider headroom (in volts) still treated
// as measurable.
const saturationEpsilon = 1e-6

var (
	// ErrDividerSaturated means the measured voltage reached the reference
	// voltage, so the lower resistor cannot be computed.
	ErrDividerSaturated = errors.New("convert: divider output at or above reference voltage")
	// ErrNegativeVoltage means the measured voltage is below zero.
	ErrNegativeVoltage = errors.New("convert: negative divider voltage")
)

// VoltageDividerResistance returns the resistance of the lower divider
// resistor: series * (v / (ref - v)), with v the measured voltage in volts.
func VoltageDividerResistance(referenceVolts float64, measuredMV int, seriesOhms float64) (float64, error) {
	v := float64(measuredMV) / 1000.0
	if v < 0 {
		return 0, ErrNegativeVoltage
	}
	if referenceVolts-v < saturationEpsilon {
		return 0, ErrDividerSaturated
	}
	return seriesOhms * (v / (referenceVolts - v)), nil
}

// OilPressurePresent reports whether the sender voltage lies strictly inside
// the (lowerMV, upperMV) window.
func OilPressurePresent(mv, lowerMV, upperMV int) bool {
	return mathx.Between(mv, lowerMV, upperMV)
}

// FuelPercent converts sender resistance to a fill level. The offset is
// removed first, the result clamped to [0, scale-offset], then divided by
// scale and truncated.
func FuelPercent(resistance, offset, scale float64) int {
	if scale <= 0 {
		return 0
	}
	r := mathx.Clamp(resistance-offset, 0, scale-offset)
	return mathx.Clamp(int(r/scale*100.0), 0, 100)
}

// FuelLitres converts a fill level to litres for a tank of the given size.
func FuelLitres(percent, tankLitres int) int {
	if tankLitres <= 0 {
		return 0
	}
	return mathx.Clamp(percent, 0, 100) * tankLitres / 100
}

// WaterTemperatureCelsius converts coolant sender resistance to degrees. It
// reuses the fuel offset and scale and has no upper clamp.
func WaterTemperatureCelsius(resistance, offset, scale float64) float32 {
	if scale <= 0 {
		return 0
	}
	r := mathx.Floor(float32(resistance-offset), 0)
	return r / float32(scale) * 100.0
}

// InternalTemperatureCelsius converts the board sensor voltage to degrees.
func InternalTemperatureCelsius(mv int, offsetMV, scale float32) float32 {
	if scale == 0 {
		return 0
	}
	return (float32(mv) - offsetMV) / scale
}

// FrequencyHz returns the rounded frequency for one pulse period, or 0 when
// the period is not positive.
func FrequencyHz(period time.Duration) int {
	if period <= 0 {
		return 0
	}
	return int(math.Round(float64(time.Second) / float64(period)))
}

// SpeedFromFrequency is an uncalibrated identity mapping. Frequencies that
// are negative or at/above maxHz yield 0.
func SpeedFromFrequency(freqHz, maxHz int) int {
	if freqHz < 0 || (maxHz > 0 && freqHz >= maxHz) {
		return 0
	}
	return freqHz
}

// Quantize rounds c to the nearest multiple of resolution. A non-positive
// resolution returns c unchanged.
func Quantize(c, resolution float32) float32 {
	if resolution <= 0 || math32.IsNaN(c) || math32.IsInf(c, 0) {
		return c
	}
	return math32.Floor(c/resolution+0.5) * resolution
}
