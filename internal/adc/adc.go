// Package adc samples the analog sensor inputs. A Peripheral does the
// hardware access; Reader adds per-channel calibration and the stale-value
// policy used by the sensor engine.
package adc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownChannel is returned for channels a peripheral does not have or
// that were never configured.
var ErrUnknownChannel = errors.New("adc: unknown channel")

// Attenuation selects the input range of a channel.
type Attenuation int

const (
	Atten0dB Attenuation = iota
	Atten2_5dB
	Atten6dB
	Atten12dB
)

// FullScaleMV is the highest input voltage the attenuation can measure.
func (a Attenuation) FullScaleMV() int {
	switch a {
	case Atten0dB:
		return 950
	case Atten2_5dB:
		return 1250
	case Atten6dB:
		return 1750
	case Atten12dB:
		return 3100
	}
	return 0
}

func (a Attenuation) String() string {
	switch a {
	case Atten0dB:
		return "0db"
	case Atten2_5dB:
		return "2.5db"
	case Atten6dB:
		return "6db"
	case Atten12dB:
		return "12db"
	}
	return fmt.Sprintf("atten(%d)", int(a))
}

// Valid reports whether a is one of the defined attenuations.
func (a Attenuation) Valid() bool {
	return a >= Atten0dB && a <= Atten12dB
}

// ParseAttenuation accepts "0db", "2.5db", "6db" and "12db" (case-insensitive,
// the "db" suffix is optional).
func ParseAttenuation(s string) (Attenuation, error) {
	v := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "db")
	switch v {
	case "0":
		return Atten0dB, nil
	case "2.5":
		return Atten2_5dB, nil
	case "6":
		return Atten6dB, nil
	case "12":
		return Atten12dB, nil
	}
	return 0, fmt.Errorf("unknown attenuation %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Attenuation) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Attenuation) UnmarshalText(b []byte) error {
	v, err := ParseAttenuation(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// BitWidth is the conversion resolution in bits.
type BitWidth int

const (
	MinBitWidth BitWidth = 9
	MaxBitWidth BitWidth = 13
)

// Valid reports whether w is a supported resolution.
func (w BitWidth) Valid() bool {
	return w >= MinBitWidth && w <= MaxBitWidth
}

// MaxRaw is the largest raw code at this width.
func (w BitWidth) MaxRaw() int {
	return 1<<uint(w) - 1
}

// Curve maps raw codes to millivolts. The mapping is linear from 0 to
// FullScaleMV over 0..MaxRaw.
type Curve struct {
	FullScaleMV int
	MaxRaw      int
}

// ToMillivolts converts a raw code. Codes outside 0..MaxRaw are clamped.
func (c Curve) ToMillivolts(raw int) int {
	if c.MaxRaw <= 0 || raw <= 0 {
		return 0
	}
	if raw >= c.MaxRaw {
		return c.FullScaleMV
	}
	return raw * c.FullScaleMV / c.MaxRaw
}

// Model is the calibration of one analog channel. It is fixed once
// Configure returns.
type Model struct {
	Curve
	ReferenceVolts float64
	SeriesOhms     float64
}

// Peripheral is the hardware side of the analog reader.
type Peripheral interface {
	// Configure sets resolution and attenuation of ch and returns the
	// raw-to-millivolt curve that applies to it.
	Configure(ch int, width BitWidth, atten Attenuation) (Curve, error)

	// Read performs one conversion on ch.
	Read(ch int) (int, error)

	// Close releases hardware resources.
	Close() error
}
