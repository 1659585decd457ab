package convert

import (
	"errors"
	"fmt"
)

// Tier maps every frequency up to and including UpperHz to a multiplier.
type Tier struct {
	UpperHz    int     `yaml:"upper_hz"`
	Multiplier float64 `yaml:"multiplier"`
}

// TierTable is an ordered, first-match-wins frequency to RPM table.
type TierTable []Tier

// DefaultRPMTiers is the ignition pulse table of the cluster's engine.
var DefaultRPMTiers = TierTable{
	{UpperHz: 8, Multiplier: 50.0},
	{UpperHz: 11, Multiplier: 45.45},
	{UpperHz: 17, Multiplier: 41.18},
	{UpperHz: 25, Multiplier: 40.0},
	{UpperHz: 56, Multiplier: 34.48},
	{UpperHz: 92, Multiplier: 32.61},
	{UpperHz: 123, Multiplier: 32.52},
	{UpperHz: 157, Multiplier: 31.85},
	{UpperHz: 188, Multiplier: 31.91},
	{UpperHz: 220, Multiplier: 31.82},
	{UpperHz: 262, Multiplier: 30.54},
}

// Multiplier returns the multiplier of the first tier whose bound is >= freqHz.
func (t TierTable) Multiplier(freqHz int) (float64, bool) {
	if freqHz <= 0 {
		return 0, false
	}
	for _, tier := range t {
		if freqHz <= tier.UpperHz {
			return tier.Multiplier, true
		}
	}
	return 0, false
}

// RPM converts a pulse frequency to engine speed, or Unknown when the
// frequency is not positive or beyond the last tier.
func (t TierTable) RPM(freqHz int) int {
	m, ok := t.Multiplier(freqHz)
	if !ok {
		return Unknown
	}
	return int(float64(freqHz) * m)
}

// MaxHz is the last tier's bound, or 0 for an empty table.
func (t TierTable) MaxHz() int {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].UpperHz
}

// Validate checks that bounds strictly increase and multipliers are positive.
func (t TierTable) Validate() error {
	if len(t) == 0 {
		return errors.New("rpm tier table is empty")
	}
	prev := 0
	for i, tier := range t {
		if tier.UpperHz <= prev {
			return fmt.Errorf("rpm tier %d: upper bound %d not above %d", i, tier.UpperHz, prev)
		}
		if tier.Multiplier <= 0 {
			return fmt.Errorf("rpm tier %d: multiplier %v must be positive", i, tier.Multiplier)
		}
		prev = tier.UpperHz
	}
	return nil
}
