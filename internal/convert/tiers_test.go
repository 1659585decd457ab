package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPMInvalidFrequencies(t *testing.T) {
	for _, f := range []int{0, -1, -250, -100000} {
		assert.Equal(t, Unknown, DefaultRPMTiers.RPM(f), "f=%d", f)
	}
	assert.Equal(t, Unknown, DefaultRPMTiers.RPM(263))
	assert.Equal(t, Unknown, DefaultRPMTiers.RPM(299))
}

func TestRPMTierBoundaries(t *testing.T) {
	tests := []struct {
		freq int
		mult float64
	}{
		{1, 50.0},
		{8, 50.0},
		{9, 45.45},
		{11, 45.45},
		{12, 41.18},
		{25, 40.0},
		{26, 34.48},
		{56, 34.48},
		{57, 32.61},
		{188, 31.91},
		{262, 30.54},
	}
	for _, tt := range tests {
		m, ok := DefaultRPMTiers.Multiplier(tt.freq)
		require.True(t, ok, "f=%d", tt.freq)
		assert.Equal(t, tt.mult, m, "f=%d", tt.freq)
		assert.Equal(t, int(float64(tt.freq)*tt.mult), DefaultRPMTiers.RPM(tt.freq))
	}
	assert.Equal(t, 400, DefaultRPMTiers.RPM(8))
	assert.Equal(t, 1930, DefaultRPMTiers.RPM(56))
}

func TestRPMNonDecreasingWithinTier(t *testing.T) {
	lower := 1
	for _, tier := range DefaultRPMTiers {
		prev := DefaultRPMTiers.RPM(lower)
		for f := lower + 1; f <= tier.UpperHz; f++ {
			got := DefaultRPMTiers.RPM(f)
			if got < prev {
				t.Fatalf("tier <=%d: RPM(%d)=%d < RPM(%d)=%d", tier.UpperHz, f, got, f-1, prev)
			}
			prev = got
		}
		lower = tier.UpperHz + 1
	}
}

func TestRPMNeverPositiveForNonPositiveFrequency(t *testing.T) {
	for f := -1000; f <= 0; f++ {
		if got := DefaultRPMTiers.RPM(f); got > 0 {
			t.Fatalf("RPM(%d) = %d, want sentinel", f, got)
		}
	}
}

func TestTierTableValidate(t *testing.T) {
	require.NoError(t, DefaultRPMTiers.Validate())
	assert.Equal(t, 262, DefaultRPMTiers.MaxHz())

	assert.Error(t, TierTable{}.Validate())
	assert.Error(t, TierTable{{UpperHz: 10, Multiplier: 1}, {UpperHz: 10, Multiplier: 1}}.Validate())
	assert.Error(t, TierTable{{UpperHz: 10, Multiplier: 0}}.Validate())
	assert.Equal(t, 0, TierTable{}.MaxHz())
}
