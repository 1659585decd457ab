package adc

import (
	"fmt"
	"math/rand"
	"sync"
)

// SimChannels is the number of channels the simulated converter exposes.
const SimChannels = 8

// SimPeripheral produces slowly wandering values so the service can run on
// a bench without sensors attached.
type SimPeripheral struct {
	mu     sync.Mutex
	rng    *rand.Rand
	curves map[int]Curve
	values map[int]int
	step   int
}

// NewSimPeripheral creates a simulated converter. step is the largest change
// between two reads, in raw codes.
func NewSimPeripheral(seed int64, step int) *SimPeripheral {
	if step <= 0 {
		step = 4
	}
	return &SimPeripheral{
		rng:    rand.New(rand.NewSource(seed)),
		curves: make(map[int]Curve),
		values: make(map[int]int),
		step:   step,
	}
}

func (s *SimPeripheral) Configure(ch int, width BitWidth, atten Attenuation) (Curve, error) {
	if ch < 0 || ch >= SimChannels {
		return Curve{}, fmt.Errorf("sim channel %d: %w", ch, ErrUnknownChannel)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := Curve{FullScaleMV: atten.FullScaleMV(), MaxRaw: width.MaxRaw()}
	s.curves[ch] = c
	s.values[ch] = c.MaxRaw / 4
	return c, nil
}

func (s *SimPeripheral) Read(ch int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.curves[ch]
	if !ok {
		return 0, fmt.Errorf("sim channel %d: %w", ch, ErrUnknownChannel)
	}
	v := s.values[ch] + s.rng.Intn(2*s.step+1) - s.step
	if v < 0 {
		v = 0
	}
	if v > c.MaxRaw {
		v = c.MaxRaw
	}
	s.values[ch] = v
	return v, nil
}

// Set pins a channel to a raw value; later reads wander from there.
func (s *SimPeripheral) Set(ch, raw int) {
	s.mu.Lock()
	s.values[ch] = raw
	s.mu.Unlock()
}

func (s *SimPeripheral) Close() error { return nil }
