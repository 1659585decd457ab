package adc

import (
	"fmt"
	"sync"
)

// FakePeripheral is a test double with scripted values and errors.
type FakePeripheral struct {
	mu         sync.Mutex
	scripts    map[int][]int
	readErr    map[int]error
	confErr    map[int]error
	configured map[int]bool
	reads      map[int]int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePeripheral creates a FakePeripheral with no channels scripted.
func NewFakePeripheral() *FakePeripheral {
	return &FakePeripheral{
		scripts:    make(map[int][]int),
		readErr:    make(map[int]error),
		confErr:    make(map[int]error),
		configured: make(map[int]bool),
		reads:      make(map[int]int),
	}
}

// Script queues raw values for ch. Once the script is used up the last
// value repeats.
func (f *FakePeripheral) Script(ch int, raws ...int) {
	f.mu.Lock()
	f.scripts[ch] = append(f.scripts[ch], raws...)
	f.mu.Unlock()
}

// Set replaces the script of ch with a single repeating value.
func (f *FakePeripheral) Set(ch, raw int) {
	f.mu.Lock()
	f.scripts[ch] = []int{raw}
	f.mu.Unlock()
}

// FailRead makes reads of ch return err until cleared with nil.
func (f *FakePeripheral) FailRead(ch int, err error) {
	f.mu.Lock()
	f.readErr[ch] = err
	f.mu.Unlock()
}

// FailConfigure makes Configure of ch return err.
func (f *FakePeripheral) FailConfigure(ch int, err error) {
	f.mu.Lock()
	f.confErr[ch] = err
	f.mu.Unlock()
}

// Reads returns how many successful reads ch has served.
func (f *FakePeripheral) Reads(ch int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[ch]
}

func (f *FakePeripheral) Configure(ch int, width BitWidth, atten Attenuation) (Curve, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.confErr[ch]; err != nil {
		return Curve{}, err
	}
	f.configured[ch] = true
	return Curve{FullScaleMV: atten.FullScaleMV(), MaxRaw: width.MaxRaw()}, nil
}

func (f *FakePeripheral) Read(ch int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.configured[ch] {
		return 0, fmt.Errorf("fake channel %d: %w", ch, ErrUnknownChannel)
	}
	if err := f.readErr[ch]; err != nil {
		return 0, err
	}
	s := f.scripts[ch]
	if len(s) == 0 {
		return 0, nil
	}
	v := s[0]
	if len(s) > 1 {
		f.scripts[ch] = s[1:]
	}
	f.reads[ch]++
	return v, nil
}

func (f *FakePeripheral) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
