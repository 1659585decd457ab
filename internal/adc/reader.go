package adc

import (
	"fmt"
	"sync"

	"github.com/sweeney/cluster-sensor/internal/logger"
)

// ChannelConfig describes how one analog input is wired.
type ChannelConfig struct {
	Channel        int
	Width          BitWidth
	Attenuation    Attenuation
	ReferenceVolts float64
	SeriesOhms     float64
}

// Reader wraps a Peripheral. Calls are serialised because the analog
// channels usually share one converter.
type Reader struct {
	p   Peripheral
	log logger.Logger

	mu     sync.Mutex
	models map[int]Model
	last   map[int]int
}

// NewReader creates a Reader over p.
func NewReader(p Peripheral, log logger.Logger) *Reader {
	if log == nil {
		log = logger.Discard
	}
	return &Reader{
		p:      p,
		log:    log,
		models: make(map[int]Model),
		last:   make(map[int]int),
	}
}

// Configure prepares a channel and returns its calibration model.
func (r *Reader) Configure(cc ChannelConfig) (Model, error) {
	if !cc.Width.Valid() {
		return Model{}, fmt.Errorf("configure adc channel %d: bit width %d out of range", cc.Channel, cc.Width)
	}
	if !cc.Attenuation.Valid() {
		return Model{}, fmt.Errorf("configure adc channel %d: invalid attenuation %d", cc.Channel, cc.Attenuation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	curve, err := r.p.Configure(cc.Channel, cc.Width, cc.Attenuation)
	if err != nil {
		return Model{}, fmt.Errorf("configure adc channel %d: %w", cc.Channel, err)
	}
	m := Model{Curve: curve, ReferenceVolts: cc.ReferenceVolts, SeriesOhms: cc.SeriesOhms}
	r.models[cc.Channel] = m
	return m, nil
}

// Sample performs one read. On failure it logs a warning and returns the
// previous raw value of the channel together with the error. There is no
// retry; the next scheduled cycle is the retry.
func (r *Reader) Sample(ch int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.models[ch]; !ok {
		return 0, fmt.Errorf("sample adc channel %d: %w", ch, ErrUnknownChannel)
	}

	raw, err := r.p.Read(ch)
	if err != nil {
		prev := r.last[ch]
		r.log.Warnf("adc: read channel %d failed, keeping raw %d: %v", ch, prev, err)
		return prev, fmt.Errorf("sample adc channel %d: %w", ch, err)
	}
	r.last[ch] = raw
	return raw, nil
}

// Model returns the calibration of a configured channel.
func (r *Reader) Model(ch int) (Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[ch]
	return m, ok
}

// Close closes the peripheral.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.p.Close()
}
