package adc

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	ads1115PointerConv   = 0x00
	ads1115PointerConfig = 0x01

	// DefaultADS1115Address is the address with ADDR tied to GND.
	DefaultADS1115Address = 0x48

	ads1115Channels = 4
	ads1115MaxRaw   = 32767

	// 128 samples per second
	ads1115DataRate   = 0x4
	ads1115Conversion = 10 * time.Millisecond
)

// ADS1115 is a 16-bit, four channel I2C converter. Attenuation selects the
// programmable gain range that covers the requested full scale; the bit width
// is ignored because the part always converts at 16 bits.
type ADS1115 struct {
	dev *i2c.Dev
	bus i2c.BusCloser
	pga [ads1115Channels]byte

	// sleep waits for a single-shot conversion. Tests replace it.
	sleep func(time.Duration)
}

// OpenADS1115 initialises the host drivers and opens the device on bus.
// An empty bus name selects the first available bus.
func OpenADS1115(bus string, addr uint16) (*ADS1115, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	if addr == 0 {
		addr = DefaultADS1115Address
	}
	return &ADS1115{
		dev:   &i2c.Dev{Addr: addr, Bus: b},
		bus:   b,
		sleep: time.Sleep,
	}, nil
}

// pgaFor returns the gain bits and full scale in mV for an attenuation.
func pgaFor(a Attenuation) (byte, int) {
	switch a {
	case Atten0dB:
		return 0x3, 1024
	case Atten2_5dB, Atten6dB:
		return 0x2, 2048
	default:
		return 0x1, 4096
	}
}

// Configure records the gain for ch. The first conversion writes it.
func (d *ADS1115) Configure(ch int, width BitWidth, atten Attenuation) (Curve, error) {
	if ch < 0 || ch >= ads1115Channels {
		return Curve{}, fmt.Errorf("ads1115 channel %d: %w", ch, ErrUnknownChannel)
	}
	pga, fs := pgaFor(atten)
	d.pga[ch] = pga
	return Curve{FullScaleMV: fs, MaxRaw: ads1115MaxRaw}, nil
}

// Read starts a single-shot conversion on ch and returns the result.
// Negative codes (input below ground) read as 0.
func (d *ADS1115) Read(ch int) (int, error) {
	if ch < 0 || ch >= ads1115Channels {
		return 0, fmt.Errorf("ads1115 channel %d: %w", ch, ErrUnknownChannel)
	}
	msb, lsb := ads1115Config(ch, d.pga[ch])
	if err := d.dev.Tx([]byte{ads1115PointerConfig, msb, lsb}, nil); err != nil {
		return 0, fmt.Errorf("write config: %w", err)
	}
	d.sleep(ads1115Conversion)

	buf := make([]byte, 2)
	if err := d.dev.Tx([]byte{ads1115PointerConv}, buf); err != nil {
		return 0, fmt.Errorf("read conv: %w", err)
	}
	raw := int16(buf[0])<<8 | int16(buf[1])
	if raw < 0 {
		return 0, nil
	}
	return int(raw), nil
}

// ads1115Config builds the config register for a single-ended, single-shot
// conversion.
func ads1115Config(ch int, pga byte) (byte, byte) {
	var config uint16 = 0x8000 // OS = 1 (start single conversion)
	config |= uint16(0x4+ch) << 12
	config |= uint16(pga) << 9
	config |= 1 << 8 // single-shot mode
	config |= uint16(ads1115DataRate) << 5
	config |= 0x3 // comparator disabled
	return byte(config >> 8), byte(config & 0xFF)
}

// Close closes the I2C bus.
func (d *ADS1115) Close() error {
	if d.bus != nil {
		return d.bus.Close()
	}
	return nil
}
