// Package config loads the service configuration from YAML. Missing files
// and missing fields fall back to defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/cluster-sensor/internal/adc"
	"github.com/sweeney/cluster-sensor/internal/convert"
	"github.com/sweeney/cluster-sensor/internal/engine"
	"github.com/sweeney/cluster-sensor/internal/gpio"
	"github.com/sweeney/cluster-sensor/internal/logger"
)

// Hardware backends.
const (
	BackendADS1115 = "ads1115"
	BackendSim     = "sim"
)

// Config represents the application configuration.
type Config struct {
	Hardware    HardwareConfig    `yaml:"hardware"`
	Channels    ChannelsConfig    `yaml:"channels"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	HTTP        HTTPConfig        `yaml:"http"`
	Heartbeat   time.Duration     `yaml:"heartbeat"` // 0 disables
	Log         LogConfig         `yaml:"log"`
}

// HardwareConfig selects and addresses the peripherals.
type HardwareConfig struct {
	Backend    string `yaml:"backend"`
	I2CBus     string `yaml:"i2c_bus"` // empty selects the first bus
	I2CAddress uint16 `yaml:"i2c_address"`
	GPIOChip   string `yaml:"gpio_chip"`
	PinSpeed   int    `yaml:"pin_speed"`
	PinRPM     int    `yaml:"pin_rpm"`

	// Simulation backend only
	SimSeed        int64         `yaml:"sim_seed"`
	SimSpeedPeriod time.Duration `yaml:"sim_speed_period"`
	SimRPMPeriod   time.Duration `yaml:"sim_rpm_period"`
}

// AnalogChannelConfig wires one analog sensor.
type AnalogChannelConfig struct {
	Channel     int             `yaml:"channel"`
	BitWidth    int             `yaml:"bit_width"`
	Attenuation adc.Attenuation `yaml:"attenuation"`
}

// ChannelsConfig holds the analog inputs.
type ChannelsConfig struct {
	Oil      AnalogChannelConfig `yaml:"oil_pressure"`
	Fuel     AnalogChannelConfig `yaml:"fuel_level"`
	Water    AnalogChannelConfig `yaml:"water_temperature"`
	Internal AnalogChannelConfig `yaml:"internal_temperature"`
}

// CalibrationConfig contains the conversion constants.
type CalibrationConfig struct {
	ReferenceVolts        float64           `yaml:"reference_volts"`
	OilSeriesOhms         float64           `yaml:"oil_series_ohms"`
	FuelSeriesOhms        float64           `yaml:"fuel_series_ohms"`
	WaterSeriesOhms       float64           `yaml:"water_series_ohms"`
	OilLowerMV            int               `yaml:"oil_lower_mv"`
	OilUpperMV            int               `yaml:"oil_upper_mv"`
	FuelOffset            float64           `yaml:"fuel_offset"`
	FuelScale             float64           `yaml:"fuel_scale"`
	TankLitres            int               `yaml:"tank_litres"`
	InternalOffsetMV      float32           `yaml:"internal_offset_mv"`
	InternalScale         float32           `yaml:"internal_scale"`
	RPMTiers              convert.TierTable `yaml:"rpm_tiers"`
	RPMMaxHz              int               `yaml:"rpm_max_hz"`
	SpeedMaxHz            int               `yaml:"speed_max_hz"`
	EdgeStaleAfter        time.Duration     `yaml:"edge_stale_after"`
	TemperatureResolution float32           `yaml:"temperature_resolution"` // 0 = exact comparison
}

// TimingConfig is the cadence of one update task.
type TimingConfig struct {
	Period   time.Duration `yaml:"period"`
	Priority int           `yaml:"priority"`
}

// ScheduleConfig holds the six update tasks.
type ScheduleConfig struct {
	Oil      TimingConfig `yaml:"oil_pressure"`
	Fuel     TimingConfig `yaml:"fuel_level"`
	Water    TimingConfig `yaml:"water_temperature"`
	Internal TimingConfig `yaml:"internal_temperature"`
	Speed    TimingConfig `yaml:"speed"`
	RPM      TimingConfig `yaml:"rpm"`
}

// MQTTConfig contains broker settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	BufferSize  int    `yaml:"buffer_size"`
}

// HTTPConfig contains the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig selects the log level and extra sinks.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Serial     string `yaml:"serial"`
	SerialBaud int    `yaml:"serial_baud"`
	QueueSize  int    `yaml:"queue_size"`
}

// Default returns a default configuration for the cluster with an ADS1115
// converter.
func Default() *Config {
	ec := engine.DefaultConfig()
	return &Config{
		Hardware: HardwareConfig{
			Backend:        BackendADS1115,
			I2CAddress:     adc.DefaultADS1115Address,
			GPIOChip:       gpio.DefaultChip,
			PinSpeed:       gpio.DefaultPinSpeed,
			PinRPM:         gpio.DefaultPinRPM,
			SimSeed:        1,
			SimSpeedPeriod: 20 * time.Millisecond,
			SimRPMPeriod:   40 * time.Millisecond,
		},
		Channels: ChannelsConfig{
			Oil:   analogFrom(ec.Oil),
			Fuel:  analogFrom(ec.Fuel),
			Water: analogFrom(ec.Water),
			// The ADS1115 only has four inputs
			Internal: AnalogChannelConfig{Channel: 3, BitWidth: int(ec.Internal.Width), Attenuation: ec.Internal.Attenuation},
		},
		Calibration: CalibrationConfig{
			ReferenceVolts:        ec.Calibration.ReferenceVolts,
			OilSeriesOhms:         ec.Calibration.OilSeriesOhms,
			FuelSeriesOhms:        ec.Calibration.FuelSeriesOhms,
			WaterSeriesOhms:       ec.Calibration.WaterSeriesOhms,
			OilLowerMV:            ec.Calibration.OilLowerMV,
			OilUpperMV:            ec.Calibration.OilUpperMV,
			FuelOffset:            ec.Calibration.FuelOffset,
			FuelScale:             ec.Calibration.FuelScale,
			TankLitres:            ec.Calibration.TankLitres,
			InternalOffsetMV:      ec.Calibration.InternalOffsetMV,
			InternalScale:         ec.Calibration.InternalScale,
			RPMTiers:              append(convert.TierTable(nil), ec.Calibration.RPMTiers...),
			RPMMaxHz:              ec.Calibration.RPMMaxHz,
			SpeedMaxHz:            ec.Calibration.SpeedMaxHz,
			EdgeStaleAfter:        ec.Calibration.EdgeStaleAfter,
			TemperatureResolution: ec.Calibration.TemperatureResolution,
		},
		Schedule: ScheduleConfig{
			Oil:      timingFrom(ec.Schedule.Oil),
			Fuel:     timingFrom(ec.Schedule.Fuel),
			Water:    timingFrom(ec.Schedule.Water),
			Internal: timingFrom(ec.Schedule.Internal),
			Speed:    timingFrom(ec.Schedule.Speed),
			RPM:      timingFrom(ec.Schedule.RPM),
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			ClientID:    "cluster-sensor",
			TopicPrefix: "vehicle/cluster",
			BufferSize:  1000,
		},
		HTTP:      HTTPConfig{Addr: ":80"},
		Heartbeat: 15 * time.Minute,
		Log: LogConfig{
			Level:      "info",
			SerialBaud: logger.DefaultBaudRate,
			QueueSize:  logger.DefaultQueueSize,
		},
	}
}

func analogFrom(in engine.AnalogInput) AnalogChannelConfig {
	return AnalogChannelConfig{Channel: in.Channel, BitWidth: int(in.Width), Attenuation: in.Attenuation}
}

func timingFrom(t engine.Timing) TimingConfig {
	return TimingConfig{Period: t.Period, Priority: t.Priority}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills fields that were explicitly zeroed in the file but
// have no meaningful zero value.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Hardware.Backend == "" {
		c.Hardware.Backend = def.Hardware.Backend
	}
	if c.Hardware.I2CAddress == 0 {
		c.Hardware.I2CAddress = def.Hardware.I2CAddress
	}
	if c.Hardware.GPIOChip == "" {
		c.Hardware.GPIOChip = def.Hardware.GPIOChip
	}
	if c.Hardware.SimSpeedPeriod == 0 {
		c.Hardware.SimSpeedPeriod = def.Hardware.SimSpeedPeriod
	}
	if c.Hardware.SimRPMPeriod == 0 {
		c.Hardware.SimRPMPeriod = def.Hardware.SimRPMPeriod
	}

	for _, p := range []struct{ got, def *AnalogChannelConfig }{
		{&c.Channels.Oil, &def.Channels.Oil},
		{&c.Channels.Fuel, &def.Channels.Fuel},
		{&c.Channels.Water, &def.Channels.Water},
		{&c.Channels.Internal, &def.Channels.Internal},
	} {
		if p.got.BitWidth == 0 {
			p.got.BitWidth = p.def.BitWidth
		}
	}

	if c.Calibration.ReferenceVolts == 0 {
		c.Calibration.ReferenceVolts = def.Calibration.ReferenceVolts
	}
	if c.Calibration.OilSeriesOhms == 0 {
		c.Calibration.OilSeriesOhms = def.Calibration.OilSeriesOhms
	}
	if c.Calibration.FuelSeriesOhms == 0 {
		c.Calibration.FuelSeriesOhms = def.Calibration.FuelSeriesOhms
	}
	if c.Calibration.WaterSeriesOhms == 0 {
		c.Calibration.WaterSeriesOhms = def.Calibration.WaterSeriesOhms
	}
	if c.Calibration.FuelScale == 0 {
		c.Calibration.FuelScale = def.Calibration.FuelScale
	}
	if c.Calibration.InternalScale == 0 {
		c.Calibration.InternalScale = def.Calibration.InternalScale
	}
	if len(c.Calibration.RPMTiers) == 0 {
		c.Calibration.RPMTiers = def.Calibration.RPMTiers
	}

	for _, p := range []struct{ got, def *TimingConfig }{
		{&c.Schedule.Oil, &def.Schedule.Oil},
		{&c.Schedule.Fuel, &def.Schedule.Fuel},
		{&c.Schedule.Water, &def.Schedule.Water},
		{&c.Schedule.Internal, &def.Schedule.Internal},
		{&c.Schedule.Speed, &def.Schedule.Speed},
		{&c.Schedule.RPM, &def.Schedule.RPM},
	} {
		if p.got.Period == 0 {
			p.got.Period = p.def.Period
		}
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}
	if c.MQTT.BufferSize == 0 {
		c.MQTT.BufferSize = def.MQTT.BufferSize
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.SerialBaud == 0 {
		c.Log.SerialBaud = def.Log.SerialBaud
	}
	if c.Log.QueueSize == 0 {
		c.Log.QueueSize = def.Log.QueueSize
	}
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	maxChannel := adc.SimChannels
	switch c.Hardware.Backend {
	case BackendADS1115:
		maxChannel = 4
	case BackendSim:
	default:
		add("hardware.backend: unknown backend %q", c.Hardware.Backend)
	}

	for name, ch := range map[string]AnalogChannelConfig{
		"oil_pressure":         c.Channels.Oil,
		"fuel_level":           c.Channels.Fuel,
		"water_temperature":    c.Channels.Water,
		"internal_temperature": c.Channels.Internal,
	} {
		if ch.Channel < 0 || ch.Channel >= maxChannel {
			add("channels.%s.channel: %d not available on %s", name, ch.Channel, c.Hardware.Backend)
		}
		if !adc.BitWidth(ch.BitWidth).Valid() {
			add("channels.%s.bit_width: %d outside %d..%d", name, ch.BitWidth, adc.MinBitWidth, adc.MaxBitWidth)
		}
		if !ch.Attenuation.Valid() {
			add("channels.%s.attenuation: invalid", name)
		}
	}

	cal := c.Calibration
	if cal.ReferenceVolts <= 0 {
		add("calibration.reference_volts: must be positive")
	}
	if cal.OilLowerMV >= cal.OilUpperMV {
		add("calibration: oil window (%d, %d) is empty", cal.OilLowerMV, cal.OilUpperMV)
	}
	if cal.FuelScale <= cal.FuelOffset {
		add("calibration: fuel_scale %.1f must exceed fuel_offset %.1f", cal.FuelScale, cal.FuelOffset)
	}
	if cal.TankLitres < 0 {
		add("calibration.tank_litres: must not be negative")
	}
	if err := cal.RPMTiers.Validate(); err != nil {
		add("calibration.rpm_tiers: %v", err)
	}
	if cal.EdgeStaleAfter < 0 {
		add("calibration.edge_stale_after: must not be negative")
	}
	if cal.TemperatureResolution < 0 {
		add("calibration.temperature_resolution: must not be negative")
	}

	for name, tc := range map[string]TimingConfig{
		"oil_pressure":         c.Schedule.Oil,
		"fuel_level":           c.Schedule.Fuel,
		"water_temperature":    c.Schedule.Water,
		"internal_temperature": c.Schedule.Internal,
		"speed":                c.Schedule.Speed,
		"rpm":                  c.Schedule.RPM,
	} {
		if tc.Period <= 0 {
			add("schedule.%s.period: must be positive", name)
		}
	}

	if c.Heartbeat < 0 {
		add("heartbeat: must not be negative")
	}
	if c.MQTT.BufferSize < 0 {
		add("mqtt.buffer_size: must not be negative")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}

	return errors.Join(errs...)
}

// Engine converts the configuration to the engine's form.
func (c *Config) Engine() engine.Config {
	analog := func(a AnalogChannelConfig) engine.AnalogInput {
		return engine.AnalogInput{Channel: a.Channel, Width: adc.BitWidth(a.BitWidth), Attenuation: a.Attenuation}
	}
	timing := func(t TimingConfig) engine.Timing {
		return engine.Timing{Period: t.Period, Priority: t.Priority}
	}
	cal := c.Calibration
	return engine.Config{
		Oil:      analog(c.Channels.Oil),
		Fuel:     analog(c.Channels.Fuel),
		Water:    analog(c.Channels.Water),
		Internal: analog(c.Channels.Internal),
		Calibration: engine.Calibration{
			ReferenceVolts:        cal.ReferenceVolts,
			OilSeriesOhms:         cal.OilSeriesOhms,
			FuelSeriesOhms:        cal.FuelSeriesOhms,
			WaterSeriesOhms:       cal.WaterSeriesOhms,
			OilLowerMV:            cal.OilLowerMV,
			OilUpperMV:            cal.OilUpperMV,
			FuelOffset:            cal.FuelOffset,
			FuelScale:             cal.FuelScale,
			TankLitres:            cal.TankLitres,
			InternalOffsetMV:      cal.InternalOffsetMV,
			InternalScale:         cal.InternalScale,
			RPMTiers:              cal.RPMTiers,
			RPMMaxHz:              cal.RPMMaxHz,
			SpeedMaxHz:            cal.SpeedMaxHz,
			EdgeStaleAfter:        cal.EdgeStaleAfter,
			TemperatureResolution: cal.TemperatureResolution,
		},
		Schedule: engine.Schedule{
			Oil:      timing(c.Schedule.Oil),
			Fuel:     timing(c.Schedule.Fuel),
			Water:    timing(c.Schedule.Water),
			Internal: timing(c.Schedule.Internal),
			Speed:    timing(c.Schedule.Speed),
			RPM:      timing(c.Schedule.RPM),
		},
	}
}
