// Package engine samples the cluster's sensors and notifies consumers when a
// computed value changes. One Engine owns all channel state, calibration,
// edge timers and the callback registry; there are no package globals.
package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sweeney/cluster-sensor/internal/adc"
	"github.com/sweeney/cluster-sensor/internal/gpio"
	"github.com/sweeney/cluster-sensor/internal/logger"
	"github.com/sweeney/cluster-sensor/internal/scheduler"
	"github.com/sweeney/cluster-sensor/internal/sensor"
)

// ErrRegistrySealed is returned by Register once the update tasks have been
// handed out.
var ErrRegistrySealed = errors.New("engine: callback registry sealed")

// ErrUnknownKind is returned when registering for a kind that does not exist.
var ErrUnknownKind = errors.New("engine: unknown sensor kind")

// Deps are the peripherals and services the engine uses. Nil peripherals
// leave the corresponding channels degraded.
type Deps struct {
	ADC   *adc.Reader
	Speed gpio.EdgeSource
	RPM   gpio.EdgeSource
	Log   logger.Logger
	Now   func() time.Time
}

// HealthStatus summarises setup.
type HealthStatus int

const (
	// HealthOK means every channel is active.
	HealthOK HealthStatus = iota
	// HealthDegraded means at least one channel failed setup.
	HealthDegraded
	// HealthFailed means no channel is active.
	HealthFailed
)

func (s HealthStatus) String() string {
	switch s {
	case HealthOK:
		return "OK"
	case HealthDegraded:
		return "DEGRADED"
	case HealthFailed:
		return "FAILED"
	}
	return fmt.Sprintf("HealthStatus(%d)", int(s))
}

// Health is the setup result returned by New.
type Health struct {
	Status   HealthStatus
	Degraded []sensor.Kind
}

func (h Health) String() string {
	if len(h.Degraded) == 0 {
		return h.Status.String()
	}
	names := make([]string, len(h.Degraded))
	for i, k := range h.Degraded {
		names[i] = string(k)
	}
	return fmt.Sprintf("%s (degraded: %s)", h.Status, strings.Join(names, ", "))
}

// Engine is the sensor engine aggregate.
type Engine struct {
	cfg Config
	adc *adc.Reader
	log logger.Logger
	now func() time.Time

	speedSrc   gpio.EdgeSource
	rpmSrc     gpio.EdgeSource
	speedTimer gpio.EdgeTimer
	rpmTimer   gpio.EdgeTimer

	oilModel      adc.Model
	fuelModel     adc.Model
	waterModel    adc.Model
	internalModel adc.Model

	oil      *stream[bool]
	fuel     *stream[int]
	litres   *stream[int]
	water    *stream[float32]
	internal *stream[float32]
	speed    *stream[int]
	rpm      *stream[int]
	streams  map[sensor.Kind]statusSource

	regMu     sync.RWMutex
	callbacks map[sensor.Kind]sensor.Callback
	baseline  sensor.Callback
	sealed    bool

	closeOnce sync.Once
}

// New configures every channel and enables edge capture. A channel whose
// setup fails is marked degraded, logged once at error level, and never
// notifies; the others are unaffected.
func New(cfg Config, d Deps) (*Engine, Health) {
	if d.Log == nil {
		d.Log = logger.Discard
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	e := &Engine{
		cfg:      cfg,
		adc:      d.ADC,
		log:      d.Log,
		now:      d.Now,
		speedSrc: d.Speed,
		rpmSrc:   d.RPM,

		oil:      newStream(sensor.OilPressure, func(v bool) sensor.Value { return sensor.Pressure(v) }),
		fuel:     newStream(sensor.FuelLevelPercent, func(v int) sensor.Value { return sensor.Percent(v) }),
		litres:   newStream(sensor.FuelLevelLitre, func(v int) sensor.Value { return sensor.Litres(v) }),
		water:    newStream(sensor.WaterTemperature, func(v float32) sensor.Value { return sensor.Celsius(v) }),
		internal: newStream(sensor.InternalTemperature, func(v float32) sensor.Value { return sensor.Celsius(v) }),
		speed:    newStream(sensor.Speed, func(v int) sensor.Value { return sensor.KMH(v) }),
		rpm:      newStream(sensor.RPM, func(v int) sensor.Value { return sensor.RPMValue(v) }),

		callbacks: make(map[sensor.Kind]sensor.Callback),
	}
	e.streams = map[sensor.Kind]statusSource{
		sensor.OilPressure:         e.oil,
		sensor.FuelLevelPercent:    e.fuel,
		sensor.FuelLevelLitre:      e.litres,
		sensor.WaterTemperature:    e.water,
		sensor.InternalTemperature: e.internal,
		sensor.Speed:               e.speed,
		sensor.RPM:                 e.rpm,
	}

	var degraded []sensor.Kind
	fail := func(kind sensor.Kind, err error) {
		e.log.Errorf("engine: %s setup failed, channel degraded: %v", kind, err)
		degraded = append(degraded, kind)
	}

	cal := cfg.Calibration
	setupAnalog := func(kind sensor.Kind, in AnalogInput, series float64, model *adc.Model, activate, degrade func()) {
		if e.adc == nil {
			degrade()
			fail(kind, errors.New("no analog reader"))
			return
		}
		m, err := e.adc.Configure(adc.ChannelConfig{
			Channel:        in.Channel,
			Width:          in.Width,
			Attenuation:    in.Attenuation,
			ReferenceVolts: cal.ReferenceVolts,
			SeriesOhms:     series,
		})
		if err != nil {
			degrade()
			fail(kind, err)
			return
		}
		*model = m
		activate()
	}

	setupAnalog(sensor.OilPressure, cfg.Oil, cal.OilSeriesOhms, &e.oilModel, e.oil.activate, e.oil.degrade)
	setupAnalog(sensor.FuelLevelPercent, cfg.Fuel, cal.FuelSeriesOhms, &e.fuelModel,
		func() { e.fuel.activate(); e.litres.activate() },
		func() { e.fuel.degrade(); e.litres.degrade() })
	if e.fuel.degraded.Load() {
		degraded = append(degraded, sensor.FuelLevelLitre)
	}
	setupAnalog(sensor.WaterTemperature, cfg.Water, cal.WaterSeriesOhms, &e.waterModel, e.water.activate, e.water.degrade)
	setupAnalog(sensor.InternalTemperature, cfg.Internal, 0, &e.internalModel, e.internal.activate, e.internal.degrade)

	setupEdge := func(kind sensor.Kind, src gpio.EdgeSource, timer *gpio.EdgeTimer, s *stream[int]) {
		if src == nil {
			s.degrade()
			fail(kind, errors.New("no edge source"))
			return
		}
		if err := src.EnableEdgeCapture(timer.OnFallingEdge); err != nil {
			s.degrade()
			fail(kind, err)
			return
		}
		s.activate()
	}
	setupEdge(sensor.Speed, e.speedSrc, &e.speedTimer, e.speed)
	setupEdge(sensor.RPM, e.rpmSrc, &e.rpmTimer, e.rpm)

	h := Health{Status: HealthOK, Degraded: degraded}
	switch {
	case len(degraded) == len(sensor.Kinds):
		h.Status = HealthFailed
	case len(degraded) > 0:
		h.Status = HealthDegraded
	}
	return e, h
}

// Register sets the callback for kind, replacing any earlier one. A nil
// callback clears the slot. Registration is only possible before Tasks.
func (e *Engine) Register(kind sensor.Kind, cb sensor.Callback) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	e.regMu.Lock()
	defer e.regMu.Unlock()
	if e.sealed {
		return ErrRegistrySealed
	}
	if cb == nil {
		delete(e.callbacks, kind)
		return nil
	}
	e.callbacks[kind] = cb
	return nil
}

func (e *Engine) callback(kind sensor.Kind) sensor.Callback {
	e.regMu.RLock()
	defer e.regMu.RUnlock()
	return e.callbacks[kind]
}

// OnBaseline sets a hook that receives the first value of every stream,
// once, on the stream's update task. Baselines are not change notifications:
// registered callbacks never see them and they do not count as dispatched.
// Like Register it must be called before Tasks.
func (e *Engine) OnBaseline(cb sensor.Callback) error {
	e.regMu.Lock()
	defer e.regMu.Unlock()
	if e.sealed {
		return ErrRegistrySealed
	}
	e.baseline = cb
	return nil
}

func (e *Engine) baselineHook() sensor.Callback {
	e.regMu.RLock()
	defer e.regMu.RUnlock()
	return e.baseline
}

// Tasks returns the six periodic update activities and seals the callback
// registry.
func (e *Engine) Tasks() []scheduler.Task {
	e.regMu.Lock()
	e.sealed = true
	e.regMu.Unlock()

	sc := e.cfg.Schedule
	return []scheduler.Task{
		{Name: string(sensor.OilPressure), Period: sc.Oil.Period, Priority: sc.Oil.Priority, Run: e.UpdateOilPressure},
		{Name: "fuel_level", Period: sc.Fuel.Period, Priority: sc.Fuel.Priority, Run: e.UpdateFuelLevel},
		{Name: string(sensor.WaterTemperature), Period: sc.Water.Period, Priority: sc.Water.Priority, Run: e.UpdateWaterTemperature},
		{Name: string(sensor.InternalTemperature), Period: sc.Internal.Period, Priority: sc.Internal.Priority, Run: e.UpdateInternalTemperature},
		{Name: string(sensor.Speed), Period: sc.Speed.Period, Priority: sc.Speed.Priority, Run: e.UpdateSpeed},
		{Name: string(sensor.RPM), Period: sc.RPM.Period, Priority: sc.RPM.Priority, Run: e.UpdateRPM},
	}
}

// Snapshot returns the status of every notification stream.
func (e *Engine) Snapshot() []sensor.ChannelStatus {
	out := make([]sensor.ChannelStatus, 0, len(sensor.Kinds))
	for _, k := range sensor.Kinds {
		out = append(out, e.streams[k].status())
	}
	return out
}

// Degraded reports whether kind failed setup. Unknown kinds report false.
func (e *Engine) Degraded(kind sensor.Kind) bool {
	s, ok := e.streams[kind]
	if !ok {
		return false
	}
	return s.status().Degraded
}

// Value returns the current value of kind, if one has been read.
func (e *Engine) Value(kind sensor.Kind) (sensor.Value, bool) {
	s, ok := e.streams[kind]
	if !ok {
		return nil, false
	}
	v := s.status().Value
	return v, v != nil
}

// Close disables edge capture on both pulse inputs. The peripherals
// themselves belong to the caller.
func (e *Engine) Close() error {
	var errs []error
	e.closeOnce.Do(func() {
		for _, src := range []gpio.EdgeSource{e.speedSrc, e.rpmSrc} {
			if src == nil {
				continue
			}
			if err := src.DisableEdgeCapture(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
