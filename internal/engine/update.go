package engine

import (
	"errors"

	"github.com/sweeney/cluster-sensor/internal/adc"
	"github.com/sweeney/cluster-sensor/internal/convert"
	"github.com/sweeney/cluster-sensor/internal/gpio"
)

// sampleMV reads one analog channel and converts it to millivolts. A failed
// read has already been logged by the reader; the cycle is skipped and the
// stored value stays as it was.
func (e *Engine) sampleMV(in AnalogInput, m adc.Model) (int, bool) {
	raw, err := e.adc.Sample(in.Channel)
	if err != nil {
		return 0, false
	}
	return m.ToMillivolts(raw), true
}

// resistance computes the sender resistance, skipping the cycle when the
// divider is saturated.
func (e *Engine) resistance(name string, mv int, m adc.Model) (float64, bool) {
	r, err := convert.VoltageDividerResistance(m.ReferenceVolts, mv, m.SeriesOhms)
	if err != nil {
		if errors.Is(err, convert.ErrDividerSaturated) {
			e.log.Warnf("%s: %d mV saturates the divider, skipping cycle", name, mv)
		} else {
			e.log.Warnf("%s: %v", name, err)
		}
		return 0, false
	}
	return r, true
}

func (e *Engine) temperature(c float32) float32 {
	return convert.Quantize(c, e.cfg.Calibration.TemperatureResolution)
}

// UpdateOilPressure samples the oil pressure switch voltage.
func (e *Engine) UpdateOilPressure() {
	if !e.oil.active() {
		return
	}
	mv, ok := e.sampleMV(e.cfg.Oil, e.oilModel)
	if !ok {
		return
	}
	cal := e.cfg.Calibration
	observe(e, e.oil, convert.OilPressurePresent(mv, cal.OilLowerMV, cal.OilUpperMV))
}

// UpdateFuelLevel samples the fuel sender and notifies both the percentage
// and the litre streams.
func (e *Engine) UpdateFuelLevel() {
	if !e.fuel.active() {
		return
	}
	mv, ok := e.sampleMV(e.cfg.Fuel, e.fuelModel)
	if !ok {
		return
	}
	r, ok := e.resistance("fuel level", mv, e.fuelModel)
	if !ok {
		return
	}
	cal := e.cfg.Calibration
	pct := convert.FuelPercent(r, cal.FuelOffset, cal.FuelScale)
	observe(e, e.fuel, pct)
	observe(e, e.litres, convert.FuelLitres(pct, cal.TankLitres))
}

// UpdateWaterTemperature samples the coolant sender.
func (e *Engine) UpdateWaterTemperature() {
	if !e.water.active() {
		return
	}
	mv, ok := e.sampleMV(e.cfg.Water, e.waterModel)
	if !ok {
		return
	}
	r, ok := e.resistance("water temperature", mv, e.waterModel)
	if !ok {
		return
	}
	cal := e.cfg.Calibration
	observe(e, e.water, e.temperature(convert.WaterTemperatureCelsius(r, cal.FuelOffset, cal.FuelScale)))
}

// UpdateInternalTemperature samples the board temperature sensor.
func (e *Engine) UpdateInternalTemperature() {
	if !e.internal.active() {
		return
	}
	mv, ok := e.sampleMV(e.cfg.Internal, e.internalModel)
	if !ok {
		return
	}
	cal := e.cfg.Calibration
	observe(e, e.internal, e.temperature(convert.InternalTemperatureCelsius(mv, cal.InternalOffsetMV, cal.InternalScale)))
}

// UpdateSpeed derives vehicle speed from the speed pulse train.
func (e *Engine) UpdateSpeed() {
	if !e.speed.active() {
		return
	}
	f, ok := e.frequency(e.speedSrc, &e.speedTimer)
	if !ok {
		return
	}
	observe(e, e.speed, convert.SpeedFromFrequency(f, e.cfg.Calibration.SpeedMaxHz))
}

// UpdateRPM derives engine speed from the ignition pulse train. Frequencies
// outside the tier table skip the cycle.
func (e *Engine) UpdateRPM() {
	if !e.rpm.active() {
		return
	}
	f, ok := e.frequency(e.rpmSrc, &e.rpmTimer)
	if !ok {
		return
	}
	if f == 0 {
		observe(e, e.rpm, 0)
		return
	}
	cal := e.cfg.Calibration
	if cal.RPMMaxHz > 0 && f >= cal.RPMMaxHz {
		return
	}
	rpm := cal.RPMTiers.RPM(f)
	if rpm == convert.Unknown {
		return
	}
	observe(e, e.rpm, rpm)
}

// frequency returns the pulse frequency of an input. A silent input reads
// 0 Hz; an invalid edge pair is reported as not ok.
func (e *Engine) frequency(src gpio.EdgeSource, t *gpio.EdgeTimer) (int, bool) {
	if stale := e.cfg.Calibration.EdgeStaleAfter; stale > 0 {
		last, seen := t.LastEdge()
		if !seen || src.Now()-last > stale {
			return 0, true
		}
	}
	d, ok := t.Interval()
	if !ok {
		return 0, false
	}
	return convert.FrequencyHz(d), true
}
