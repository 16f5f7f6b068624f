package sensor

import (
	"errors"
	"fmt"
	"math"
)

// AnalogInput is one analog-to-digital channel. ReadRaw returns a sample
// scaled to the full 16-bit range.
type AnalogInput interface {
	ReadRaw() (uint16, error)
}

// Hygrometer is a humidity/temperature module. Humidity is only valid
// after a successful Measure.
type Hygrometer interface {
	Measure() error
	Humidity() float64
}

const (
	FullScale        = 65535
	ReferenceVoltage = 3.3

	// Thermistor divider and beta model.
	SeriesResistanceK  = 10.0
	NominalResistanceK = 10.0
	NominalKelvin      = 273.15 + 25
	Beta               = 3950.0
	KelvinOffset       = 273.15
)

// ErrReferenceVoltage is returned for a full-scale thermistor sample: the
// divider voltage equals the reference and the resistance is unbounded.
var ErrReferenceVoltage = errors.New("thermistor voltage equals reference")

var ErrHumidityRange = errors.New("humidity outside 0..100")

type Fault struct {
	Sensor string
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("sensor %s: %v", f.Sensor, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func Voltage(raw uint16) float64 {
	return float64(raw) / FullScale * ReferenceVoltage
}

func CelsiusFromRaw(raw uint16) (float64, error) {
	if raw == FullScale {
		return 0, ErrReferenceVoltage
	}

	volt := Voltage(raw)
	rt := SeriesResistanceK * volt / (ReferenceVoltage - volt)
	kelvin := 1 / (1/NominalKelvin + math.Log(rt/NominalResistanceK)/Beta)

	return Round1(kelvin - KelvinOffset), nil
}

// LightPercentFromRaw inverts the photoresistor sample: a brighter room
// pulls the divider down and reads as a higher percentage.
func LightPercentFromRaw(raw uint16) float64 {
	return Round1(100 - float64(raw)/FullScale*100)
}

func Round1(v float64) float64 {
	r := math.Round(v*10) / 10
	if r == 0 {
		return 0
	}
	return r
}

func ReadTemperature(in AnalogInput) (float64, error) {
	raw, err := in.ReadRaw()
	if err != nil {
		return 0, &Fault{Sensor: "thermistor", Err: err}
	}

	c, err := CelsiusFromRaw(raw)
	if err != nil {
		return 0, &Fault{Sensor: "thermistor", Err: err}
	}
	return c, nil
}

func ReadLight(in AnalogInput) (float64, error) {
	raw, err := in.ReadRaw()
	if err != nil {
		return 0, &Fault{Sensor: "photoresistor", Err: err}
	}
	return LightPercentFromRaw(raw), nil
}

func MeasureHumidity(h Hygrometer) (float64, error) {
	if err := h.Measure(); err != nil {
		return 0, &Fault{Sensor: "hygrometer", Err: err}
	}

	v := h.Humidity()
	if math.IsNaN(v) || v < 0 || v > 100 {
		return 0, &Fault{Sensor: "hygrometer", Err: fmt.Errorf("%w: %v", ErrHumidityRange, v)}
	}
	return Round1(v), nil
}
