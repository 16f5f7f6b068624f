// Package sim provides simulated analog and humidity collaborators for
// running the agent without sensor hardware.
package sim

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

var ErrChecksum = errors.New("simulated checksum mismatch")

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// ADC wanders around a base sample by at most jitter counts per read.
type ADC struct {
	rng    *rand.Rand
	base   int
	jitter int
	value  int
}

func NewADC(seed int64, base, jitter uint16) *ADC {
	return &ADC{
		rng:    newRand(seed),
		base:   int(base),
		jitter: int(jitter),
		value:  int(base),
	}
}

func (a *ADC) ReadRaw() (uint16, error) {
	if a.jitter > 0 {
		a.value += a.rng.Intn(2*a.jitter+1) - a.jitter
		// Drift back toward the base so the walk stays bounded.
		a.value += (a.base - a.value) / 8
	}
	if a.value < 0 {
		a.value = 0
	}
	if a.value > math.MaxUint16 {
		a.value = math.MaxUint16
	}
	return uint16(a.value), nil
}

// Hygrometer behaves like a DHT11: whole-percent readings and occasional
// failed measurements.
type Hygrometer struct {
	rng         *rand.Rand
	humidity    float64
	base        float64
	failureRate float64
}

func NewHygrometer(seed int64, base, failureRate float64) *Hygrometer {
	return &Hygrometer{
		rng:         newRand(seed),
		base:        base,
		humidity:    base,
		failureRate: failureRate,
	}
}

func (h *Hygrometer) Measure() error {
	if h.failureRate > 0 && h.rng.Float64() < h.failureRate {
		return ErrChecksum
	}

	next := h.humidity + float64(h.rng.Intn(3)-1) + (h.base-h.humidity)/10
	h.humidity = math.Max(0, math.Min(100, math.Round(next)))
	return nil
}

func (h *Hygrometer) Humidity() float64 {
	return h.humidity
}
