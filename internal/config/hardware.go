package config

import (
	"fmt"
)

const (
	BackendSim = "sim"
	BackendIIO = "iio"
)

type HardwareConfig struct {
	Backend       string        `yaml:"backend" env:"HARDWARE_BACKEND" env-default:"sim"`
	Thermistor    ChannelConfig `yaml:"thermistor"`
	Photoresistor ChannelConfig `yaml:"photoresistor"`
	Hygrometer    HygroConfig   `yaml:"hygrometer"`
	Sim           SimConfig     `yaml:"sim"`
}

// ChannelConfig describes one analog input. Device is the IIO device
// directory (e.g. /sys/bus/iio/devices/iio:device0), Channel the voltage
// channel index and Bits the native sample width of the converter.
type ChannelConfig struct {
	Device  string `yaml:"device" env-default:"/sys/bus/iio/devices/iio:device0"`
	Channel int    `yaml:"channel"`
	Bits    int    `yaml:"bits" env-default:"12"`
}

type HygroConfig struct {
	Device string `yaml:"device" env-default:"/sys/bus/iio/devices/iio:device1"`
}

type SimConfig struct {
	Seed             int64   `yaml:"seed" env:"SIM_SEED"`
	ThermistorRaw    uint16  `yaml:"thermistor_raw" env-default:"32768"`
	PhotoresistorRaw uint16  `yaml:"photoresistor_raw" env-default:"20000"`
	Humidity         float64 `yaml:"humidity" env-default:"45"`
	Jitter           uint16  `yaml:"jitter" env-default:"400"`
	HumidityFailure  float64 `yaml:"humidity_failure" env:"SIM_HUMIDITY_FAILURE" env-default:"0.05"`
}

func (h HardwareConfig) validate() error {
	switch h.Backend {
	case BackendSim:
		if h.Sim.HumidityFailure < 0 || h.Sim.HumidityFailure > 1 {
			return fmt.Errorf("hardware.sim.humidity_failure must be within [0,1], got %v", h.Sim.HumidityFailure)
		}
	case BackendIIO:
		for name, ch := range map[string]ChannelConfig{
			"thermistor":    h.Thermistor,
			"photoresistor": h.Photoresistor,
		} {
			if ch.Device == "" {
				return fmt.Errorf("hardware.%s.device is required for iio backend", name)
			}
			if ch.Bits <= 0 || ch.Bits > 16 {
				return fmt.Errorf("hardware.%s.bits must be within 1..16, got %d", name, ch.Bits)
			}
		}
		if h.Hygrometer.Device == "" {
			return fmt.Errorf("hardware.hygrometer.device is required for iio backend")
		}
	default:
		return fmt.Errorf("unknown hardware.backend %q", h.Backend)
	}
	return nil
}
