// Package iio reads analog and humidity channels through the Linux
// Industrial I/O sysfs interface.
package iio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/speedwagon-io/multisensor/internal/config"
)

// ADC reads in_voltage<N>_raw and rescales the native sample width to the
// full 16-bit range.
type ADC struct {
	path string
	max  uint64
}

func NewADC(cfg config.ChannelConfig) *ADC {
	bits := cfg.Bits
	if bits <= 0 || bits > 16 {
		bits = 16
	}
	return &ADC{
		path: filepath.Join(cfg.Device, fmt.Sprintf("in_voltage%d_raw", cfg.Channel)),
		max:  1<<uint(bits) - 1,
	}
}

func (a *ADC) ReadRaw() (uint16, error) {
	v, err := readUint(a.path)
	if err != nil {
		return 0, err
	}
	if v > a.max {
		return 0, fmt.Errorf("sample %d exceeds %d-count range in %s", v, a.max, a.path)
	}
	return uint16(math.Round(float64(v) * math.MaxUint16 / float64(a.max))), nil
}

// Hygrometer reads in_humidityrelative_input, reported by the kernel in
// milli-percent (the dht11 driver exposes it this way).
type Hygrometer struct {
	path     string
	humidity float64
}

func NewHygrometer(cfg config.HygroConfig) *Hygrometer {
	return &Hygrometer{
		path: filepath.Join(cfg.Device, "in_humidityrelative_input"),
	}
}

func (h *Hygrometer) Measure() error {
	s, err := readValue(h.path)
	if err != nil {
		return err
	}
	milli, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", h.path, err)
	}
	h.humidity = float64(milli) / 1000
	return nil
}

func (h *Hygrometer) Humidity() float64 {
	return h.humidity
}

func readValue(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func readUint(path string) (uint64, error) {
	s, err := readValue(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return v, nil
}
