package display

import (
	"errors"
	"fmt"

	"github.com/speedwagon-io/multisensor/internal/model"
)

const (
	Rows    = 2
	Columns = 16

	// Row 1 is split between light and humidity.
	HumidityColumn = 8
)

var ErrCursorOutOfRange = errors.New("cursor out of range")

// Display is a character-cell display.
type Display interface {
	Clear() error
	MoveCursor(col, row int) error
	WriteText(s string) error
}

// Flusher is implemented by displays that buffer a frame before showing it.
type Flusher interface {
	Flush() error
}

// Render clears d and draws the three readings:
//
//	T:23.4C
//	L:61.2% H:45%
func Render(d Display, r model.Readings) error {
	if err := d.Clear(); err != nil {
		return fmt.Errorf("failed to clear display: %w", err)
	}

	cells := []struct {
		col, row int
		text     string
	}{
		{0, 0, "T:" + model.FormatValue(r.Temperature) + model.UnitCelsius},
		{0, 1, "L:" + model.FormatValue(r.Light) + model.UnitPercent},
		{HumidityColumn, 1, "H:" + model.FormatValue(r.Humidity) + model.UnitPercent},
	}

	for _, c := range cells {
		if err := d.MoveCursor(c.col, c.row); err != nil {
			return fmt.Errorf("failed to move cursor to %d,%d: %w", c.col, c.row, err)
		}
		if err := d.WriteText(c.text); err != nil {
			return fmt.Errorf("failed to write %q: %w", c.text, err)
		}
	}

	if f, ok := d.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush display: %w", err)
		}
	}

	return nil
}
