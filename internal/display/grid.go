package display

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Grid is an in-memory 2x16 character display. Text written past the last
// column is clipped, matching an HD44780 in non-wrapping mode.
type Grid struct {
	log   *slog.Logger
	sink  io.Writer
	cells [Rows][Columns]byte
	col   int
	row   int
	last  string
}

type GridOption func(*Grid)

// WithLogger logs every flushed frame that differs from the previous one.
func WithLogger(log *slog.Logger) GridOption {
	return func(g *Grid) { g.log = log }
}

// WithSink writes every flushed frame to w.
func WithSink(w io.Writer) GridOption {
	return func(g *Grid) { g.sink = w }
}

func NewGrid(opts ...GridOption) *Grid {
	g := &Grid{}
	for _, opt := range opts {
		opt(g)
	}
	g.blank()
	return g
}

func (g *Grid) blank() {
	for r := range g.cells {
		for c := range g.cells[r] {
			g.cells[r][c] = ' '
		}
	}
	g.col, g.row = 0, 0
}

func (g *Grid) Clear() error {
	g.blank()
	return nil
}

func (g *Grid) MoveCursor(col, row int) error {
	if col < 0 || col >= Columns || row < 0 || row >= Rows {
		return fmt.Errorf("%w: col=%d row=%d", ErrCursorOutOfRange, col, row)
	}
	g.col, g.row = col, row
	return nil
}

func (g *Grid) WriteText(s string) error {
	for i := 0; i < len(s) && g.col < Columns; i++ {
		g.cells[g.row][g.col] = s[i]
		g.col++
	}
	return nil
}

func (g *Grid) Rows() []string {
	rows := make([]string, Rows)
	for r := range g.cells {
		rows[r] = string(g.cells[r][:])
	}
	return rows
}

func (g *Grid) String() string {
	return strings.Join(g.Rows(), "\n")
}

func (g *Grid) Flush() error {
	frame := g.String()

	if g.sink != nil {
		if _, err := io.WriteString(g.sink, frame+"\n"); err != nil {
			return fmt.Errorf("failed to write frame: %w", err)
		}
	}

	if g.log != nil && frame != g.last {
		rows := g.Rows()
		g.log.Debug("display frame",
			slog.String("row0", rows[0]),
			slog.String("row1", rows[1]),
		)
	}
	g.last = frame

	return nil
}
