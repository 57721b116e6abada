package types

import (
	"fmt"
	"strconv"
	"strings"
)

type EasingMode string

const (
	EasingLinear    EasingMode = "linear"
	EasingEaseIn    EasingMode = "ease-in"
	EasingEaseOut   EasingMode = "ease-out"
	EasingEaseInOut EasingMode = "ease-in-out"
)

// Valid reports whether m is one of the known easing modes.
func (m EasingMode) Valid() bool {
	switch m {
	case EasingLinear, EasingEaseIn, EasingEaseOut, EasingEaseInOut:
		return true
	}
	return false
}

// FrameSize is the size in pixels of the area an image is fitted to.
type FrameSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (f FrameSize) String() string {
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// Empty reports whether either dimension is not positive.
func (f FrameSize) Empty() bool {
	return f.Width <= 0 || f.Height <= 0
}

// Rect is a viewport in surface pixels, origin bottom-left.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) Size() FrameSize {
	return FrameSize{Width: r.Width, Height: r.Height}
}

// GridSize is the number of cells the surface is split into.
type GridSize struct {
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
}

func (g GridSize) String() string {
	return fmt.Sprintf("%dx%d", g.Columns, g.Rows)
}

// Cells returns the number of cells in the grid.
func (g GridSize) Cells() int {
	return g.Columns * g.Rows
}

// ParseGrid parses a grid of the form "WxH", e.g. "3x2".
func ParseGrid(s string) (GridSize, error) {
	cols, rows, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return GridSize{}, fmt.Errorf("invalid grid %q: expected WIDTHxHEIGHT", s)
	}
	c, err := strconv.Atoi(cols)
	if err != nil {
		return GridSize{}, fmt.Errorf("invalid grid width %q: %w", cols, err)
	}
	r, err := strconv.Atoi(rows)
	if err != nil {
		return GridSize{}, fmt.Errorf("invalid grid height %q: %w", rows, err)
	}
	if c < 1 || r < 1 {
		return GridSize{}, fmt.Errorf("invalid grid %q: dimensions must be at least 1", s)
	}
	return GridSize{Columns: c, Rows: r}, nil
}

// Split divides a surface of the given size into grid cells, row by row
// starting at the bottom-left. Leftover pixels from integer division are left
// uncovered on the right and top edges.
func (g GridSize) Split(surface FrameSize) []Rect {
	cw := surface.Width / g.Columns
	ch := surface.Height / g.Rows
	cells := make([]Rect, 0, g.Cells())
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Columns; col++ {
			cells = append(cells, Rect{X: col * cw, Y: row * ch, Width: cw, Height: ch})
		}
	}
	return cells
}
