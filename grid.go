package main

import (
	"image"

	"github.com/pkg/errors"
)

// Cell is one normalized occupancy sample.
type Cell uint8

const (
	Occupied Cell = iota
	Free
	// Unknown samples neither open nor close a run.
	Unknown
)

func (c Cell) String() string {
	switch c {
	case Occupied:
		return "occupied"
	case Free:
		return "free"
	default:
		return "unknown"
	}
}

// Threshold maps 8-bit luminance onto cells. Values at or below OccupiedMax are
// walls, values at or above FreeMin are free space, anything between is Unknown.
type Threshold struct {
	OccupiedMax uint8
	FreeMin     uint8
}

// StrictThreshold only accepts pure black and pure white.
var StrictThreshold = Threshold{OccupiedMax: 0, FreeMin: 255}

// BinaryThreshold treats everything darker than level as a wall.
func BinaryThreshold(level uint8) Threshold {
	if level == 0 {
		return Threshold{OccupiedMax: 0, FreeMin: 1}
	}
	return Threshold{OccupiedMax: level - 1, FreeMin: level}
}

// Validate reports whether the two bands overlap.
func (t Threshold) Validate() error {
	if t.OccupiedMax >= t.FreeMin {
		return errors.Errorf("threshold bands overlap: occupied <= %d, free >= %d", t.OccupiedMax, t.FreeMin)
	}
	return nil
}

// Classify returns the cell for a luminance value.
func (t Threshold) Classify(gray uint8) Cell {
	switch {
	case gray <= t.OccupiedMax:
		return Occupied
	case gray >= t.FreeMin:
		return Free
	default:
		return Unknown
	}
}

// Grid is an immutable row-major occupancy grid.
type Grid struct {
	width  int
	height int
	cells  []Cell
}

// NewGrid copies rows into a Grid. It fails with ErrInvalidGrid when the rows
// are empty or jagged.
func NewGrid(rows [][]Cell) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, stageErrorf(ErrInvalidGrid, nil, "grid must have at least one row and one column")
	}
	width := len(rows[0])
	cells := make([]Cell, 0, width*len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, stageErrorf(ErrInvalidGrid, nil, "row %d has %d samples, want %d", y, len(row), width)
		}
		cells = append(cells, row...)
	}
	return &Grid{width: width, height: len(rows), cells: cells}, nil
}

// GridFromGray classifies every pixel of img.
func GridFromGray(img *image.Gray, t Threshold) (*Grid, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, stageErrorf(ErrInvalidGrid, nil, "image has no pixels (%dx%d)", width, height)
	}

	cells := make([]Cell, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := img.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y
			cells[y*width+x] = t.Classify(gray)
		}
	}
	return &Grid{width: width, height: height, cells: cells}, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Row returns row y. The slice aliases the grid and must not be modified.
func (g *Grid) Row(y int) []Cell {
	return g.cells[y*g.width : (y+1)*g.width]
}

// Census counts cells by kind.
func (g *Grid) Census() (occupied, free, unknown int) {
	for _, c := range g.cells {
		switch c {
		case Occupied:
			occupied++
		case Free:
			free++
		default:
			unknown++
		}
	}
	return occupied, free, unknown
}
