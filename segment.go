package main

import (
	"math"
	"strconv"

	"github.com/golang/geo/r3"
	"go.uber.org/zap"
)

// CloseRule decides where a run stops when it meets a free cell mid-row.
type CloseRule int

const (
	// CloseAtLastOccupied ends the run on the last occupied column.
	CloseAtLastOccupied CloseRule = iota
	// CloseLegacy ends the run at x - CellScale, where x is the free column.
	// It mixes pixel and world units and exists only to reproduce maps built
	// by the older converter.
	CloseLegacy
)

func (r CloseRule) String() string {
	if r == CloseLegacy {
		return "legacy"
	}
	return "last-occupied"
}

// Config carries the world-space parameters of a conversion.
type Config struct {
	// CellScale is world units per grid cell.
	CellScale float64
	// CellHeight is the wall height in world units.
	CellHeight float64
	CloseRule  CloseRule
	ModelName  string
}

// DefaultConfig matches the command line defaults.
func DefaultConfig() Config {
	return Config{
		CellScale:  0.1,
		CellHeight: 2.0,
		CloseRule:  CloseAtLastOccupied,
		ModelName:  "GridMap",
	}
}

// Validate rejects scales that cannot describe a world.
func (c Config) Validate() error {
	if !(c.CellScale > 0) || math.IsInf(c.CellScale, 0) {
		return stageErrorf(ErrInvalidDimension, nil, "cell scale must be positive, got %v", c.CellScale)
	}
	if !(c.CellHeight > 0) || math.IsInf(c.CellHeight, 0) {
		return stageErrorf(ErrInvalidDimension, nil, "cell height must be positive, got %v", c.CellHeight)
	}
	if c.ModelName == "" {
		return stageErrorf(ErrInvalidDimension, nil, "model name must not be empty")
	}
	return nil
}

// Run is a span of occupied cells on one row, both ends inclusive.
type Run struct {
	Row   int
	Start int
	End   int
	// AtEdge is set when the run was closed by the end of the row.
	AtEdge bool
}

// ScanRow calls emit for every run in row, left to right. Only Occupied opens
// a run and only Free closes one; Unknown cells leave the state unchanged.
func ScanRow(row []Cell, y int, emit func(Run)) {
	inRun := false
	start := 0
	last := len(row) - 1

	for x, c := range row {
		if c == Occupied && !inRun {
			start = x
			inRun = true
		}
		if c == Free && inRun {
			emit(Run{Row: y, Start: start, End: x - 1})
			inRun = false
		}
		if x == last && inRun {
			emit(Run{Row: y, Start: start, End: x, AtEdge: true})
			inRun = false
		}
	}
}

// ScanRuns collects the runs of every row of g.
func ScanRuns(g *Grid) []Run {
	var runs []Run
	for y := 0; y < g.Height(); y++ {
		ScanRow(g.Row(y), y, func(r Run) {
			runs = append(runs, r)
		})
	}
	return runs
}

// WallSegment is a run placed in world space. Start and End are in cells.
type WallSegment struct {
	Row        int
	Start      float64
	End        float64
	CellScale  float64
	CellHeight float64
}

// NewWallSegment converts r using the scale and close rule of cfg.
func NewWallSegment(r Run, cfg Config) WallSegment {
	end := float64(r.End)
	if cfg.CloseRule == CloseLegacy && !r.AtEdge {
		// r.End+1 is the free column that closed the run.
		end = float64(r.End+1) - cfg.CellScale
	}
	return WallSegment{
		Row:        r.Row,
		Start:      float64(r.Start),
		End:        end,
		CellScale:  cfg.CellScale,
		CellHeight: cfg.CellHeight,
	}
}

// CenterX is the run midpoint in cells.
func (s WallSegment) CenterX() float64 {
	return (s.Start + s.End) / 2.0
}

// Length is End-Start in cells, so a single-cell run has zero length.
func (s WallSegment) Length() float64 {
	return s.End - s.Start
}

// Name is unique per (CenterX, Row).
func (s WallSegment) Name() string {
	return "Wall_" + formatFloat(s.CenterX()) + "_" + strconv.Itoa(s.Row)
}

// Size is the box extent in world units.
func (s WallSegment) Size() r3.Vector {
	return r3.Vector{
		X: s.Length() * s.CellScale,
		Y: 1 * s.CellScale,
		Z: s.CellHeight,
	}
}

// Position is the box centroid in world units.
func (s WallSegment) Position() r3.Vector {
	return r3.Vector{
		X: s.CenterX() * s.CellScale,
		Y: float64(s.Row) * s.CellScale,
		Z: s.CellHeight / 2.0,
	}
}

// Segment walks g row by row and adds one wall per occupied run to a new
// world, then marks the world static.
func Segment(g *Grid, cfg Config, logger *zap.SugaredLogger) (*World, error) {
	if err := validateGrid(g); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	world := NewWorld(cfg.ModelName)
	for _, r := range ScanRuns(g) {
		seg := NewWallSegment(r, cfg)
		world.AddWall(seg)
		if r.AtEdge {
			logger.Debugw("run closed at end of row", "row", r.Row, "start", r.Start, "end", r.End)
		} else {
			logger.Debugw("run closed at free space", "row", r.Row, "start", r.Start, "end", seg.End)
		}
	}
	world.Seal()

	logger.Infow("segmented grid",
		"width", g.Width(), "height", g.Height(),
		"walls", world.Walls(), "close_rule", cfg.CloseRule.String())
	return world, nil
}

func validateGrid(g *Grid) error {
	if g == nil {
		return stageErrorf(ErrInvalidGrid, nil, "grid is nil")
	}
	if g.width <= 0 || g.height <= 0 {
		return stageErrorf(ErrInvalidGrid, nil, "grid is %dx%d", g.width, g.height)
	}
	if len(g.cells) != g.width*g.height {
		return stageErrorf(ErrInvalidGrid, nil, "grid has %d samples, want %d", len(g.cells), g.width*g.height)
	}
	return nil
}

// formatFloat renders f in its shortest round-trip form and always keeps a
// decimal point for integral values, so 3 prints as "3.0".
func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if f == math.Trunc(f) {
		s += ".0"
	}
	return s
}
