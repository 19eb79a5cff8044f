package emath

import(
	"fmt"
	"math"
)

// A Grid is a 2D grid of float64s, indexed (row, col). Detector planes,
// pixel geometry fields and mosaic meshes are all Grids.
type Grid struct {
	rows, cols int
	values []float64
}

func NewGrid(rows, cols int) *Grid {
	return &Grid{
		rows: rows,
		cols: cols,
		values: make([]float64, rows*cols),
	}
}

// NewGridFrom wraps a row-major backing slice. The slice is used directly,
// not copied.
func NewGridFrom(rows, cols int, values []float64) (*Grid, error) {
	if len(values) != rows*cols {
		return nil, fmt.Errorf("grid %dx%d needs %d values, got %d", rows, cols, rows*cols, len(values))
	}
	return &Grid{rows: rows, cols: cols, values: values}, nil
}

func (g *Grid)Rows() int                  { return g.rows }
func (g *Grid)Cols() int                  { return g.cols }
func (g *Grid)Get(i, j int) float64       { return g.values[i*g.cols + j] }
func (g *Grid)Set(i, j int, v float64)    { g.values[i*g.cols + j] = v }
func (g *Grid)Values() []float64          { return g.values }

// Row returns row i as a subslice of the backing store.
func (g *Grid)Row(i int) []float64        { return g.values[i*g.cols : (i+1)*g.cols] }

func (g *Grid)Copy() *Grid {
	g2 := Grid{rows: g.rows, cols: g.cols, values: make([]float64, len(g.values))}
	copy(g2.values, g.values)
	return &g2
}

func (g *Grid)Fill(v float64) {
	for i := range g.values {
		g.values[i] = v
	}
}

// Apply replaces every value with f(value).
func (g *Grid)Apply(f func(float64) float64) {
	for i := range g.values {
		g.values[i] = f(g.values[i])
	}
}

// FlipCols mirrors the grid along its column axis, in place.
func (g *Grid)FlipCols() {
	for i := 0; i < g.rows; i++ {
		row := g.Row(i)
		for j, k := 0, len(row)-1; j < k; j, k = j+1, k-1 {
			row[j], row[k] = row[k], row[j]
		}
	}
}

func (g *Grid)Stats() string {
	min, max := math.MaxFloat64, -math.MaxFloat64
	for _, v := range g.values {
		if v > max { max = v }
		if v < min { min = v }
	}
	return fmt.Sprintf("grid[%dx%d, vals{%g,%g}]", g.rows, g.cols, min, max)
}

// StackGrids concatenates grids along the row axis. Every grid must have the
// same number of columns.
func StackGrids(grids ...*Grid) (*Grid, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("stack of zero grids")
	}
	cols := grids[0].cols
	rows := 0
	for _, g := range grids {
		if g.cols != cols {
			return nil, fmt.Errorf("stack: %d cols vs %d cols", g.cols, cols)
		}
		rows += g.rows
	}
	out := NewGrid(rows, cols)
	n := 0
	for _, g := range grids {
		n += copy(out.values[n:], g.values)
	}
	return out, nil
}
