package emath

import "fmt"

// A Cube is a 3D array of float64s, indexed (integration, spatial bin,
// spectral bin), with the spectral axis fastest. One Cube holds all the
// integrations of one orbit/partition.
type Cube struct {
	ni, nj, nk int
	values []float64
}

func NewCube(ni, nj, nk int) *Cube {
	return &Cube{
		ni: ni,
		nj: nj,
		nk: nk,
		values: make([]float64, ni*nj*nk),
	}
}

// NewCubeFrom wraps a backing slice laid out (i, j, k) with k fastest.
func NewCubeFrom(ni, nj, nk int, values []float64) (*Cube, error) {
	if len(values) != ni*nj*nk {
		return nil, fmt.Errorf("cube %dx%dx%d needs %d values, got %d", ni, nj, nk, ni*nj*nk, len(values))
	}
	return &Cube{ni: ni, nj: nj, nk: nk, values: values}, nil
}

func (c *Cube)NInt() int                   { return c.ni }
func (c *Cube)NSpatial() int               { return c.nj }
func (c *Cube)NSpectral() int              { return c.nk }
func (c *Cube)Get(i, j, k int) float64     { return c.values[(i*c.nj + j)*c.nk + k] }
func (c *Cube)Set(i, j, k int, v float64)  { c.values[(i*c.nj + j)*c.nk + k] = v }
func (c *Cube)Values() []float64           { return c.values }

// Plane returns integration i as a Grid view sharing the backing store.
func (c *Cube)Plane(i int) *Grid {
	return &Grid{rows: c.nj, cols: c.nk, values: c.values[i*c.nj*c.nk : (i+1)*c.nj*c.nk]}
}

// Spectrum returns the spectral vector at (integration, spatial bin) as a
// subslice of the backing store.
func (c *Cube)Spectrum(i, j int) []float64 {
	off := (i*c.nj + j) * c.nk
	return c.values[off : off+c.nk]
}

func (c *Cube)Copy() *Cube {
	c2 := Cube{ni: c.ni, nj: c.nj, nk: c.nk, values: make([]float64, len(c.values))}
	copy(c2.values, c.values)
	return &c2
}

// FlipSpatial mirrors the cube along its spatial axis, in place.
func (c *Cube)FlipSpatial() {
	for i := 0; i < c.ni; i++ {
		for j, j2 := 0, c.nj-1; j < j2; j, j2 = j+1, j2-1 {
			a, b := c.Spectrum(i, j), c.Spectrum(i, j2)
			for k := range a {
				a[k], b[k] = b[k], a[k]
			}
		}
	}
}

// Subcube returns a copy of integrations [lo, hi).
func (c *Cube)Subcube(lo, hi int) *Cube {
	out := NewCube(hi-lo, c.nj, c.nk)
	copy(out.values, c.values[lo*c.nj*c.nk:hi*c.nj*c.nk])
	return out
}

// StackCubes concatenates cubes along the integration axis. Every cube must
// share the same spatial/spectral shape.
func StackCubes(cubes ...*Cube) (*Cube, error) {
	if len(cubes) == 0 {
		return nil, fmt.Errorf("stack of zero cubes")
	}
	nj, nk := cubes[0].nj, cubes[0].nk
	ni := 0
	for _, c := range cubes {
		if c.nj != nj || c.nk != nk {
			return nil, fmt.Errorf("stack: plane %dx%d vs %dx%d", c.nj, c.nk, nj, nk)
		}
		ni += c.ni
	}
	out := NewCube(ni, nj, nk)
	n := 0
	for _, c := range cubes {
		n += copy(out.values[n:], c.values)
	}
	return out, nil
}
