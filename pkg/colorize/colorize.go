// Package colorize reduces a calibrated detector cube to 3 color channels
// and stretches the contrast, producing byte-range RGB values.
package colorize

import(
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/planetary-uv/quicklook/pkg/emath"
)

// A Mask selects which (integration, spatial bin) pixels participate in
// building the contrast scaling. Pixels outside the mask are still
// transformed through the mask-derived scale.
type Mask struct {
	rows, cols int
	values []bool
}

func NewMask(rows, cols int) *Mask {
	return &Mask{rows: rows, cols: cols, values: make([]bool, rows*cols)}
}

func (m *Mask)Rows() int               { return m.rows }
func (m *Mask)Cols() int               { return m.cols }
func (m *Mask)Get(i, j int) bool       { return m.values[i*m.cols + j] }
func (m *Mask)Set(i, j int, v bool)    { m.values[i*m.cols + j] = v }

// Count returns the number of mask-true pixels.
func (m *Mask)Count() int {
	n := 0
	for _, v := range m.values {
		if v {
			n++
		}
	}
	return n
}

// SpectralCutoffs splits n wavelengths into three near-equal contiguous
// bands; returns the blue-green and green-red boundary indices. For the
// 19-bin scheme that's (6, 12).
func SpectralCutoffs(n int) (int, int) {
	return n / 3, n * 2 / 3
}

// CoAdd3 sums a detector cube into 3 channels over the spectral axis:
// blue is the first third, green the middle, red the last. Channel order in
// the result is R, G, B. No normalization happens here.
func CoAdd3(cube *emath.Cube) *emath.Cube {
	blueGreen, greenRed := SpectralCutoffs(cube.NSpectral())

	out := emath.NewCube(cube.NInt(), cube.NSpatial(), 3)
	for i := 0; i < cube.NInt(); i++ {
		for j := 0; j < cube.NSpatial(); j++ {
			spec := cube.Spectrum(i, j)
			out.Set(i, j, 0, floats.Sum(spec[greenRed:]))
			out.Set(i, j, 1, floats.Sum(spec[blueGreen:greenRed]))
			out.Set(i, j, 2, floats.Sum(spec[:blueGreen]))
		}
	}
	return out
}

// HistogramEqualizeGrayscale contrast-stretches a single channel onto
// [0, 255]. The masked values are sorted and 256 equally spaced left
// cutoffs taken (rank floor(i/256*N)); every pixel is then linearly
// interpolated against the cutoffs and floored, so outputs are
// integer-valued floats. A nil mask uses every pixel.
func HistogramEqualizeGrayscale(img *emath.Grid, mask *Mask) (*emath.Grid, error) {
	vals := maskedValues(img, mask)
	if len(vals) == 0 {
		return nil, fmt.Errorf("histogram equalize: empty mask")
	}
	sort.Float64s(vals)

	cutoffs := make([]float64, 256)
	for i := range cutoffs {
		cutoffs[i] = vals[i*len(vals)/256]
	}
	ramp := emath.Linspace(0, 255, 256)

	out := img.Copy()
	out.Apply(func(v float64) float64 {
		return math.Floor(emath.Interp(v, cutoffs, ramp))
	})
	return out, nil
}

// HistogramEqualizeRGB equalizes each channel of an (integrations, spatial
// bins, 3) cube independently, sharing one mask.
func HistogramEqualizeRGB(rgb *emath.Cube, mask *Mask) (*emath.Cube, error) {
	out := emath.NewCube(rgb.NInt(), rgb.NSpatial(), 3)
	for ch := 0; ch < 3; ch++ {
		eq, err := HistogramEqualizeGrayscale(channel(rgb, ch), mask)
		if err != nil {
			return nil, err
		}
		setChannel(out, ch, eq)
	}
	return out, nil
}

// HistogramEqualizeDetectorImage co-adds a calibrated detector cube to 3
// channels and histogram-equalizes each with a shared mask.
func HistogramEqualizeDetectorImage(cube *emath.Cube, mask *Mask) (*emath.Cube, error) {
	return HistogramEqualizeRGB(CoAdd3(cube), mask)
}

// SqrtScaleDetectorImage is the fallback colorization for partitions whose
// masked pixel count is too small for a meaningful statistical
// equalization. Each co-added channel is scaled by
// floor(255*sqrt((v-lo)/(hi-lo))) with lo/hi taken over the masked pixels,
// clipped to [0, 255]. Monotonic, so dim structure survives.
func SqrtScaleDetectorImage(cube *emath.Cube, mask *Mask) (*emath.Cube, error) {
	rgb := CoAdd3(cube)
	out := emath.NewCube(rgb.NInt(), rgb.NSpatial(), 3)
	for ch := 0; ch < 3; ch++ {
		img := channel(rgb, ch)
		vals := maskedValues(img, mask)
		if len(vals) == 0 {
			return nil, fmt.Errorf("sqrt scale: empty mask")
		}
		lo, hi := floats.Min(vals), floats.Max(vals)

		scaled := img.Copy()
		scaled.Apply(func(v float64) float64 {
			if hi == lo {
				return 0
			}
			s := math.Floor(255 * math.Sqrt((v-lo)/(hi-lo)))
			if s < 0 {
				return 0
			}
			if s > 255 {
				return 255
			}
			return s
		})
		setChannel(out, ch, scaled)
	}
	return out, nil
}

func maskedValues(img *emath.Grid, mask *Mask) []float64 {
	vals := []float64{}
	for i := 0; i < img.Rows(); i++ {
		for j := 0; j < img.Cols(); j++ {
			if mask == nil || mask.Get(i, j) {
				vals = append(vals, img.Get(i, j))
			}
		}
	}
	return vals
}

func channel(rgb *emath.Cube, ch int) *emath.Grid {
	g := emath.NewGrid(rgb.NInt(), rgb.NSpatial())
	for i := 0; i < rgb.NInt(); i++ {
		for j := 0; j < rgb.NSpatial(); j++ {
			g.Set(i, j, rgb.Get(i, j, ch))
		}
	}
	return g
}

func setChannel(rgb *emath.Cube, ch int, g *emath.Grid) {
	for i := 0; i < rgb.NInt(); i++ {
		for j := 0; j < rgb.NSpatial(); j++ {
			rgb.Set(i, j, ch, g.Get(i, j))
		}
	}
}
