package muv

import(
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"

	"github.com/planetary-uv/quicklook/pkg/anc"
	"github.com/planetary-uv/quicklook/pkg/emath"
)

// A Calibrator turns dark-subtracted DNs into calibrated kR brightnesses.
// It holds the shared reference data and the fitted lookup curves, and is
// safe for concurrent use once built.
type Calibrator struct {
	ref *anc.Reference

	coeffA interp.PiecewiseLinear // gain-model coefficient a, by MCP voltage
	coeffB interp.PiecewiseLinear // gain-model coefficient b, by MCP voltage
	sens   interp.PiecewiseLinear // sensitivity, by wavelength [nm]
}

func NewCalibrator(ref *anc.Reference) (*Calibrator, error) {
	c := &Calibrator{ref: ref}

	if err := c.coeffA.Fit(ref.Voltage, ref.CoeffA); err != nil {
		return nil, fmt.Errorf("voltage coefficient a: %v", err)
	}
	if err := c.coeffB.Fit(ref.Voltage, ref.CoeffB); err != nil {
		return nil, fmt.Errorf("voltage coefficient b: %v", err)
	}
	if err := c.sens.Fit(ref.SensWavelength, ref.SensSensitivity); err != nil {
		return nil, fmt.Errorf("sensitivity curve: %v", err)
	}

	return c, nil
}

// GainCorrection returns the multiplicative correction for the MCP
// gain-dependent nonlinearity, for one integration's detector plane.
// Zero or negative counts put the log model outside its domain; those
// pixels come back NaN and are excluded by the downstream mask, not
// raised as errors.
func (c *Calibrator)GainCorrection(plane *emath.Grid, o Observation) *emath.Grid {
	a := c.coeffA.Predict(o.MCPVolt)
	b := c.coeffB.Predict(o.MCPVolt)
	binArea := float64(o.SpatialBinSize * o.SpectralBinSize)

	corr := plane.Copy()
	corr.Apply(func(v float64) float64 {
		normalized := v / binArea / o.IntTime
		modeled := math.Exp(a + b*math.Log(normalized))
		return modeled / normalized * o.MCPGain / ReferenceMCPGain
	})
	return corr
}

// CalibrationCurve returns the DN/kR conversion curve at the given
// wavelength centers. The division chain matters: reordering it changes
// the calibrated units.
func (c *Calibrator)CalibrationCurve(wavelengths []float64, o Observation) []float64 {
	curve := make([]float64, len(wavelengths))
	for i, w := range wavelengths {
		curve[i] = c.sens.Predict(w) * 4 * math.Pi * 1e-9 /
			o.MCPGain / PixelAngularSize / o.IntTime / float64(o.SpatialBinSize)
	}
	return curve
}

// Flatfield rebins the master flatfield onto the caller's binning scheme.
// The master is expanded back to full 1024x1024 detector resolution by
// repeating each native bin over its pixel width (edge-padding the pixels
// outside the native range), then block-averaged over each target bin's
// pixel span. Invoked with the exact native bin edges this reproduces the
// master elementwise.
func (c *Calibrator)Flatfield(spatialEdges, spectralEdges []int) (*emath.Grid, error) {
	if err := checkEdges(spatialEdges, "spatial"); err != nil {
		return nil, err
	}
	if err := checkEdges(spectralEdges, "spectral"); err != nil {
		return nil, err
	}

	master := c.ref.Flatfield
	if master.Rows() != FlatfieldSpatialBins || master.Cols() != FlatfieldSpectralBins {
		return nil, fmt.Errorf("master flatfield is %dx%d, want %dx%d",
			master.Rows(), master.Cols(), FlatfieldSpatialBins, FlatfieldSpectralBins)
	}

	ff := emath.NewGrid(len(spatialEdges)-1, len(spectralEdges)-1)
	for i := 0; i < ff.Rows(); i++ {
		for j := 0; j < ff.Cols(); j++ {
			sum, n := 0.0, 0
			for r := spatialEdges[i]; r < spatialEdges[i+1]; r++ {
				for s := spectralEdges[j]; s < spectralEdges[j+1]; s++ {
					sum += master.Get(nativeBin(r, FlatfieldSpatialStart, FlatfieldSpatialWidth, FlatfieldSpatialBins),
						nativeBin(s, FlatfieldSpectralStart, FlatfieldSpectralWidth, FlatfieldSpectralBins))
					n++
				}
			}
			ff.Set(i, j, sum/float64(n))
		}
	}
	return ff, nil
}

// nativeBin maps a detector pixel index onto the master flatfield's native
// bin, clamping the edge-padded pixels outside the native range.
func nativeBin(pixel, start, width, bins int) int {
	b := (pixel - start) / width
	if b < 0 {
		return 0
	}
	if b >= bins {
		return bins - 1
	}
	return b
}

func checkEdges(edges []int, name string) error {
	if len(edges) < 2 {
		return fmt.Errorf("%s bin edges: need at least 2, got %d", name, len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if edges[i] <= edges[i-1] {
			return fmt.Errorf("%s bin edges not ascending at %d", name, i)
		}
	}
	if edges[0] < 0 || edges[len(edges)-1] > DetectorSize {
		return fmt.Errorf("%s bin edges outside detector [0,%d]", name, DetectorSize)
	}
	return nil
}

// CalibrateCube runs the full radiometric chain over a partition's cube:
// divide by the calibration curve, multiply by the gain correction computed
// from the calibrated counts, divide by the rebinned flatfield. Each step
// feeds the next; none is optional for a primary image.
func (c *Calibrator)CalibrateCube(dds *emath.Cube, obs []Observation, wavelengths *emath.Grid,
	spatialEdges, spectralEdges []int) (*emath.Cube, error) {

	ni, nj, nk := dds.NInt(), dds.NSpatial(), dds.NSpectral()
	if len(obs) != ni {
		return nil, fmt.Errorf("calibrate: %d integrations but %d observations", ni, len(obs))
	}
	if wavelengths.Rows() != nj || wavelengths.Cols() != nk {
		return nil, fmt.Errorf("calibrate: wavelengths %dx%d vs cube %dx%d",
			wavelengths.Rows(), wavelengths.Cols(), nj, nk)
	}

	ff, err := c.Flatfield(spatialEdges, spectralEdges)
	if err != nil {
		return nil, err
	}
	if ff.Rows() != nj || ff.Cols() != nk {
		return nil, fmt.Errorf("calibrate: flatfield %dx%d vs cube %dx%d", ff.Rows(), ff.Cols(), nj, nk)
	}

	// The sensitivity lookup only depends on wavelength, so do it once and
	// rescale per integration.
	sensAt := emath.NewGrid(nj, nk)
	for j := 0; j < nj; j++ {
		for k := 0; k < nk; k++ {
			sensAt.Set(j, k, c.sens.Predict(wavelengths.Get(j, k)))
		}
	}

	primary := emath.NewCube(ni, nj, nk)
	for i := 0; i < ni; i++ {
		o := obs[i]
		scale := 4 * math.Pi * 1e-9 / o.MCPGain / PixelAngularSize / o.IntTime / float64(o.SpatialBinSize)

		calibrated := dds.Plane(i).Copy()
		for j := 0; j < nj; j++ {
			for k := 0; k < nk; k++ {
				calibrated.Set(j, k, calibrated.Get(j, k)/(sensAt.Get(j, k)*scale))
			}
		}

		corr := c.GainCorrection(calibrated, o)

		out := primary.Plane(i)
		for j := 0; j < nj; j++ {
			for k := 0; k < nk; k++ {
				out.Set(j, k, calibrated.Get(j, k)*corr.Get(j, k)/ff.Get(j, k))
			}
		}
	}
	return primary, nil
}
