// Package orbit assembles one orbit's files into per-partition quicklook
// images: partition by day/night voltage, stack integrations, calibrate,
// colorize under the illumination mask, and cut the result into swaths with
// their mosaic meshes.
package orbit

import(
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/planetary-uv/quicklook/pkg/archive"
	"github.com/planetary-uv/quicklook/pkg/colorize"
	"github.com/planetary-uv/quicklook/pkg/emath"
	"github.com/planetary-uv/quicklook/pkg/muv"
	"github.com/planetary-uv/quicklook/pkg/swath"
)

type Partition int

const(
	Dayside Partition = iota
	Nightside
)

func (p Partition)String() string {
	if p == Dayside {
		return "dayside"
	}
	return "nightside"
}

// Options are the assembly policy knobs. Zero values are not useful;
// start from DefaultOptions.
type Options struct {
	MaxSZA          float64 // mask: solar zenith angle cutoff [deg]
	MinMaskedPixels int     // below this, the partition is abandoned
	HistEqMinPixels int     // below this, equalization is statistically meaningless
	SqrtFallback    bool    // sqrt-scale instead of abandoning a thin partition
	NaNGuard        bool    // exclude pixels with NaN in any spectral bin from the mask
	Verbosity       int
}

func DefaultOptions() Options {
	return Options{
		MaxSZA:          102,
		MinMaskedPixels: 266,
		HistEqMinPixels: 265,
		SqrtFallback:    false,
		// The NaN guard stays off: it produced an even/odd striping artifact
		// on some orbits. Kept as a switch, not re-enabled.
		NaNGuard: false,
	}
}

// A SwathImage is one mirror sweep's slice of the quicklook: its RGB cells
// plus the meshes that place them in angular space.
type SwathImage struct {
	Number int

	RGB *emath.Cube // (integrations, spatial bins, 3), values in [0,255]

	// Cell-corner meshes, shape (integrations+1, spatial bins+1)
	X, Y *emath.Grid

	// Cell-center meshes, shape (integrations, spatial bins); contour
	// overlays align to these, not to the corner meshes
	CenterX, CenterY *emath.Grid

	// Per-cell geometry carried along for overlays
	SZA       *emath.Grid
	Longitude *emath.Grid
}

// An Image is the assembled quicklook for one orbit partition.
type Image struct {
	Orbit     archive.Orbit
	Partition Partition

	RGB    *emath.Cube // all integrations, (integrations, spatial bins, 3)
	Swaths []SwathImage

	// NSwaths counts the swaths of the whole orbit (both partitions), which
	// fixes the mosaic's horizontal extent
	NSwaths int

	Flipped      bool
	MaskedPixels int

	// Calibrated is the kR primary the RGB was derived from
	Calibrated *emath.Cube
}

type Assembler struct {
	Cal  *muv.Calibrator
	Opts Options
}

func NewAssembler(cal *muv.Calibrator, opts Options) *Assembler {
	return &Assembler{Cal: cal, Opts: opts}
}

// Assemble builds the quicklook for one partition of an orbit. A partition
// with no files, or without enough mask coverage for a meaningful
// equalization, yields (nil, nil): an explicit no-image, not an error.
func (a *Assembler)Assemble(orb archive.Orbit, files []*archive.Record, part Partition) (*Image, error) {
	selected := []*archive.Record{}
	for _, f := range files {
		if f.Dayside() == (part == Dayside) {
			selected = append(selected, f)
		}
	}
	if len(selected) == 0 {
		if a.Opts.Verbosity > 0 {
			log.Printf("%s: no %s files, skipping partition\n", orb.Code(), part)
		}
		return nil, nil
	}

	// Swath numbering spans the whole orbit, not just this partition
	allFOV := []float64{}
	partFOV := []float64{}
	partMask := []bool{}
	for _, f := range files {
		in := f.Dayside() == (part == Dayside)
		allFOV = append(allFOV, f.FieldOfView...)
		for _, v := range f.FieldOfView {
			if in {
				partFOV = append(partFOV, v)
			}
			partMask = append(partMask, in)
		}
	}
	allSwaths := swath.Numbers(allFOV)
	partSwaths := []int{}
	for i, in := range partMask {
		if in {
			partSwaths = append(partSwaths, allSwaths[i])
		}
	}
	nSwaths := allSwaths[len(allSwaths)-1] + 1

	stacked, err := a.stack(selected)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %v", orb.Code(), part, err)
	}

	calibrated, err := a.Cal.CalibrateCube(stacked.dds, stacked.obs,
		selected[0].Wavelength, selected[0].SpatialBinEdges, selected[0].SpectralBinEdges)
	if err != nil {
		return nil, fmt.Errorf("%s %s: calibrate: %v", orb.Code(), part, err)
	}

	mask := a.buildMask(stacked.sza, stacked.alt, calibrated)
	masked := mask.Count()

	var rgb *emath.Cube
	switch {
	case masked >= a.Opts.MinMaskedPixels && masked >= a.Opts.HistEqMinPixels:
		if rgb, err = colorize.HistogramEqualizeDetectorImage(calibrated, mask); err != nil {
			return nil, fmt.Errorf("%s %s: %v", orb.Code(), part, err)
		}
	case a.Opts.SqrtFallback && masked > 0:
		log.Printf("%s %s: only %d masked pixels, falling back to sqrt scaling\n", orb.Code(), part, masked)
		if rgb, err = colorize.SqrtScaleDetectorImage(calibrated, mask); err != nil {
			return nil, fmt.Errorf("%s %s: %v", orb.Code(), part, err)
		}
	default:
		log.Printf("%s %s: %d masked pixels < %d, abandoning partition\n",
			orb.Code(), part, masked, a.Opts.MinMaskedPixels)
		return nil, nil
	}

	flipped := a.flipDecision(stacked.vxInst, stacked.vscRate)
	if flipped {
		rgb.FlipSpatial()
	}

	img := &Image{
		Orbit:        orb,
		Partition:    part,
		RGB:          rgb,
		NSwaths:      nSwaths,
		Flipped:      flipped,
		MaskedPixels: masked,
		Calibrated:   calibrated,
	}
	img.Swaths = a.cutSwaths(rgb, stacked, partFOV, partSwaths)

	return img, nil
}

// flipDecision implements the per-orbit orientation policy: the mean over
// the partition of dot(instrument x-axis, spacecraft angular rate). A
// negative mean means the articulated payload looks "backwards" and the
// swaths must be mirrored to keep a consistent planet-relative orientation.
// (A finer per-integration variant exists for orbits where the payload
// flips mid-orbit; the mean policy is the one in service.)
func (a *Assembler)flipDecision(vxInst, vscRate [][3]float64) bool {
	dots := make([]float64, len(vxInst))
	for i := range vxInst {
		dots[i] = dot3(vxInst[i], vscRate[i])
	}
	return stat.Mean(dots, nil) < 0
}

func dot3(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// buildMask marks the pixels that qualify for the equalization scaling:
// on-disk (altitude exactly 0) and not too far past the terminator.
func (a *Assembler)buildMask(sza, alt *emath.Grid, calibrated *emath.Cube) *colorize.Mask {
	mask := colorize.NewMask(sza.Rows(), sza.Cols())
	for i := 0; i < sza.Rows(); i++ {
		for j := 0; j < sza.Cols(); j++ {
			ok := sza.Get(i, j) <= a.Opts.MaxSZA && alt.Get(i, j) == 0
			if ok && a.Opts.NaNGuard {
				for _, v := range calibrated.Spectrum(i, j) {
					if math.IsNaN(v) {
						ok = false
						break
					}
				}
			}
			mask.Set(i, j, ok)
		}
	}
	return mask
}

func (a *Assembler)cutSwaths(rgb *emath.Cube, st *stacked, fov []float64, swaths []int) []SwathImage {
	out := []SwathImage{}
	nSpa := rgb.NSpatial()

	for lo := 0; lo < len(swaths); {
		hi := lo
		for hi < len(swaths) && swaths[hi] == swaths[lo] {
			hi++
		}
		n := hi - lo

		x, y := swath.MakeGrid(fov[lo:hi], swaths[lo], nSpa, n)
		cx, cy := swath.MakeGrid(fov[lo:hi], swaths[lo], nSpa-1, n-1)

		out = append(out, SwathImage{
			Number:    swaths[lo],
			RGB:       rgb.Subcube(lo, hi),
			X:         x,
			Y:         y,
			CenterX:   cx,
			CenterY:   cy,
			SZA:       subGrid(st.sza, lo, hi),
			Longitude: subGrid(st.lon, lo, hi),
		})
		lo = hi
	}
	return out
}

func subGrid(g *emath.Grid, lo, hi int) *emath.Grid {
	out := emath.NewGrid(hi-lo, g.Cols())
	for i := lo; i < hi; i++ {
		copy(out.Row(i-lo), g.Row(i))
	}
	return out
}

// stacked is a partition's files concatenated along the integration axis.
type stacked struct {
	dds     *emath.Cube
	sza     *emath.Grid
	alt     *emath.Grid
	lon     *emath.Grid
	obs     []muv.Observation
	vxInst  [][3]float64
	vscRate [][3]float64
}

func (a *Assembler)stack(files []*archive.Record) (*stacked, error) {
	st := &stacked{}

	cubes := []*emath.Cube{}
	szas, alts, lons := []*emath.Grid{}, []*emath.Grid{}, []*emath.Grid{}
	for _, f := range files {
		cubes = append(cubes, f.DarkSubtracted)
		szas = append(szas, f.SolarZenithAngle)
		alts = append(alts, f.Altitude)
		lons = append(lons, f.Longitude)

		for i := 0; i < f.NIntegrations(); i++ {
			st.obs = append(st.obs, f.Observation())
		}
		st.vxInst = append(st.vxInst, f.VXInstrument...)
		st.vscRate = append(st.vscRate, f.VSpacecraftRate...)
	}

	var err error
	if st.dds, err = emath.StackCubes(cubes...); err != nil {
		return nil, fmt.Errorf("stack counts: %v", err)
	}
	if st.sza, err = emath.StackGrids(szas...); err != nil {
		return nil, fmt.Errorf("stack sza: %v", err)
	}
	if st.alt, err = emath.StackGrids(alts...); err != nil {
		return nil, fmt.Errorf("stack altitude: %v", err)
	}
	if st.lon, err = emath.StackGrids(lons...); err != nil {
		return nil, fmt.Errorf("stack longitude: %v", err)
	}

	if len(st.vxInst) != st.dds.NInt() || len(st.vscRate) != st.dds.NInt() {
		return nil, fmt.Errorf("spacecraft geometry: %d/%d vectors vs %d integrations",
			len(st.vxInst), len(st.vscRate), st.dds.NInt())
	}
	return st, nil
}
