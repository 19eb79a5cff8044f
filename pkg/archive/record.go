package archive

import(
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/stat"

	"github.com/planetary-uv/quicklook/pkg/emath"
	"github.com/planetary-uv/quicklook/pkg/muv"
)

// HDU extension names in an l1b product file. The primary HDU carries the
// dark-subtracted counts plus the observation settings as header cards.
const(
	extRaw         = "RAW"
	extSZA         = "SZA"
	extAltitude    = "ALTITUDE"
	extLongitude   = "LONGITUDE"
	extLatitude    = "LATITUDE"
	extLocalTime   = "LOCAL_TIME"
	extWavelength  = "WAVELENGTH"
	extFOV         = "FOV"
	extET          = "ET"
	extVXInst      = "VX_INSTRUMENT"
	extVSCRate     = "V_SPACECRAFT_RATE"
	extSpaEdges    = "SPA_EDGES"
	extSpeEdges    = "SPE_EDGES"
	extSpaBinWidth = "SPA_BIN_WIDTH"
	extSpeBinWidth = "SPE_BIN_WIDTH"
)

// A Record is the contents of one l1b file: everything the assembly stage
// consumes, as plain arrays. Files holding a single integration come back
// with a leading dimension of 1.
type Record struct {
	Path string
	Name Filename

	DarkSubtracted *emath.Cube // (integrations, spatial bins, spectral bins)
	Raw            *emath.Cube

	SolarZenithAngle *emath.Grid // per-integration-per-spatial-bin
	Altitude         *emath.Grid // surface-relative altitude at pixel center
	Longitude        *emath.Grid
	Latitude         *emath.Grid
	LocalTime        *emath.Grid

	FieldOfView   []float64 // per-integration mirror FOV angle [deg]
	EphemerisTime []float64

	VXInstrument    [][3]float64 // instrument x-axis, inertial frame
	VSpacecraftRate [][3]float64 // spacecraft angular rate, inertial frame

	Wavelength *emath.Grid // wavelength centers (spatial bins, spectral bins)

	MCPVolt float64
	MCPGain float64
	IntTime float64

	SpatialBinSize  int
	SpectralBinSize int

	SpatialBinEdges  []int // length = spatial bins + 1
	SpectralBinEdges []int
}

func (r *Record)NIntegrations() int { return r.DarkSubtracted.NInt() }

// Dayside reports whether this file holds dayside settings.
func (r *Record)Dayside() bool { return r.MCPVolt < muv.DayNightVoltageBoundary }

// Observation expands the file-level settings into the per-integration
// settings record the calibration engine wants.
func (r *Record)Observation() muv.Observation {
	return muv.Observation{
		IntTime:         r.IntTime,
		MCPVolt:         r.MCPVolt,
		MCPGain:         r.MCPGain,
		SpatialBinSize:  r.SpatialBinSize,
		SpectralBinSize: r.SpectralBinSize,
	}
}

// ReadRecord reads one l1b product file.
func ReadRecord(path string) (*Record, error) {
	rdr, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", path, err)
	}
	defer rdr.Close()

	f, err := fitsio.Open(rdr)
	if err != nil {
		return nil, fmt.Errorf("fits open %s: %v", path, err)
	}
	defer f.Close()

	rec := &Record{Path: path}
	if fn, err := ParseFilename(filepath.Base(path)); err == nil {
		rec.Name = fn
	}

	primary, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("%s: primary HDU is not an image", path)
	}
	if rec.DarkSubtracted, err = readCube(primary); err != nil {
		return nil, fmt.Errorf("%s primary: %v", path, err)
	}

	exts := map[string]fitsio.Image{}
	for _, hdu := range f.HDUs()[1:] {
		if img, ok := hdu.(fitsio.Image); ok {
			exts[hdu.Name()] = img
		}
	}

	read := func(name string, dst interface{}) error {
		img, ok := exts[name]
		if !ok {
			return fmt.Errorf("%s: no %s extension", path, name)
		}
		var err error
		switch d := dst.(type) {
		case **emath.Cube:
			*d, err = readCube(img)
		case **emath.Grid:
			*d, err = readGrid(img)
		case *[]float64:
			*d, err = readVector(img)
		default:
			err = fmt.Errorf("unhandled destination %T", dst)
		}
		if err != nil {
			return fmt.Errorf("%s %s: %v", path, name, err)
		}
		return nil
	}

	for _, item := range []struct {
		name string
		dst  interface{}
	}{
		{extRaw, &rec.Raw},
		{extSZA, &rec.SolarZenithAngle},
		{extAltitude, &rec.Altitude},
		{extLongitude, &rec.Longitude},
		{extLatitude, &rec.Latitude},
		{extLocalTime, &rec.LocalTime},
		{extWavelength, &rec.Wavelength},
		{extFOV, &rec.FieldOfView},
		{extET, &rec.EphemerisTime},
	} {
		if err := read(item.name, item.dst); err != nil {
			return nil, err
		}
	}

	if rec.VXInstrument, err = readVectors3(exts, extVXInst); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if rec.VSpacecraftRate, err = readVectors3(exts, extVSCRate); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	hdr := primary.Header()
	if rec.MCPVolt, err = floatCard(hdr, "MCP_VOLT"); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if rec.MCPGain, err = floatCard(hdr, "MCP_GAIN"); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if rec.IntTime, err = floatCard(hdr, "INT_TIME"); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	// Some archive versions omit the bin-size cards; fall back to the median
	// of the per-bin width arrays.
	rec.SpatialBinSize, err = binSize(hdr, "SPA_SIZE", exts, extSpaBinWidth)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	rec.SpectralBinSize, err = binSize(hdr, "SPE_SIZE", exts, extSpeBinWidth)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	if rec.SpatialBinEdges, err = readIntVector(exts, extSpaEdges); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	if rec.SpectralBinEdges, err = readIntVector(exts, extSpeEdges); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	return rec, nil
}

// ReadOrbit reads the latest files for an orbit, in timestamp order.
func ReadOrbit(dataDir string, orbit Orbit, segment, channel string) ([]*Record, error) {
	paths, err := FindLatestFiles(dataDir, orbit, segment, channel)
	if err != nil {
		return nil, err
	}
	recs := make([]*Record, 0, len(paths))
	for _, p := range paths {
		rec, err := ReadRecord(p)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// readVals reads an image HDU's pixels into a slice sized from its header;
// fitsio reads into the caller's slice, so it must be sized up front.
func readVals(img fitsio.Image, axes []int) ([]float64, error) {
	n := 1
	for _, ax := range axes {
		n *= ax
	}
	vals := make([]float64, n)
	if err := img.Read(&vals); err != nil {
		return nil, err
	}
	return vals, nil
}

func readCube(img fitsio.Image) (*emath.Cube, error) {
	axes := img.Header().Axes()
	vals, err := readVals(img, axes)
	if err != nil {
		return nil, err
	}
	switch len(axes) {
	case 3: // NAXIS1 fastest: (spectral, spatial, integrations)
		return emath.NewCubeFrom(axes[2], axes[1], axes[0], vals)
	case 2: // single integration, no leading dimension
		return emath.NewCubeFrom(1, axes[1], axes[0], vals)
	}
	return nil, fmt.Errorf("want a 2D or 3D image, got %d axes", len(axes))
}

func readGrid(img fitsio.Image) (*emath.Grid, error) {
	axes := img.Header().Axes()
	vals, err := readVals(img, axes)
	if err != nil {
		return nil, err
	}
	switch len(axes) {
	case 2:
		return emath.NewGridFrom(axes[1], axes[0], vals)
	case 1: // single integration
		return emath.NewGridFrom(1, axes[0], vals)
	}
	return nil, fmt.Errorf("want a 1D or 2D image, got %d axes", len(axes))
}

func readVector(img fitsio.Image) ([]float64, error) {
	axes := img.Header().Axes()
	if len(axes) != 1 {
		return nil, fmt.Errorf("want a 1D image, got %d axes", len(axes))
	}
	return readVals(img, axes)
}

func readIntVector(exts map[string]fitsio.Image, name string) ([]int, error) {
	img, ok := exts[name]
	if !ok {
		return nil, fmt.Errorf("no %s extension", name)
	}
	vals, err := readVector(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = int(math.Round(v))
	}
	return out, nil
}

func readVectors3(exts map[string]fitsio.Image, name string) ([][3]float64, error) {
	img, ok := exts[name]
	if !ok {
		return nil, fmt.Errorf("no %s extension", name)
	}
	g, err := readGrid(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	if g.Cols() != 3 {
		return nil, fmt.Errorf("%s: want 3 columns, got %d", name, g.Cols())
	}
	out := make([][3]float64, g.Rows())
	for i := range out {
		out[i] = [3]float64{g.Get(i, 0), g.Get(i, 1), g.Get(i, 2)}
	}
	return out, nil
}

func floatCard(hdr *fitsio.Header, key string) (float64, error) {
	card := hdr.Get(key)
	if card == nil {
		return 0, fmt.Errorf("no %s card", key)
	}
	switch v := card.Value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%s card: unexpected type %T", key, card.Value)
}

func binSize(hdr *fitsio.Header, key string, exts map[string]fitsio.Image, widthExt string) (int, error) {
	if hdr.Get(key) != nil {
		v, err := floatCard(hdr, key)
		if err != nil {
			return 0, err
		}
		return int(v), nil
	}

	img, ok := exts[widthExt]
	if !ok {
		return 0, fmt.Errorf("no %s card and no %s extension", key, widthExt)
	}
	widths, err := readVector(img)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", widthExt, err)
	}
	sorted := append([]float64{}, widths...)
	sort.Float64s(sorted)
	return int(stat.Quantile(0.5, stat.Empirical, sorted, nil)), nil
}
