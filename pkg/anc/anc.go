// Package anc loads the static calibration reference arrays (voltage
// correction table, sensitivity curve, master flatfield, spectral templates)
// from an ancillary FITS archive. Load it once at startup and share the
// Reference by pointer; nothing here mutates after Load returns.
package anc

import(
	"fmt"
	"os"
	"path/filepath"

	"github.com/astrogo/fitsio"

	"github.com/planetary-uv/quicklook/pkg/emath"
)

const(
	voltageCorrectionFile = "voltage_correction.fits"
	sensitivityCurveFile  = "muv_sensitivity_curve.fits"
	flatfieldFile         = "muv_flatfield.fits"
	templatesFile         = "muv_templates.fits"
)

type Reference struct {
	// Voltage correction table: two coefficient curves indexed by MCP voltage
	Voltage []float64
	CoeffA  []float64
	CoeffB  []float64

	// Observational sensitivity curve, wavelength [nm] -> sensitivity
	SensWavelength  []float64
	SensSensitivity []float64

	// Master flatfield, 133 spatial x 19 spectral native bins
	Flatfield *emath.Grid

	templates map[string][]float64
}

// Load reads the ancillary archive from dir. The templates file is optional;
// everything else is required.
func Load(dir string) (*Reference, error) {
	r := &Reference{templates: map[string][]float64{}}

	vc, err := loadGrid(filepath.Join(dir, voltageCorrectionFile))
	if err != nil {
		return nil, fmt.Errorf("anc voltage correction: %v", err)
	}
	if vc.Cols() != 3 {
		return nil, fmt.Errorf("anc voltage correction: want 3 columns, got %d", vc.Cols())
	}
	for i := 0; i < vc.Rows(); i++ {
		r.Voltage = append(r.Voltage, vc.Get(i, 0))
		r.CoeffA = append(r.CoeffA, vc.Get(i, 1))
		r.CoeffB = append(r.CoeffB, vc.Get(i, 2))
	}

	sc, err := loadGrid(filepath.Join(dir, sensitivityCurveFile))
	if err != nil {
		return nil, fmt.Errorf("anc sensitivity curve: %v", err)
	}
	if sc.Cols() != 2 {
		return nil, fmt.Errorf("anc sensitivity curve: want 2 columns, got %d", sc.Cols())
	}
	for i := 0; i < sc.Rows(); i++ {
		r.SensWavelength = append(r.SensWavelength, sc.Get(i, 0))
		r.SensSensitivity = append(r.SensSensitivity, sc.Get(i, 1))
	}

	if r.Flatfield, err = loadGrid(filepath.Join(dir, flatfieldFile)); err != nil {
		return nil, fmt.Errorf("anc flatfield: %v", err)
	}

	if err := r.loadTemplates(filepath.Join(dir, templatesFile)); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("anc templates: %v", err)
		}
	}

	return r, nil
}

// Template returns the named normalized spectral template (e.g.
// "CO_CAMERON", "NO_NIGHTGLOW"), or nil if the archive didn't carry it.
func (r *Reference)Template(name string) []float64 {
	return r.templates[name]
}

func (r *Reference)TemplateNames() []string {
	names := []string{}
	for n := range r.templates {
		names = append(names, n)
	}
	return names
}

// TemplateWavelengths returns the 1024 wavelength centers [nm] the spectral
// templates are sampled on.
func TemplateWavelengths() []float64 {
	return emath.Linspace(174.00487653, 341.44029638, 1024)
}

func (r *Reference)loadTemplates(filename string) error {
	f, closer, err := openFITS(filename)
	if err != nil {
		return err
	}
	defer closer()

	for _, hdu := range f.HDUs() {
		img, ok := hdu.(fitsio.Image)
		if !ok {
			continue
		}
		axes := img.Header().Axes()
		if len(axes) != 1 {
			continue
		}
		vals := make([]float64, axes[0])
		if err := img.Read(&vals); err != nil {
			return fmt.Errorf("template %q: %v", hdu.Name(), err)
		}
		r.templates[hdu.Name()] = vals
	}
	return nil
}

func loadGrid(filename string) (*emath.Grid, error) {
	f, closer, err := openFITS(filename)
	if err != nil {
		return nil, err
	}
	defer closer()

	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("%s: primary HDU is not an image", filename)
	}
	axes := img.Header().Axes()
	if len(axes) != 2 {
		return nil, fmt.Errorf("%s: want a 2D image, got %d axes", filename, len(axes))
	}

	// fitsio reads into the caller's slice, so it must be sized up front
	vals := make([]float64, axes[0]*axes[1])
	if err := img.Read(&vals); err != nil {
		return nil, fmt.Errorf("%s: %v", filename, err)
	}

	// NAXIS1 is the fastest (column) axis
	return emath.NewGridFrom(axes[1], axes[0], vals)
}

func openFITS(filename string) (*fitsio.File, func(), error) {
	r, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	f, err := fitsio.Open(r)
	if err != nil {
		r.Close()
		return nil, nil, fmt.Errorf("open %s: %v", filename, err)
	}
	return f, func() { f.Close(); r.Close() }, nil
}
