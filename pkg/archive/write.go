package archive

import(
	"fmt"
	"os"

	"github.com/astrogo/fitsio"

	"github.com/planetary-uv/quicklook/pkg/emath"
)

// WriteRecord writes an l1b product file in the layout ReadRecord expects.
// The pipeline itself never writes l1b files; this exists for fixture
// generation and archive repair tooling.
func WriteRecord(path string, rec *Record) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %v", path, err)
	}
	defer w.Close()

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("fits create %s: %v", path, err)
	}
	defer f.Close()

	primary := cubeHDU(rec.DarkSubtracted, "")
	if err := primary.Header().Append(
		fitsio.Card{Name: "MCP_VOLT", Value: rec.MCPVolt},
		fitsio.Card{Name: "MCP_GAIN", Value: rec.MCPGain},
		fitsio.Card{Name: "INT_TIME", Value: rec.IntTime},
		fitsio.Card{Name: "SPA_SIZE", Value: rec.SpatialBinSize},
		fitsio.Card{Name: "SPE_SIZE", Value: rec.SpectralBinSize},
	); err != nil {
		return fmt.Errorf("%s primary header: %v", path, err)
	}
	if err := writeHDU(f, primary, rec.DarkSubtracted.Values()); err != nil {
		return fmt.Errorf("%s primary: %v", path, err)
	}

	hdus := []struct {
		name string
		hdu  fitsio.Image
		vals []float64
	}{
		{extRaw, cubeHDU(rec.Raw, extRaw), rec.Raw.Values()},
		{extSZA, gridHDU(rec.SolarZenithAngle, extSZA), rec.SolarZenithAngle.Values()},
		{extAltitude, gridHDU(rec.Altitude, extAltitude), rec.Altitude.Values()},
		{extLongitude, gridHDU(rec.Longitude, extLongitude), rec.Longitude.Values()},
		{extLatitude, gridHDU(rec.Latitude, extLatitude), rec.Latitude.Values()},
		{extLocalTime, gridHDU(rec.LocalTime, extLocalTime), rec.LocalTime.Values()},
		{extWavelength, gridHDU(rec.Wavelength, extWavelength), rec.Wavelength.Values()},
		{extFOV, vectorHDU(len(rec.FieldOfView), extFOV), rec.FieldOfView},
		{extET, vectorHDU(len(rec.EphemerisTime), extET), rec.EphemerisTime},
		{extVXInst, vectors3HDU(len(rec.VXInstrument), extVXInst), flatten3(rec.VXInstrument)},
		{extVSCRate, vectors3HDU(len(rec.VSpacecraftRate), extVSCRate), flatten3(rec.VSpacecraftRate)},
		{extSpaEdges, vectorHDU(len(rec.SpatialBinEdges), extSpaEdges), intsToFloats(rec.SpatialBinEdges)},
		{extSpeEdges, vectorHDU(len(rec.SpectralBinEdges), extSpeEdges), intsToFloats(rec.SpectralBinEdges)},
	}
	for _, h := range hdus {
		if err := writeHDU(f, h.hdu, h.vals); err != nil {
			return fmt.Errorf("%s %s: %v", path, h.name, err)
		}
	}

	return nil
}

func writeHDU(f *fitsio.File, img fitsio.Image, vals []float64) error {
	if err := img.Write(&vals); err != nil {
		return err
	}
	return f.Write(img)
}

func cubeHDU(c *emath.Cube, name string) fitsio.Image {
	img := fitsio.NewImage(-64, []int{c.NSpectral(), c.NSpatial(), c.NInt()})
	nameHDU(img, name)
	return img
}

func gridHDU(g *emath.Grid, name string) fitsio.Image {
	img := fitsio.NewImage(-64, []int{g.Cols(), g.Rows()})
	nameHDU(img, name)
	return img
}

func vectorHDU(n int, name string) fitsio.Image {
	img := fitsio.NewImage(-64, []int{n})
	nameHDU(img, name)
	return img
}

func vectors3HDU(n int, name string) fitsio.Image {
	img := fitsio.NewImage(-64, []int{3, n})
	nameHDU(img, name)
	return img
}

func nameHDU(img fitsio.Image, name string) {
	if name != "" {
		img.Header().Append(fitsio.Card{Name: "EXTNAME", Value: name})
	}
}

func flatten3(vs [][3]float64) []float64 {
	out := make([]float64, 0, 3*len(vs))
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func intsToFloats(vs []int) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out
}
