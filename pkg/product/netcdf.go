// Package product exports assembled orbit images as NetCDF files, for the
// folks who want the numbers rather than the picture.
package product

import(
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"

	"github.com/planetary-uv/quicklook/pkg/emath"
	"github.com/planetary-uv/quicklook/pkg/orbit"
)

// Filename is the export naming convention,
// e.g. apoapse-orbit03453-muv-dayside.nc
func Filename(img *orbit.Image, segment, channel string) string {
	return fmt.Sprintf("%s-%s-%s-%s.nc", segment, img.Orbit.Code(), channel, img.Partition)
}

// WriteNetCDF writes the colorized cube, the calibrated radiances, and the
// swath numbering of one partition image.
func WriteNetCDF(dir string, img *orbit.Image, segment, channel string) (string, error) {
	nInt := img.RGB.NInt()
	nSpa := img.RGB.NSpatial()
	nSpe := img.Calibrated.NSpectral()

	h := cdf.NewHeader(
		[]string{"integration", "spatial_bin", "spectral_bin", "rgb"},
		[]int{nInt, nSpa, nSpe, 3})
	h.AddAttribute("", "segment", segment)
	h.AddAttribute("", "channel", channel)
	h.AddAttribute("", "orbit", []int32{int32(img.Orbit)})
	h.AddAttribute("", "partition", img.Partition.String())
	h.AddAttribute("", "n_swaths", []int32{int32(img.NSwaths)})
	h.AddAttribute("", "flipped", fmt.Sprintf("%v", img.Flipped))

	h.AddVariable("brightness", []string{"integration", "spatial_bin", "rgb"}, []float32{0})
	h.AddAttribute("brightness", "description", "histogram-equalized color, 0..255")

	h.AddVariable("radiance", []string{"integration", "spatial_bin", "spectral_bin"}, []float32{0})
	h.AddAttribute("radiance", "units", "kR/nm")

	h.AddVariable("swath_number", []string{"integration"}, []int32{0})
	h.Define()

	path := filepath.Join(dir, Filename(img, segment, channel))
	w, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %v", path, err)
	}
	defer w.Close()

	f, err := cdf.Create(w, h)
	if err != nil {
		return "", fmt.Errorf("netcdf %s: %v", path, err)
	}

	if err := writeFloats(f, "brightness", img.RGB); err != nil {
		return "", fmt.Errorf("%s: %v", path, err)
	}
	if err := writeFloats(f, "radiance", img.Calibrated); err != nil {
		return "", fmt.Errorf("%s: %v", path, err)
	}
	if err := writeSwathNumbers(f, img); err != nil {
		return "", fmt.Errorf("%s: %v", path, err)
	}

	if err := cdf.UpdateNumRecs(w); err != nil {
		return "", fmt.Errorf("%s: %v", path, err)
	}
	return path, nil
}

func writeFloats(f *cdf.File, name string, c *emath.Cube) error {
	vals := c.Values()
	data := make([]float32, len(vals))
	for i, v := range vals {
		data[i] = float32(v)
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	_, err := f.Writer(name, start, end).Write(data)
	return err
}

func writeSwathNumbers(f *cdf.File, img *orbit.Image) error {
	data := make([]int32, 0, img.RGB.NInt())
	for _, sw := range img.Swaths {
		for i := 0; i < sw.RGB.NInt(); i++ {
			data = append(data, int32(sw.Number))
		}
	}
	end := f.Header.Lengths("swath_number")
	start := make([]int, len(end))
	_, err := f.Writer("swath_number", start, end).Write(data)
	return err
}
