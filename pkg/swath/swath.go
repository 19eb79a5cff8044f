// Package swath derives swath indices from the scan mirror motion and
// builds the angular meshes used to mosaic each swath.
package swath

import(
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/planetary-uv/quicklook/pkg/emath"
	"github.com/planetary-uv/quicklook/pkg/muv"
)

// Numbers assigns a swath index to every integration from the field-of-view
// angle series. A new swath starts wherever the mirror angle jumps by more
// than 4x the initial step (the mirror flying back for the next sweep).
func Numbers(fov []float64) []int {
	out := make([]int, len(fov))
	if len(fov) < 2 {
		return out
	}

	threshold := math.Abs(fov[1]-fov[0]) * 4
	n := 0
	for i := 1; i < len(fov); i++ {
		if math.Abs(fov[i]-fov[i-1]) > threshold {
			n++
		}
		out[i] = n
	}
	return out
}

// MakeGrid builds the pair of 2D meshes that place one swath in the mosaic.
// The horizontal axis is nPositions+1 angular slit-width coordinates
// spanning [slitWidth*swath, slitWidth*(swath+1)]; the vertical axis is
// nIntegrations+1 coordinates spanning the observed field-of-view samples
// extrapolated half an average step past each end, so each cell is centered
// on its integration's mirror angle. Both meshes come back with shape
// (nIntegrations+1, nPositions+1).
//
// For contour overlays aligned to cell centers rather than cell edges, call
// this again with nPositions-1 and nIntegrations-1; that mesh is related
// but not interchangeable with this one.
func MakeGrid(fov []float64, swath, nPositions, nIntegrations int) (x, y *emath.Grid) {
	slitAngles := emath.Linspace(muv.AngularSlitWidth*float64(swath),
		muv.AngularSlitWidth*float64(swath+1), nPositions+1)

	meanStep := 0.0
	if len(fov) > 1 {
		meanStep = stat.Mean(emath.Diff(fov), nil)
	}
	angles := emath.Linspace(fov[0]-meanStep/2, fov[len(fov)-1]+meanStep/2, nIntegrations+1)

	x = emath.NewGrid(nIntegrations+1, nPositions+1)
	y = emath.NewGrid(nIntegrations+1, nPositions+1)
	for i := 0; i <= nIntegrations; i++ {
		for j := 0; j <= nPositions; j++ {
			x.Set(i, j, slitAngles[j])
			y.Set(i, j, angles[i])
		}
	}
	return x, y
}
