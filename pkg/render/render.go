// Package render rasterizes an assembled orbit image into the standard
// quicklook PNG: swaths laid side by side in mirror-angle space, each
// detector cell drawn as a filled quad, with the terminator contour
// overlaid on the dayside.
package render

import(
	"fmt"
	"image"
	"image/png"
	"log"
	"math"
	"os"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/planetary-uv/quicklook/pkg/emath"
	"github.com/planetary-uv/quicklook/pkg/muv"
	"github.com/planetary-uv/quicklook/pkg/orbit"
)

// Settings control the raster geometry. HeightPx fixes the vertical
// resolution; the width follows from the mosaic's angular aspect ratio.
type Settings struct {
	HeightPx    int
	TermContour bool // overlay the solar zenith angle 90 contour
	Verbosity   int
}

func DefaultSettings() Settings {
	return Settings{
		HeightPx:    6000,
		TermContour: true,
	}
}

type Renderer struct {
	Settings
}

func NewRenderer(s Settings) *Renderer {
	return &Renderer{Settings: s}
}

// A frame is the angular extent of one mosaic: y spans the doubled mirror
// sweep, x spans NSwaths slit widths. Per-render state, so one Renderer is
// safe across worker goroutines.
type frame struct {
	xMax, yMin, yMax float64
}

// Render draws the full quicklook for one partition.
func (r *Renderer)Render(img *orbit.Image) *image.RGBA {
	fr := frame{
		xMax: float64(img.NSwaths) * muv.AngularSlitWidth,
		yMin: 2 * muv.MinimumMirrorAngle,
		yMax: 2 * muv.MaximumMirrorAngle,
	}

	aspect := fr.xMax / (fr.yMax - fr.yMin)
	w := int(math.Round(float64(r.HeightPx) * aspect))
	if w < 1 {
		w = 1
	}

	dc := gg.NewContext(w, r.HeightPx)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	for _, sw := range img.Swaths {
		drawSwath(dc, fr, &sw)
	}
	if r.TermContour && img.Partition == orbit.Dayside {
		for _, sw := range img.Swaths {
			// The first swath's geometry overlaps the slew into the
			// observation; its contour is noise, so skip it
			if sw.Number == 0 {
				continue
			}
			r.drawTerminator(dc, fr, &sw)
		}
	}

	if r.Verbosity > 0 {
		log.Printf("render: %s %s, %d swaths -> %dx%d\n",
			img.Orbit.Code(), img.Partition, len(img.Swaths), w, r.HeightPx)
	}

	return dc.Image().(*image.RGBA)
}

// drawSwath fills one quad per detector cell, corners taken from the
// swath's angular meshes.
func drawSwath(dc *gg.Context, fr frame, sw *orbit.SwathImage) {
	nInt := sw.RGB.NInt()
	nSpa := sw.RGB.NSpatial()

	for i := 0; i < nInt; i++ {
		for j := 0; j < nSpa; j++ {
			red := sw.RGB.Get(i, j, 0)
			grn := sw.RGB.Get(i, j, 1)
			blu := sw.RGB.Get(i, j, 2)
			if math.IsNaN(red) || math.IsNaN(grn) || math.IsNaN(blu) {
				continue
			}

			x0, y0 := fr.toPx(dc, sw.X.Get(i, j), sw.Y.Get(i, j))
			x1, y1 := fr.toPx(dc, sw.X.Get(i, j+1), sw.Y.Get(i, j+1))
			x2, y2 := fr.toPx(dc, sw.X.Get(i+1, j+1), sw.Y.Get(i+1, j+1))
			x3, y3 := fr.toPx(dc, sw.X.Get(i+1, j), sw.Y.Get(i+1, j))

			dc.SetRGB255(int(red), int(grn), int(blu))
			dc.MoveTo(x0, y0)
			dc.LineTo(x1, y1)
			dc.LineTo(x2, y2)
			dc.LineTo(x3, y3)
			dc.ClosePath()
			dc.Fill()
		}
	}
}

// drawTerminator overlays the SZA=90 contour, segments found by marching
// squares over the cell-center mesh.
func (r *Renderer)drawTerminator(dc *gg.Context, fr frame, sw *orbit.SwathImage) {
	dc.SetRGB(1, 1, 1)
	dc.SetLineWidth(float64(r.HeightPx) / 2000)

	for _, seg := range ContourSegments(sw.SZA, sw.CenterX, sw.CenterY, 90) {
		x0, y0 := fr.toPx(dc, seg[0], seg[1])
		x1, y1 := fr.toPx(dc, seg[2], seg[3])
		dc.DrawLine(x0, y0, x1, y1)
		dc.Stroke()
	}
}

// toPx maps angular coordinates onto the raster. Angular y grows up the
// sweep, raster y grows down the page.
func (fr frame)toPx(dc *gg.Context, x, y float64) (float64, float64) {
	px := x / fr.xMax * float64(dc.Width())
	py := (fr.yMax - y) / (fr.yMax - fr.yMin) * float64(dc.Height())
	return px, py
}

// ContourSegments runs marching squares over a scalar field sampled on an
// irregular mesh, returning line segments {x0,y0,x1,y1} tracing the given
// level. Mesh holes (NaN samples) break the contour.
func ContourSegments(field, xs, ys *emath.Grid, level float64) [][4]float64 {
	segs := [][4]float64{}

	cross := func(i0, j0, i1, j1 int) (float64, float64, bool) {
		v0 := field.Get(i0, j0) - level
		v1 := field.Get(i1, j1) - level
		if math.IsNaN(v0) || math.IsNaN(v1) || (v0 < 0) == (v1 < 0) {
			return 0, 0, false
		}
		t := v0 / (v0 - v1)
		x := xs.Get(i0, j0) + t*(xs.Get(i1, j1)-xs.Get(i0, j0))
		y := ys.Get(i0, j0) + t*(ys.Get(i1, j1)-ys.Get(i0, j0))
		return x, y, true
	}

	for i := 0; i < field.Rows()-1; i++ {
		for j := 0; j < field.Cols()-1; j++ {
			pts := [][2]float64{}
			for _, e := range [][4]int{
				{i, j, i, j + 1},
				{i, j + 1, i + 1, j + 1},
				{i + 1, j + 1, i + 1, j},
				{i + 1, j, i, j},
			} {
				if x, y, ok := cross(e[0], e[1], e[2], e[3]); ok {
					pts = append(pts, [2]float64{x, y})
				}
			}
			// 2 crossings is the normal case; 4 is the ambiguous saddle,
			// drawn as two independent pairs
			for k := 0; k+1 < len(pts); k += 2 {
				segs = append(segs, [4]float64{pts[k][0], pts[k][1], pts[k+1][0], pts[k+1][1]})
			}
		}
	}
	return segs
}

// Thumbnail scales the quicklook down to the given width, preserving
// aspect.
func Thumbnail(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	height := int(math.Round(float64(width) * float64(b.Dy()) / float64(b.Dx())))
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}
