package batch

import(
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/planetary-uv/quicklook/pkg/anc"
	"github.com/planetary-uv/quicklook/pkg/archive"
	"github.com/planetary-uv/quicklook/pkg/muv"
	"github.com/planetary-uv/quicklook/pkg/orbit"
	"github.com/planetary-uv/quicklook/pkg/product"
	"github.com/planetary-uv/quicklook/pkg/render"
)

// A Result records what one orbit job produced, or how it failed.
type Result struct {
	Orbit    archive.Orbit
	Outputs  []string
	Skipped  bool
	Err      error
}

type Runner struct {
	Config    Config
	Assembler *orbit.Assembler
	Renderer  *render.Renderer
}

func NewRunner(c Config) (*Runner, error) {
	ref, err := anc.Load(c.AncDir)
	if err != nil {
		return nil, fmt.Errorf("ancillary data: %v", err)
	}
	cal, err := muv.NewCalibrator(ref)
	if err != nil {
		return nil, fmt.Errorf("calibrator: %v", err)
	}
	return &Runner{
		Config:    c,
		Assembler: orbit.NewAssembler(cal, c.AssemblyOptions()),
		Renderer:  render.NewRenderer(c.RenderSettings()),
	}, nil
}

// Run processes every orbit in [first, last] over a worker pool, collecting
// per-orbit results. An orbit that fails is logged and reported, never
// fatal to the batch.
func (r *Runner)Run(first, last archive.Orbit) []Result {
	var wg sync.WaitGroup
	n := int(last-first) + 1
	jobsChan := make(chan archive.Orbit, n)
	resultsChan := make(chan Result, n)

	// Kick off worker pool
	for i := 0; i < r.Config.Workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			for orb := range jobsChan {
				resultsChan <- r.runOne(orb)
			}
		}()
	}

	// Feed in jobs
	for orb := first; orb <= last; orb++ {
		jobsChan <- orb
	}

	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	results := make([]Result, 0, n)
	for res := range resultsChan {
		if res.Err != nil {
			log.Printf("%s: FAILED: %v\n", res.Orbit.Code(), res.Err)
		}
		results = append(results, res)
	}
	return results
}

// runOne assembles, renders and exports both partitions of one orbit. A
// panic in the numeric guts is downgraded to a job error so the pool
// survives malformed archive files.
func (r *Runner)runOne(orb archive.Orbit) (res Result) {
	res.Orbit = orb

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic: %v", p)
		}
	}()

	files, err := archive.ReadOrbit(r.Config.DataDir, orb, r.Config.Segment, r.Config.Channel)
	if err != nil {
		res.Err = err
		return
	}
	if len(files) == 0 {
		res.Skipped = true
		return
	}

	for _, part := range []orbit.Partition{orbit.Dayside, orbit.Nightside} {
		img, err := r.Assembler.Assemble(orb, files, part)
		if err != nil {
			res.Err = err
			return
		}
		if img == nil {
			continue
		}

		raster := r.Renderer.Render(img)
		pngName := filepath.Join(r.Config.OutDir,
			fmt.Sprintf("%s-%s-%s-%s.png", r.Config.Segment, orb.Code(), r.Config.Channel, part))
		if err := render.WritePNG(raster, pngName); err != nil {
			res.Err = err
			return
		}
		res.Outputs = append(res.Outputs, pngName)

		if r.Config.ThumbnailWidth > 0 {
			thumbName := pngName[:len(pngName)-4] + "-thumb.png"
			if err := render.WritePNG(render.Thumbnail(raster, r.Config.ThumbnailWidth), thumbName); err != nil {
				res.Err = err
				return
			}
			res.Outputs = append(res.Outputs, thumbName)
		}

		if r.Config.WriteNetCDF {
			ncName, err := product.WriteNetCDF(r.Config.OutDir, img, r.Config.Segment, r.Config.Channel)
			if err != nil {
				res.Err = err
				return
			}
			res.Outputs = append(res.Outputs, ncName)
		}
	}

	res.Skipped = len(res.Outputs) == 0
	return
}
