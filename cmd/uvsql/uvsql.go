package main

import(
	"context"
	"flag"
	"log"
	"strconv"

	"github.com/planetary-uv/quicklook/pkg/archive"
	"github.com/planetary-uv/quicklook/pkg/batch"
)

var(
	fConfigFile string
	fVerbosity int
	fDataDir string
	fAncDir string
	fOutDir string
	fWorkers int
	fHeightPx int
	fNetCDF bool
	fSqrtFallback bool
)

func init() {
	flag.StringVar(&fConfigFile, "config", "", "yaml config file (optional)")
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")

	flag.StringVar(&fDataDir, "datadir", "", "root of the l1b product archive")
	flag.StringVar(&fAncDir, "ancdir", "", "dir holding the ancillary calibration files")
	flag.StringVar(&fOutDir, "outdir", "", "where the quicklooks go")

	flag.IntVar(&fWorkers, "workers", 0, "how many orbits to process in parallel")
	flag.IntVar(&fHeightPx, "height", 0, "vertical resolution of the output raster")
	flag.BoolVar(&fNetCDF, "netcdf", false, "also export the numbers as NetCDF")
	flag.BoolVar(&fSqrtFallback, "sqrtfallback", false, "sqrt-scale partitions too thin to equalize")
	flag.Parse()

	log.Printf("uvsql starting\n")
}

func main() {
	cfg, err := batch.LoadConfig(context.Background(), fConfigFile)
	if err != nil {
		log.Fatal(err)
	}

	// Command line wins over file and env
	if fDataDir != "" { cfg.DataDir = fDataDir }
	if fAncDir != "" { cfg.AncDir = fAncDir }
	if fOutDir != "" { cfg.OutDir = fOutDir }
	if fWorkers > 0 { cfg.Workers = fWorkers }
	if fHeightPx > 0 { cfg.HeightPx = fHeightPx }
	if fNetCDF { cfg.WriteNetCDF = true }
	if fSqrtFallback { cfg.SqrtFallback = true }
	cfg.Verbosity = fVerbosity
	if err := cfg.Finalize(); err != nil {
		log.Fatal(err)
	}

	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	first, last := orbitRange(flag.Args())

	runner, err := batch.NewRunner(cfg)
	if err != nil {
		log.Fatal(err)
	}

	results := runner.Run(first, last)

	ok, skipped, failed := 0, 0, 0
	for _, res := range results {
		switch {
		case res.Err != nil: failed++
		case res.Skipped: skipped++
		default: ok++
		}
	}
	log.Printf("uvsql done: %d orbits rendered, %d skipped, %d failed\n", ok, skipped, failed)
	if failed > 0 {
		log.Fatal("some orbits failed")
	}
}

// orbitRange parses the positional args: either one orbit number, or a
// first and last.
func orbitRange(args []string) (archive.Orbit, archive.Orbit) {
	if len(args) < 1 || len(args) > 2 {
		log.Fatal("usage: uvsql [flags] <orbit> [<lastorbit>]")
	}

	first, err := strconv.Atoi(args[0])
	if err != nil {
		log.Fatalf("bad orbit number '%s': %v", args[0], err)
	}
	last := first
	if len(args) == 2 {
		if last, err = strconv.Atoi(args[1]); err != nil {
			log.Fatalf("bad orbit number '%s': %v", args[1], err)
		}
	}
	if last < first {
		first, last = last, first
	}
	return archive.Orbit(first), archive.Orbit(last)
}
