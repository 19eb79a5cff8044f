// Package batch runs the quicklook pipeline over ranges of orbits: config,
// the per-orbit job, and a worker pool that keeps one bad orbit from
// sinking the rest.
package batch

import(
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v2"

	"github.com/planetary-uv/quicklook/pkg/orbit"
	"github.com/planetary-uv/quicklook/pkg/render"
)

/* Example config file ...

datadir: /archive/l1b
ancdir: /archive/anc
outdir: ./quicklooks
segment: apoapse
channel: muv
workers: 8
heightpx: 6000
writenetcdf: true
thumbnailwidth: 400

*/

type Config struct {
	DataDir string `yaml:"datadir" env:"UVQL_DATA_DIR"`
	AncDir  string `yaml:"ancdir" env:"UVQL_ANC_DIR"`
	OutDir  string `yaml:"outdir" env:"UVQL_OUT_DIR"`

	Segment string `yaml:"segment" env:"UVQL_SEGMENT"`
	Channel string `yaml:"channel" env:"UVQL_CHANNEL"`

	Workers int `yaml:"workers" env:"UVQL_WORKERS"`

	HeightPx       int  `yaml:"heightpx"`
	TermContour    bool `yaml:"termcontour"`
	ThumbnailWidth int  `yaml:"thumbnailwidth"`

	WriteNetCDF  bool `yaml:"writenetcdf"`
	SqrtFallback bool `yaml:"sqrtfallback"`
	NaNGuard     bool `yaml:"nanguard"`

	Verbosity int `yaml:"verbosity"`
}

func NewConfig() Config {
	return Config{
		OutDir:      ".",
		Segment:     "apoapse",
		Channel:     "muv",
		Workers:     4,
		HeightPx:    6000,
		TermContour: true,
	}
}

// LoadConfig layers the yaml file (if any) over the defaults, then the
// environment over the yaml.
func LoadConfig(ctx context.Context, filename string) (Config, error) {
	c := NewConfig()

	if filename != "" {
		if contents, err := os.ReadFile(filename); err != nil {
			return c, fmt.Errorf("read '%s': %v", filename, err)
		} else if err := yaml.Unmarshal(contents, &c); err != nil {
			return c, fmt.Errorf("parse '%s': %v", filename, err)
		}
	}

	if err := envconfig.Process(ctx, &c); err != nil {
		return c, fmt.Errorf("env config: %v", err)
	}

	return c, c.Finalize()
}

// Finalize does sanity checks and other post-processing
func (c *Config)Finalize() error {
	if c.DataDir == "" {
		return fmt.Errorf("no datadir configured")
	}
	if c.AncDir == "" {
		return fmt.Errorf("no ancdir configured")
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.HeightPx < 1 {
		c.HeightPx = 6000
	}
	return nil
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

func (c Config)AssemblyOptions() orbit.Options {
	opts := orbit.DefaultOptions()
	opts.SqrtFallback = c.SqrtFallback
	opts.NaNGuard = c.NaNGuard
	opts.Verbosity = c.Verbosity
	return opts
}

func (c Config)RenderSettings() render.Settings {
	s := render.DefaultSettings()
	s.HeightPx = c.HeightPx
	s.TermContour = c.TermContour
	s.Verbosity = c.Verbosity
	return s
}
