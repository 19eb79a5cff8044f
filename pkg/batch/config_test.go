package batch

import(
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("UVQL_DATA_DIR", "/archive/l1b")
	t.Setenv("UVQL_ANC_DIR", "/archive/anc")

	cfg, err := LoadConfig(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "apoapse", cfg.Segment)
	assert.Equal(t, "muv", cfg.Channel)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 6000, cfg.HeightPx)
	assert.True(t, cfg.TermContour)
	assert.False(t, cfg.WriteNetCDF)
	assert.False(t, cfg.NaNGuard)
}

func TestLoadConfigYamlAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uvsql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
datadir: /from/yaml
ancdir: /from/yaml/anc
workers: 8
heightpx: 1000
writenetcdf: true
`), 0644))

	// Env wins over yaml
	t.Setenv("UVQL_DATA_DIR", "/from/env")

	cfg, err := LoadConfig(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.Equal(t, "/from/yaml/anc", cfg.AncDir)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 1000, cfg.HeightPx)
	assert.True(t, cfg.WriteNetCDF)
}

func TestFinalizeValidation(t *testing.T) {
	c := NewConfig()
	assert.Error(t, c.Finalize(), "no datadir")

	c.DataDir = "/d"
	assert.Error(t, c.Finalize(), "no ancdir")

	c.AncDir = "/a"
	c.Workers = -3
	c.HeightPx = 0
	require.NoError(t, c.Finalize())
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, 6000, c.HeightPx)
}

func TestAssemblyAndRenderSettings(t *testing.T) {
	c := NewConfig()
	c.SqrtFallback = true
	c.NaNGuard = true
	c.HeightPx = 1234
	c.TermContour = false
	c.Verbosity = 2

	opts := c.AssemblyOptions()
	assert.True(t, opts.SqrtFallback)
	assert.True(t, opts.NaNGuard)
	assert.Equal(t, 266, opts.MinMaskedPixels)
	assert.Equal(t, 102.0, opts.MaxSZA)

	s := c.RenderSettings()
	assert.Equal(t, 1234, s.HeightPx)
	assert.False(t, s.TermContour)
	assert.Equal(t, 2, s.Verbosity)
}

func TestAsYamlRoundTrips(t *testing.T) {
	c := NewConfig()
	c.DataDir = "/d"
	out := c.AsYaml()
	assert.Contains(t, out, "datadir: /d")
	assert.Contains(t, out, "segment: apoapse")
}
