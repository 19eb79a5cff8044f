package orbit

import(
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planetary-uv/quicklook/pkg/anc"
	"github.com/planetary-uv/quicklook/pkg/archive"
	"github.com/planetary-uv/quicklook/pkg/emath"
	"github.com/planetary-uv/quicklook/pkg/muv"
)

const(
	testNInt = 5
	testNSpa = 20
	testNSpe = 19
)

func testCalibrator(t *testing.T) *muv.Calibrator {
	t.Helper()
	ff := emath.NewGrid(muv.FlatfieldSpatialBins, muv.FlatfieldSpectralBins)
	ff.Fill(1)
	ref := &anc.Reference{
		Voltage:         []float64{400, 1000},
		CoeffA:          []float64{0, 0},
		CoeffB:          []float64{1, 1},
		SensWavelength:  []float64{100, 400},
		SensSensitivity: []float64{1, 1},
		Flatfield:       ff,
	}
	cal, err := muv.NewCalibrator(ref)
	require.NoError(t, err)
	return cal
}

// testFile builds one synthetic archive record: 5 integrations of a 20x19
// detector with everything on-disk and lit.
func testFile(mcpVolt, fovStart float64) *archive.Record {
	dds := emath.NewCube(testNInt, testNSpa, testNSpe)
	for i := range dds.Values() {
		dds.Values()[i] = 100 + float64(i%31)
	}

	sza := emath.NewGrid(testNInt, testNSpa)
	sza.Fill(40)
	alt := emath.NewGrid(testNInt, testNSpa)
	lon := emath.NewGrid(testNInt, testNSpa)
	lon.Fill(120)
	lat := emath.NewGrid(testNInt, testNSpa)
	lt := emath.NewGrid(testNInt, testNSpa)

	wl := emath.NewGrid(testNSpa, testNSpe)
	for j := 0; j < testNSpa; j++ {
		for k := 0; k < testNSpe; k++ {
			wl.Set(j, k, 200+float64(k)*5)
		}
	}

	fov := make([]float64, testNInt)
	vx := make([][3]float64, testNInt)
	rate := make([][3]float64, testNInt)
	for i := range fov {
		fov[i] = fovStart + 0.1*float64(i)
		vx[i] = [3]float64{1, 0, 0}
		rate[i] = [3]float64{0.05, 0, 0}
	}

	spaEdges := make([]int, testNSpa+1)
	for i := range spaEdges {
		spaEdges[i] = 103 + 6*i
	}
	speEdges := make([]int, testNSpe+1)
	for i := range speEdges {
		speEdges[i] = 172 + 34*i
	}

	return &archive.Record{
		DarkSubtracted:   dds,
		Raw:              dds.Copy(),
		SolarZenithAngle: sza,
		Altitude:         alt,
		Longitude:        lon,
		Latitude:         lat,
		LocalTime:        lt,
		Wavelength:       wl,
		FieldOfView:      fov,
		EphemerisTime:    make([]float64, testNInt),
		VXInstrument:     vx,
		VSpacecraftRate:  rate,
		MCPVolt:          mcpVolt,
		MCPGain:          muv.ReferenceMCPGain,
		IntTime:          0.2,
		SpatialBinSize:   6,
		SpectralBinSize:  34,
		SpatialBinEdges:  spaEdges,
		SpectralBinEdges: speEdges,
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	// The synthetic detector is 5x20, far below the operational floor
	opts.MinMaskedPixels = 50
	opts.HistEqMinPixels = 50
	return opts
}

func TestAssembleDayside(t *testing.T) {
	a := NewAssembler(testCalibrator(t), testOptions())
	files := []*archive.Record{
		testFile(700, 80.0), // dayside, swath 0
		testFile(850, 76.0), // nightside, swath 1
	}

	img, err := a.Assemble(archive.Orbit(3453), files, Dayside)
	require.NoError(t, err)
	require.NotNil(t, img)

	assert.Equal(t, Dayside, img.Partition)
	assert.Equal(t, testNInt, img.RGB.NInt())
	assert.Equal(t, testNSpa, img.RGB.NSpatial())
	assert.Equal(t, 3, img.RGB.NSpectral())
	for _, v := range img.RGB.Values() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 255.0)
	}

	// Swath count spans both partitions
	assert.Equal(t, 2, img.NSwaths)
	require.Len(t, img.Swaths, 1)
	assert.Equal(t, 0, img.Swaths[0].Number)

	sw := img.Swaths[0]
	assert.Equal(t, testNInt+1, sw.X.Rows())
	assert.Equal(t, testNSpa+1, sw.X.Cols())
	assert.Equal(t, testNInt, sw.CenterX.Rows())
	assert.Equal(t, testNSpa, sw.CenterX.Cols())
	assert.Equal(t, testNInt, sw.SZA.Rows())

	assert.False(t, img.Flipped)
	assert.Equal(t, testNInt*testNSpa, img.MaskedPixels)
}

func TestAssembleNightside(t *testing.T) {
	a := NewAssembler(testCalibrator(t), testOptions())
	files := []*archive.Record{
		testFile(700, 80.0),
		testFile(850, 76.0),
	}

	img, err := a.Assemble(archive.Orbit(3453), files, Nightside)
	require.NoError(t, err)
	require.NotNil(t, img)

	assert.Equal(t, Nightside, img.Partition)
	require.Len(t, img.Swaths, 1)
	assert.Equal(t, 1, img.Swaths[0].Number, "nightside files continue the orbit's numbering")
	assert.Equal(t, 2, img.NSwaths)
}

func TestAssembleEmptyPartition(t *testing.T) {
	a := NewAssembler(testCalibrator(t), testOptions())
	files := []*archive.Record{testFile(700, 80.0)}

	img, err := a.Assemble(archive.Orbit(1), files, Nightside)
	assert.NoError(t, err)
	assert.Nil(t, img)
}

func TestAssembleTooFewMaskedPixels(t *testing.T) {
	a := NewAssembler(testCalibrator(t), testOptions())
	f := testFile(700, 80.0)
	f.SolarZenithAngle.Fill(150) // deep in the night, nothing lit

	img, err := a.Assemble(archive.Orbit(1), []*archive.Record{f}, Dayside)
	assert.NoError(t, err)
	assert.Nil(t, img)
}

func TestAssembleSqrtFallback(t *testing.T) {
	opts := testOptions()
	opts.MinMaskedPixels = 1000 // force the primary path off
	opts.SqrtFallback = true
	a := NewAssembler(testCalibrator(t), opts)

	img, err := a.Assemble(archive.Orbit(1), []*archive.Record{testFile(700, 80.0)}, Dayside)
	require.NoError(t, err)
	require.NotNil(t, img)
	for _, v := range img.RGB.Values() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 255.0)
	}
}

func TestAssembleFlip(t *testing.T) {
	a := NewAssembler(testCalibrator(t), testOptions())

	f := testFile(700, 80.0)
	for i := range f.VSpacecraftRate {
		f.VSpacecraftRate[i] = [3]float64{-0.05, 0, 0}
	}
	// Tag one spatial edge of the detector so the mirror shows up
	for i := 0; i < testNInt; i++ {
		for k := 0; k < testNSpe; k++ {
			f.DarkSubtracted.Set(i, 0, k, 5000)
		}
	}

	img, err := a.Assemble(archive.Orbit(1), []*archive.Record{f}, Dayside)
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.True(t, img.Flipped)

	// The bright edge ends up on the far side after the flip
	assert.Equal(t, 255.0, img.RGB.Get(0, testNSpa-1, 0))
}

func TestAssembleMultiFileStacking(t *testing.T) {
	a := NewAssembler(testCalibrator(t), testOptions())
	files := []*archive.Record{
		testFile(700, 80.0),
		testFile(700, 76.0), // same partition, next swath
	}

	img, err := a.Assemble(archive.Orbit(1), files, Dayside)
	require.NoError(t, err)
	require.NotNil(t, img)

	assert.Equal(t, 2*testNInt, img.RGB.NInt())
	require.Len(t, img.Swaths, 2)
	assert.Equal(t, 0, img.Swaths[0].Number)
	assert.Equal(t, 1, img.Swaths[1].Number)
	assert.Equal(t, testNInt, img.Swaths[0].RGB.NInt())
	assert.Equal(t, testNInt, img.Swaths[1].RGB.NInt())
}

func TestPartitionString(t *testing.T) {
	assert.Equal(t, "dayside", Dayside.String())
	assert.Equal(t, "nightside", Nightside.String())
}
