package muv

import(
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planetary-uv/quicklook/pkg/anc"
	"github.com/planetary-uv/quicklook/pkg/emath"
)

// identityReference is a reference set under which the gain model is the
// identity (a=0, b=1) and the sensitivity curve is flat 1.0, so calibrated
// values are easy to predict by hand.
func identityReference(t *testing.T) *anc.Reference {
	t.Helper()
	ff := emath.NewGrid(FlatfieldSpatialBins, FlatfieldSpectralBins)
	ff.Fill(1)
	return &anc.Reference{
		Voltage:         []float64{400, 1000},
		CoeffA:          []float64{0, 0},
		CoeffB:          []float64{1, 1},
		SensWavelength:  []float64{100, 400},
		SensSensitivity: []float64{1, 1},
		Flatfield:       ff,
	}
}

func testObservation() Observation {
	return Observation{
		IntTime:         0.2,
		MCPVolt:         700,
		MCPGain:         ReferenceMCPGain,
		SpatialBinSize:  6,
		SpectralBinSize: 34,
	}
}

func nativeEdges() (spa, spe []int) {
	for i := 0; i <= FlatfieldSpatialBins; i++ {
		spa = append(spa, FlatfieldSpatialStart+i*FlatfieldSpatialWidth)
	}
	for j := 0; j <= FlatfieldSpectralBins; j++ {
		spe = append(spe, FlatfieldSpectralStart+j*FlatfieldSpectralWidth)
	}
	return spa, spe
}

func TestGainCorrectionIdentity(t *testing.T) {
	cal, err := NewCalibrator(identityReference(t))
	require.NoError(t, err)

	// With a=0, b=1 the modeled gain equals the normalized counts, so the
	// correction collapses to MCPGain/ReferenceMCPGain = 1
	plane, _ := emath.NewGridFrom(1, 3, []float64{10, 250, 10000})
	corr := cal.GainCorrection(plane, testObservation())
	for j := 0; j < 3; j++ {
		assert.InDelta(t, 1.0, corr.Get(0, j), 1e-12)
	}

	// Doubled gain doubles the correction
	o := testObservation()
	o.MCPGain = 2 * ReferenceMCPGain
	corr = cal.GainCorrection(plane, o)
	assert.InDelta(t, 2.0, corr.Get(0, 1), 1e-12)
}

func TestGainCorrectionNonPositiveCountsGoNaN(t *testing.T) {
	cal, err := NewCalibrator(identityReference(t))
	require.NoError(t, err)

	plane, _ := emath.NewGridFrom(1, 3, []float64{0, -5, 100})
	corr := cal.GainCorrection(plane, testObservation())

	assert.True(t, math.IsNaN(corr.Get(0, 0)))
	assert.True(t, math.IsNaN(corr.Get(0, 1)))
	assert.False(t, math.IsNaN(corr.Get(0, 2)))
}

func TestCalibrationCurveScalesWithIntegrationTime(t *testing.T) {
	cal, err := NewCalibrator(identityReference(t))
	require.NoError(t, err)

	o := testObservation()
	wavelengths := []float64{200, 300}
	curve := cal.CalibrationCurve(wavelengths, o)

	o2 := o
	o2.IntTime = 2 * o.IntTime
	curve2 := cal.CalibrationCurve(wavelengths, o2)

	for i := range curve {
		assert.Greater(t, curve[i], 0.0)
		assert.InDelta(t, curve[i]/2, curve2[i], curve[i]*1e-12)
	}

	// Flat sensitivity, so the hand computation should match exactly
	want := 1.0 * 4 * math.Pi * 1e-9 / o.MCPGain / PixelAngularSize / o.IntTime / float64(o.SpatialBinSize)
	assert.InDelta(t, want, curve[0], want*1e-12)
}

func TestFlatfieldNativeRoundTrip(t *testing.T) {
	ref := identityReference(t)
	for i := 0; i < FlatfieldSpatialBins; i++ {
		for j := 0; j < FlatfieldSpectralBins; j++ {
			ref.Flatfield.Set(i, j, 0.5+float64(i*19+j)*1e-4)
		}
	}
	cal, err := NewCalibrator(ref)
	require.NoError(t, err)

	spa, spe := nativeEdges()
	ff, err := cal.Flatfield(spa, spe)
	require.NoError(t, err)
	require.Equal(t, FlatfieldSpatialBins, ff.Rows())
	require.Equal(t, FlatfieldSpectralBins, ff.Cols())

	// Native edges reproduce the master bit for bit
	for i := 0; i < ff.Rows(); i++ {
		for j := 0; j < ff.Cols(); j++ {
			assert.Equal(t, ref.Flatfield.Get(i, j), ff.Get(i, j))
		}
	}
}

func TestFlatfieldCoarseRebin(t *testing.T) {
	ref := identityReference(t)
	// Two native spectral bins valued 1 and 3; a target bin straddling them
	// equally averages to 2
	for i := 0; i < FlatfieldSpatialBins; i++ {
		ref.Flatfield.Set(i, 0, 1)
		ref.Flatfield.Set(i, 1, 3)
	}
	cal, err := NewCalibrator(ref)
	require.NoError(t, err)

	spa := []int{FlatfieldSpatialStart, FlatfieldSpatialStart + FlatfieldSpatialWidth}
	spe := []int{FlatfieldSpectralStart, FlatfieldSpectralStart + 2*FlatfieldSpectralWidth}
	ff, err := cal.Flatfield(spa, spe)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, ff.Get(0, 0), 1e-12)
}

func TestFlatfieldEdgeValidation(t *testing.T) {
	cal, err := NewCalibrator(identityReference(t))
	require.NoError(t, err)

	tests := []struct {
		name string
		spa  []int
		spe  []int
	}{
		{"too few spatial edges", []int{100}, []int{0, 1024}},
		{"non-ascending", []int{100, 100}, []int{0, 1024}},
		{"negative", []int{-1, 100}, []int{0, 1024}},
		{"past detector", []int{0, 100}, []int{0, 1025}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := cal.Flatfield(tc.spa, tc.spe)
			assert.Error(t, err)
		})
	}

	// Full-detector single bin is legal
	_, err = cal.Flatfield([]int{0, 1024}, []int{0, 1024})
	assert.NoError(t, err)
}

func TestCalibrateCube(t *testing.T) {
	cal, err := NewCalibrator(identityReference(t))
	require.NoError(t, err)

	o := testObservation()
	spa, spe := nativeEdges()
	nj, nk := FlatfieldSpatialBins, FlatfieldSpectralBins

	dds := emath.NewCube(2, nj, nk)
	wavelengths := emath.NewGrid(nj, nk)
	for j := 0; j < nj; j++ {
		for k := 0; k < nk; k++ {
			dds.Set(0, j, k, 100)
			dds.Set(1, j, k, 200)
			wavelengths.Set(j, k, 250)
		}
	}

	got, err := cal.CalibrateCube(dds, []Observation{o, o}, wavelengths, spa, spe)
	require.NoError(t, err)

	// Identity gain model + unit flatfield: output is counts divided by the
	// flat calibration curve
	curve := cal.CalibrationCurve([]float64{250}, o)[0]
	assert.InDelta(t, 100/curve, got.Get(0, 50, 9), math.Abs(100/curve)*1e-9)
	assert.InDelta(t, 200/curve, got.Get(1, 50, 9), math.Abs(200/curve)*1e-9)

	_, err = cal.CalibrateCube(dds, []Observation{o}, wavelengths, spa, spe)
	assert.Error(t, err, "observation count mismatch")
}

func TestObservationDayside(t *testing.T) {
	o := testObservation()
	assert.True(t, o.Dayside())
	o.MCPVolt = DayNightVoltageBoundary
	assert.False(t, o.Dayside())
	o.MCPVolt = 850
	assert.False(t, o.Dayside())
}
