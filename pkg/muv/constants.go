// Package muv holds the instrument constants and the radiometric calibration
// engine for the mid-ultraviolet channel: MCP gain nonlinearity correction,
// the DN-per-kilorayleigh calibration curve, and flatfield rebinning.
package muv

import "math"

// Instrument constants. Most come from the instrument paper; the focal
// length is the ray-tracing value, not the 1-sig-fig published one.
const(
	SpatialSlitThickness = 0.1   // mm
	SpatialSlitLength    = 19.8  // mm
	TelescopeFocalLength = 99.5  // mm

	// Width of the slit [degrees]
	AngularSlitWidth = SpatialSlitLength / TelescopeFocalLength * 180 / math.Pi

	// Length of a detector pixel [mm]: detector length / 1024 pixels
	PixelLength = 22.0 / 1024.0

	// Angular size of a detector pixel [sr]
	PixelAngularSize = PixelLength / TelescopeFocalLength * SpatialSlitThickness / TelescopeFocalLength

	// Scan mirror limits [degrees]
	MinimumMirrorAngle = 30.2508544921875
	MaximumMirrorAngle = 59.6502685546875

	// Settings with MCP voltage below this are dayside observations
	DayNightVoltageBoundary = 790.0

	// MCP gain the gain-correction model was fit at
	ReferenceMCPGain = 50.909455

	// Native detector resolution, pixels per axis
	DetectorSize = 1024
)

// Native binning scheme of the master flatfield: 133 spatial bins of 6
// pixels starting at detector pixel 103, 19 spectral bins of 34 pixels
// starting at pixel 172.
const(
	FlatfieldSpatialBins    = 133
	FlatfieldSpatialWidth   = 6
	FlatfieldSpatialStart   = 103
	FlatfieldSpectralBins   = 19
	FlatfieldSpectralWidth  = 34
	FlatfieldSpectralStart  = 172
)
