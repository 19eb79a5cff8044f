package muv

// An Observation holds the per-integration instrument settings the
// calibration engine needs. Immutable once derived from archive input.
type Observation struct {
	IntTime         float64 // integration time [s]
	MCPVolt         float64 // MCP voltage [V]
	MCPGain         float64 // MCP voltage gain [V]
	SpatialBinSize  int     // detector pixels per spatial bin
	SpectralBinSize int     // detector pixels per spectral bin
}

// Dayside reports whether the settings are dayside settings. The voltage is
// a proxy for illumination conditions.
func (o Observation)Dayside() bool {
	return o.MCPVolt < DayNightVoltageBoundary
}
