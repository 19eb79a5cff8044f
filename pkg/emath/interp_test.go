package emath

import(
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterp(t *testing.T) {
	xs := []float64{0, 1, 2, 4}
	ys := []float64{10, 20, 30, 50}

	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{"below range clamps", -5, 10},
		{"above range clamps", 9, 50},
		{"exact knot", 2, 30},
		{"midpoint", 0.5, 15},
		{"uneven interval", 3, 40},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Interp(tc.x, xs, ys), 1e-12)
		})
	}
}

func TestInterpDuplicateKnots(t *testing.T) {
	// Rank cutoffs from a histogram routinely repeat; an exact hit on a run
	// of duplicates resolves to the last one
	xs := []float64{0, 1, 1, 1, 2}
	ys := []float64{0, 10, 20, 30, 40}

	assert.InDelta(t, 30.0, Interp(1, xs, ys), 1e-12)
	assert.InDelta(t, 35.0, Interp(1.5, xs, ys), 1e-12)
	assert.InDelta(t, 5.0, Interp(0.5, xs, ys), 1e-12)
}

func TestLinspace(t *testing.T) {
	got := Linspace(0, 255, 256)
	assert.Len(t, got, 256)
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 255.0, got[255])
	assert.InDelta(t, 1.0, got[1]-got[0], 1e-12)

	assert.Equal(t, []float64{7}, Linspace(7, 99, 1))
}

func TestDiff(t *testing.T) {
	assert.Equal(t, []float64{1, 2, -3}, Diff([]float64{0, 1, 3, 0}))
	assert.Empty(t, Diff([]float64{5}))
}
