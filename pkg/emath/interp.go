package emath

import "sort"

// Some small numeric helpers shared across the pipeline.

// Interp linearly interpolates the table (xs, ys) at x, numpy-style: the
// result clamps to ys[0]/ys[len-1] outside the table, and an exact hit on a
// run of duplicate xs resolves to the last duplicate. xs must be
// non-decreasing. The gonum interp predictors refuse duplicate abscissae,
// which the histogram equalizer's rank cutoffs routinely contain, so this
// lookup is hand-rolled.
func Interp(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}

	// Largest j with xs[j] <= x
	j := sort.Search(n, func(i int) bool { return xs[i] > x }) - 1

	if xs[j] == x || xs[j+1] == xs[j] {
		return ys[j]
	}
	return ys[j] + (ys[j+1]-ys[j])*(x-xs[j])/(xs[j+1]-xs[j])
}

// Linspace returns num evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, num int) []float64 {
	out := make([]float64, num)
	if num == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(num-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[num-1] = stop
	return out
}

// Diff returns the n-1 successive differences of xs.
func Diff(xs []float64) []float64 {
	out := make([]float64, len(xs)-1)
	for i := range out {
		out[i] = xs[i+1] - xs[i]
	}
	return out
}
