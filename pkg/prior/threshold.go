package prior

import (
	"math/cmplx"
	"sort"
)

// SoftThreshold shrinks each element towards zero by t, preserving phase:
// |soft(x)| = max(|x| - t, 0).
func SoftThreshold(x []complex128, t float64) []complex128 {
	out := make([]complex128, len(x))
	for i, v := range x {
		out[i] = softOne(v, t)
	}
	return out
}

// SoftThresholdVec applies a per-element threshold.
func SoftThresholdVec(x []complex128, t []float64) []complex128 {
	out := make([]complex128, len(x))
	for i, v := range x {
		out[i] = softOne(v, t[i])
	}
	return out
}

func softOne(v complex128, t float64) complex128 {
	a := cmplx.Abs(v)
	if a <= t {
		return 0
	}
	// v/|v| * (|v|-t), phase preserved
	return v * complex((a-t)/a, 0)
}

// HardThreshold keeps the largest 100*frac percent of elements by
// magnitude and zeroes the rest. Ties at the cutoff magnitude are all
// kept, so if every element is equal nothing is thresholded.
func HardThreshold(x []complex128, frac float64) []complex128 {
	out := make([]complex128, len(x))
	k := int(frac * float64(len(x)))
	if k <= 0 {
		return out
	}
	if k >= len(x) {
		copy(out, x)
		return out
	}

	abs := make([]float64, len(x))
	for i, v := range x {
		abs[i] = cmplx.Abs(v)
	}
	srt := make([]float64, len(abs))
	copy(srt, abs)
	sort.Float64s(srt)
	cutoff := srt[len(srt)-k]

	for i, v := range x {
		if abs[i] >= cutoff {
			out[i] = v
		}
	}
	return out
}
