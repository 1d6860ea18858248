package sht

import (
	"math"
)

// gaussLegendre computes the n nodes and weights of Gauss-Legendre
// quadrature on [-1, 1]. Nodes are returned in decreasing order so that
// ring 0 sits closest to the north pole.
func gaussLegendre(n int) ([]float64, []float64) {
	x := make([]float64, n)
	w := make([]float64, n)

	for i := 0; i < (n+1)/2; i++ {
		z := math.Cos(math.Pi * (float64(i) + 0.75) / (float64(n) + 0.5))
		var pp float64
		for iter := 0; iter < 100; iter++ {
			p0, p1 := 1.0, 0.0
			for j := 0; j < n; j++ {
				p2 := p1
				p1 = p0
				p0 = ((2*float64(j)+1)*z*p1 - float64(j)*p2) / float64(j+1)
			}
			// p0 = P_n(z), p1 = P_{n-1}(z)
			pp = float64(n) * (z*p0 - p1) / (z*z - 1)
			dz := p0 / pp
			z -= dz
			if math.Abs(dz) < 1e-15 {
				break
			}
		}
		x[i] = z
		x[n-1-i] = -z
		w[i] = 2 / ((1 - z*z) * pp * pp)
		w[n-1-i] = w[i]
	}
	return x, w
}

// SampleLength returns the number of grid samples for band-limit L:
// L colatitude rings of 2L-1 points each.
func SampleLength(L int) int {
	return L * (2*L - 1)
}

// Thetas returns the ring colatitudes of the band-limit L grid.
func Thetas(L int) []float64 {
	xs, _ := gaussLegendre(L)
	thetas := make([]float64, L)
	for t, x := range xs {
		thetas[t] = math.Acos(x)
	}
	return thetas
}

// Phis returns the longitudes of each ring of the band-limit L grid.
func Phis(L int) []float64 {
	nphi := 2*L - 1
	phis := make([]float64, nphi)
	for p := range phis {
		phis[p] = 2 * math.Pi * float64(p) / float64(nphi)
	}
	return phis
}
