package sht

import "math"

const invSqrt4Pi = 0.2820947917738781434740397257803862929220

// triIndex addresses the lower-triangular (l, m) table, 0 <= m <= l.
func triIndex(l, m int) int {
	return l*(l+1)/2 + m
}

// legendreRing fills a table of orthonormal associated Legendre functions
// at x = cos(theta) for all 0 <= m <= l < L. The normalisation absorbs the
// full spherical-harmonic factor, so Y_lm(theta, phi) = table[l,m] e^{i m phi},
// and includes the Condon-Shortley phase. The three-term recurrence is stable
// in l for fixed m.
func legendreRing(L int, x float64) []float64 {
	tbl := make([]float64, L*(L+1)/2)
	sin := math.Sqrt(1 - x*x)

	tbl[0] = invSqrt4Pi
	for m := 1; m < L; m++ {
		tbl[triIndex(m, m)] = -math.Sqrt(float64(2*m+1)/float64(2*m)) * sin * tbl[triIndex(m-1, m-1)]
	}
	for m := 0; m < L-1; m++ {
		tbl[triIndex(m+1, m)] = math.Sqrt(float64(2*m+3)) * x * tbl[triIndex(m, m)]
	}
	for m := 0; m < L; m++ {
		for l := m + 2; l < L; l++ {
			a := math.Sqrt(float64(4*l*l-1) / float64(l*l-m*m))
			b := math.Sqrt(float64((l-1)*(l-1)-m*m) / float64(4*(l-1)*(l-1)-1))
			tbl[triIndex(l, m)] = a * (x*tbl[triIndex(l-1, m)] - b*tbl[triIndex(l-2, m)])
		}
	}
	return tbl
}
