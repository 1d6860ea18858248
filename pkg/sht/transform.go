// Package sht implements exact spherical-harmonic transforms on a
// Gauss-Legendre sampled sphere. Coefficient vectors hold complex
// harmonic coefficients f_lm for 0 <= l < L, |m| <= l, addressed by
// IndexLM. Band-limited signals round-trip through Analysis and
// Synthesis to numerical precision, which the samplers rely on.
package sht

import (
	"fmt"
	"math"
)

// IndexLM returns the position of coefficient (l, m) in a harmonic
// coefficient vector: l*l + l + m.
func IndexLM(l, m int) int {
	return l*l + l + m
}

// LMFromIndex is the inverse of IndexLM.
func LMFromIndex(idx int) (l, m int) {
	l = int(math.Sqrt(float64(idx)))
	m = idx - l*l - l
	return l, m
}

// Transform caches the grid geometry and Legendre tables for a fixed
// band-limit and performs transforms between harmonic and pixel space.
type Transform struct {
	L           int
	thetas      []float64
	phis        []float64
	ringWeights []float64
	plm         [][]float64 // per ring, triIndex addressing
}

// New builds a Transform for band-limit L.
func New(L int) (*Transform, error) {
	if L < 1 {
		return nil, fmt.Errorf("band-limit must be at least 1, got %d", L)
	}
	xs, ws := gaussLegendre(L)

	t := &Transform{
		L:           L,
		thetas:      make([]float64, L),
		phis:        Phis(L),
		ringWeights: ws,
		plm:         make([][]float64, L),
	}
	for r, x := range xs {
		t.thetas[r] = math.Acos(x)
		t.plm[r] = legendreRing(L, x)
	}
	return t, nil
}

// NCoeffs returns the length of a harmonic coefficient vector, L*L.
func (t *Transform) NCoeffs() int {
	return t.L * t.L
}

// SampleLength returns the number of pixel-space samples.
func (t *Transform) SampleLength() int {
	return SampleLength(t.L)
}

// Synthesis evaluates the harmonic expansion flm on the grid. The output
// is ordered ring-major: sample index r*(2L-1) + p.
func (t *Transform) Synthesis(flm []complex128) ([]complex128, error) {
	if len(flm) != t.NCoeffs() {
		return nil, fmt.Errorf("expected %d coefficients, got %d", t.NCoeffs(), len(flm))
	}
	L := t.L
	nphi := 2*L - 1
	f := make([]complex128, SampleLength(L))

	for r := 0; r < L; r++ {
		// Collapse l at fixed m first, then expand in longitude.
		sm := make([]complex128, 2*L-1) // index m + L - 1
		for m := -(L - 1); m <= L-1; m++ {
			am := m
			if am < 0 {
				am = -am
			}
			sign := 1.0
			if m < 0 && am%2 == 1 {
				sign = -1
			}
			var acc complex128
			for l := am; l < L; l++ {
				acc += flm[IndexLM(l, m)] * complex(sign*t.plm[r][triIndex(l, am)], 0)
			}
			sm[m+L-1] = acc
		}
		for p := 0; p < nphi; p++ {
			var acc complex128
			for m := -(L - 1); m <= L-1; m++ {
				phase := float64(m) * t.phis[p]
				acc += sm[m+L-1] * complex(math.Cos(phase), math.Sin(phase))
			}
			f[r*nphi+p] = acc
		}
	}
	return f, nil
}

// Analysis recovers harmonic coefficients from grid samples by ring-wise
// Fourier sums in longitude and Gauss-Legendre quadrature in colatitude.
// Exact for signals band-limited at L.
func (t *Transform) Analysis(f []complex128) ([]complex128, error) {
	return t.project(f, true)
}

// SynthesisAdjoint applies the adjoint of Synthesis: the same projection
// as Analysis but without quadrature weights. Forward operators use it to
// pull pixel-space gradients back to harmonic space.
func (t *Transform) SynthesisAdjoint(f []complex128) ([]complex128, error) {
	return t.project(f, false)
}

func (t *Transform) project(f []complex128, weighted bool) ([]complex128, error) {
	if len(f) != t.SampleLength() {
		return nil, fmt.Errorf("expected %d samples, got %d", t.SampleLength(), len(f))
	}
	L := t.L
	nphi := 2*L - 1
	dphi := 2 * math.Pi / float64(nphi)
	flm := make([]complex128, t.NCoeffs())

	for r := 0; r < L; r++ {
		gm := make([]complex128, 2*L-1)
		for m := -(L - 1); m <= L-1; m++ {
			var acc complex128
			for p := 0; p < nphi; p++ {
				phase := -float64(m) * t.phis[p]
				acc += f[r*nphi+p] * complex(math.Cos(phase), math.Sin(phase))
			}
			if weighted {
				acc *= complex(dphi*t.ringWeights[r], 0)
			}
			gm[m+L-1] = acc
		}
		for m := -(L - 1); m <= L-1; m++ {
			am := m
			if am < 0 {
				am = -am
			}
			sign := 1.0
			if m < 0 && am%2 == 1 {
				sign = -1
			}
			for l := am; l < L; l++ {
				flm[IndexLM(l, m)] += gm[m+L-1] * complex(sign*t.plm[r][triIndex(l, am)], 0)
			}
		}
	}
	return flm, nil
}

// PixelWeights returns the per-sample quadrature areas: ring weight times
// the longitude spacing, replicated along each ring. They sum to 4 pi.
func (t *Transform) PixelWeights() []float64 {
	nphi := 2*t.L - 1
	dphi := 2 * math.Pi / float64(nphi)
	w := make([]float64, t.SampleLength())
	for r := 0; r < t.L; r++ {
		for p := 0; p < nphi; p++ {
			w[r*nphi+p] = t.ringWeights[r] * dphi
		}
	}
	return w
}
