// Package wavelet provides axisymmetric spherical wavelets built from a
// smooth harmonic tiling. Windows act diagonally in harmonic degree, so
// analysis and synthesis are exact for band-limited signals: the scaling
// window and the wavelet windows form a partition of unity in squared
// magnitude for every degree l >= 1.
package wavelet

import (
	"fmt"
	"math"
)

// Basis holds the harmonic windows of an axisymmetric wavelet family.
// Column 0 is the scaling window, columns 1..NScales() the wavelet scales
// JMin..JMax in order.
type Basis struct {
	L    int
	B    float64
	JMin int
	JMax int

	windows [][]float64 // column-major, each of length L
}

// NewBasis constructs the wavelet family for band-limit L, dilation B and
// minimum scale jMin.
func NewBasis(L int, b float64, jMin int) (*Basis, error) {
	if L < 2 {
		return nil, fmt.Errorf("band-limit must be at least 2, got %d", L)
	}
	if b <= 1 {
		return nil, fmt.Errorf("dilation parameter must exceed 1, got %g", b)
	}
	jMax := JMax(b, L)
	if jMin < 0 || jMin > jMax {
		return nil, fmt.Errorf("minimum scale %d outside [0, %d]", jMin, jMax)
	}

	k := newKTiling(b)
	nscales := jMax - jMin + 1
	windows := make([][]float64, nscales+1)

	scal := make([]float64, L)
	for l := 0; l < L; l++ {
		scal[l] = k.eta(float64(l) / math.Pow(b, float64(jMin)))
	}
	windows[0] = scal

	for j := jMin; j <= jMax; j++ {
		win := make([]float64, L)
		for l := 0; l < L; l++ {
			win[l] = k.kappa(float64(l) / math.Pow(b, float64(j)))
		}
		windows[j-jMin+1] = win
	}

	return &Basis{L: L, B: b, JMin: jMin, JMax: jMax, windows: windows}, nil
}

// NScales returns the number of wavelet scales, excluding scaling.
func (b *Basis) NScales() int {
	return b.JMax - b.JMin + 1
}

// NColumns returns the total number of windows, scaling included.
func (b *Basis) NColumns() int {
	return b.NScales() + 1
}

// Window returns the harmonic window value of column c at degree l.
func (b *Basis) Window(c, l int) float64 {
	return b.windows[c][l]
}

// Bandlimits reports, per column, one past the highest degree with
// non-zero support, capped at L. Priors use these to size per-scale
// pixel grids.
func (b *Basis) Bandlimits() []int {
	bls := make([]int, b.NColumns())
	for c, win := range b.windows {
		bl := 0
		for l, v := range win {
			if v != 0 {
				bl = l + 1
			}
		}
		bls[c] = bl
	}
	return bls
}

// Analysis projects harmonic coefficients onto every window, returning
// one full-length coefficient vector per column.
func (b *Basis) Analysis(flm []complex128) ([][]complex128, error) {
	if len(flm) != b.L*b.L {
		return nil, fmt.Errorf("expected %d coefficients, got %d", b.L*b.L, len(flm))
	}
	cols := make([][]complex128, b.NColumns())
	for c := range cols {
		col := make([]complex128, len(flm))
		for l := 0; l < b.L; l++ {
			w := complex(b.windows[c][l], 0)
			if w == 0 {
				continue
			}
			for m := -l; m <= l; m++ {
				idx := l*l + l + m
				col[idx] = flm[idx] * w
			}
		}
		cols[c] = col
	}
	return cols, nil
}

// Synthesis recombines per-column coefficients into a single harmonic
// vector. Inverse of Analysis by the partition-of-unity identity.
func (b *Basis) Synthesis(cols [][]complex128) ([]complex128, error) {
	if len(cols) != b.NColumns() {
		return nil, fmt.Errorf("expected %d coefficient columns, got %d", b.NColumns(), len(cols))
	}
	n := b.L * b.L
	flm := make([]complex128, n)
	for c, col := range cols {
		if len(col) != n {
			return nil, fmt.Errorf("column %d: expected %d coefficients, got %d", c, n, len(col))
		}
		for l := 0; l < b.L; l++ {
			w := complex(b.windows[c][l], 0)
			if w == 0 {
				continue
			}
			for m := -l; m <= l; m++ {
				idx := l*l + l + m
				flm[idx] += col[idx] * w
			}
		}
	}
	return flm, nil
}
