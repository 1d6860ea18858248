package sht

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestIndexLM_RoundTrip(t *testing.T) {
	for l := 0; l < 8; l++ {
		for m := -l; m <= l; m++ {
			idx := IndexLM(l, m)
			gotL, gotM := LMFromIndex(idx)
			assert.Equal(t, l, gotL)
			assert.Equal(t, m, gotM)
		}
	}
}

func TestNew_RejectsBadBandLimit(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
	_, err = New(-3)
	require.Error(t, err)
}

func TestGaussLegendre_WeightsSumToTwo(t *testing.T) {
	for _, n := range []int{1, 2, 5, 16, 33} {
		xs, ws := gaussLegendre(n)
		require.Len(t, xs, n)
		var sum float64
		for _, w := range ws {
			sum += w
		}
		assert.InDelta(t, 2.0, sum, 1e-12, "n=%d", n)
		// Nodes ordered north to south.
		for i := 1; i < n; i++ {
			assert.Less(t, xs[i], xs[i-1])
		}
	}
}

func TestPixelWeights_SumToSphereArea(t *testing.T) {
	tr, err := New(12)
	require.NoError(t, err)
	var sum float64
	for _, w := range tr.PixelWeights() {
		sum += w
	}
	assert.InDelta(t, 4*math.Pi, sum, 1e-10)
}

func randomCoeffs(t *testing.T, L int, seed uint64) []complex128 {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	flm := make([]complex128, L*L)
	for i := range flm {
		flm[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return flm
}

func TestTransform_RoundTrip(t *testing.T) {
	for _, L := range []int{1, 2, 4, 8, 16} {
		tr, err := New(L)
		require.NoError(t, err)

		flm := randomCoeffs(t, L, uint64(L))
		f, err := tr.Synthesis(flm)
		require.NoError(t, err)
		require.Len(t, f, SampleLength(L))

		got, err := tr.Analysis(f)
		require.NoError(t, err)
		for i := range flm {
			assert.InDelta(t, real(flm[i]), real(got[i]), 1e-9, "L=%d real part of coeff %d", L, i)
			assert.InDelta(t, imag(flm[i]), imag(got[i]), 1e-9, "L=%d imag part of coeff %d", L, i)
		}
	}
}

func TestTransform_ConstantMap(t *testing.T) {
	// f_00 alone yields the constant 1/sqrt(4 pi) everywhere.
	tr, err := New(6)
	require.NoError(t, err)
	flm := make([]complex128, tr.NCoeffs())
	flm[IndexLM(0, 0)] = 1

	f, err := tr.Synthesis(flm)
	require.NoError(t, err)
	want := 1 / math.Sqrt(4*math.Pi)
	for _, v := range f {
		assert.InDelta(t, want, real(v), 1e-12)
		assert.InDelta(t, 0, imag(v), 1e-12)
	}
}

func TestTransform_SizeChecks(t *testing.T) {
	tr, err := New(4)
	require.NoError(t, err)

	_, err = tr.Synthesis(make([]complex128, 3))
	require.Error(t, err)
	_, err = tr.Analysis(make([]complex128, 5))
	require.Error(t, err)
}

func TestSynthesisAdjoint_MatchesInnerProducts(t *testing.T) {
	// <S flm, g> == <flm, S* g> for the adjoint pair.
	L := 8
	tr, err := New(L)
	require.NoError(t, err)

	flm := randomCoeffs(t, L, 7)
	g := make([]complex128, tr.SampleLength())
	rng := rand.New(rand.NewSource(11))
	for i := range g {
		g[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}

	sf, err := tr.Synthesis(flm)
	require.NoError(t, err)
	ag, err := tr.SynthesisAdjoint(g)
	require.NoError(t, err)

	var lhs, rhs complex128
	for i := range sf {
		lhs += sf[i] * complexConj(g[i])
	}
	for i := range flm {
		rhs += flm[i] * complexConj(ag[i])
	}
	assert.InDelta(t, real(lhs), real(rhs), 1e-8)
	assert.InDelta(t, imag(lhs), imag(rhs), 1e-8)
}

func complexConj(z complex128) complex128 {
	return complex(real(z), -imag(z))
}
