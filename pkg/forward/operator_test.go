package forward

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/noders-team/go-proxmc/pkg/geodesic"
	"github.com/noders-team/go-proxmc/pkg/sht"
	"github.com/noders-team/go-proxmc/pkg/wavelet"
)

func randomVec(n int, seed uint64) []complex128 {
	rng := rand.New(rand.NewSource(seed))
	v := make([]complex128, n)
	for i := range v {
		v[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return v
}

func dot(a, b []complex128) complex128 {
	var s complex128
	for i := range a {
		s += a[i] * complex(real(b[i]), -imag(b[i]))
	}
	return s
}

// checkAdjoint verifies <F(x), y> == <x, sigma^2 GradG(data + y)> for a
// linear forward operator, which ties GradG to the true adjoint.
func checkAdjoint(t *testing.T, op Operator, seedX, seedY uint64, tol float64) {
	t.Helper()
	x := randomVec(op.NParams(), seedX)
	y := randomVec(len(op.Data()), seedY)

	fx, err := op.Forward(x)
	require.NoError(t, err)

	shifted := make([]complex128, len(y))
	for i := range y {
		shifted[i] = op.Data()[i] + y[i]
	}
	grad, err := op.GradG(shifted)
	require.NoError(t, err)

	sig2 := complex(op.Sigma()*op.Sigma(), 0)
	lhs := dot(fx, y)
	var rhs complex128
	for i := range x {
		rhs += x[i] * complex(real(grad[i]*sig2), -imag(grad[i]*sig2))
	}
	assert.InDelta(t, real(lhs), real(rhs), tol)
	assert.InDelta(t, imag(lhs), imag(rhs), tol)
}

func TestNewIdentity_Validation(t *testing.T) {
	_, err := NewIdentity(nil, 1)
	require.Error(t, err)
	_, err = NewIdentity(make([]complex128, 4), 0)
	require.Error(t, err)
}

func TestIdentity_ForwardAndGrad(t *testing.T) {
	data := []complex128{1, 2, complex(0, 3)}
	op, err := NewIdentity(data, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 3, op.NParams())

	x := []complex128{2, 2, complex(0, 4)}
	preds, err := op.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, x, preds)

	grad, err := op.GradG(preds)
	require.NoError(t, err)
	// (preds - data) / sigma^2 with sigma = 0.5
	assert.InDelta(t, 4, real(grad[0]), 1e-12)
	assert.InDelta(t, 0, real(grad[1]), 1e-12)
	assert.InDelta(t, 4, imag(grad[2]), 1e-12)

	_, err = op.Forward(make([]complex128, 2))
	require.Error(t, err)
}

func TestISWT_ForwardRoundTrip(t *testing.T) {
	L := 8
	basis, err := wavelet.NewBasis(L, 2, 1)
	require.NoError(t, err)

	clm := randomVec(L*L, 1)
	op, err := NewISWT(clm, 0.1, basis)
	require.NoError(t, err)
	assert.Equal(t, basis.NColumns()*L*L, op.NParams())

	// Parameters obtained by analysing the data synthesize it back.
	cols, err := basis.Analysis(clm)
	require.NoError(t, err)
	x := wavelet.FlattenCoeffs(cols)

	preds, err := op.Forward(x)
	require.NoError(t, err)
	for i := range clm {
		assert.InDelta(t, real(clm[i]), real(preds[i]), 1e-8)
		assert.InDelta(t, imag(clm[i]), imag(preds[i]), 1e-8)
	}

	// Zero residual means zero gradient.
	grad, err := op.GradG(preds)
	require.NoError(t, err)
	for i := range grad {
		assert.InDelta(t, 0, real(grad[i]), 1e-7)
		assert.InDelta(t, 0, imag(grad[i]), 1e-7)
	}
}

func TestISWT_GradIsAdjoint(t *testing.T) {
	basis, err := wavelet.NewBasis(8, 2, 1)
	require.NoError(t, err)
	op, err := NewISWT(randomVec(64, 2), 0.3, basis)
	require.NoError(t, err)
	checkAdjoint(t, op, 3, 4, 1e-7)
}

func TestSWC2Pix_GradIsAdjoint(t *testing.T) {
	L := 8
	basis, err := wavelet.NewBasis(L, 2, 1)
	require.NoError(t, err)
	op, err := NewSWC2Pix(randomVec(sht.SampleLength(L), 5), 0.2, basis)
	require.NoError(t, err)
	checkAdjoint(t, op, 6, 7, 1e-6)
}

func TestSWC2Pix_Validation(t *testing.T) {
	basis, err := wavelet.NewBasis(8, 2, 1)
	require.NoError(t, err)
	_, err = NewSWC2Pix(make([]complex128, 3), 0.2, basis)
	require.Error(t, err, "wrong observation length")
	_, err = NewSWC2Pix(make([]complex128, sht.SampleLength(8)), -1, basis)
	require.Error(t, err)
}

func buildPaths(t *testing.T, n int) []*geodesic.Path {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	paths := make([]*geodesic.Path, n)
	for i := range paths {
		p, err := geodesic.NewPath(
			rng.Float64()*170-85, rng.Float64()*360,
			rng.Float64()*170-85, rng.Float64()*360,
		)
		require.NoError(t, err)
		paths[i] = p
	}
	return paths
}

func TestPathIntegral_ConstantMap(t *testing.T) {
	L := 8
	basis, err := wavelet.NewBasis(L, 2, 1)
	require.NoError(t, err)
	paths := buildPaths(t, 5)

	op, err := NewPathIntegral(make([]complex128, 5), 0.1, basis, paths, 100)
	require.NoError(t, err)

	// A map that is constant everywhere averages to the same constant
	// along every path.
	clm := make([]complex128, L*L)
	clm[sht.IndexLM(0, 0)] = complex(math.Sqrt(4*math.Pi), 0) // constant 1
	cols, err := basis.Analysis(clm)
	require.NoError(t, err)
	x := wavelet.FlattenCoeffs(cols)

	preds, err := op.Forward(x)
	require.NoError(t, err)
	for i := range preds {
		assert.InDelta(t, 1, real(preds[i]), 1e-8, "path %d", i)
		assert.InDelta(t, 0, imag(preds[i]), 1e-8, "path %d", i)
	}
}

func TestPathIntegral_GradIsAdjoint(t *testing.T) {
	basis, err := wavelet.NewBasis(8, 2, 1)
	require.NoError(t, err)
	paths := buildPaths(t, 7)
	op, err := NewPathIntegral(randomVec(7, 8), 0.4, basis, paths, 100)
	require.NoError(t, err)
	checkAdjoint(t, op, 9, 10, 1e-6)
}

func TestPathIntegral_Validation(t *testing.T) {
	basis, err := wavelet.NewBasis(8, 2, 1)
	require.NoError(t, err)
	_, err = NewPathIntegral(make([]complex128, 2), 0.1, basis, nil, 100)
	require.Error(t, err, "no paths")
	_, err = NewPathIntegral(make([]complex128, 2), 0.1, basis, buildPaths(t, 3), 100)
	require.Error(t, err, "data/path mismatch")
}
