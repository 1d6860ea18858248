package wavelet

import (
	"math"

	"gonum.org/v1/gonum/integrate"
)

const kernelSteps = 2000

// JMax returns the highest wavelet scale needed to cover band-limit L
// with dilation parameter B.
func JMax(b float64, L int) int {
	if L <= 2 {
		return 0
	}
	return int(math.Ceil(math.Log(float64(L-1))/math.Log(b) - 1e-12))
}

// tilingKernel evaluates the infinitely differentiable bump
// s(t) = exp(-1/(1-t^2)) on (-1, 1), zero outside.
func tilingKernel(t float64) float64 {
	if t <= -1 || t >= 1 {
		return 0
	}
	return math.Exp(-1 / (1 - t*t))
}

// kernelB remaps the bump onto [1/B, 1].
func kernelB(t, b float64) float64 {
	return tilingKernel(2*b/(b-1)*(t-1/b) - 1)
}

// kTiling is the normalised integral k_B(t) = int_t^1 s_B(u)^2/u du over
// int_{1/B}^1, clamped to [0, 1]. It decreases smoothly from 1 at t = 1/B
// to 0 at t = 1 and drives the wavelet window construction.
type kTiling struct {
	b    float64
	norm float64
}

func newKTiling(b float64) *kTiling {
	k := &kTiling{b: b}
	k.norm = k.integral(1 / b)
	return k
}

func (k *kTiling) integral(lo float64) float64 {
	if lo >= 1 {
		return 0
	}
	if lo < 1/k.b {
		lo = 1 / k.b
	}
	xs := make([]float64, kernelSteps+1)
	fs := make([]float64, kernelSteps+1)
	for i := range xs {
		u := lo + (1-lo)*float64(i)/float64(kernelSteps)
		xs[i] = u
		s := kernelB(u, k.b)
		fs[i] = s * s / u
	}
	return integrate.Trapezoidal(xs, fs)
}

func (k *kTiling) at(t float64) float64 {
	if t <= 1/k.b {
		return 1
	}
	if t >= 1 {
		return 0
	}
	v := k.integral(t) / k.norm
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// kappa is the wavelet generating function kappa_B(t) = sqrt(k(t/B) - k(t)).
func (k *kTiling) kappa(t float64) float64 {
	d := k.at(t/k.b) - k.at(t)
	if d < 0 {
		d = 0
	}
	return math.Sqrt(d)
}

// eta is the scaling generating function sqrt(k(t)).
func (k *kTiling) eta(t float64) float64 {
	return math.Sqrt(k.at(t))
}
