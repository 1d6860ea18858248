package forward

import (
	"fmt"

	"github.com/noders-team/go-proxmc/pkg/geodesic"
	"github.com/noders-team/go-proxmc/pkg/sht"
	"github.com/noders-team/go-proxmc/pkg/wavelet"
)

// PathIntegral predicts path-averaged observations: each datum is the
// mean of the reconstructed pixel map over the pixels crossed by one
// great-circle path. Parameters are the flattened wavelet harmonic
// coefficients, as for ISWT; the forward chain composes wavelet
// synthesis, spherical-harmonic synthesis and the path sampling, and the
// gradient applies the adjoint chain in reverse.
type PathIntegral struct {
	data  []complex128
	sigma float64
	basis *wavelet.Basis
	tr    *sht.Transform

	pixels [][]int // per path, grid sample indices
}

// NewPathIntegral rasterises each path onto the band-limit grid with
// npoints waypoints. One observation per path.
func NewPathIntegral(data []complex128, sigma float64, basis *wavelet.Basis, paths []*geodesic.Path, npoints int) (*PathIntegral, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("noise level must be positive, got %g", sigma)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths")
	}
	if len(data) != len(paths) {
		return nil, fmt.Errorf("%d observations for %d paths", len(data), len(paths))
	}
	tr, err := sht.New(basis.L)
	if err != nil {
		return nil, err
	}

	pixels := make([][]int, len(paths))
	for i, p := range paths {
		idxs, err := p.PixelIndices(basis.L, npoints)
		if err != nil {
			return nil, fmt.Errorf("path %d: %w", i, err)
		}
		if len(idxs) == 0 {
			return nil, fmt.Errorf("path %d crosses no pixels", i)
		}
		pixels[i] = idxs
	}

	return &PathIntegral{data: data, sigma: sigma, basis: basis, tr: tr, pixels: pixels}, nil
}

func (op *PathIntegral) Forward(x []complex128) ([]complex128, error) {
	cols, err := wavelet.ExpandCoeffs(x, op.basis.NScales())
	if err != nil {
		return nil, fmt.Errorf("invalid parameter vector: %w", err)
	}
	clm, err := op.basis.Synthesis(cols)
	if err != nil {
		return nil, err
	}
	f, err := op.tr.Synthesis(clm)
	if err != nil {
		return nil, err
	}

	preds := make([]complex128, len(op.pixels))
	for i, idxs := range op.pixels {
		var acc complex128
		for _, idx := range idxs {
			acc += f[idx]
		}
		preds[i] = acc / complex(float64(len(idxs)), 0)
	}
	return preds, nil
}

func (op *PathIntegral) GradG(preds []complex128) ([]complex128, error) {
	if len(preds) != len(op.data) {
		return nil, fmt.Errorf("expected %d predictions, got %d", len(op.data), len(preds))
	}
	invSig := 1 / (op.sigma * op.sigma)

	// Scatter residuals back onto the pixel grid.
	gpix := make([]complex128, op.tr.SampleLength())
	for i, idxs := range op.pixels {
		r := (preds[i] - op.data[i]) * complex(invSig/float64(len(idxs)), 0)
		for _, idx := range idxs {
			gpix[idx] += r
		}
	}

	glm, err := op.tr.SynthesisAdjoint(gpix)
	if err != nil {
		return nil, err
	}
	cols, err := op.basis.Analysis(glm)
	if err != nil {
		return nil, err
	}
	return wavelet.FlattenCoeffs(cols), nil
}

func (op *PathIntegral) NParams() int {
	return op.basis.NColumns() * op.basis.L * op.basis.L
}

func (op *PathIntegral) Data() []complex128 { return op.data }
func (op *PathIntegral) Sigma() float64     { return op.sigma }
