// Package forward defines the forward operators mapping chain parameters
// to predicted observations, together with the gradient of the Gaussian
// data-fidelity term g(X) = ||F(X) - d||^2 / (2 sigma^2) pulled back to
// parameter space. Samplers only see this interface.
package forward

import "fmt"

// Operator is a forward model with a Gaussian likelihood.
type Operator interface {
	// Forward predicts observations from a parameter vector.
	Forward(x []complex128) ([]complex128, error)
	// GradG evaluates the data-fidelity gradient at the given predictions.
	GradG(preds []complex128) ([]complex128, error)
	// NParams is the parameter vector length.
	NParams() int
	// Data returns the observations.
	Data() []complex128
	// Sigma is the observation noise standard deviation.
	Sigma() float64
}

// Identity predicts the parameters themselves. Mostly useful for sampler
// tests and denoising setups.
type Identity struct {
	data  []complex128
	sigma float64
}

// NewIdentity builds the identity operator over the given observations.
func NewIdentity(data []complex128, sigma float64) (*Identity, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("no observations")
	}
	if sigma <= 0 {
		return nil, fmt.Errorf("noise level must be positive, got %g", sigma)
	}
	return &Identity{data: data, sigma: sigma}, nil
}

func (op *Identity) Forward(x []complex128) ([]complex128, error) {
	if len(x) != len(op.data) {
		return nil, fmt.Errorf("expected %d parameters, got %d", len(op.data), len(x))
	}
	out := make([]complex128, len(x))
	copy(out, x)
	return out, nil
}

func (op *Identity) GradG(preds []complex128) ([]complex128, error) {
	if len(preds) != len(op.data) {
		return nil, fmt.Errorf("expected %d predictions, got %d", len(op.data), len(preds))
	}
	inv := complex(1/(op.sigma*op.sigma), 0)
	grad := make([]complex128, len(preds))
	for i := range preds {
		grad[i] = (preds[i] - op.data[i]) * inv
	}
	return grad, nil
}

func (op *Identity) NParams() int       { return len(op.data) }
func (op *Identity) Data() []complex128 { return op.data }
func (op *Identity) Sigma() float64     { return op.sigma }
