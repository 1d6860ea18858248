// Package mcmc implements proximal Markov chain Monte Carlo samplers for
// inverse problems with non-smooth sparsity-promoting priors. The
// non-smooth prior enters through its proximal operator: each sampler
// follows the gradient of a Moreau-Yosida smoothed log-posterior
//
//	grad log pi(X) ~ -gradg(X) - (X - prox(X)) / lambda
//
// and differs only in how the Langevin step is discretised (MYULA),
// corrected (PxMALA) or stabilised (SKROCK).
package mcmc

import (
	"fmt"
	"math/cmplx"
	"time"

	"github.com/noders-team/go-proxmc/pkg/forward"
	"github.com/noders-team/go-proxmc/pkg/sht"
	"golang.org/x/exp/rand"
)

// Params controls a sampler run.
type Params struct {
	// NSamples is the number of retained samples.
	NSamples int
	// NBurn discards this many leading iterations.
	NBurn int
	// NGap keeps every NGap-th iteration after burn-in.
	NGap int
	// Delta is the Langevin step size.
	Delta float64
	// Lambda is the Moreau-Yosida smoothing parameter of the prox.
	Lambda float64
	// Mu scales the prior relative to the likelihood.
	Mu float64
	// Complex samples complex parameters; otherwise noise is real.
	Complex bool
	// Verbosity logs progress every this many iterations; 0 disables.
	Verbosity int
	// Seed fixes the noise stream. Runs are deterministic per seed.
	Seed uint64
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.NSamples < 1 {
		return fmt.Errorf("need at least one sample, got %d", p.NSamples)
	}
	if p.NBurn < 0 {
		return fmt.Errorf("burn-in must be non-negative, got %d", p.NBurn)
	}
	if p.NGap < 1 {
		return fmt.Errorf("thinning gap must be at least 1, got %d", p.NGap)
	}
	if p.Delta <= 0 {
		return fmt.Errorf("step size must be positive, got %g", p.Delta)
	}
	if p.Lambda <= 0 {
		return fmt.Errorf("smoothing parameter must be positive, got %g", p.Lambda)
	}
	if p.Mu < 0 {
		return fmt.Errorf("prior scale must be non-negative, got %g", p.Mu)
	}
	return nil
}

// totalSteps is the iteration count needed to retain NSamples.
func (p Params) totalSteps() int {
	return p.NBurn + p.NSamples*p.NGap
}

// Regulariser is the prior seen by the samplers: an energy and its
// proximal operator.
type Regulariser interface {
	Prior(x []complex128) float64
	Prox(x []complex128) ([]complex128, error)
}

// Chain is the retained output of a sampler run.
type Chain struct {
	Sampler string
	// Samples holds the thinned parameter vectors.
	Samples [][]complex128
	// LogPost is the log-posterior at each retained sample.
	LogPost []float64
	// Acceptance holds per-retained-step acceptance probabilities for
	// Metropolis-adjusted samplers; empty otherwise.
	Acceptance []float64
	// Steps is the number of iterations actually executed.
	Steps int
	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// Parameter extracts the trace of a single harmonic coefficient across
// the chain: basis column base, degree el, order em, for parameter
// vectors laid out as flattened L*L blocks per column.
func (c *Chain) Parameter(base, el, em, L int) ([]complex128, error) {
	if em < -el || em > el {
		return nil, fmt.Errorf("order %d outside degree %d", em, el)
	}
	if el >= L {
		return nil, fmt.Errorf("degree %d outside band-limit %d", el, L)
	}
	idx := base*L*L + sht.IndexLM(el, em)
	trace := make([]complex128, len(c.Samples))
	for i, s := range c.Samples {
		if idx >= len(s) {
			return nil, fmt.Errorf("index %d outside parameter vector of length %d", idx, len(s))
		}
		trace[i] = s[idx]
	}
	return trace, nil
}

// chainState carries what every sampler shares.
type chainState struct {
	op     forward.Operator
	reg    Regulariser
	params Params
	rng    *rand.Rand
}

func newChainState(op forward.Operator, reg Regulariser, params Params) (chainState, error) {
	if err := params.Validate(); err != nil {
		return chainState{}, err
	}
	if op == nil {
		return chainState{}, fmt.Errorf("forward operator is required")
	}
	if reg == nil {
		return chainState{}, fmt.Errorf("regulariser is required")
	}
	return chainState{
		op:     op,
		reg:    reg,
		params: params,
		rng:    rand.New(rand.NewSource(params.Seed)),
	}, nil
}

// noise draws a standard normal vector, complex or real per Params.
func (s *chainState) noise(n int) []complex128 {
	xi := make([]complex128, n)
	for i := range xi {
		if s.params.Complex {
			xi[i] = complex(s.rng.NormFloat64(), s.rng.NormFloat64())
		} else {
			xi[i] = complex(s.rng.NormFloat64(), 0)
		}
	}
	return xi
}

// logPi evaluates the smoothed log-posterior at x given its predictions.
func (s *chainState) logPi(x, preds []complex128) float64 {
	data := s.op.Data()
	sig2 := s.op.Sigma() * s.op.Sigma()
	var g float64
	for i := range preds {
		d := preds[i] - data[i]
		g += real(d)*real(d) + imag(d)*imag(d)
	}
	g /= 2 * sig2
	return -g - s.params.Mu*s.reg.Prior(x)
}

// gradLogPi evaluates the Moreau-Yosida drift at x. It also returns the
// forward predictions so callers can reuse them for logPi.
func (s *chainState) gradLogPi(x []complex128) (drift, preds []complex128, err error) {
	preds, err = s.op.Forward(x)
	if err != nil {
		return nil, nil, fmt.Errorf("forward model: %w", err)
	}
	gradg, err := s.op.GradG(preds)
	if err != nil {
		return nil, nil, fmt.Errorf("data-fidelity gradient: %w", err)
	}
	prox, err := s.reg.Prox(x)
	if err != nil {
		return nil, nil, fmt.Errorf("proximal operator: %w", err)
	}
	invLmda := complex(1/s.params.Lambda, 0)
	drift = make([]complex128, len(x))
	for i := range x {
		drift[i] = -(gradg[i] + (x[i]-prox[i])*invLmda)
	}
	return drift, preds, nil
}

// sqNorm is the squared Euclidean norm over the complex vector.
func sqNorm(v []complex128) float64 {
	var s float64
	for _, z := range v {
		a := cmplx.Abs(z)
		s += a * a
	}
	return s
}
