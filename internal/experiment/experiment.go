// Package experiment assembles a forward operator, regulariser and
// sampler from a loaded configuration, runs the requested chains and
// persists them. Observations are synthesised from the configured data
// seed, so a run is reproducible from its config file alone.
package experiment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"github.com/noders-team/go-proxmc/internal/chainstore"
	"github.com/noders-team/go-proxmc/internal/config"
	"github.com/noders-team/go-proxmc/pkg/forward"
	"github.com/noders-team/go-proxmc/pkg/geodesic"
	"github.com/noders-team/go-proxmc/pkg/mcmc"
	"github.com/noders-team/go-proxmc/pkg/prior"
	"github.com/noders-team/go-proxmc/pkg/wavelet"
)

// sparsity is the fraction of non-zero entries in a synthesised ground
// truth.
const sparsity = 0.1

// Result pairs a persisted run ID with the chain it holds.
type Result struct {
	RunID string
	Chain *mcmc.Chain
}

// Run executes the experiment end to end: synthesise observations,
// build the operator and prior, sample NChains chains concurrently and
// persist each one to the configured database.
func Run(ctx context.Context, exp *config.Experiment) ([]Result, error) {
	if err := exp.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment: %w", err)
	}

	var basis *wavelet.Basis
	if exp.Operator != "identity" || exp.Setting == "analysis" {
		b, err := wavelet.NewBasis(exp.L, exp.B, exp.JMin)
		if err != nil {
			return nil, fmt.Errorf("failed to build wavelet basis: %w", err)
		}
		basis = b
	}

	op, err := buildOperator(exp, basis)
	if err != nil {
		return nil, fmt.Errorf("failed to build operator: %w", err)
	}
	reg, err := buildRegulariser(exp, basis)
	if err != nil {
		return nil, fmt.Errorf("failed to build regulariser: %w", err)
	}

	log.Info().Msgf("experiment %s: sampler=%s operator=%s L=%d nparams=%d chains=%d",
		exp.Name, exp.Sampler, exp.Operator, exp.L, op.NParams(), exp.NChains)

	chains, err := mcmc.RunChains(ctx, exp.NChains, exp.Chain.Seed, func(_ int, seed uint64) (mcmc.Sampler, error) {
		params := exp.Chain.Params()
		params.Seed = seed
		return buildSampler(exp.Sampler, op, reg, params)
	})
	if err != nil {
		return nil, err
	}

	store, err := chainstore.Open(exp.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to open chain store '%s': %w", exp.Output, err)
	}
	defer store.Close()

	opMeta := chainstore.OperatorMeta{
		Name:    exp.Operator,
		L:       exp.L,
		Sigma:   exp.SigD,
		NParams: op.NParams(),
	}
	if basis != nil {
		opMeta.B = exp.B
		opMeta.JMin = exp.JMin
	}

	results := make([]Result, 0, len(chains))
	for i, chain := range chains {
		runID, err := store.CreateRun(&chainstore.RunMeta{
			Experiment: exp.Name,
			Sampler:    chain.Sampler,
			Params:     exp.Chain.Params(),
			Operator:   opMeta,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to register chain %d: %w", i, err)
		}
		if err := store.SaveChain(runID, chain); err != nil {
			return nil, fmt.Errorf("failed to persist chain %d: %w", i, err)
		}
		if err := store.FinishRun(runID); err != nil {
			return nil, fmt.Errorf("failed to finalise chain %d: %w", i, err)
		}
		log.Info().Msgf("chain %d/%d persisted as run %s: %d samples in %s",
			i+1, len(chains), runID, len(chain.Samples), chain.Elapsed)
		results = append(results, Result{RunID: runID, Chain: chain})
	}
	return results, nil
}

// buildOperator synthesises observations with the configured data seed
// and wraps them in the requested forward model. The observations are
// the forward image of a sparse ground truth plus Gaussian noise at the
// configured level.
func buildOperator(exp *config.Experiment, basis *wavelet.Basis) (forward.Operator, error) {
	rng := rand.New(rand.NewSource(exp.DataSeed))

	switch exp.Operator {
	case "identity":
		data := addNoise(rng, sparseVector(rng, exp.L*exp.L), exp.SigD)
		return forward.NewIdentity(data, exp.SigD)

	case "iswt":
		probe, err := forward.NewISWT(make([]complex128, exp.L*exp.L), exp.SigD, basis)
		if err != nil {
			return nil, err
		}
		preds, err := probe.Forward(sparseVector(rng, probe.NParams()))
		if err != nil {
			return nil, err
		}
		return forward.NewISWT(addNoise(rng, preds, exp.SigD), exp.SigD, basis)

	case "swc2pix":
		probe, err := forward.NewSWC2Pix(make([]complex128, exp.L*(2*exp.L-1)), exp.SigD, basis)
		if err != nil {
			return nil, err
		}
		preds, err := probe.Forward(sparseVector(rng, probe.NParams()))
		if err != nil {
			return nil, err
		}
		return forward.NewSWC2Pix(addNoise(rng, preds, exp.SigD), exp.SigD, basis)

	case "pathintegral":
		paths, err := randomPaths(rng, exp.NPaths)
		if err != nil {
			return nil, err
		}
		probe, err := forward.NewPathIntegral(make([]complex128, exp.NPaths), exp.SigD, basis, paths, exp.PathPoints)
		if err != nil {
			return nil, err
		}
		preds, err := probe.Forward(sparseVector(rng, probe.NParams()))
		if err != nil {
			return nil, err
		}
		return forward.NewPathIntegral(addNoise(rng, preds, exp.SigD), exp.SigD, basis, paths, exp.PathPoints)

	default:
		return nil, fmt.Errorf("unknown operator %q", exp.Operator)
	}
}

// buildRegulariser picks the prior matching the operator's parameter
// domain. The soft threshold follows the usual Moreau-Yosida scaling
// lambda*mu.
func buildRegulariser(exp *config.Experiment, basis *wavelet.Basis) (mcmc.Regulariser, error) {
	thresh := exp.Chain.Lambda * exp.Chain.Mu

	if exp.Operator == "swc2pix" {
		return prior.NewS2WaveletsL1(prior.Synthesis, thresh, basis)
	}

	if exp.Setting == "analysis" {
		// Lengths are fixed by the basis, so the transform closures
		// cannot fail once the operator has been validated.
		fwd := func(x []complex128) []complex128 {
			cols, _ := wavelet.ExpandCoeffs(x, basis.NScales())
			flm, _ := basis.Synthesis(cols)
			return flm
		}
		adj := func(flm []complex128) []complex128 {
			cols, _ := basis.Analysis(flm)
			return wavelet.FlattenCoeffs(cols)
		}
		return prior.NewL1(prior.Analysis, fwd, adj, thresh)
	}
	return prior.NewL1(prior.Synthesis, nil, nil, thresh)
}

func buildSampler(name string, op forward.Operator, reg mcmc.Regulariser, params mcmc.Params) (mcmc.Sampler, error) {
	switch name {
	case "myula":
		return mcmc.NewMYULA(op, reg, params)
	case "pxmala":
		return mcmc.NewPxMALA(op, reg, params)
	case "skrock":
		return mcmc.NewSKROCK(op, reg, params)
	default:
		return nil, fmt.Errorf("unknown sampler %q", name)
	}
}

// sparseVector draws a vector with roughly sparsity*n standard normal
// entries and zeros elsewhere.
func sparseVector(rng *rand.Rand, n int) []complex128 {
	x := make([]complex128, n)
	for i := range x {
		if rng.Float64() < sparsity {
			x[i] = complex(rng.NormFloat64(), 0)
		}
	}
	return x
}

func addNoise(rng *rand.Rand, x []complex128, sigma float64) []complex128 {
	out := make([]complex128, len(x))
	for i, v := range x {
		out[i] = v + complex(sigma*rng.NormFloat64(), 0)
	}
	return out
}

// randomPaths draws great-circle paths with uniformly random endpoints.
func randomPaths(rng *rand.Rand, n int) ([]*geodesic.Path, error) {
	paths := make([]*geodesic.Path, n)
	for i := range paths {
		p, err := geodesic.NewPath(
			rng.Float64()*180-90, rng.Float64()*360-180,
			rng.Float64()*180-90, rng.Float64()*360-180,
		)
		if err != nil {
			return nil, err
		}
		paths[i] = p
	}
	return paths, nil
}
