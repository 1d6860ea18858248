package mcmc

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/noders-team/go-proxmc/pkg/forward"
)

// PxMALA is the proximal Metropolis-adjusted Langevin algorithm: the
// MYULA proposal corrected by an accept/reject step targeting the
// smoothed posterior exactly.
type PxMALA struct {
	chainState
}

// NewPxMALA builds the sampler.
func NewPxMALA(op forward.Operator, reg Regulariser, params Params) (*PxMALA, error) {
	st, err := newChainState(op, reg, params)
	if err != nil {
		return nil, err
	}
	return &PxMALA{chainState: st}, nil
}

func (s *PxMALA) Name() string { return "pxmala" }

// logQ is the log transition density of moving to "to" from "from" whose
// drift is given, up to the constant normalisation shared by both
// directions.
func (s *PxMALA) logQ(to, from, driftFrom []complex128) float64 {
	halfDelta := complex(s.params.Delta/2, 0)
	diff := make([]complex128, len(to))
	for i := range to {
		diff[i] = to[i] - from[i] - halfDelta*driftFrom[i]
	}
	return -sqNorm(diff) / (2 * s.params.Delta)
}

// Run executes the chain. Cancelling the context stops the run and
// returns the samples collected so far.
func (s *PxMALA) Run(ctx context.Context) (*Chain, error) {
	start := time.Now()
	n := s.op.NParams()

	x := make([]complex128, n)
	drift, preds, err := s.gradLogPi(x)
	if err != nil {
		return nil, err
	}
	lp := s.logPi(x, preds)

	chain := &Chain{Sampler: s.Name()}
	total := s.params.totalSteps()
	halfDelta := complex(s.params.Delta/2, 0)
	sqrtDelta := complex(math.Sqrt(s.params.Delta), 0)
	accepted := 0

	for step := 0; step < total; step++ {
		select {
		case <-ctx.Done():
			chain.Steps = step
			chain.Elapsed = time.Since(start)
			log.Warn().Msgf("pxmala interrupted at step %d/%d", step, total)
			return chain, ctx.Err()
		default:
		}

		xi := s.noise(n)
		prop := make([]complex128, n)
		for i := range x {
			prop[i] = x[i] + halfDelta*drift[i] + sqrtDelta*xi[i]
		}

		propDrift, propPreds, err := s.gradLogPi(prop)
		if err != nil {
			return nil, err
		}
		propLp := s.logPi(prop, propPreds)

		logAlpha := propLp - lp + s.logQ(x, prop, propDrift) - s.logQ(prop, x, drift)
		alpha := math.Exp(math.Min(0, logAlpha))
		if s.rng.Float64() < alpha {
			x, drift, lp = prop, propDrift, propLp
			accepted++
		}

		if step >= s.params.NBurn && (step-s.params.NBurn)%s.params.NGap == 0 {
			sample := make([]complex128, n)
			copy(sample, x)
			chain.Samples = append(chain.Samples, sample)
			chain.LogPost = append(chain.LogPost, lp)
			chain.Acceptance = append(chain.Acceptance, alpha)
		}

		if s.params.Verbosity > 0 && (step+1)%s.params.Verbosity == 0 {
			log.Info().Msgf("pxmala step %d/%d, acceptance %.3f", step+1, total, float64(accepted)/float64(step+1))
		}
	}

	chain.Steps = total
	chain.Elapsed = time.Since(start)
	return chain, nil
}
