package mcmc

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/noders-team/go-proxmc/pkg/forward"
)

// MYULA is the Moreau-Yosida unadjusted Langevin algorithm: a plain
// Langevin discretisation of the smoothed posterior with no
// accept/reject step. Fast but carries the discretisation bias.
type MYULA struct {
	chainState
}

// NewMYULA builds the sampler.
func NewMYULA(op forward.Operator, reg Regulariser, params Params) (*MYULA, error) {
	st, err := newChainState(op, reg, params)
	if err != nil {
		return nil, err
	}
	return &MYULA{chainState: st}, nil
}

func (s *MYULA) Name() string { return "myula" }

// Run executes the chain. Cancelling the context stops the run and
// returns the samples collected so far.
func (s *MYULA) Run(ctx context.Context) (*Chain, error) {
	start := time.Now()
	n := s.op.NParams()
	x := make([]complex128, n)

	chain := &Chain{Sampler: s.Name()}
	total := s.params.totalSteps()
	halfDelta := complex(s.params.Delta/2, 0)
	sqrtDelta := complex(math.Sqrt(s.params.Delta), 0)

	for step := 0; step < total; step++ {
		select {
		case <-ctx.Done():
			chain.Steps = step
			chain.Elapsed = time.Since(start)
			log.Warn().Msgf("myula interrupted at step %d/%d", step, total)
			return chain, ctx.Err()
		default:
		}

		drift, _, err := s.gradLogPi(x)
		if err != nil {
			return nil, err
		}
		xi := s.noise(n)
		next := make([]complex128, n)
		for i := range x {
			next[i] = x[i] + halfDelta*drift[i] + sqrtDelta*xi[i]
		}
		x = next

		if step >= s.params.NBurn && (step-s.params.NBurn)%s.params.NGap == 0 {
			preds, err := s.op.Forward(x)
			if err != nil {
				return nil, err
			}
			lp := s.logPi(x, preds)
			sample := make([]complex128, n)
			copy(sample, x)
			chain.Samples = append(chain.Samples, sample)
			chain.LogPost = append(chain.LogPost, lp)
		}

		if s.params.Verbosity > 0 && (step+1)%s.params.Verbosity == 0 {
			log.Info().Msgf("myula step %d/%d, %d samples retained", step+1, total, len(chain.Samples))
		}
	}

	chain.Steps = total
	chain.Elapsed = time.Since(start)
	return chain, nil
}
