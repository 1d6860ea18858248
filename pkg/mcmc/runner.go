package mcmc

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Sampler is a proximal MCMC chain ready to run.
type Sampler interface {
	Name() string
	Run(ctx context.Context) (*Chain, error)
}

// RunChains runs n independent chains in parallel. The build callback
// receives the chain index and a derived seed and must return a fresh
// sampler; every chain gets its own noise stream. The first failing
// chain cancels the rest.
func RunChains(ctx context.Context, n int, baseSeed uint64, build func(chain int, seed uint64) (Sampler, error)) ([]*Chain, error) {
	if n < 1 {
		return nil, fmt.Errorf("need at least one chain, got %d", n)
	}

	chains := make([]*Chain, n)
	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			// Spread the seeds so chains never share a stream.
			s, err := build(i, baseSeed+uint64(i)*0x9e3779b97f4a7c15)
			if err != nil {
				return fmt.Errorf("chain %d: %w", i, err)
			}
			chain, err := s.Run(egCtx)
			if err != nil {
				return fmt.Errorf("chain %d: %w", i, err)
			}
			chains[i] = chain
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return chains, nil
}
