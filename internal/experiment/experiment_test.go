package experiment

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noders-team/go-proxmc/internal/chainstore"
	"github.com/noders-team/go-proxmc/internal/config"
)

func smokeExperiment(t *testing.T) *config.Experiment {
	t.Helper()
	return &config.Experiment{
		Name:     "smoke",
		Sampler:  "myula",
		Operator: "identity",
		Setting:  "synthesis",
		L:        4,
		SigD:     0.5,
		Chain: config.Chain{
			NSamples: 5,
			NBurn:    2,
			NGap:     1,
			Delta:    1e-4,
			Lambda:   1e-4,
			Mu:       1,
			Complex:  true,
			Seed:     7,
		},
		NChains:  2,
		DataSeed: 3,
		Output:   filepath.Join(t.TempDir(), "chains.db"),
	}
}

func TestRun_Identity(t *testing.T) {
	exp := smokeExperiment(t)
	results, err := Run(context.Background(), exp)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NotEqual(t, results[0].RunID, results[1].RunID)

	for _, res := range results {
		require.Len(t, res.Chain.Samples, 5)
		require.Len(t, res.Chain.Samples[0], 16)
	}

	store, err := chainstore.Open(exp.Output)
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.LoadChain(results[0].RunID)
	require.NoError(t, err)
	require.Equal(t, results[0].Chain.Samples, loaded.Samples)

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		require.Equal(t, "smoke", run.Experiment)
		require.False(t, run.FinishedAt.IsZero())
	}
}

func TestRun_Operators(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Experiment)
	}{
		{"iswt", func(e *config.Experiment) {
			e.Operator = "iswt"
			e.B = 2
			e.JMin = 0
		}},
		{"swc2pix", func(e *config.Experiment) {
			e.Operator = "swc2pix"
			e.Sampler = "pxmala"
			e.B = 2
			e.JMin = 0
		}},
		{"pathintegral", func(e *config.Experiment) {
			e.Operator = "pathintegral"
			e.Sampler = "skrock"
			e.B = 2
			e.JMin = 0
			e.NPaths = 3
			e.PathPoints = 20
		}},
		{"analysis prior", func(e *config.Experiment) {
			e.Setting = "analysis"
			e.B = 2
			e.JMin = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := smokeExperiment(t)
			exp.NChains = 1
			tt.mutate(exp)
			results, err := Run(context.Background(), exp)
			require.NoError(t, err)
			require.Len(t, results, 1)
			require.Len(t, results[0].Chain.Samples, 5)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	first := smokeExperiment(t)
	second := smokeExperiment(t)

	a, err := Run(context.Background(), first)
	require.NoError(t, err)
	b, err := Run(context.Background(), second)
	require.NoError(t, err)

	require.Equal(t, a[0].Chain.Samples, b[0].Chain.Samples)
	require.Equal(t, a[0].Chain.LogPost, b[0].Chain.LogPost)
}

func TestRun_InvalidConfig(t *testing.T) {
	exp := smokeExperiment(t)
	exp.Sampler = "gibbs"
	_, err := Run(context.Background(), exp)
	require.Error(t, err)
}
