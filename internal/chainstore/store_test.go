package chainstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noders-team/go-proxmc/pkg/mcmc"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chains.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testChain() *mcmc.Chain {
	return &mcmc.Chain{
		Sampler: "pxmala",
		Samples: [][]complex128{
			{complex(1.5, -0.25), complex(0, 3)},
			{complex(-2, 0.125), complex(7, -7)},
		},
		LogPost:    []float64{-12.5, -11.25},
		Acceptance: []float64{0.9, 0.75},
		Steps:      40,
		Elapsed:    3 * time.Second,
	}
}

func testMeta() *RunMeta {
	return &RunMeta{
		Experiment: "earthtopography",
		Sampler:    "pxmala",
		Params: mcmc.Params{
			NSamples: 2, NGap: 10, Delta: 2.5e-8, Lambda: 1e-7, Mu: 1, Complex: true, Seed: 3,
		},
		Operator: OperatorMeta{Name: "swc2pix", L: 16, B: 1.5, JMin: 2, Sigma: 0.03, NParams: 1234},
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	id, err := s.CreateRun(testMeta())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	chain := testChain()
	require.NoError(t, s.SaveChain(id, chain))

	got, err := s.LoadChain(id)
	require.NoError(t, err)
	if diff := cmp.Diff(chain, got); diff != "" {
		t.Errorf("chain round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_UnadjustedChainHasNoAcceptance(t *testing.T) {
	s := openTestStore(t)
	meta := testMeta()
	meta.Sampler = "myula"
	id, err := s.CreateRun(meta)
	require.NoError(t, err)

	chain := testChain()
	chain.Sampler = "myula"
	chain.Acceptance = nil
	require.NoError(t, s.SaveChain(id, chain))

	got, err := s.LoadChain(id)
	require.NoError(t, err)
	assert.Empty(t, got.Acceptance)
	assert.Len(t, got.Samples, 2)
}

func TestStore_UnknownRun(t *testing.T) {
	s := openTestStore(t)

	require.Error(t, s.SaveChain("nope", testChain()))
	_, err := s.LoadChain("nope")
	require.Error(t, err)
	_, err = s.GetRun("nope")
	require.Error(t, err)
	require.Error(t, s.FinishRun("nope"))
}

func TestStore_DuplicateSampleIndexRejected(t *testing.T) {
	s := openTestStore(t)
	id, err := s.CreateRun(testMeta())
	require.NoError(t, err)

	require.NoError(t, s.SaveChain(id, testChain()))
	// Saving the same chain again collides on (run_id, idx).
	require.Error(t, s.SaveChain(id, testChain()))
}

func TestStore_RunMetadata(t *testing.T) {
	s := openTestStore(t)
	meta := testMeta()
	id, err := s.CreateRun(meta)
	require.NoError(t, err)

	got, err := s.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "earthtopography", got.Experiment)
	assert.Equal(t, "pxmala", got.Sampler)
	assert.Equal(t, meta.Params, got.Params)
	assert.Equal(t, meta.Operator, got.Operator)
	assert.False(t, got.StartedAt.IsZero())
	assert.True(t, got.FinishedAt.IsZero(), "not finished yet")

	require.NoError(t, s.FinishRun(id))
	got, err = s.GetRun(id)
	require.NoError(t, err)
	assert.False(t, got.FinishedAt.IsZero())
}

func TestStore_ListRuns(t *testing.T) {
	s := openTestStore(t)

	first := testMeta()
	first.StartedAt = time.Now().Add(-time.Hour)
	_, err := s.CreateRun(first)
	require.NoError(t, err)

	second := testMeta()
	second.Experiment = "pathintegral"
	id2, err := s.CreateRun(second)
	require.NoError(t, err)

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Newest first.
	assert.Equal(t, id2, runs[0].ID)
	assert.Equal(t, "pathintegral", runs[0].Experiment)
}
