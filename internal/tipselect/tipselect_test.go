package tipselect

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/lattice/internal/dagconfig"
	"github.com/latticenet/lattice/internal/types"
)

type fakeView struct {
	tips  []types.Hash
	metas map[types.Hash]*types.Metadata
}

func (v *fakeView) Tips() []types.Hash { return v.tips }
func (v *fakeView) GetMetadata(hash types.Hash) (*types.Metadata, bool) {
	m, ok := v.metas[hash]
	return m, ok
}

// fakeSimulator rejects any trial parent set containing one of its
// forbidden hashes, standing in for a real GhostDAG k-cluster trial.
type fakeSimulator struct {
	forbidden map[types.Hash]bool
}

func (s *fakeSimulator) WouldViolateKCluster(parents []types.Hash) (bool, error) {
	for _, p := range parents {
		if s.forbidden[p] {
			return true, nil
		}
	}
	return false, nil
}

func TestProposeParentsEmptyTipsReturnsNil(t *testing.T) {
	sel := New(&fakeView{}, &fakeSimulator{}, &dagconfig.Params{MaxParents: 10})
	parents, err := sel.ProposeParents()
	require.NoError(t, err)
	require.Nil(t, parents)
}

func TestProposeParentsSingleTip(t *testing.T) {
	tip := types.Hash{1}
	view := &fakeView{tips: []types.Hash{tip}, metas: map[types.Hash]*types.Metadata{
		tip: {BlueScore: 5},
	}}
	sel := New(view, &fakeSimulator{}, &dagconfig.Params{MaxParents: 10})
	parents, err := sel.ProposeParents()
	require.NoError(t, err)
	require.Equal(t, []types.Hash{tip}, parents)
}

func TestProposeParentsOrdersSelectedParentFirstByDominance(t *testing.T) {
	low := types.Hash{1}
	high := types.Hash{2}
	view := &fakeView{
		tips: []types.Hash{low, high},
		metas: map[types.Hash]*types.Metadata{
			low:  {BlueScore: 1},
			high: {BlueScore: 10},
		},
	}
	sel := New(view, &fakeSimulator{}, &dagconfig.Params{MaxParents: 10})
	parents, err := sel.ProposeParents()
	require.NoError(t, err)
	require.Equal(t, high, parents[0])
	require.ElementsMatch(t, []types.Hash{low, high}, parents)
}

func TestProposeParentsSkipsCandidateViolatingKCluster(t *testing.T) {
	selected := types.Hash{1}
	good := types.Hash{2}
	bad := types.Hash{3}
	view := &fakeView{
		tips: []types.Hash{selected, good, bad},
		metas: map[types.Hash]*types.Metadata{
			selected: {BlueScore: 10},
			good:     {BlueScore: 5},
			bad:      {BlueScore: 1},
		},
	}
	sim := &fakeSimulator{forbidden: map[types.Hash]bool{bad: true}}
	sel := New(view, sim, &dagconfig.Params{MaxParents: 10})

	parents, err := sel.ProposeParents()
	require.NoError(t, err)
	require.Equal(t, selected, parents[0])
	require.Contains(t, parents, good)
	require.NotContains(t, parents, bad)
}

func TestProposeParentsRespectsMaxParentsBudget(t *testing.T) {
	selected := types.Hash{1}
	c1 := types.Hash{2}
	c2 := types.Hash{3}
	view := &fakeView{
		tips: []types.Hash{selected, c1, c2},
		metas: map[types.Hash]*types.Metadata{
			selected: {BlueScore: 10},
			c1:       {BlueScore: 5},
			c2:       {BlueScore: 4},
		},
	}
	sel := New(view, &fakeSimulator{}, &dagconfig.Params{MaxParents: 2})

	parents, err := sel.ProposeParents()
	require.NoError(t, err)
	require.Len(t, parents, 2)
	require.Equal(t, selected, parents[0])
}
