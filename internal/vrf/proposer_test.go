package vrf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/lattice/internal/types"
)

func TestMachineStartsInFollower(t *testing.T) {
	m := NewMachine()
	require.Equal(t, Follower, m.State())
}

func TestMachineTransitionsToEligibleOnTick(t *testing.T) {
	m := NewMachine()
	m.OnSlotTick(true)
	require.Equal(t, Eligible, m.State())
}

func TestMachineStaysFollowerWhenIneligible(t *testing.T) {
	m := NewMachine()
	m.OnSlotTick(false)
	require.Equal(t, Follower, m.State())
}

func TestMachinePublishedThenNextTickReturnsToFollower(t *testing.T) {
	m := NewMachine()
	m.OnSlotTick(true)
	require.NoError(t, m.OnPublished())
	require.Equal(t, Proposed, m.State())

	m.OnSlotTick(false)
	require.Equal(t, Follower, m.State())
}

func TestMachinePublishFromFollowerFails(t *testing.T) {
	m := NewMachine()
	err := m.OnPublished()
	require.Error(t, err)
	require.Equal(t, Follower, m.State())
}

func TestEpochAnchorHeightRoundsDownToEpochBoundary(t *testing.T) {
	require.Equal(t, uint64(1024), EpochAnchorHeight(1500, 1024))
	require.Equal(t, uint64(0), EpochAnchorHeight(500, 1024))
	require.Equal(t, uint64(2048), EpochAnchorHeight(2048, 1024))
}

func TestEpochAnchorHeightZeroEpochLengthIsIdentity(t *testing.T) {
	require.Equal(t, uint64(777), EpochAnchorHeight(777, 0))
}

func TestEpochSeedDeterministic(t *testing.T) {
	anchor := types.Hash{1}
	blues := []types.Hash{{2}, {3}}
	require.Equal(t, EpochSeed(anchor, blues), EpochSeed(anchor, blues))
}

func TestEpochSeedDiffersOnBlueSet(t *testing.T) {
	anchor := types.Hash{1}
	require.NotEqual(t, EpochSeed(anchor, []types.Hash{{2}}), EpochSeed(anchor, []types.Hash{{3}}))
}
