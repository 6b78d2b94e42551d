package core

import (
	"crypto/ed25519"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/lattice/internal/crypto"
	"github.com/latticenet/lattice/internal/dagconfig"
	"github.com/latticenet/lattice/internal/storage/memstore"
	"github.com/latticenet/lattice/internal/types"
)

// newCoreWithK builds a fresh core over its own genesis with the given
// k-cluster bound, matching spec scenarios that pin k explicitly.
func newCoreWithK(t *testing.T, k dagconfig.KType) (*Core, *types.Header) {
	t.Helper()
	genesis, genesisBody := genesisFixture()
	params := dagconfig.MainnetParams
	params.K = k
	c, err := New(memstore.New(), &params, genesis, genesisBody, nil)
	require.NoError(t, err)
	return c, genesis
}

func buildChild(t *testing.T, selectedParent types.Hash, mergeParents []types.Hash, height uint64, blueScore uint64, blueWork types.BlueWork, pub types.PubKey, sk ed25519.PrivateKey) *types.Header {
	t.Helper()
	h := &types.Header{
		Version:            1,
		SelectedParentHash: selectedParent,
		MergeParentHashes:  mergeParents,
		Timestamp:          1000 + height,
		Height:             height,
		BlueScore:          blueScore,
		BlueWork:           blueWork,
		ProposerPubkey:     pub,
		TxRoot:             types.Hash{byte(height)},
	}
	return h
}

// Scenario S1 - linear chain.
func TestScenarioS1LinearChain(t *testing.T) {
	c, genesis := newCoreWithK(t, 2)
	pub, sk, err := crypto.GenerateKey()
	require.NoError(t, err)

	b1 := buildChild(t, genesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
	sign(t, b1, sk)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, b1), []byte("b1")).Outcome)

	b2 := buildChild(t, b1.BlockHash, nil, 2, 2, types.NewBlueWorkFromUint64(2), pub, sk)
	sign(t, b2, sk)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, b2), []byte("b2")).Outcome)

	b3 := buildChild(t, b2.BlockHash, nil, 3, 3, types.NewBlueWorkFromUint64(3), pub, sk)
	sign(t, b3, sk)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, b3), []byte("b3")).Outcome)

	require.Equal(t, b3.BlockHash, c.GetCanonicalHead())
	meta, ok := c.store.GetMetadata(b3.BlockHash)
	require.True(t, ok)
	require.Equal(t, uint64(3), meta.BlueScore)

	order, err := c.GetCanonicalOrder(genesis.BlockHash, b3.BlockHash)
	require.NoError(t, err)
	require.Equal(t, []types.Hash{genesis.BlockHash, b1.BlockHash, b2.BlockHash, b3.BlockHash}, order)
}

// Scenario S2 - simple fork then a merging block.
func TestScenarioS2SimpleFork(t *testing.T) {
	c, genesis := newCoreWithK(t, 2)
	pub, sk, err := crypto.GenerateKey()
	require.NoError(t, err)

	left := buildChild(t, genesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
	sign(t, left, sk)
	right := buildChild(t, genesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
	right.TxRoot = types.Hash{0xCD} // distinguish from left, which would otherwise encode identically
	sign(t, right, sk)

	// Relabel so A is whichever of the two siblings has the
	// lexicographically smaller hash, matching the global tie-break.
	a, b := left, right
	if !a.BlockHash.Less(b.BlockHash) {
		a, b = right, left
	}

	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, a), []byte("a")).Outcome)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, b), []byte("b")).Outcome)

	require.ElementsMatch(t, []types.Hash{a.BlockHash, b.BlockHash}, c.store.Tips())
	require.Equal(t, a.BlockHash, c.GetCanonicalHead())

	merge := buildChild(t, a.BlockHash, []types.Hash{b.BlockHash}, 2, 3, types.NewBlueWorkFromUint64(3), pub, sk)
	sign(t, merge, sk)
	result := c.SubmitBlock(rawOf(t, merge), []byte("merge"))
	require.Equal(t, types.SubmitCommitted, result.Outcome)

	require.Equal(t, merge.BlockHash, c.GetCanonicalHead())
	meta, ok := c.store.GetMetadata(merge.BlockHash)
	require.True(t, ok)
	require.Equal(t, uint64(3), meta.BlueScore)

	for _, ancestor := range []types.Hash{genesis.BlockHash, a.BlockHash, b.BlockHash} {
		isAncestor, err := c.store.IsAncestor(ancestor, merge.BlockHash)
		require.NoError(t, err)
		require.True(t, isAncestor, "expected %s in past(merge)", ancestor)
	}
}

// Scenario S3 - k-cluster violation demotes the third sibling to red.
func TestScenarioS3KClusterViolation(t *testing.T) {
	c, genesis := newCoreWithK(t, 1)
	pub, sk, err := crypto.GenerateKey()
	require.NoError(t, err)

	siblings := make([]*types.Header, 3)
	for i := range siblings {
		h := buildChild(t, genesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
		h.TxRoot = types.Hash{byte(100 + i)} // vary to give each a distinct hash
		sign(t, h, sk)
		siblings[i] = h
	}
	sort.Slice(siblings, func(i, j int) bool { return siblings[i].BlockHash.Less(siblings[j].BlockHash) })
	a, sib1, sib2 := siblings[0], siblings[1], siblings[2]

	for _, h := range siblings {
		require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, h), []byte("s")).Outcome)
	}

	d := buildChild(t, a.BlockHash, []types.Hash{sib1.BlockHash, sib2.BlockHash}, 2, 3, types.NewBlueWorkFromUint64(3), pub, sk)
	sign(t, d, sk)
	result := c.SubmitBlock(rawOf(t, d), []byte("d"))
	require.Equal(t, types.SubmitCommitted, result.Outcome)

	meta, ok := c.store.GetMetadata(d.BlockHash)
	require.True(t, ok)
	require.Equal(t, uint64(3), meta.BlueScore)
	require.Len(t, meta.BlueSet, 2) // selected parent + exactly one sibling admitted blue
	require.False(t, meta.BlueSetContains(sib1.BlockHash) && meta.BlueSetContains(sib2.BlockHash), "k=1 must keep at least one sibling out of the blue set")
}

// Scenario S5 - missing-parent deferral then resubmission.
func TestScenarioS5MissingParentDeferral(t *testing.T) {
	c, genesis := newCoreWithK(t, 2)
	pub, sk, err := crypto.GenerateKey()
	require.NoError(t, err)

	b1 := buildChild(t, genesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
	sign(t, b1, sk)
	b2 := buildChild(t, b1.BlockHash, nil, 2, 2, types.NewBlueWorkFromUint64(2), pub, sk)
	sign(t, b2, sk)

	tipsBefore := c.store.Tips()
	result := c.SubmitBlock(rawOf(t, b2), []byte("b2"))
	require.Equal(t, types.SubmitPending, result.Outcome)
	require.Equal(t, []types.Hash{b1.BlockHash}, result.MissingParents)
	require.ElementsMatch(t, tipsBefore, c.store.Tips())
	require.False(t, c.store.Contains(b2.BlockHash))

	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, b1), []byte("b1")).Outcome)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, b2), []byte("b2")).Outcome)
}

// Scenario S6 - VRF ineligibility: a proposer below the stake-derived
// threshold is rejected even though every other check passes.
func TestScenarioS6VRFIneligibility(t *testing.T) {
	genesis, genesisBody := genesisFixture()
	pub, sk, err := crypto.GenerateKey()
	require.NoError(t, err)
	params := dagconfig.MainnetParams
	c, err := New(memstore.New(), &params, genesis, genesisBody, fakeStakes{stake: 0, total: 1000})
	require.NoError(t, err)

	child := buildChild(t, genesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
	sign(t, child, sk)

	result := c.SubmitBlock(rawOf(t, child), []byte("body"))
	require.Equal(t, types.SubmitRejected, result.Outcome)
	var target *types.InvalidProposerError
	require.ErrorAs(t, result.Reason, &target)
	require.False(t, c.store.Contains(child.BlockHash))
}

// Scenario S4 - a short but wide merge (three genesis children folded
// into one block) races a long thin chain; the canonical head follows
// whichever side currently dominates on (blue_score, blue_work), and
// flips once the thin chain's accumulated blue_work overtakes it.
func TestScenarioS4ReorgAcrossCompetingSubDAGs(t *testing.T) {
	c, genesis := newCoreWithK(t, 2)
	pub, sk, err := crypto.GenerateKey()
	require.NoError(t, err)

	trio := make([]*types.Header, 3)
	for i := range trio {
		h := buildChild(t, genesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
		h.TxRoot = types.Hash{byte(150 + i)}
		sign(t, h, sk)
		trio[i] = h
		require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, h), []byte("trio")).Outcome)
	}
	sort.Slice(trio, func(i, j int) bool { return trio[i].BlockHash.Less(trio[j].BlockHash) })
	selected, m1, m2 := trio[0], trio[1], trio[2]

	// k=2 admits selected parent plus both merge candidates into one
	// blue cluster (size k+1=3), so blue_score/blue_work jump by 3.
	heavy := buildChild(t, selected.BlockHash, []types.Hash{m1.BlockHash, m2.BlockHash}, 2, 4, types.NewBlueWorkFromUint64(4), pub, sk)
	sign(t, heavy, sk)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, heavy), []byte("heavy")).Outcome)
	require.Equal(t, heavy.BlockHash, c.GetCanonicalHead())

	// A plain single-parent chain off genesis gains blue_work 1 per
	// block, so it takes four blocks just to tie heavy's blue_work 4.
	light1 := buildChild(t, genesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
	light1.TxRoot = types.Hash{0x71}
	sign(t, light1, sk)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, light1), []byte("light1")).Outcome)
	require.Equal(t, heavy.BlockHash, c.GetCanonicalHead()) // heavy still dominates

	light2 := buildChild(t, light1.BlockHash, nil, 2, 2, types.NewBlueWorkFromUint64(2), pub, sk)
	sign(t, light2, sk)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, light2), []byte("light2")).Outcome)
	require.Equal(t, heavy.BlockHash, c.GetCanonicalHead()) // still behind

	light3 := buildChild(t, light2.BlockHash, nil, 3, 3, types.NewBlueWorkFromUint64(3), pub, sk)
	sign(t, light3, sk)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, light3), []byte("light3")).Outcome)
	require.Equal(t, heavy.BlockHash, c.GetCanonicalHead()) // still behind

	light4 := buildChild(t, light3.BlockHash, nil, 4, 4, types.NewBlueWorkFromUint64(4), pub, sk)
	sign(t, light4, sk)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, light4), []byte("light4")).Outcome)
	// light4 ties heavy on (blue_score, blue_work); which one leads now
	// depends only on the tie-break hash, so no head assertion here.

	light5 := buildChild(t, light4.BlockHash, nil, 5, 5, types.NewBlueWorkFromUint64(5), pub, sk)
	sign(t, light5, sk)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, light5), []byte("light5")).Outcome)

	// light5 unambiguously dominates heavy on blue_work: the canonical
	// head reorgs off the wide merge and onto the thin chain.
	require.Equal(t, light5.BlockHash, c.GetCanonicalHead())

	order, err := c.GetCanonicalOrder(genesis.BlockHash, light5.BlockHash)
	require.NoError(t, err)
	require.Equal(t, []types.Hash{genesis.BlockHash, light1.BlockHash, light2.BlockHash, light3.BlockHash, light4.BlockHash, light5.BlockHash}, order)
}

// Boundary B3: a merge candidate whose anti-cone exceeds k is excluded
// from the blue set rather than admitted, per TestScenarioS3KClusterViolation
// and TestClassifyMergeParentRejectedByKClusterBecomesRed in
// internal/ghostdag - this file's core-level coverage for the same
// boundary is the k=1 three-way merge in TestScenarioS3KClusterViolation
// above, so it is not duplicated here.

// Boundary B1: genesis shape.
func TestBoundaryB1GenesisShape(t *testing.T) {
	c, genesis := newCoreWithK(t, 2)
	require.True(t, genesis.IsGenesis())
	require.Zero(t, genesis.Height)

	meta, ok := c.store.GetMetadata(genesis.BlockHash)
	require.True(t, ok)
	require.Zero(t, meta.BlueScore)
	require.True(t, meta.SelectedParent.IsZero())
}

// Boundary B2: too many parents.
func TestBoundaryB2TooManyParents(t *testing.T) {
	smallCore, smallGenesis := newCoreWithMaxParents(t, 1)
	pub, sk, err := crypto.GenerateKey()
	require.NoError(t, err)

	tip1 := buildChild(t, smallGenesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
	tip1.TxRoot = types.Hash{0x11}
	sign(t, tip1, sk)
	require.Equal(t, types.SubmitCommitted, smallCore.SubmitBlock(rawOf(t, tip1), []byte("tip1")).Outcome)

	tip2 := buildChild(t, smallGenesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
	tip2.TxRoot = types.Hash{0x22}
	sign(t, tip2, sk)
	require.Equal(t, types.SubmitCommitted, smallCore.SubmitBlock(rawOf(t, tip2), []byte("tip2")).Outcome)

	smaller, bigger := tip1, tip2
	if !smaller.BlockHash.Less(bigger.BlockHash) {
		smaller, bigger = tip2, tip1
	}

	merge := buildChild(t, smaller.BlockHash, []types.Hash{bigger.BlockHash}, 2, 3, types.NewBlueWorkFromUint64(3), pub, sk)
	sign(t, merge, sk)
	result := smallCore.SubmitBlock(rawOf(t, merge), []byte("merge"))
	require.Equal(t, types.SubmitRejected, result.Outcome)
	var target *types.TooManyParentsError
	require.ErrorAs(t, result.Reason, &target)
}

func newCoreWithMaxParents(t *testing.T, max int) (*Core, *types.Header) {
	t.Helper()
	genesis, genesisBody := genesisFixture()
	params := dagconfig.MainnetParams
	params.MaxParents = max
	c, err := New(memstore.New(), &params, genesis, genesisBody, nil)
	require.NoError(t, err)
	return c, genesis
}

// Boundary B4: tie-break by smallest hash among equal (blue_score,
// blue_work) siblings.
func TestBoundaryB4TieBreakBySmallestHash(t *testing.T) {
	c, genesis := newCoreWithK(t, 2)
	pub, sk, err := crypto.GenerateKey()
	require.NoError(t, err)

	left := buildChild(t, genesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
	sign(t, left, sk)
	right := buildChild(t, genesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
	right.TxRoot = types.Hash{0xEE}
	sign(t, right, sk)

	smaller, bigger := left, right
	if !smaller.BlockHash.Less(bigger.BlockHash) {
		smaller, bigger = right, left
	}

	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, bigger), []byte("bigger")).Outcome)
	require.Equal(t, bigger.BlockHash, c.GetCanonicalHead()) // sole tip so far

	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, smaller), []byte("smaller")).Outcome)
	require.Equal(t, smaller.BlockHash, c.GetCanonicalHead()) // smallest hash wins the tie
}

// R1: submit_block followed by get_block returns the same block.
func TestRoundTripR1SubmitThenGetBlock(t *testing.T) {
	c, genesis := newCoreWithK(t, 2)
	pub, sk, err := crypto.GenerateKey()
	require.NoError(t, err)

	child := buildChild(t, genesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
	sign(t, child, sk)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(rawOf(t, child), []byte("payload")).Outcome)

	block, ok, err := c.store.GetBlock(child.BlockHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, child.BlockHash, block.Header.BlockHash)
	require.Equal(t, []byte("payload"), block.Body)
}

// R3: resubmitting a committed block is idempotent and leaves the
// store unchanged.
func TestRoundTripR3ResubmissionIsIdempotent(t *testing.T) {
	c, genesis := newCoreWithK(t, 2)
	pub, sk, err := crypto.GenerateKey()
	require.NoError(t, err)

	child := buildChild(t, genesis.BlockHash, nil, 1, 1, types.NewBlueWorkFromUint64(1), pub, sk)
	sign(t, child, sk)
	raw := rawOf(t, child)
	require.Equal(t, types.SubmitCommitted, c.SubmitBlock(raw, []byte("payload")).Outcome)

	headBefore := c.GetCanonicalHead()
	tipsBefore := c.store.Tips()

	result := c.SubmitBlock(raw, []byte("payload"))
	require.Equal(t, types.SubmitRejected, result.Outcome)
	var dup *types.AlreadyPresentError
	require.ErrorAs(t, result.Reason, &dup)
	require.Equal(t, headBefore, c.GetCanonicalHead())
	require.ElementsMatch(t, tipsBefore, c.store.Tips())
}
