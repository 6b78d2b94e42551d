// Package core is the facade wiring the DAG Store, GhostDAG Engine,
// Tip Selection and Chain Selection & VRF Proposer Election behind the
// control-input interface spec.md §6 defines: submit_block,
// propose_block_parents, get_canonical_head and get_canonical_order.
// The VRF proposer check runs only inside SubmitBlock, and only when a
// StakeTable is supplied; Core has no standalone VerifyProposer method.
// Grounded on the teacher's top-level kaspad struct
// (kaspad.go) for the "one struct wires every collaborator, exposes a
// small start/stop-shaped surface" idiom, generalized here to a
// library facade rather than a process supervisor since the core has
// no P2P/RPC of its own (spec.md §1's external-collaborator
// non-goals).
package core

import (
	"time"

	"github.com/pkg/errors"

	"github.com/latticenet/lattice/internal/chainselect"
	"github.com/latticenet/lattice/internal/crypto"
	"github.com/latticenet/lattice/internal/dagconfig"
	"github.com/latticenet/lattice/internal/dagstore"
	"github.com/latticenet/lattice/internal/ghostdag"
	"github.com/latticenet/lattice/internal/hashing"
	"github.com/latticenet/lattice/internal/logs"
	"github.com/latticenet/lattice/internal/storage"
	"github.com/latticenet/lattice/internal/tipselect"
	"github.com/latticenet/lattice/internal/types"
	"github.com/latticenet/lattice/internal/vrf"
	"github.com/latticenet/lattice/internal/wireformat"
)

var log = logs.Logger("CORE")

// StakeTable resolves a validator's stake and the committee's total
// stake at a given point, used for VRF threshold verification. An
// external collaborator (outside spec.md's scope - staking/consensus
// economics are not part of this core) supplies the concrete
// implementation; the core only ever reads through this interface.
type StakeTable interface {
	Stake(pub types.PubKey) uint64
	TotalStake() uint64
}

// Core wires the DAG Store, GhostDAG engine, tip selector and chain
// selector into the control surface external callers use.
type Core struct {
	store  *dagstore.Store
	engine *ghostdag.Engine
	tips   *tipselect.Selector
	params *dagconfig.Params
	stakes StakeTable
}

// New constructs a Core over an opened storage engine, bootstrapping
// genesis if the store is empty.
func New(storeEngine storage.Engine, params *dagconfig.Params, genesisHeader *types.Header, genesisBody []byte, stakes StakeTable) (*Core, error) {
	store, err := dagstore.Open(storeEngine, params, genesisHeader, genesisBody)
	if err != nil {
		return nil, err
	}

	gd := ghostdag.New(store, params)

	c := &Core{
		store:  store,
		engine: gd,
		params: params,
		stakes: stakes,
	}
	c.tips = tipselect.New(store, simulator{c}, params)
	return c, nil
}

// simulator adapts Core into tipselect.KClusterSimulator by running
// GhostDAG classification on a trial header built from the proposed
// parents, without structural validation and without committing it.
type simulator struct{ c *Core }

func (s simulator) WouldViolateKCluster(parents []types.Hash) (bool, error) {
	trial := &types.Header{SelectedParentHash: parents[0]}
	if len(parents) > 1 {
		trial.MergeParentHashes = parents[1:]
	}
	_, err := s.c.engine.Classify(trial)
	if err == nil {
		return false, nil
	}
	var kerr *types.KClusterViolationError
	if errors.As(err, &kerr) {
		return true, nil
	}
	return false, err
}

// SubmitBlock is the main ingestion point for external networking
// (spec.md §6): validates structure, classifies via GhostDAG, and
// commits on success.
func (c *Core) SubmitBlock(raw []byte, body []byte) types.SubmitResult {
	header, err := c.validateStructure(raw)
	if err != nil {
		return rejected(err)
	}

	if c.store.Contains(header.BlockHash) {
		return rejected(&types.AlreadyPresentError{Hash: header.BlockHash})
	}

	if header.IsGenesis() {
		return rejected(&types.InvariantViolationError{Reason: "genesis cannot be submitted through SubmitBlock"})
	}

	parents := header.Parents()
	var missing []types.Hash
	for _, p := range parents {
		if !c.store.Contains(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return types.SubmitResult{Outcome: types.SubmitPending, MissingParents: missing}
	}

	if len(parents) > c.params.MaxParents {
		return rejected(&types.TooManyParentsError{Count: len(parents), Max: c.params.MaxParents})
	}

	if err := c.validateHeight(header); err != nil {
		return rejected(err)
	}
	if err := c.validateTimestamp(header); err != nil {
		return rejected(err)
	}

	result, err := c.engine.Classify(header)
	if err != nil {
		return rejected(err)
	}
	if err := ghostdag.ValidateDeclared(header, result); err != nil {
		return rejected(err)
	}

	if c.stakes != nil {
		if !c.verifyProposerEligibility(header) {
			return rejected(&types.InvalidProposerError{Proposer: header.ProposerPubkey})
		}
	}

	oldHead := c.store.CanonicalHead()
	meta := &types.Metadata{
		BlueSet:        result.BlueSet,
		RedSet:         result.RedSet,
		BlueScore:      result.BlueScore,
		BlueWork:       result.BlueWork,
		SelectedParent: result.SelectedParent,
	}
	if err := c.store.PutBlock(header, body, meta); err != nil {
		return rejected(err)
	}
	newHead := c.store.CanonicalHead()
	if newHead != oldHead {
		if update, err := chainselect.Diff(storeView{c.store}, oldHead, newHead); err == nil && update.IsReorg() {
			log.Infof("reorg: removed %d chain block(s), added %d", len(update.Removed), len(update.Added))
		}
	}

	return types.SubmitResult{Outcome: types.SubmitCommitted, Hash: header.BlockHash}
}

func rejected(err error) types.SubmitResult {
	return types.SubmitResult{Outcome: types.SubmitRejected, Reason: err}
}

// validateStructure performs every check spec.md §7 classifies as
// "structural": decode, hash match, signature, timestamp bound,
// extra_data size. Runs before GhostDAG classification.
func (c *Core) validateStructure(raw []byte) (*types.Header, error) {
	header, err := wireformat.Decode(raw)
	if err != nil {
		return nil, err
	}

	computed := hashing.HashHeader(mustEncodeForHash(header))
	if computed != header.BlockHash {
		return nil, &types.InvalidHashError{Declared: header.BlockHash, Computed: computed}
	}

	if !header.IsGenesis() {
		payload, err := wireformat.EncodeSigningPayload(header)
		if err != nil {
			return nil, err
		}
		if !crypto.Verify(header.ProposerPubkey, payload, header.Signature) {
			return nil, &types.InvalidSignatureError{}
		}
	}

	now := uint64(nowFunc().UnixMilli())
	maxFuture := now + uint64(c.params.TimestampDeviationTolerance)*uint64(c.params.TargetSlotDuration.Milliseconds())
	if header.Timestamp > maxFuture {
		return nil, &types.TimestampOutOfRangeError{Timestamp: header.Timestamp, Bound: maxFuture}
	}
	if len(header.ExtraData) > types.ExtraDataMaxSize {
		return nil, &types.ExtraDataTooLargeError{Size: len(header.ExtraData), Max: types.ExtraDataMaxSize}
	}
	return header, nil
}

// nowFunc is overridable by tests that need deterministic timestamps.
var nowFunc = time.Now

func mustEncodeForHash(h *types.Header) []byte {
	b, err := wireformat.EncodeForHash(h)
	if err != nil {
		// Decode has already rejected an oversized extra_data, the
		// only input EncodeForHash can fail on for a decoded header,
		// so this can only fail if the header was mutated between
		// Decode and here, which core never does.
		panic(err)
	}
	return b
}

func (c *Core) validateHeight(header *types.Header) error {
	var maxParentHeight uint64
	for _, p := range header.Parents() {
		ph, ok := c.store.Header(p)
		if !ok {
			return &types.InvariantViolationError{Reason: "parent header vanished between presence check and height validation"}
		}
		if ph.Height > maxParentHeight {
			maxParentHeight = ph.Height
		}
	}
	expected := maxParentHeight + 1
	if header.Height != expected {
		return &types.InvalidHeightError{Declared: header.Height, Expected: expected}
	}
	return nil
}

// validateTimestamp enforces the monotone-non-strict rule along the
// selected-parent chain (spec.md §6/§9): a block's timestamp must not
// precede its selected parent's.
func (c *Core) validateTimestamp(header *types.Header) error {
	sp, ok := c.store.Header(header.SelectedParentHash)
	if !ok {
		return &types.InvariantViolationError{Reason: "selected parent header vanished during timestamp validation"}
	}
	if header.Timestamp < sp.Timestamp {
		return &types.TimestampOutOfRangeError{Timestamp: header.Timestamp, Bound: sp.Timestamp}
	}
	return nil
}

// verifyProposerEligibility recomputes the VRF eligibility check for a
// candidate header against the epoch seed anchored to its
// selected-parent chain (spec.md §4.4, §6's verify_proposer). The slot
// number is the candidate's own height: a block's height already
// uniquely identifies the slot it was proposed into relative to its
// selected parent, matching spec.md §4.4's "identified by the parent
// block's hash and the slot number".
func (c *Core) verifyProposerEligibility(header *types.Header) bool {
	slot := header.Height
	selectedParent, ok := c.store.Header(header.SelectedParentHash)
	if !ok {
		return false
	}
	anchorHeight := vrf.EpochAnchorHeight(selectedParent.Height, c.params.EpochLength)
	anchorHash, anchorMeta, ok := c.chainBlockAtHeight(header.SelectedParentHash, anchorHeight)
	if !ok {
		return false
	}
	epochSeed := vrf.EpochSeed(anchorHash, anchorMeta.BlueSet)

	stake := c.stakes.Stake(header.ProposerPubkey)
	totalStake := c.stakes.TotalStake()
	return vrf.VerifyProposer(header, slot, epochSeed, stake, totalStake, c.params.ExpectedProposersPerSlot)
}

// chainBlockAtHeight walks the selected-parent chain backward from from
// until it reaches the block at height, returning that block's hash and
// already-committed metadata.
func (c *Core) chainBlockAtHeight(from types.Hash, height uint64) (types.Hash, *types.Metadata, bool) {
	current := from
	for {
		h, ok := c.store.Header(current)
		if !ok {
			return types.Hash{}, nil, false
		}
		meta, ok := c.store.GetMetadata(current)
		if !ok {
			return types.Hash{}, nil, false
		}
		if h.Height <= height || h.IsGenesis() {
			return current, meta, true
		}
		current = meta.SelectedParent
	}
}

// GetCanonicalHead returns the current canonical head hash.
func (c *Core) GetCanonicalHead() types.Hash {
	return c.store.CanonicalHead()
}

// GetCanonicalOrder returns the linearised chain between from and to,
// inclusive.
func (c *Core) GetCanonicalOrder(from, to types.Hash) ([]types.Hash, error) {
	return chainselect.GetCanonicalOrder(storeView{c.store}, from, to)
}

// Anticone returns the blocks in past(reference) that are neither in
// past(hash) ∪ {hash} nor have hash as an ancestor (spec.md §4.1's
// anticone() DAG Store operation).
func (c *Core) Anticone(hash, reference types.Hash) ([]types.Hash, error) {
	return c.store.Anticone(hash, reference)
}

// ProposeBlockParents returns up to max_parents tip hashes for a
// proposer to build on.
func (c *Core) ProposeBlockParents() ([]types.Hash, error) {
	return c.tips.ProposeParents()
}

// SubscribeHeadChanges exposes the store's head-change event stream.
func (c *Core) SubscribeHeadChanges() (<-chan dagstore.HeadChange, func()) {
	return c.store.SubscribeHeadChanges()
}

// storeView adapts *dagstore.Store to chainselect.View.
type storeView struct{ s *dagstore.Store }

func (v storeView) GetMetadata(hash types.Hash) (*types.Metadata, bool) { return v.s.GetMetadata(hash) }
func (v storeView) GetBlock(hash types.Hash) (*types.Block, bool, error) {
	return v.s.GetBlock(hash)
}
