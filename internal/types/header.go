package types

import "time"

// ExtraDataMaxSize bounds the application-defined extra_data field on a
// header (spec.md §7, ExtraDataTooLarge).
const ExtraDataMaxSize = 4096

// Header is the consensus-relevant portion of a block, laid out in the
// exact field order of spec.md §3/§6 (the wire encoding in
// internal/wireformat preserves this order bit-for-bit).
type Header struct {
	Version             uint32
	BlockHash           Hash
	SelectedParentHash  Hash
	MergeParentHashes   []Hash
	Timestamp           uint64 // milliseconds since Unix epoch
	Height              uint64
	BlueScore           uint64
	BlueWork            BlueWork
	PruningPoint        Hash
	ProposerPubkey      PubKey
	VRFReveal           VRFProof
	TxRoot              Hash
	StateRoot           Hash
	ReceiptRoot         Hash
	ArtifactRoot        Hash
	ExtraData           []byte
	Signature           Signature
}

// Parents returns the full declared parent set: the selected parent
// together with the merge parents, per spec.md §3.
func (h *Header) Parents() []Hash {
	parents := make([]Hash, 0, 1+len(h.MergeParentHashes))
	parents = append(parents, h.SelectedParentHash)
	parents = append(parents, h.MergeParentHashes...)
	return parents
}

// IsGenesis reports whether this header declares no parents at all
// (spec.md §3 invariant 2 / boundary B1): the selected parent hash is
// the zero sentinel and there are no merge parents.
func (h *Header) IsGenesis() bool {
	return h.SelectedParentHash.IsZero() && len(h.MergeParentHashes) == 0
}

// TimestampTime returns Timestamp as a time.Time for convenience in
// logging and timestamp-range validation.
func (h *Header) TimestampTime() time.Time {
	return time.UnixMilli(int64(h.Timestamp))
}

// Block is the pair (Header, Body). The body is opaque to the core;
// only its root commitment (TxRoot) is consensus-relevant here.
type Block struct {
	Header *Header
	Body   []byte
}

// Hash returns the block's identifying hash.
func (b *Block) Hash() Hash {
	return b.Header.BlockHash
}

// Metadata is the GhostDAG-derived data stored alongside a block
// (spec.md §4.1): it is never part of the header and is immutable
// once committed.
type Metadata struct {
	BlueSet            []Hash
	RedSet             []Hash
	BlueScore          uint64
	BlueWork           BlueWork
	SelectedParent     Hash
	IsInCanonicalChain bool
}

// BlueSetContains reports whether h is a member of the metadata's blue
// set. Linear scan is adequate here: blue-set membership checks in the
// engine are bounded by k+1 entries per block (spec.md §4.2).
func (m *Metadata) BlueSetContains(h Hash) bool {
	for _, x := range m.BlueSet {
		if x == h {
			return true
		}
	}
	return false
}

// BlockRef is the minimal (hash, blue_score, blue_work) triple the
// global tie-break comparator operates on: selected-parent choice,
// canonical head choice and blue-candidate ordering (spec.md §3) all
// reduce to comparing BlockRefs.
type BlockRef struct {
	Hash      Hash
	BlueScore uint64
	BlueWork  BlueWork
}

// Dominates reports whether a should be preferred over b under the
// global tie-break policy: greatest (blue_score, blue_work), ties
// broken by the lexicographically SMALLEST hash.
func (a BlockRef) Dominates(b BlockRef) bool {
	if a.BlueScore != b.BlueScore {
		return a.BlueScore > b.BlueScore
	}
	if cmp := a.BlueWork.Cmp(b.BlueWork); cmp != 0 {
		return cmp > 0
	}
	return a.Hash.Less(b.Hash)
}

// Best returns whichever of refs dominates all the others. Best
// panics if refs is empty - callers are expected to special-case the
// empty-tip-set scenario themselves (spec.md §4.3).
func Best(refs []BlockRef) BlockRef {
	best := refs[0]
	for _, r := range refs[1:] {
		if r.Dominates(best) {
			best = r
		}
	}
	return best
}
