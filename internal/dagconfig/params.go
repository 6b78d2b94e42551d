// Package dagconfig holds the protocol-wide constants fixed at genesis
// (spec.md §6). They are process-wide, read-only after initialization,
// and the only global state in the core - grounded on kaspad's
// dagconfig.Params.
package dagconfig

import "time"

// KType is the type of the k-cluster anti-cone bound. Kept as its own
// type (rather than a bare uint8) so blue-anticone-size bookkeeping in
// the GhostDAG engine can't be confused with an unrelated uint8,
// mirroring kaspad's dagconfig.KType.
type KType uint8

// Params holds the protocol parameters published with the genesis
// block (spec.md §6). Changing any of these requires a hard fork
// coordinated out-of-band; the core rejects blocks whose derivation is
// inconsistent with the active parameter set.
type Params struct {
	// K bounds the number of blocks in any blue block's anti-cone that
	// may also be blue. Reference value: 18.
	K KType

	// MaxParents is the maximum number of parents a block may declare.
	// Reference value: 10.
	MaxParents int

	// TargetSlotDuration is the nominal interval between proposer
	// slots. Reference value: 2000ms.
	TargetSlotDuration time.Duration

	// EpochLength is the number of slots per VRF epoch. Reference
	// value: 1024.
	EpochLength uint64

	// PruningDepth is how many blocks below head.height may be
	// pruned. Configurable; has no reference default in spec.md.
	PruningDepth uint64

	// ExpectedProposersPerSlot is used to compute the VRF eligibility
	// threshold tau. Reference value: 1.
	ExpectedProposersPerSlot float64

	// GenesisHash is the hash of the network's genesis block.
	GenesisHash [32]byte

	// TimestampDeviationTolerance bounds how far into the future a
	// block's timestamp may be relative to local time, expressed as a
	// multiple of TargetSlotDuration - grounded on kaspad's past
	// median time window sizing (pastmediantime.go uses
	// 2*TimestampDeviationTolerance-1).
	TimestampDeviationTolerance uint64
}

// MainnetParams are the reference protocol parameters from spec.md §6.
var MainnetParams = Params{
	K:                           18,
	MaxParents:                  10,
	TargetSlotDuration:          2000 * time.Millisecond,
	EpochLength:                 1024,
	PruningDepth:                115_200,
	ExpectedProposersPerSlot:    1,
	TimestampDeviationTolerance: 132,
}
