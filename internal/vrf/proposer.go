package vrf

import (
	"github.com/pkg/errors"

	"github.com/latticenet/lattice/internal/hashing"
	"github.com/latticenet/lattice/internal/types"
)

// ProposerState is the per-validator local proposer state machine of
// spec.md §4.4:
//
//	Follower  --on slot tick, local VRF under threshold-->  Eligible
//	Eligible  --on block assembled & signed & published-->  Proposed
//	Proposed  --on next slot tick-->                        Follower
//	Follower  --on slot tick, local VRF over threshold-->   Follower
type ProposerState int

const (
	Follower ProposerState = iota
	Eligible
	Proposed
)

func (s ProposerState) String() string {
	switch s {
	case Follower:
		return "Follower"
	case Eligible:
		return "Eligible"
	case Proposed:
		return "Proposed"
	default:
		return "Unknown"
	}
}

// Machine tracks one validator's proposer state across slot ticks. Not
// safe for concurrent use - a validator evaluates exactly one slot at
// a time (spec.md §5: "Proposer election (VRF evaluation) is pure and
// lock-free", which here means single-threaded per validator rather
// than requiring internal locking).
type Machine struct {
	state ProposerState
}

// NewMachine returns a proposer state machine starting in Follower.
func NewMachine() *Machine { return &Machine{state: Follower} }

// State returns the current state.
func (m *Machine) State() ProposerState { return m.state }

// OnSlotTick evaluates eligibility for the current slot and
// transitions Follower -> Eligible (or stays Follower), or
// Proposed -> Follower at the start of a new slot.
func (m *Machine) OnSlotTick(eligible bool) {
	if m.state == Proposed {
		m.state = Follower
		return
	}
	if eligible {
		m.state = Eligible
	}
}

// OnPublished transitions Eligible -> Proposed once a block has been
// assembled, signed and published for the current slot.
func (m *Machine) OnPublished() error {
	if m.state != Eligible {
		return errors.Errorf("vrf: cannot publish from state %s", m.state)
	}
	m.state = Proposed
	return nil
}

// EpochSeed derives the 32-byte epoch seed from the blue set of the
// selected-parent-chain block whose height is the largest multiple of
// epochLength ≤ headHeight (spec.md §4.4). anchorBlueSet is that
// anchor block's blue set, already looked up by the caller
// (internal/core, which owns chain traversal).
func EpochSeed(anchorHash types.Hash, anchorBlueSet []types.Hash) types.Hash {
	buf := make([]byte, 0, types.HashSize*(1+len(anchorBlueSet)))
	buf = append(buf, anchorHash[:]...)
	for _, h := range anchorBlueSet {
		buf = append(buf, h[:]...)
	}
	return hashing.HashBytes(buf)
}

// EpochAnchorHeight returns the largest multiple of epochLength that
// is ≤ headHeight - the height of the block whose blue set seeds the
// current epoch.
func EpochAnchorHeight(headHeight, epochLength uint64) uint64 {
	if epochLength == 0 {
		return headHeight
	}
	return (headHeight / epochLength) * epochLength
}
