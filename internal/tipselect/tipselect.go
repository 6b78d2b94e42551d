// Package tipselect implements Tip Selection (spec.md §4.3): deciding
// which of the store's current tips a new block should build on.
// Grounded on the teacher's virtualBlock.setTips/addTip idiom
// (consensus/blockdag/virtualblock.go) for "tips are a derived view,
// recomputed by query rather than held as independently mutable
// state" - here expressed as a pure function over a read-only view
// rather than a mutable virtual block, per spec.md §9's ownership
// rewrite.
package tipselect

import (
	"sort"

	"github.com/latticenet/lattice/internal/dagconfig"
	"github.com/latticenet/lattice/internal/types"
)

// View is the read-only store access tip selection needs.
type View interface {
	Tips() []types.Hash
	GetMetadata(hash types.Hash) (*types.Metadata, bool)
}

// KClusterSimulator checks, without committing anything, whether
// adding a candidate parent set to a prospective block would violate
// the k-cluster rule (spec.md §4.3 step 3: "checked by simulating the
// GhostDAG computation").
type KClusterSimulator interface {
	WouldViolateKCluster(parents []types.Hash) (bool, error)
}

// Selector proposes parent sets for new blocks.
type Selector struct {
	view   View
	sim    KClusterSimulator
	params *dagconfig.Params
}

// New returns a tip selector bound to view, sim and params.
func New(view View, sim KClusterSimulator, params *dagconfig.Params) *Selector {
	return &Selector{view: view, sim: sim, params: params}
}

// ProposeParents returns up to max_parents tip hashes for a proposer
// to build on, ordered [selected_parent, merge_parent...] per
// spec.md §4.3.
func (s *Selector) ProposeParents() ([]types.Hash, error) {
	tips := s.view.Tips()
	if len(tips) == 0 {
		return nil, nil
	}

	refs := make([]types.BlockRef, len(tips))
	for i, t := range tips {
		refs[i] = s.refOf(t)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Dominates(refs[j]) })

	selectedParent := refs[0]
	if len(refs) == 1 {
		return []types.Hash{selectedParent.Hash}, nil
	}

	result := []types.Hash{selectedParent.Hash}
	candidates := refs[1:]

	budget := s.params.MaxParents - 1
	for _, c := range candidates {
		if budget <= 0 {
			break
		}
		trial := append(append([]types.Hash{}, result...), c.Hash)
		violates, err := s.sim.WouldViolateKCluster(trial)
		if err != nil {
			return nil, err
		}
		if violates {
			continue
		}
		result = trial
		budget--
	}
	return result, nil
}

func (s *Selector) refOf(hash types.Hash) types.BlockRef {
	meta, ok := s.view.GetMetadata(hash)
	if !ok {
		return types.BlockRef{Hash: hash}
	}
	return types.BlockRef{Hash: hash, BlueScore: meta.BlueScore, BlueWork: meta.BlueWork}
}
