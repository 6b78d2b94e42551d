// Package chainselect implements Chain Selection (spec.md §4.4): the
// selected-parent-chain diff between an old and a new canonical head,
// and the linearised canonical order an external executor replays
// transactions in. Adapted from the teacher's
// virtualBlock.updateSelectedParentSet (consensus/blockdag/virtualblock.go),
// which walks both chains back to their common ancestor and reports
// exactly which chain blocks were added and removed - the same shape
// as a reorg notification.
package chainselect

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/latticenet/lattice/internal/types"
)

// View is the read-only store access chain selection needs.
type View interface {
	GetMetadata(hash types.Hash) (*types.Metadata, bool)
	GetBlock(hash types.Hash) (*types.Block, bool, error)
}

// ChainUpdate describes how the selected-parent chain changed when the
// canonical head moved from old to new - mirrors the teacher's
// chainUpdates{removedChainBlockHashes, addedChainBlockHashes}.
type ChainUpdate struct {
	Removed []types.Hash // old chain blocks no longer on the chain, head-to-intersection order
	Added   []types.Hash // new chain blocks, intersection-to-head order
}

// IsReorg reports whether this update removed any previously canonical
// chain block - i.e. the new head is not a descendant of the old one.
func (u ChainUpdate) IsReorg() bool { return len(u.Removed) > 0 }

// Diff computes the ChainUpdate produced by moving the canonical head
// from oldHead to newHead, adapted from updateSelectedParentSet: walk
// back from newHead along selected_parent until hitting a block also
// on the old head's selected-parent chain (the intersection), then
// report everything walked on each side relative to that point.
func Diff(view View, oldHead, newHead types.Hash) (*ChainUpdate, error) {
	oldChainSet := make(map[types.Hash]struct{})
	if !oldHead.IsZero() {
		chain, err := chainToGenesis(view, oldHead)
		if err != nil {
			return nil, err
		}
		for _, h := range chain {
			oldChainSet[h] = struct{}{}
		}
	}

	var added []types.Hash
	var intersection types.Hash
	foundIntersection := false

	current := newHead
	for {
		if _, ok := oldChainSet[current]; ok {
			intersection = current
			foundIntersection = true
			break
		}
		added = append(added, current)
		meta, ok := view.GetMetadata(current)
		if !ok {
			return nil, errors.Errorf("chainselect: missing metadata for %s", current)
		}
		if meta.SelectedParent.IsZero() {
			break
		}
		current = meta.SelectedParent
	}

	if !foundIntersection && !oldHead.IsZero() {
		return nil, &types.InvariantViolationError{
			Reason: "chainselect: old and new selected-parent chains share no common ancestor",
		}
	}

	// Reverse added so it reads intersection-to-head, matching the
	// teacher's post-walk reversal in updateSelectedParentSet.
	for l, r := 0, len(added)-1; l < r; l, r = l+1, r-1 {
		added[l], added[r] = added[r], added[l]
	}

	var removed []types.Hash
	if oldHead.IsZero() {
		return &ChainUpdate{Added: added}, nil
	}
	current = oldHead
	for current != intersection {
		removed = append(removed, current)
		meta, ok := view.GetMetadata(current)
		if !ok {
			return nil, errors.Errorf("chainselect: missing metadata for %s", current)
		}
		if meta.SelectedParent.IsZero() && current != intersection {
			break
		}
		current = meta.SelectedParent
	}

	return &ChainUpdate{Removed: removed, Added: added}, nil
}

func chainToGenesis(view View, head types.Hash) ([]types.Hash, error) {
	var chain []types.Hash
	current := head
	for {
		chain = append(chain, current)
		meta, ok := view.GetMetadata(current)
		if !ok {
			return nil, errors.Errorf("chainselect: missing metadata for %s", current)
		}
		if meta.SelectedParent.IsZero() {
			break
		}
		current = meta.SelectedParent
	}
	return chain, nil
}

// GetCanonicalOrder returns the linearised sequence of blocks between
// from and to (inclusive), walking the selected-parent chain and
// interleaving each chain block's blue-set members ahead of it in
// ascending (blue_score, hash) order, the order GhostDAG admits
// merge-set blues in - spec.md §4.4's "merge-parent blocks
// interleaved by their position in the blue-set ordering of each
// chain block".
func GetCanonicalOrder(view View, from, to types.Hash) ([]types.Hash, error) {
	chain, err := chainBetween(view, from, to)
	if err != nil {
		return nil, err
	}

	var order []types.Hash
	seen := make(map[types.Hash]struct{})
	for _, chainBlock := range chain {
		meta, ok := view.GetMetadata(chainBlock)
		if !ok {
			return nil, errors.Errorf("chainselect: missing metadata for %s", chainBlock)
		}
		merge := make([]types.Hash, 0, len(meta.BlueSet))
		for _, b := range meta.BlueSet {
			if b == meta.SelectedParent {
				continue
			}
			merge = append(merge, b)
		}
		sortByBlueScoreThenHash(view, merge)
		for _, m := range merge {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				order = append(order, m)
			}
		}
		if _, ok := seen[chainBlock]; !ok {
			seen[chainBlock] = struct{}{}
			order = append(order, chainBlock)
		}
	}
	return order, nil
}

// chainBetween returns the selected-parent-chain blocks from `from` to
// `to` inclusive, in ascending (genesis-to-head) order. `to` must be a
// selected-parent-chain descendant of `from` (or `from` itself): the
// walk goes backward from `to` until reaching `from`, then reverses.
func chainBetween(view View, from, to types.Hash) ([]types.Hash, error) {
	var chain []types.Hash
	current := to
	for {
		chain = append(chain, current)
		if current == from {
			break
		}
		meta, ok := view.GetMetadata(current)
		if !ok {
			return nil, errors.Errorf("chainselect: missing metadata for %s", current)
		}
		if meta.SelectedParent.IsZero() {
			return nil, errors.Errorf("chainselect: %s is not a selected-parent-chain descendant of %s", to, from)
		}
		current = meta.SelectedParent
	}
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	return chain, nil
}

func sortByBlueScoreThenHash(view View, hashes []types.Hash) {
	scores := make(map[types.Hash]uint64, len(hashes))
	for _, h := range hashes {
		if meta, ok := view.GetMetadata(h); ok {
			scores[h] = meta.BlueScore
		}
	}
	sort.Slice(hashes, func(i, j int) bool {
		if scores[hashes[i]] != scores[hashes[j]] {
			return scores[hashes[i]] < scores[hashes[j]]
		}
		return hashes[i].Less(hashes[j])
	})
}
